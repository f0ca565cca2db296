package discord

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/cmdcore/pkg/message"
)

// maxMessageLen is Discord's limit for message content.
const maxMessageLen = 2000

// Message adapts a discordgo message to the command core.
type Message struct {
	msg    *discordgo.Message
	edited bool
	bot    *Bot
}

var (
	_ message.Message = (*Message)(nil)
	_ message.Typer   = (*Message)(nil)
)

func (m *Message) ID() string      { return m.msg.ID }
func (m *Message) Content() string { return m.msg.Content }

func (m *Message) AuthorID() string {
	if m.msg.Author == nil {
		return ""
	}
	return m.msg.Author.ID
}

func (m *Message) AuthorIsBot() bool { return m.msg.Author != nil && m.msg.Author.Bot }
func (m *Message) ChannelID() string { return m.msg.ChannelID }
func (m *Message) GuildID() string   { return m.msg.GuildID }

func (m *Message) ChannelNSFW() bool {
	return m.bot.channelNSFW(m.msg.ChannelID)
}

func (m *Message) CreatedAt() time.Time { return m.msg.Timestamp }
func (m *Message) Edited() bool         { return m.edited || m.msg.EditedTimestamp != nil }

// Raw returns the underlying discordgo message.
func (m *Message) Raw() *discordgo.Message { return m.msg }

// Reply sends text as a reply. Long text continues in plain follow-up
// messages.
func (m *Message) Reply(ctx context.Context, text string) error {
	for i, part := range chunk(text, maxMessageLen) {
		err := m.bot.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			if i == 0 {
				_, err = m.bot.api.ChannelMessageSendReply(m.msg.ChannelID, part, m.msg.Reference(), discordgo.WithContext(ctx))
			} else {
				_, err = m.bot.api.ChannelMessageSend(m.msg.ChannelID, part, discordgo.WithContext(ctx))
			}
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Message) Typing(ctx context.Context) error {
	return m.bot.retry.Do(ctx, func(ctx context.Context) error {
		return m.bot.api.ChannelTyping(m.msg.ChannelID, discordgo.WithContext(ctx))
	})
}

// chunk splits text into parts of at most limit runes, preferring line breaks.
func chunk(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			n = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		size := utf8.RuneCountInString(line)
		if n+size > limit {
			flush()
		}
		for size > limit {
			cut := byteIndexOfRune(line, limit)
			parts = append(parts, line[:cut])
			line = line[cut:]
			size -= limit
		}
		cur.WriteString(line)
		n += size
	}
	flush()
	return parts
}

func byteIndexOfRune(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}
