// Package console adapts terminal input to the command core so commands can
// be tried without a chat connection.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/keshon/cmdcore/pkg/message"
)

// Session is one local user typing into one channel.
type Session struct {
	UserID    string
	ChannelID string
	// GuildID empty makes every message a direct message.
	GuildID string
	NSFW    bool

	mu  sync.Mutex
	out io.Writer
}

func NewSession(out io.Writer, userID string) *Session {
	return &Session{UserID: userID, ChannelID: "console", GuildID: "local", out: out}
}

// Message wraps one input line.
func (s *Session) Message(text string) *Message {
	return &Message{id: uuid.NewString(), text: text, session: s, created: time.Now()}
}

func (s *Session) write(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range strings.Split(text, "\n") {
		if _, err := fmt.Fprintf(s.out, "bot> %s\n", line); err != nil {
			return err
		}
	}
	return nil
}

type Message struct {
	id      string
	text    string
	session *Session
	created time.Time
}

var (
	_ message.Message = (*Message)(nil)
	_ message.Typer   = (*Message)(nil)
)

func (m *Message) ID() string           { return m.id }
func (m *Message) Content() string      { return m.text }
func (m *Message) AuthorID() string     { return m.session.UserID }
func (m *Message) AuthorIsBot() bool    { return false }
func (m *Message) ChannelID() string    { return m.session.ChannelID }
func (m *Message) GuildID() string      { return m.session.GuildID }
func (m *Message) ChannelNSFW() bool    { return m.session.NSFW }
func (m *Message) CreatedAt() time.Time { return m.created }
func (m *Message) Edited() bool         { return false }

func (m *Message) Reply(_ context.Context, text string) error {
	return m.session.write(text)
}

func (m *Message) Typing(context.Context) error {
	return m.session.write("…")
}
