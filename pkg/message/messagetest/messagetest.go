// Package messagetest provides an in-memory message.Message for tests.
package messagetest

import (
	"context"
	"sync"
	"time"

	"github.com/keshon/cmdcore/pkg/message"
)

// Message records replies instead of sending them.
type Message struct {
	MsgID     string
	Text      string
	Author    string
	Bot       bool
	Channel   string
	Guild     string
	NSFW      bool
	Timestamp time.Time
	IsEdited  bool

	mu      sync.Mutex
	replies []string
}

var _ message.Message = (*Message)(nil)

func (f *Message) ID() string           { return f.MsgID }
func (f *Message) Content() string      { return f.Text }
func (f *Message) AuthorID() string     { return f.Author }
func (f *Message) AuthorIsBot() bool    { return f.Bot }
func (f *Message) ChannelID() string    { return f.Channel }
func (f *Message) GuildID() string      { return f.Guild }
func (f *Message) ChannelNSFW() bool    { return f.NSFW }
func (f *Message) CreatedAt() time.Time { return f.Timestamp }
func (f *Message) Edited() bool         { return f.IsEdited }

// Reply records text.
func (f *Message) Reply(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, text)
	return nil
}

// Replies returns a copy of everything sent through Reply.
func (f *Message) Replies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.replies...)
}
