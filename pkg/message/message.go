// Package message defines the transport-agnostic view of an inbound chat message.
// Adapters (Discord, console, tests) implement Message; the command core never
// touches a transport type directly.
package message

import (
	"context"
	"time"
)

// Message is one inbound chat message as seen by the command core.
type Message interface {
	ID() string
	Content() string
	AuthorID() string
	AuthorIsBot() bool
	ChannelID() string
	// GuildID is empty for direct messages.
	GuildID() string
	ChannelNSFW() bool
	// CreatedAt may be zero, in which case the handler clock is used.
	CreatedAt() time.Time
	Edited() bool
	// Reply sends text to the channel the message came from.
	Reply(ctx context.Context, text string) error
}

// PermissionChecker resolves channel permissions for a user. Adapters that have
// no notion of permissions can leave it nil on the handler.
type PermissionChecker interface {
	// Missing returns the names of the bits in required that userID lacks in the
	// message's channel. An empty result means the user has everything.
	Missing(ctx context.Context, m Message, userID string, required int64) ([]string, error)
}

// Typer is implemented by messages whose transport can show a typing indicator.
type Typer interface {
	Typing(ctx context.Context) error
}

// InDM reports whether m was sent outside of a guild.
func InDM(m Message) bool { return m.GuildID() == "" }
