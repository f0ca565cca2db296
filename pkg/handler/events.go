package handler

import (
	"context"
	"time"

	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
)

// Event names. Listeners are keyed by these strings.
const (
	EventMessageBlocked     = "messageBlocked"
	EventMessageInvalid     = "messageInvalid"
	EventCommandBlocked     = "commandBlocked"
	EventCommandStarted     = "commandStarted"
	EventCommandFinished    = "commandFinished"
	EventCommandCancelled   = "commandCancelled"
	EventCommandLocked      = "commandLocked"
	EventCommandBreakout    = "commandBreakout"
	EventMissingPermissions = "missingPermissions"
	EventCooldown           = "cooldown"
	EventInPrompt           = "inPrompt"
	EventError              = "error"
)

// Block reasons raised by the handler itself.
const (
	ReasonClient = "client"
	ReasonBot    = "bot"
)

// Event is passed to listeners. Only the fields relevant to Name are set.
type Event struct {
	Name    string
	Message message.Message
	Command *cmd.Command

	Reason         string
	PermissionType string
	Missing        []string
	Remaining      time.Duration
	Args           any
	Result         any
	// Retry is the message that broke out of a prompt.
	Retry message.Message
	Err   error
}

// Listener receives handler events. Listeners run synchronously on the
// goroutine that handles the message.
type Listener func(ctx context.Context, e Event)

// On registers fn for the named event. Listeners run in registration order.
func (h *Handler) On(name string, fn Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// New backing array so emit can iterate a snapshot without holding the lock.
	list := make([]Listener, len(h.listeners[name]), len(h.listeners[name])+1)
	copy(list, h.listeners[name])
	h.listeners[name] = append(list, fn)
}

func (h *Handler) emit(ctx context.Context, e Event) {
	h.mu.RLock()
	list := h.listeners[e.Name]
	h.mu.RUnlock()

	ev := h.log.Debug()
	if e.Name == EventError {
		ev = h.log.Error().Err(e.Err)
	}
	if e.Command != nil {
		ev = ev.Str("command", e.Command.ID)
	}
	if e.Reason != "" {
		ev = ev.Str("reason", e.Reason)
	}
	if e.Message != nil {
		ev = ev.Str("user", e.Message.AuthorID()).Str("channel", e.Message.ChannelID())
	}
	ev.Str("event", e.Name).Msg("[handler] event")

	for _, fn := range list {
		fn(ctx, e)
	}
}
