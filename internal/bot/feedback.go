// Package bot wires transport-independent behaviour onto a command handler:
// user-facing replies for blocked commands and logging of every outcome.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/cmdcore/pkg/handler"
	"github.com/keshon/cmdcore/pkg/inhibitor"
)

// Attach registers the feedback listeners on h.
func Attach(h *handler.Handler, log zerolog.Logger) {
	log = log.With().Str("component", "bot").Logger()

	h.On(handler.EventCommandBlocked, func(ctx context.Context, e handler.Event) {
		if text := blockedText(e.Reason); text != "" {
			reply(ctx, log, e, text)
		}
	})
	h.On(handler.EventMissingPermissions, func(ctx context.Context, e handler.Event) {
		who := "You are"
		if e.PermissionType == inhibitor.PermissionClient {
			who = "I am"
		}
		reply(ctx, log, e, fmt.Sprintf("%s missing permissions: %s", who, strings.Join(e.Missing, ", ")))
	})
	h.On(handler.EventCooldown, func(ctx context.Context, e handler.Event) {
		reply(ctx, log, e, fmt.Sprintf("⏳ Slow down, try again in %s.", e.Remaining.Round(100*time.Millisecond)))
	})
	h.On(handler.EventCommandLocked, func(ctx context.Context, e handler.Event) {
		reply(ctx, log, e, "That command is already running here, wait for it to finish.")
	})
	h.On(handler.EventCommandStarted, func(_ context.Context, e handler.Event) {
		log.Info().
			Str("command", e.Command.ID).
			Str("user", e.Message.AuthorID()).
			Str("channel", e.Message.ChannelID()).
			Msg("command started")
	})
	h.On(handler.EventError, func(ctx context.Context, e handler.Event) {
		ev := log.Error().Err(e.Err)
		if e.Command != nil {
			ev = ev.Str("command", e.Command.ID)
		}
		ev.Msg("error running command")
		if e.Command != nil && e.Message != nil {
			reply(ctx, log, e, fmt.Sprintf("Error running command: %v", e.Err))
		}
	})
}

func blockedText(reason string) string {
	switch reason {
	case inhibitor.ReasonOwner:
		return "Only the bot owner can use that."
	case inhibitor.ReasonSuperUser:
		return "Only trusted users can use that."
	case inhibitor.ReasonGuild:
		return "That command only works in a server."
	case inhibitor.ReasonDM:
		return "That command only works in direct messages."
	case inhibitor.ReasonNotNSFW:
		return "That command only works in NSFW channels."
	}
	return ""
}

func reply(ctx context.Context, log zerolog.Logger, e handler.Event, text string) {
	if err := e.Message.Reply(ctx, text); err != nil {
		log.Warn().Err(err).Str("event", e.Name).Msg("failed to send feedback")
	}
}
