package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
)

func init() {
	define(func(*cmd.Registry) *cmd.Command {
		return &cmd.Command{
			ID:          "ping",
			Aliases:     []string{"ping", "pong"},
			Description: "Pong!",
			Category:    categoryInfo,
			Cooldown:    5 * time.Second,
			Ratelimit:   2,
			Exec:        ping,
		}
	})
}

func ping(ctx context.Context, m message.Message, _ any) (any, error) {
	text := "🏓 Pong!"
	if sent := m.CreatedAt(); !sent.IsZero() {
		text = fmt.Sprintf("🏓 Pong! Response time: `%dms`", time.Since(sent).Milliseconds())
	}
	return nil, m.Reply(ctx, text)
}
