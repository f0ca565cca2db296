package commands

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
)

// Trigger commands fire on plain messages without a prefix.
func init() {
	define(func(*cmd.Registry) *cmd.Command {
		return &cmd.Command{
			ID:          "thanks",
			Description: "Reply to thanks.",
			Category:    categoryFun,
			Regex:       regexp.MustCompile(`(?i)\b(thanks?|thank you|thx)\b`),
			Cooldown:    30 * time.Second,
			Exec: func(ctx context.Context, m message.Message, _ any) (any, error) {
				return nil, m.Reply(ctx, "You're welcome! 💜")
			},
		}
	})

	define(func(*cmd.Registry) *cmd.Command {
		return &cmd.Command{
			ID:          "shout",
			Description: "Ask people to lower their voice.",
			Category:    categoryFun,
			Condition: func(_ context.Context, m message.Message) (bool, error) {
				return isShouting(m.Content()), nil
			},
			Exec: func(ctx context.Context, m message.Message, _ any) (any, error) {
				return nil, m.Reply(ctx, "Inside voices, please.")
			},
		}
	})
}

// isShouting reports whether s has at least ten letters and all are upper case.
func isShouting(s string) bool {
	letters := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if !unicode.IsUpper(r) {
			return false
		}
		letters++
	}
	return letters >= 10 && strings.TrimSpace(s) != ""
}
