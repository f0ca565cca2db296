package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/cmdcore/pkg/argument"
	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
)

func init() {
	define(func(reg *cmd.Registry) *cmd.Command {
		return &cmd.Command{
			ID:          "help",
			Aliases:     []string{"help", "commands", "h"},
			Description: "Show a list of available commands, or details for one.",
			Category:    categoryInfo,
			Args: []argument.Spec{{
				ID:   "command",
				Type: commandByAlias(reg),
			}},
			Exec: func(ctx context.Context, m message.Message, args any) (any, error) {
				if c, ok := args.(argument.Args).Get("command").(*cmd.Command); ok {
					return nil, m.Reply(ctx, commandHelp(c))
				}
				return nil, m.Reply(ctx, buildHelpMessage(reg))
			},
		}
	})
}

// commandByAlias casts a phrase to the registered command it names.
func commandByAlias(reg *cmd.Registry) argument.Caster {
	return func(_ context.Context, _ message.Message, phrase string) (any, error) {
		if c := reg.FindAlias(phrase); c != nil {
			return c, nil
		}
		return nil, nil
	}
}

func buildHelpMessage(reg *cmd.Registry) string {
	var sb strings.Builder
	sb.WriteString("📖 **Available Commands**\n\n")
	for _, cat := range reg.Categories() {
		fmt.Fprintf(&sb, "**%s**\n", cat.Name)
		for _, c := range cat.Commands {
			name := c.ID
			if len(c.Aliases) > 0 {
				name = c.Aliases[0]
			}
			fmt.Fprintf(&sb, "`%s` - %s\n", name, c.Description)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func commandHelp(c *cmd.Command) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**: %s", c.ID, c.Description)
	if len(c.Aliases) > 1 {
		fmt.Fprintf(&sb, "\nAliases: `%s`", strings.Join(c.Aliases, "`, `"))
	}
	if len(c.Prefix) > 0 {
		fmt.Fprintf(&sb, "\nPrefix: `%s`", strings.Join(c.Prefix, "`, `"))
	}
	if c.Cooldown > 0 {
		fmt.Fprintf(&sb, "\nCooldown: %s (%d uses)", c.Cooldown, c.RateLimit())
	}
	return sb.String()
}
