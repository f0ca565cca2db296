package commands

import (
	"context"
	"strings"

	"github.com/keshon/cmdcore/pkg/argument"
	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
)

func init() {
	define(func(*cmd.Registry) *cmd.Command {
		return &cmd.Command{
			ID:          "say",
			Aliases:     []string{"say", "echo"},
			Description: "Repeat text. `--loud` shouts, `--times N` repeats up to 5 times.",
			Category:    categoryFun,
			Args: []argument.Spec{
				{
					ID:        "text",
					Match:     argument.MatchRest,
					Otherwise: argument.Static("Say what?"),
				},
				{ID: "loud", Match: argument.MatchFlag, Flags: []string{"--loud", "-l"}},
				{
					ID:      "times",
					Match:   argument.MatchOption,
					Flags:   []string{"--times", "times:"},
					Type:    argument.Range(argument.Integer, 1, 5, true),
					Default: 1,
				},
			},
			Exec: say,
		}
	})
}

func say(ctx context.Context, m message.Message, args any) (any, error) {
	a := args.(argument.Args)
	text := a.String("text")
	if a.Bool("loud") {
		text = strings.ToUpper(text) + "!"
	}
	lines := make([]string, a.Int("times"))
	for i := range lines {
		lines[i] = text
	}
	return nil, m.Reply(ctx, strings.Join(lines, "\n"))
}
