package commands

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/keshon/cmdcore/pkg/argument"
	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
)

// pick is swapped in tests.
var pick = rand.IntN

func init() {
	define(func(*cmd.Registry) *cmd.Command {
		return &cmd.Command{
			ID:          "choose",
			Aliases:     []string{"choose", "pick"},
			Description: "Pick one of the given options, e.g. `choose tea coffee \"hot chocolate\"`.",
			Category:    categoryFun,
			Args: []argument.Spec{{
				ID:    "options",
				Match: argument.MatchSeparate,
				Prompt: &argument.PromptOptions{
					Start:    argument.Static("Give me the options, one per message. Say `stop` when you are done."),
					Infinite: true,
					Limit:    10,
				},
			}},
			Exec: choose,
		}
	})
}

func choose(ctx context.Context, m message.Message, args any) (any, error) {
	options := args.(argument.Args).Slice("options")
	if len(options) == 0 {
		return nil, m.Reply(ctx, "Nothing to choose from.")
	}
	choice := options[pick(len(options))]
	return choice, m.Reply(ctx, fmt.Sprintf("I choose **%v**.", choice))
}
