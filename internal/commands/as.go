package commands

import (
	"context"

	"github.com/keshon/cmdcore/pkg/argument"
	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
	"github.com/keshon/cmdcore/pkg/tokenizer"
)

// "as" runs another command with the rest of the message, skipping its
// inhibitors and cooldown. Owners only.
func init() {
	define(func(reg *cmd.Registry) *cmd.Command {
		return &cmd.Command{
			ID:          "as",
			Aliases:     []string{"as", "sudo"},
			Description: "Run a command bypassing its checks.",
			Category:    categoryOwner,
			OwnerOnly:   true,
			Flow: func(message.Message, *tokenizer.Result, *argument.State) argument.Flow {
				asked := false
				return argument.FlowFunc(func(_ context.Context, prev any) (argument.Step, error) {
					if !asked {
						asked = true
						return argument.Yield(argument.Spec{
							ID:   "command",
							Type: commandByAlias(reg),
							Otherwise: func(_ message.Message, d argument.PromptData) string {
								if d.Phrase == "" {
									return "Which command?"
								}
								return "No command called `" + d.Phrase + "`."
							},
						}), nil
					}
					return argument.Emit(argument.Continue(prev.(*cmd.Command).ID, true)), nil
				})
			},
			Exec: func(context.Context, message.Message, any) (any, error) { return nil, nil },
		}
	})
}
