package commands

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/keshon/cmdcore/pkg/argument"
	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
)

var rollDie = func(sides int) int { return rand.IntN(sides) + 1 }

func init() {
	define(func(*cmd.Registry) *cmd.Command {
		return &cmd.Command{
			ID:          "roll",
			Aliases:     []string{"roll", "r"},
			Description: "Roll dice with crazy formulas like `2d6+1d4*2`",
			Category:    "🎲 Game Mechanics",
			LockBy:      cmd.LockChannel,
			Args: []argument.Spec{{
				ID:    "roll",
				Match: argument.MatchRest,
				Type:  diceFormula,
				Prompt: &argument.PromptOptions{
					Start: argument.Static("What should I roll? Try `2d6+3`."),
					Retry: func(_ message.Message, d argument.PromptData) string {
						if sig, ok := argument.AsSignal(d.Failure); ok && sig.Value != nil {
							return fmt.Sprintf("%v. Try again.", sig.Value)
						}
						return "That is not a formula I understand. Try again."
					},
					Retries: 2,
				},
			}},
			Exec: roll,
		}
	})
}

// diceFormula evaluates the phrase while casting so bad formulas are
// reprompted with the evaluation error.
func diceFormula(_ context.Context, _ message.Message, phrase string) (any, error) {
	if phrase == "" {
		return nil, nil
	}
	r, err := EvalDice(phrase, rollDie)
	if err != nil {
		return argument.Fail(err), nil
	}
	return r, nil
}

func roll(ctx context.Context, m message.Message, args any) (any, error) {
	r := args.(argument.Args).Get("roll").(Roll)
	text := fmt.Sprintf("🎲 **User Input**: `%s`\n**Calculation**: %s\n**Result**: **%d**", r.Formula, r.Detail, r.Total)
	return r, m.Reply(ctx, text)
}
