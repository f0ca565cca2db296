// Package commands holds the bot's built-in commands. Each file defines one
// command through define; RegisterAll puts them on a registry.
package commands

import (
	"fmt"

	"github.com/keshon/cmdcore/internal/config"
	"github.com/keshon/cmdcore/pkg/argument"
	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
)

const (
	categoryInfo  = "Information"
	categoryFun   = "Fun"
	categoryUtil  = "Utility"
	categoryOwner = "Owner"
)

// PromptDefaults are the prompt texts shared by every command argument.
var PromptDefaults = argument.PromptOptions{
	Retry: func(_ message.Message, d argument.PromptData) string {
		if d.Phrase == "" {
			return "I need a value here. Type `cancel` to give up."
		}
		return fmt.Sprintf("`%s` won't do. Try again or type `cancel`.", d.Phrase)
	},
	Timeout: argument.Static("Time's up, command cancelled."),
	Ended:   argument.Static("Too many tries, command cancelled."),
	Cancel:  argument.Static("Command cancelled."),
}

type builder func(reg *cmd.Registry) *cmd.Command

var builders []builder

func define(b builder) { builders = append(builders, b) }

// RegisterAll registers every built-in command on reg. Overrides are applied
// first and disabled commands are skipped.
func RegisterAll(reg *cmd.Registry, overrides *config.Overrides) error {
	for _, build := range builders {
		c := build(reg)
		if overrides != nil {
			if c = overrides.Apply(c); c == nil {
				continue
			}
		}
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register %q: %w", c.ID, err)
		}
	}
	return nil
}
