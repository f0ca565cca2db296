package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/keshon/cmdcore/pkg/argument"
	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
)

func init() {
	define(func(*cmd.Registry) *cmd.Command {
		return &cmd.Command{
			ID:          "uuid",
			Aliases:     []string{"uuid"},
			Description: "Generate UUIDs, or inspect one.",
			Category:    categoryUtil,
			Args: []argument.Spec{
				{ID: "inspect", Type: argument.UUID},
				{
					ID:      "count",
					Match:   argument.MatchOption,
					Flags:   []string{"--count", "-n"},
					Type:    argument.Range(argument.Integer, 1, 10, true),
					Default: 1,
				},
			},
			Exec: genUUID,
		}
	})
}

func genUUID(ctx context.Context, m message.Message, args any) (any, error) {
	a := args.(argument.Args)
	if id, ok := a.Get("inspect").(uuid.UUID); ok {
		return id, m.Reply(ctx, fmt.Sprintf("`%s` is a version %d UUID (%s).", id, id.Version(), id.Variant()))
	}
	text := ""
	for range a.Int("count") {
		text += "`" + uuid.NewString() + "`\n"
	}
	return nil, m.Reply(ctx, text[:len(text)-1])
}
