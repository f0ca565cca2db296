package docs

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/cmdcore/pkg/argument"
	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
)

func noop(context.Context, message.Message, any) (any, error) { return nil, nil }

func TestWrite(t *testing.T) {
	reg := cmd.NewRegistry(cmd.Options{})
	reg.MustRegister(&cmd.Command{
		ID:          "say",
		Aliases:     []string{"say", "echo"},
		Description: "Repeat text.",
		Category:    "Fun",
		Args: []argument.Spec{
			{ID: "text", Match: argument.MatchRest},
			{ID: "loud", Match: argument.MatchFlag, Flags: []string{"--loud"}},
		},
		Exec: noop,
	})
	reg.MustRegister(&cmd.Command{ID: "tag", Aliases: []string{"tag"}, Prefix: []string{"?"}, Description: "Tags.", Category: "Fun", Exec: noop})
	reg.MustRegister(&cmd.Command{ID: "thanks", Regex: regexp.MustCompile(`thanks`), Description: "Reply.", Exec: noop})

	var sb strings.Builder
	require.NoError(t, Write(&sb, reg, "!"))
	out := sb.String()

	assert.Contains(t, out, "### Fun")
	assert.Contains(t, out, "- **!say <text...> [--loud]** - Repeat text. (aliases: say, echo)")
	assert.Contains(t, out, "- **?tag** - Tags.")
	assert.Contains(t, out, "- **/thanks/** - Reply.")
}
