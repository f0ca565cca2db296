package commands

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/cmdcore/internal/config"
	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/handler"
	"github.com/keshon/cmdcore/pkg/invocation"
	"github.com/keshon/cmdcore/pkg/message/messagetest"
)

func newBot(t *testing.T, overrides *config.Overrides) *handler.Handler {
	t.Helper()
	reg := cmd.NewRegistry(cmd.Options{})
	require.NoError(t, RegisterAll(reg, overrides))
	h := handler.New(handler.Options{
		Registry:         reg,
		Prefix:           invocation.Static("!"),
		Owners:           []string{"owner"},
		SelfID:           func() string { return "bot" },
		ArgumentDefaults: PromptDefaults,
	})
	t.Cleanup(h.Stop)
	return h
}

func send(t *testing.T, h *handler.Handler, author, text string) *messagetest.Message {
	t.Helper()
	m := &messagetest.Message{Text: text, Author: author, Channel: "c1", Guild: "g1"}
	h.Handle(context.Background(), m)
	return m
}

func TestRegisterAll(t *testing.T) {
	reg := cmd.NewRegistry(cmd.Options{})
	require.NoError(t, RegisterAll(reg, nil))
	for _, id := range []string{"ping", "say", "choose", "roll", "help", "as", "tag", "thanks", "shout", "uuid"} {
		assert.NotNil(t, reg.Get(id), id)
	}
	assert.Equal(t, "say", reg.FindAlias("echo").ID)
}

func TestRegisterAll_Overrides(t *testing.T) {
	o, err := config.ParseOverrides([]byte("commands:\n  tag:\n    disabled: true\n  ping:\n    aliases: [p]\n"))
	require.NoError(t, err)

	reg := cmd.NewRegistry(cmd.Options{})
	require.NoError(t, RegisterAll(reg, o))
	assert.Nil(t, reg.Get("tag"))
	assert.Equal(t, "ping", reg.FindAlias("p").ID)
	assert.Nil(t, reg.FindAlias("pong"))
}

func TestSay(t *testing.T) {
	h := newBot(t, nil)
	assert.Equal(t, []string{"hello there"}, send(t, h, "u", "!say hello there").Replies())
	assert.Equal(t, []string{"HI!\nHI!"}, send(t, h, "u", "!echo hi --loud --times 2").Replies())
	assert.Equal(t, []string{"Say what?"}, send(t, h, "u", "!say").Replies())
}

func TestPing_Cooldown(t *testing.T) {
	h := newBot(t, nil)
	for range 2 {
		m := send(t, h, "u", "!ping")
		require.Len(t, m.Replies(), 1)
		assert.True(t, strings.HasPrefix(m.Replies()[0], "🏓 Pong!"))
	}
	assert.Empty(t, send(t, h, "u", "!ping").Replies())
	assert.Len(t, send(t, h, "owner", "!ping").Replies(), 1)
}

func TestRoll(t *testing.T) {
	prev := rollDie
	rollDie = func(sides int) int { return sides }
	t.Cleanup(func() { rollDie = prev })

	h := newBot(t, nil)
	replies := send(t, h, "u", "!roll 2d6 + 3").Replies()
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "**Result**: **15**")
}

func TestHelp(t *testing.T) {
	h := newBot(t, nil)

	all := send(t, h, "u", "!help").Replies()
	require.Len(t, all, 1)
	assert.Contains(t, all[0], "**Information**")
	assert.Contains(t, all[0], "`roll` - ")

	one := send(t, h, "u", "!help pick").Replies()
	require.Len(t, one, 1)
	assert.Contains(t, one[0], "**choose**")
	assert.Contains(t, one[0], "`choose`, `pick`")
}

func TestAs(t *testing.T) {
	h := newBot(t, nil)
	assert.Empty(t, send(t, h, "u", "!as say hi").Replies(), "owner only")
	assert.Equal(t, []string{"hi there"}, send(t, h, "owner", "!as echo hi there").Replies())
	assert.Equal(t, []string{"No command called `nope`."}, send(t, h, "owner", "!as nope").Replies())
}

func TestTag(t *testing.T) {
	h := newBot(t, nil)
	t.Cleanup(func() { tags = &tagStore{tags: make(map[string]map[string]string)} })

	assert.Equal(t, []string{"No tags yet."}, send(t, h, "u", "?tag list").Replies())
	assert.Equal(t, []string{"Saved tag `rules`."}, send(t, h, "u", "?tag set rules be nice").Replies())
	assert.Equal(t, []string{"be nice"}, send(t, h, "u", "?tag RULES").Replies())
	assert.Equal(t, []string{"Saved tag `faq`."}, send(t, h, "u", "?tag faq set read the docs").Replies())
	assert.Equal(t, []string{"Tags: `faq`, `rules`"}, send(t, h, "u", "?t list").Replies())
	assert.Equal(t, []string{"Deleted tag `faq`."}, send(t, h, "u", "?tag delete faq").Replies())
	assert.Empty(t, send(t, h, "u", "!tag rules").Replies(), "the handler prefix does not apply")
}

func TestTriggers(t *testing.T) {
	h := newBot(t, nil)
	assert.Equal(t, []string{"You're welcome! 💜"}, send(t, h, "u", "thanks for that").Replies())
	assert.ElementsMatch(t,
		[]string{"You're welcome! 💜", "Inside voices, please."},
		send(t, h, "u2", "THANK YOU SO MUCH").Replies())
	assert.Empty(t, send(t, h, "u3", "nothing to see").Replies())
}

func TestChoose_Prompt(t *testing.T) {
	prev := pick
	pick = func(n int) int { return n - 1 }
	t.Cleanup(func() { pick = prev })

	h := newBot(t, nil)
	assert.Equal(t, []string{"I choose **light green**."}, send(t, h, "u", `!choose red "light green"`).Replies())

	start := &messagetest.Message{Text: "!choose", Author: "u", Channel: "c1", Guild: "g1"}
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Handle(context.Background(), start)
	}()

	reply := func(text string) {
		require.Eventually(t, func() bool { return h.Waiting(start) }, time.Second, time.Millisecond)
		assert.False(t, h.Handle(context.Background(), &messagetest.Message{Text: text, Author: "u", Channel: "c1", Guild: "g1"}))
	}
	reply("tea")
	reply("coffee")
	reply("stop")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("prompt did not finish")
	}
	replies := start.Replies()
	require.NotEmpty(t, replies)
	assert.Equal(t, "I choose **coffee**.", replies[len(replies)-1])
}

func TestUUID(t *testing.T) {
	h := newBot(t, nil)
	replies := send(t, h, "u", "!uuid -n 3").Replies()
	require.Len(t, replies, 1)
	assert.Len(t, strings.Split(replies[0], "\n"), 3)

	replies = send(t, h, "u", "!uuid 6ba7b810-9dad-11d1-80b4-00c04fd430c8").Replies()
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "version 1")
}

func TestEvalDice(t *testing.T) {
	highest := func(sides int) int { return sides }
	tests := []struct {
		formula string
		total   int
		err     error
	}{
		{"2d6+1d4*2", 20, nil},
		{"d20 - 5", 15, nil},
		{"10/3", 3, nil},
		{"1+2*3", 7, nil},
		{"4/0", 0, ErrDivisionByZero},
		{"*3", 0, ErrDanglingOp},
		{"hello", 0, ErrEmptyFormula},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			r, err := EvalDice(tt.formula, highest)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.total, r.Total)
		})
	}

	_, err := EvalDice("101d6", highest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max 100 dice")
}
