package cmd

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/cmdcore/pkg/argument"
	"github.com/keshon/cmdcore/pkg/message"
	"github.com/keshon/cmdcore/pkg/message/messagetest"
)

func noop(context.Context, message.Message, any) (any, error) { return nil, nil }

func TestRegistry_FindAliasIgnoresCase(t *testing.T) {
	r := NewRegistry(Options{})
	require.NoError(t, r.Register(&Command{ID: "ping", Aliases: []string{"Ping", "p"}, Exec: noop}))

	assert.Equal(t, "ping", r.FindAlias("PING").ID)
	assert.Equal(t, "ping", r.FindAlias("p").ID)
	assert.Nil(t, r.FindAlias("pong"))
}

func TestRegistry_AliasReplacement(t *testing.T) {
	r := NewRegistry(Options{AliasReplacement: regexp.MustCompile(`-`)})
	require.NoError(t, r.Register(&Command{ID: "addrole", Aliases: []string{"add-role"}, Exec: noop}))

	assert.NotNil(t, r.FindAlias("add-role"))
	assert.NotNil(t, r.FindAlias("addrole"))
}

func TestRegistry_Errors(t *testing.T) {
	r := NewRegistry(Options{})
	require.NoError(t, r.Register(&Command{ID: "a", Aliases: []string{"x"}, Exec: noop}))

	err := r.Register(&Command{ID: "a", Exec: noop})
	require.ErrorIs(t, err, ErrDuplicateID)

	err = r.Register(&Command{ID: "b", Aliases: []string{"X"}, Exec: noop})
	var conflict *AliasConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "a", conflict.Existing)
	assert.Nil(t, r.Get("b"), "failed registration must not leave a partial command")

	require.ErrorIs(t, r.Register(&Command{ID: "c"}), ErrNoExec)
	require.Error(t, r.Register(&Command{ID: "d", Exec: noop, LockBy: "planet"}))
	require.Error(t, r.Register(&Command{ID: "e", Exec: noop, Channel: "voice"}))
	require.ErrorIs(t, r.Register(&Command{
		ID:   "f",
		Exec: noop,
		Args: []argument.Spec{{ID: "x", Match: "sideways"}},
	}), argument.ErrUnknownMatch)
}

func TestRegistry_PrefixOverrides(t *testing.T) {
	r := NewRegistry(Options{})
	require.NoError(t, r.Register(&Command{ID: "tag", Aliases: []string{"tag"}, Prefix: []string{"?"}, Exec: noop}))
	require.NoError(t, r.Register(&Command{ID: "faq", Aliases: []string{"faq"}, Prefix: []string{"?", "$"}, Exec: noop}))
	require.NoError(t, r.Register(&Command{ID: "ping", Aliases: []string{"ping"}, Exec: noop}))
	require.NoError(t, r.Register(&Command{
		ID:         "dyn",
		Aliases:    []string{"dyn"},
		PrefixFunc: func(_ context.Context, m message.Message) []string { return []string{m.GuildID() + ">"} },
		Exec:       noop,
	}))

	got := r.PrefixOverrides(context.Background(), &messagetest.Message{Guild: "g1"})
	require.Len(t, got, 3)
	assert.Equal(t, "?", got[0].Prefix)
	assert.Len(t, got[0].IDs, 2)
	assert.Equal(t, "$", got[1].Prefix)
	assert.Equal(t, "g1>", got[2].Prefix)
}

func TestRegistry_CategoriesAndTriggers(t *testing.T) {
	r := NewRegistry(Options{})
	r.MustRegister(&Command{ID: "b", Category: "fun", Exec: noop, Regex: regexp.MustCompile(`thanks`)})
	r.MustRegister(&Command{ID: "a", Category: "fun", Exec: noop})
	r.MustRegister(&Command{ID: "c", Exec: noop, Condition: func(context.Context, message.Message) (bool, error) { return true, nil }})

	cats := r.Categories()
	require.Len(t, cats, 2)
	assert.Equal(t, "fun", cats[0].Name)
	assert.Equal(t, "a", cats[0].Commands[0].ID)
	assert.Equal(t, "general", cats[1].Name)

	require.Len(t, r.RegexCommands(), 1)
	require.Len(t, r.ConditionCommands(), 1)
	assert.Panics(t, func() { r.MustRegister(&Command{ID: "a", Exec: noop}) })
}

func TestCommand_TokenizerOptionsAndLockKey(t *testing.T) {
	c := &Command{
		ID:        "say",
		FlagWords: []string{"-x"},
		Args: []argument.Spec{
			{ID: "loud", Match: argument.MatchFlag, Flags: []string{"--loud"}},
			{ID: "times", Match: argument.MatchOption, Flags: []string{"--times"}},
		},
		LockBy: LockChannel,
		Exec:   noop,
	}
	opts := c.TokenizerOptions()
	assert.Equal(t, []string{"-x", "--loud"}, opts.FlagWords)
	assert.Equal(t, []string{"--times"}, opts.OptionFlagWords)
	assert.True(t, opts.Quoted)

	key, err := c.LockKey(context.Background(), &messagetest.Message{Channel: "c1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "c1", key)
	assert.Equal(t, 1, c.RateLimit())
}

func TestApply_FirstIsOutermost(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next ExecFunc) ExecFunc {
			return func(ctx context.Context, m message.Message, args any) (any, error) {
				trace = append(trace, name)
				return next(ctx, m, args)
			}
		}
	}
	_, err := Apply(noop, mw("outer"), mw("inner"))(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, trace)
}
