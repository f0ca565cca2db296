package inhibitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
	"github.com/keshon/cmdcore/pkg/message/messagetest"
)

func always(block bool) TestFunc {
	return func(context.Context, message.Message, *cmd.Command) (bool, error) { return block, nil }
}

func TestChain_PriorityThenRegistrationOrder(t *testing.T) {
	ch := NewChain()
	require.NoError(t, ch.Add(Inhibitor{ID: "low", Reason: "low", Phase: PhasePre, Priority: 0, Test: always(true)}))
	require.NoError(t, ch.Add(Inhibitor{ID: "high1", Reason: "first", Phase: PhasePre, Priority: 5, Test: always(true)}))
	require.NoError(t, ch.Add(Inhibitor{ID: "high2", Reason: "second", Phase: PhasePre, Priority: 5, Test: always(true)}))
	require.NoError(t, ch.Add(Inhibitor{ID: "higher", Reason: "nope", Phase: PhasePre, Priority: 9, Test: always(false)}))

	for i := 0; i < 20; i++ {
		blk, err := ch.Test(context.Background(), PhasePre, &messagetest.Message{}, nil)
		require.NoError(t, err)
		require.NotNil(t, blk)
		assert.Equal(t, "first", blk.Reason)
		assert.Equal(t, "high1", blk.Inhibitor)
	}
}

func TestChain_RunsWholePhase(t *testing.T) {
	ch := NewChain()
	var calls atomic.Int32
	counting := func(block bool) TestFunc {
		return func(context.Context, message.Message, *cmd.Command) (bool, error) {
			calls.Add(1)
			return block, nil
		}
	}
	require.NoError(t, ch.Add(Inhibitor{ID: "a", Reason: "a", Phase: PhaseAll, Test: counting(true)}))
	require.NoError(t, ch.Add(Inhibitor{ID: "b", Reason: "b", Phase: PhaseAll, Test: counting(false)}))
	require.NoError(t, ch.Add(Inhibitor{ID: "c", Reason: "c", Phase: PhasePre, Test: counting(true)}))

	blk, err := ch.Test(context.Background(), PhaseAll, &messagetest.Message{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", blk.Reason)
	assert.EqualValues(t, 2, calls.Load())
}

func TestChain_ErrorsAndRegistration(t *testing.T) {
	ch := NewChain()
	boom := errors.New("boom")
	require.NoError(t, ch.Add(Inhibitor{ID: "x", Phase: PhasePost, Test: func(context.Context, message.Message, *cmd.Command) (bool, error) {
		return false, boom
	}}))
	_, err := ch.Test(context.Background(), PhasePost, &messagetest.Message{}, &cmd.Command{ID: "c"})
	require.ErrorIs(t, err, boom)

	require.ErrorIs(t, ch.Add(Inhibitor{ID: "x", Phase: PhasePost, Test: always(true)}), ErrDuplicateInhibitor)
	require.ErrorIs(t, ch.Add(Inhibitor{ID: "y", Phase: "later", Test: always(true)}), ErrUnknownPhase)
	assert.True(t, ch.Remove("x"))
	assert.False(t, ch.Remove("x"))
}

type fakePerms map[string][]string

func (f fakePerms) Missing(_ context.Context, _ message.Message, userID string, _ int64) ([]string, error) {
	return f[userID], nil
}

func TestBuiltins(t *testing.T) {
	b := &Builtins{
		Owners:      []string{"owner"},
		SuperUsers:  []string{"su"},
		Permissions: fakePerms{"bot": {"SEND_MESSAGES"}, "user": {"BAN_MEMBERS"}},
		SelfID:      func() string { return "me" },
	}
	guild := func(author string) *messagetest.Message {
		return &messagetest.Message{Author: author, Guild: "g", Channel: "c"}
	}

	tests := []struct {
		name     string
		cmd      *cmd.Command
		msg      *messagetest.Message
		reason   string
		permType string
	}{
		{"owner only", &cmd.Command{OwnerOnly: true}, guild("su"), ReasonOwner, ""},
		{"owner passes", &cmd.Command{OwnerOnly: true}, guild("owner"), "", ""},
		{"superuser", &cmd.Command{SuperUserOnly: true}, guild("x"), ReasonSuperUser, ""},
		{"owner is superuser", &cmd.Command{SuperUserOnly: true}, guild("owner"), "", ""},
		{"guild only in dm", &cmd.Command{Channel: cmd.ChannelGuild}, &messagetest.Message{Author: "x"}, ReasonGuild, ""},
		{"dm only in guild", &cmd.Command{Channel: cmd.ChannelDM}, guild("x"), ReasonDM, ""},
		{"nsfw", &cmd.Command{OnlyNSFW: true}, guild("x"), ReasonNotNSFW, ""},
		{"owner before channel", &cmd.Command{OwnerOnly: true, Channel: cmd.ChannelDM}, guild("x"), ReasonOwner, ""},
		{"user permissions", &cmd.Command{UserPermissions: 4}, guild("user"), ReasonPermissions, PermissionUser},
		{"user permissions ok", &cmd.Command{UserPermissions: 4}, guild("x"), "", ""},
		{"permissions skipped in dm", &cmd.Command{UserPermissions: 4}, &messagetest.Message{Author: "user"}, "", ""},
		{"ignored user", &cmd.Command{UserPermissions: 4, IgnorePermissions: cmd.IgnoreIDs("user")}, guild("user"), "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blk, err := b.Test(context.Background(), tt.msg, tt.cmd)
			require.NoError(t, err)
			if tt.reason == "" {
				assert.Nil(t, blk)
				return
			}
			require.NotNil(t, blk)
			assert.Equal(t, tt.reason, blk.Reason)
			assert.Equal(t, tt.permType, blk.PermissionType)
		})
	}

	b.Permissions = fakePerms{"me": {"SEND_MESSAGES"}, "user": {"BAN_MEMBERS"}}
	blk, err := b.Test(context.Background(), guild("user"), &cmd.Command{ClientPermissions: 1, UserPermissions: 4})
	require.NoError(t, err)
	require.NotNil(t, blk)
	assert.Equal(t, PermissionClient, blk.PermissionType)
	assert.Equal(t, []string{"SEND_MESSAGES"}, blk.Missing)
}

func TestChain_PostOrder(t *testing.T) {
	ch := NewChain()
	require.NoError(t, ch.Add(Inhibitor{ID: "custom", Reason: "custom", Phase: PhasePost, Test: always(true)}))
	ch.SetBuiltins(&Builtins{}, false)

	c := &cmd.Command{ID: "c", OwnerOnly: true}
	blk, err := ch.Post(context.Background(), &messagetest.Message{Author: "x"}, c)
	require.NoError(t, err)
	assert.Equal(t, ReasonOwner, blk.Reason)

	ch.SetBuiltins(&Builtins{}, true)
	blk, err = ch.Post(context.Background(), &messagetest.Message{Author: "x"}, c)
	require.NoError(t, err)
	assert.Equal(t, "custom", blk.Reason)
}
