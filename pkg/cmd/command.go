// Package cmd defines the command model shared by the resolver, the inhibitors
// and the dispatcher: a command is an ID, a set of aliases, argument specs,
// restrictions and an Exec function. How messages reach it is up to adapters.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/keshon/cmdcore/pkg/argument"
	"github.com/keshon/cmdcore/pkg/message"
	"github.com/keshon/cmdcore/pkg/tokenizer"
)

// ExecFunc runs a command with its resolved arguments.
type ExecFunc func(ctx context.Context, m message.Message, args any) (any, error)

// Channel restricts where a command may run.
type Channel string

const (
	ChannelAny   Channel = ""
	ChannelGuild Channel = "guild"
	ChannelDM    Channel = "dm"
)

// Lock key shorthands for Command.LockBy.
const (
	LockGuild   = "guild"
	LockChannel = "channel"
	LockUser    = "user"
)

// Ignorer reports whether m's author bypasses a check for c.
type Ignorer func(ctx context.Context, m message.Message, c *Command) bool

// IgnoreIDs returns an Ignorer matching a fixed list of user IDs.
func IgnoreIDs(ids ...string) Ignorer {
	return func(_ context.Context, m message.Message, _ *Command) bool {
		return slices.Contains(ids, m.AuthorID())
	}
}

// RegexArgs is passed to Exec when a command was triggered by its regex.
type RegexArgs struct {
	Match   []string
	Matches [][]string
}

// Command describes one command.
type Command struct {
	ID          string
	Description string
	Category    string
	Aliases     []string

	// Prefix and PrefixFunc replace the handler prefixes for this command.
	Prefix     []string
	PrefixFunc func(ctx context.Context, m message.Message) []string

	// Args is a static argument list resolved into argument.Args. Flow takes
	// precedence when both are set.
	Args             []argument.Spec
	Flow             argument.FlowFactory
	Unquoted         bool
	Separator        string
	FlagWords        []string
	OptionFlagWords  []string
	ArgumentDefaults argument.PromptOptions

	Channel       Channel
	OwnerOnly     bool
	SuperUserOnly bool
	OnlyNSFW      bool
	Editable      bool
	Typing        bool

	ClientPermissions     int64
	UserPermissions       int64
	ClientPermissionsFunc func(ctx context.Context, m message.Message) ([]string, error)
	UserPermissionsFunc   func(ctx context.Context, m message.Message) ([]string, error)
	IgnorePermissions     Ignorer
	IgnoreCooldown        Ignorer

	Cooldown  time.Duration
	Ratelimit int
	LockBy    string
	LockFunc  func(ctx context.Context, m message.Message, args any) (string, error)

	Regex     *regexp.Regexp
	RegexFunc func(ctx context.Context, m message.Message) *regexp.Regexp
	Condition func(ctx context.Context, m message.Message) (bool, error)

	Before func(ctx context.Context, m message.Message) error
	Exec   ExecFunc
}

var (
	ErrNoID   = errors.New("command has no id")
	ErrNoExec = errors.New("command has no exec function")
)

// Validate reports configuration errors.
func (c *Command) Validate() error {
	if c.ID == "" {
		return ErrNoID
	}
	if c.Exec == nil {
		return fmt.Errorf("command %q: %w", c.ID, ErrNoExec)
	}
	switch c.Channel {
	case ChannelAny, ChannelGuild, ChannelDM:
	default:
		return fmt.Errorf("command %q: unknown channel restriction %q", c.ID, c.Channel)
	}
	switch c.LockBy {
	case "", LockGuild, LockChannel, LockUser:
	default:
		return fmt.Errorf("command %q: unknown lock %q", c.ID, c.LockBy)
	}
	if c.LockBy != "" && c.LockFunc != nil {
		return fmt.Errorf("command %q: both LockBy and LockFunc set", c.ID)
	}
	if c.Ratelimit < 0 || c.Cooldown < 0 {
		return fmt.Errorf("command %q: negative cooldown or ratelimit", c.ID)
	}
	for _, a := range c.Args {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("command %q: %w", c.ID, err)
		}
	}
	return nil
}

// RateLimit is the number of uses allowed per cooldown window.
func (c *Command) RateLimit() int {
	if c.Ratelimit <= 0 {
		return 1
	}
	return c.Ratelimit
}

// HasPrefixOverride reports whether the command uses its own prefixes.
func (c *Command) HasPrefixOverride() bool {
	return c.Prefix != nil || c.PrefixFunc != nil
}

// Prefixes returns the command's own prefixes for m.
func (c *Command) Prefixes(ctx context.Context, m message.Message) []string {
	if c.PrefixFunc != nil {
		return c.PrefixFunc(ctx, m)
	}
	return c.Prefix
}

// Trigger returns the regex that triggers the command for m, if any.
func (c *Command) Trigger(ctx context.Context, m message.Message) *regexp.Regexp {
	if c.RegexFunc != nil {
		return c.RegexFunc(ctx, m)
	}
	return c.Regex
}

// FlowFactory returns the argument flow for the command.
func (c *Command) FlowFactory() argument.FlowFactory {
	if c.Flow != nil {
		return c.Flow
	}
	return argument.List(c.Args)
}

// TokenizerOptions derives tokenizer settings from the command's arguments.
func (c *Command) TokenizerOptions() tokenizer.Options {
	opts := tokenizer.Options{
		FlagWords:       slices.Clone(c.FlagWords),
		OptionFlagWords: slices.Clone(c.OptionFlagWords),
		Quoted:          !c.Unquoted,
		Separator:       c.Separator,
	}
	for _, a := range c.Args {
		switch a.Match {
		case argument.MatchFlag:
			opts.FlagWords = append(opts.FlagWords, a.Flags...)
		case argument.MatchOption:
			opts.OptionFlagWords = append(opts.OptionFlagWords, a.Flags...)
		}
	}
	return opts
}

// LockKey returns the key that serialises concurrent runs, or "" when the
// command is not locked.
func (c *Command) LockKey(ctx context.Context, m message.Message, args any) (string, error) {
	switch c.LockBy {
	case LockGuild:
		return m.GuildID(), nil
	case LockChannel:
		return m.ChannelID(), nil
	case LockUser:
		return m.AuthorID(), nil
	}
	if c.LockFunc != nil {
		return c.LockFunc(ctx, m, args)
	}
	return "", nil
}
