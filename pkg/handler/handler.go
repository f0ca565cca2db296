// Package handler turns inbound messages into command runs.
//
// For every message the handler runs the "all" and "pre" inhibitors, resolves
// the command, runs the post checks and the cooldown, resolves arguments,
// takes the command lock and finally executes the command. Every outcome is
// reported as an event; see On.
package handler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/keshon/cmdcore/pkg/argument"
	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/cooldown"
	"github.com/keshon/cmdcore/pkg/inhibitor"
	"github.com/keshon/cmdcore/pkg/invocation"
	"github.com/keshon/cmdcore/pkg/lockset"
	"github.com/keshon/cmdcore/pkg/message"
	"github.com/keshon/cmdcore/pkg/tokenizer"
)

// Options configures a Handler. Zero values are usable; see each field.
type Options struct {
	// Registry defaults to cmd.DefaultRegistry.
	Registry *cmd.Registry
	// Inhibitors defaults to an empty chain.
	Inhibitors  *inhibitor.Chain
	Permissions message.PermissionChecker

	Prefix       invocation.PrefixFunc
	AllowMention func(ctx context.Context, m message.Message) bool
	SelfID       func() string

	NoBlockClient bool
	NoBlockBots   bool

	Owners     []string
	SuperUsers []string

	DefaultCooldown time.Duration
	// IgnoreCooldown defaults to the owners.
	IgnoreCooldown    cmd.Ignorer
	IgnorePermissions cmd.Ignorer
	ArgumentDefaults  argument.PromptOptions
	BuiltinsLast      bool
	HandleEdits       bool
	Typing            bool
	Middlewares       []cmd.Middleware

	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger
	Clock  func() time.Time
}

// Handler dispatches messages to commands. It is safe for concurrent use;
// transports call Handle from one goroutine per message.
type Handler struct {
	opts      Options
	log       zerolog.Logger
	registry  *cmd.Registry
	chain     *inhibitor.Chain
	resolver  *invocation.Resolver
	cooldowns *cooldown.Tracker
	locks     *lockset.Group
	prompts   *prompts

	mu        sync.RWMutex
	listeners map[string][]Listener
}

func New(opts Options) *Handler {
	if opts.Registry == nil {
		opts.Registry = cmd.DefaultRegistry
	}
	if opts.Inhibitors == nil {
		opts.Inhibitors = inhibitor.NewChain()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SelfID == nil {
		opts.SelfID = func() string { return "" }
	}
	if opts.IgnoreCooldown == nil {
		opts.IgnoreCooldown = cmd.IgnoreIDs(opts.Owners...)
	}

	h := &Handler{
		opts:      opts,
		log:       zerolog.Nop(),
		registry:  opts.Registry,
		chain:     opts.Inhibitors,
		cooldowns: cooldown.New(),
		locks:     lockset.NewGroup(),
		listeners: make(map[string][]Listener),
	}
	if opts.Logger != nil {
		h.log = opts.Logger.With().Str("component", "handler").Logger()
	}
	h.resolver = &invocation.Resolver{
		Registry:     opts.Registry,
		Prefix:       opts.Prefix,
		AllowMention: opts.AllowMention,
		SelfID:       opts.SelfID,
	}
	h.prompts = newPrompts(h)
	h.chain.SetBuiltins(&inhibitor.Builtins{
		Owners:            opts.Owners,
		SuperUsers:        opts.SuperUsers,
		Permissions:       opts.Permissions,
		SelfID:            opts.SelfID,
		IgnorePermissions: opts.IgnorePermissions,
	}, opts.BuiltinsLast)
	return h
}

func (h *Handler) Registry() *cmd.Registry { return h.registry }

func (h *Handler) Inhibitors() *inhibitor.Chain { return h.chain }

func (h *Handler) Resolver() *invocation.Resolver { return h.resolver }

func (h *Handler) Cooldowns() *cooldown.Tracker { return h.cooldowns }

// Locks returns the lock set of a command.
func (h *Handler) Locks(commandID string) *lockset.Set { return h.locks.For(commandID) }

// Stop releases cooldown timers.
func (h *Handler) Stop() { h.cooldowns.Stop() }

// CommandError ties an error to the command that produced it.
type CommandError struct {
	Command *cmd.Command
	Err     error
}

func (e *CommandError) Error() string { return fmt.Sprintf("command %q: %v", e.Command.ID, e.Err) }
func (e *CommandError) Unwrap() error { return e.Err }

func wrap(c *cmd.Command, err error) error {
	if err == nil {
		return nil
	}
	var ce *CommandError
	if errors.As(err, &ce) {
		return err
	}
	return &CommandError{Command: c, Err: err}
}

type outcome int

const (
	stopped outcome = iota
	invalid
	ran
)

// Handle processes one message and reports whether a command ran. Failures
// are reported through the error event.
func (h *Handler) Handle(ctx context.Context, m message.Message) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			h.emitError(ctx, m, fmt.Errorf("panic: %v", r))
			handled = false
		}
	}()

	res, err := h.handle(ctx, m)
	if err != nil {
		h.emitError(ctx, m, err)
		return false
	}
	return res == ran
}

func (h *Handler) emitError(ctx context.Context, m message.Message, err error) {
	e := Event{Name: EventError, Message: m, Err: err}
	var ce *CommandError
	if errors.As(err, &ce) {
		e.Command = ce.Command
		e.Err = ce.Err
	}
	h.emit(ctx, e)
}

func (h *Handler) handle(ctx context.Context, m message.Message) (outcome, error) {
	if m.Edited() && !h.opts.HandleEdits {
		return stopped, nil
	}

	// Sample before delivering so a reply that finishes a prompt is still
	// treated as part of it.
	inPrompt := h.prompts.inPrompt(m)
	h.prompts.deliver(m)

	blocked, err := h.runAll(ctx, m, inPrompt)
	if err != nil || blocked {
		return stopped, err
	}

	blk, err := h.chain.Test(ctx, inhibitor.PhasePre, m, nil)
	if err != nil {
		return stopped, err
	}
	if blk != nil {
		h.emit(ctx, Event{Name: EventMessageBlocked, Message: m, Reason: blk.Reason})
		return stopped, nil
	}

	parsed := h.resolver.Resolve(ctx, m)
	var res outcome
	if parsed.Command != nil {
		res, err = h.handleDirect(ctx, m, parsed.Content, parsed.Command, false)
	} else {
		res, err = h.handleTriggers(ctx, m)
	}
	if err != nil {
		return stopped, err
	}
	if res == invalid {
		h.emit(ctx, Event{Name: EventMessageInvalid, Message: m})
		return stopped, nil
	}
	return res, nil
}

func (h *Handler) runAll(ctx context.Context, m message.Message, inPrompt bool) (bool, error) {
	blk, err := h.chain.Test(ctx, inhibitor.PhaseAll, m, nil)
	if err != nil {
		return true, err
	}
	switch {
	case blk != nil:
		h.emit(ctx, Event{Name: EventMessageBlocked, Message: m, Reason: blk.Reason})
	case !h.opts.NoBlockClient && m.AuthorID() != "" && m.AuthorID() == h.opts.SelfID():
		h.emit(ctx, Event{Name: EventMessageBlocked, Message: m, Reason: ReasonClient})
	case !h.opts.NoBlockBots && m.AuthorIsBot():
		h.emit(ctx, Event{Name: EventMessageBlocked, Message: m, Reason: ReasonBot})
	case inPrompt:
		h.emit(ctx, Event{Name: EventInPrompt, Message: m})
	default:
		return false, nil
	}
	return true, nil
}

// runPost runs the post phase and the cooldown. It reports whether c is
// blocked for m.
func (h *Handler) runPost(ctx context.Context, m message.Message, c *cmd.Command) (bool, error) {
	blk, err := h.chain.Post(ctx, m, c)
	if err != nil {
		return true, wrap(c, err)
	}
	if blk != nil {
		if blk.IsPermission() {
			h.emit(ctx, Event{Name: EventMissingPermissions, Message: m, Command: c, PermissionType: blk.PermissionType, Missing: blk.Missing})
		} else {
			h.emit(ctx, Event{Name: EventCommandBlocked, Message: m, Command: c, Reason: blk.Reason})
		}
		return true, nil
	}
	return h.runCooldown(ctx, m, c), nil
}

func (h *Handler) runCooldown(ctx context.Context, m message.Message, c *cmd.Command) bool {
	ignore := c.IgnoreCooldown
	if ignore == nil {
		ignore = h.opts.IgnoreCooldown
	}
	if ignore(ctx, m, c) {
		return false
	}

	window := c.Cooldown
	if window == 0 {
		window = h.opts.DefaultCooldown
	}
	if window <= 0 {
		return false
	}

	at := m.CreatedAt()
	if at.IsZero() {
		at = h.opts.Clock()
	}
	blocked, remaining := h.cooldowns.Check(m.AuthorID(), c.ID, window, c.RateLimit(), at)
	if blocked {
		h.emit(ctx, Event{Name: EventCooldown, Message: m, Command: c, Remaining: remaining})
	}
	return blocked
}

// handleDirect runs c with content as its argument text. With ignore set the
// post checks, cooldown and lock are skipped, as for Continue targets.
func (h *Handler) handleDirect(ctx context.Context, m message.Message, content string, c *cmd.Command, ignore bool) (outcome, error) {
	if m.Edited() && !c.Editable {
		return invalid, nil
	}

	if !ignore {
		blocked, err := h.runPost(ctx, m, c)
		if err != nil || blocked {
			return stopped, err
		}
	}

	if c.Before != nil {
		if err := c.Before(ctx, m); err != nil {
			return stopped, wrap(c, err)
		}
	}

	parsed := tokenizer.Parse(content, c.TokenizerOptions())
	runner := argument.NewRunner(h.prompts, h.opts.ArgumentDefaults.Merge(c.ArgumentDefaults))
	args, err := runner.Run(ctx, m, parsed, c.FlowFactory())
	if err != nil {
		return stopped, wrap(c, err)
	}

	if sig, ok := argument.AsSignal(args); ok {
		switch sig.Kind() {
		case argument.KindRetry:
			h.emit(ctx, Event{Name: EventCommandBreakout, Message: m, Command: c, Retry: sig.Message})
			return h.handle(ctx, sig.Message)
		case argument.KindContinue:
			next := h.registry.Get(sig.Command)
			if next == nil {
				return stopped, wrap(c, fmt.Errorf("continue to unknown command %q", sig.Command))
			}
			return h.handleDirect(ctx, m, sig.Rest, next, sig.Ignore)
		default:
			h.emit(ctx, Event{Name: EventCommandCancelled, Message: m, Command: c})
			return stopped, nil
		}
	}

	if !ignore {
		key, err := c.LockKey(ctx, m, args)
		if err != nil {
			return stopped, wrap(c, err)
		}
		if key != "" {
			set := h.locks.For(c.ID)
			if !set.Acquire(key) {
				h.emit(ctx, Event{Name: EventCommandLocked, Message: m, Command: c})
				return stopped, nil
			}
			defer set.Release(key)
		}
	}

	if err := h.run(ctx, m, c, args); err != nil {
		return stopped, err
	}
	return ran, nil
}

func (h *Handler) run(ctx context.Context, m message.Message, c *cmd.Command, args any) error {
	if c.Typing || h.opts.Typing {
		if t, ok := m.(message.Typer); ok {
			if err := t.Typing(ctx); err != nil {
				h.log.Warn().Err(err).Str("command", c.ID).Msg("[handler] typing indicator failed")
			}
		}
	}

	h.emit(ctx, Event{Name: EventCommandStarted, Message: m, Command: c, Args: args})

	cctx := h.log.With().Str("command", c.ID).Logger().WithContext(ctx)
	ret, err := cmd.Apply(c.Exec, h.opts.Middlewares...)(cctx, m, args)
	if err != nil {
		return wrap(c, err)
	}

	h.emit(ctx, Event{Name: EventCommandFinished, Message: m, Command: c, Args: args, Result: ret})
	return nil
}

// handleTriggers runs regex and condition commands. Each matching command
// runs concurrently; a failing one does not stop the others.
func (h *Handler) handleTriggers(ctx context.Context, m message.Message) (outcome, error) {
	type match struct {
		c    *cmd.Command
		args any
	}
	var matches []match

	for _, c := range h.registry.RegexCommands() {
		if m.Edited() && !c.Editable {
			continue
		}
		re := c.Trigger(ctx, m)
		if re == nil {
			continue
		}
		if args, ok := regexArgs(re, m.Content()); ok {
			matches = append(matches, match{c: c, args: args})
		}
	}

	for _, c := range h.registry.ConditionCommands() {
		if m.Edited() && !c.Editable {
			continue
		}
		ok, err := c.Condition(ctx, m)
		if err != nil {
			h.emitError(ctx, m, wrap(c, err))
			continue
		}
		if ok {
			matches = append(matches, match{c: c, args: argument.Args{}})
		}
	}

	if len(matches) == 0 {
		return invalid, nil
	}

	var g errgroup.Group
	for _, mt := range matches {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					h.emitError(ctx, m, wrap(mt.c, fmt.Errorf("panic: %v", r)))
				}
			}()
			if err := h.runTriggered(ctx, m, mt.c, mt.args); err != nil {
				h.emitError(ctx, m, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return ran, nil
}

func (h *Handler) runTriggered(ctx context.Context, m message.Message, c *cmd.Command, args any) error {
	blocked, err := h.runPost(ctx, m, c)
	if err != nil || blocked {
		return err
	}
	if c.Before != nil {
		if err := c.Before(ctx, m); err != nil {
			return wrap(c, err)
		}
	}
	return h.run(ctx, m, c, args)
}

func regexArgs(re *regexp.Regexp, content string) (cmd.RegexArgs, bool) {
	first := re.FindStringSubmatch(content)
	if first == nil {
		return cmd.RegexArgs{}, false
	}
	return cmd.RegexArgs{Match: first, Matches: re.FindAllStringSubmatch(content, -1)}, true
}
