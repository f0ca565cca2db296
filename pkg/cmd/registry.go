package cmd

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/keshon/cmdcore/pkg/message"
)

// DefaultRegistry is the global registry commands add themselves to from init().
var DefaultRegistry = NewRegistry(Options{AliasReplacement: regexp.MustCompile(`-`)})

var ErrDuplicateID = errors.New("duplicate command id")

// AliasConflictError is returned when an alias already points at another command.
type AliasConflictError struct {
	Alias    string
	Existing string
	Command  string
}

func (e *AliasConflictError) Error() string {
	return fmt.Sprintf("alias %q of command %q conflicts with command %q", e.Alias, e.Command, e.Existing)
}

// Options configures a Registry.
type Options struct {
	// AliasReplacement, when set, also registers every alias with its matches
	// removed, so "add-role" answers to "addrole".
	AliasReplacement *regexp.Regexp
}

// Registry stores commands by ID and by lowercase alias. It is safe for
// concurrent lookups while commands are being registered.
type Registry struct {
	opts Options

	mu       sync.RWMutex
	commands map[string]*Command
	aliases  map[string]string
	order    []string
}

// NewRegistry returns an empty registry.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:     opts,
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
	}
}

// Register validates c and adds it. Nothing is added when an error is returned.
func (r *Registry) Register(c *Command) error {
	if err := c.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.commands[c.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, c.ID)
	}

	added := make(map[string]struct{})
	for _, alias := range r.normalize(c.Aliases) {
		if existing, ok := r.aliases[alias]; ok {
			return &AliasConflictError{Alias: alias, Existing: existing, Command: c.ID}
		}
		added[alias] = struct{}{}
	}

	for alias := range added {
		r.aliases[alias] = c.ID
	}
	r.commands[c.ID] = c
	r.order = append(r.order, c.ID)
	return nil
}

// MustRegister is Register for init() blocks.
func (r *Registry) MustRegister(c *Command) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

func (r *Registry) normalize(aliases []string) []string {
	seen := make(map[string]struct{}, len(aliases))
	var out []string
	add := func(a string) {
		if a == "" {
			return
		}
		if _, ok := seen[a]; ok {
			return
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	for _, a := range aliases {
		a = strings.ToLower(a)
		add(a)
		if r.opts.AliasReplacement != nil {
			add(r.opts.AliasReplacement.ReplaceAllString(a, ""))
		}
	}
	return out
}

// Get returns the command with the given ID, or nil.
func (r *Registry) Get(id string) *Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[id]
}

// FindAlias looks up a command by alias, ignoring case.
func (r *Registry) FindAlias(alias string) *Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.aliases[strings.ToLower(alias)]
	if !ok {
		return nil
	}
	return r.commands[id]
}

// All returns every command, sorted by ID.
func (r *Registry) All() []*Command {
	r.mu.RLock()
	list := make([]*Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

// Ordered returns every command in registration order.
func (r *Registry) Ordered() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Command, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.commands[id])
	}
	return list
}

// Category groups commands for listings.
type Category struct {
	Name     string
	Commands []*Command
}

// Categories returns commands grouped by category; both levels are sorted.
// Commands without a category land in "general".
func (r *Registry) Categories() []Category {
	byName := make(map[string][]*Command)
	for _, c := range r.All() {
		name := c.Category
		if name == "" {
			name = "general"
		}
		byName[name] = append(byName[name], c)
	}
	out := make([]Category, 0, len(byName))
	for name, cmds := range byName {
		out = append(out, Category{Name: name, Commands: cmds})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PrefixOverride maps a prefix to the commands that declared it.
type PrefixOverride struct {
	Prefix string
	IDs    map[string]struct{}
}

// PrefixOverrides collects the command-specific prefixes for m, merging
// commands that share a prefix. Order follows first appearance.
func (r *Registry) PrefixOverrides(ctx context.Context, m message.Message) []PrefixOverride {
	var out []PrefixOverride
	index := make(map[string]int)
	for _, c := range r.Ordered() {
		if !c.HasPrefixOverride() {
			continue
		}
		for _, p := range c.Prefixes(ctx, m) {
			i, ok := index[p]
			if !ok {
				i = len(out)
				index[p] = i
				out = append(out, PrefixOverride{Prefix: p, IDs: make(map[string]struct{})})
			}
			out[i].IDs[c.ID] = struct{}{}
		}
	}
	return out
}

// RegexCommands returns commands with a regex trigger, in registration order.
func (r *Registry) RegexCommands() []*Command {
	var out []*Command
	for _, c := range r.Ordered() {
		if c.Regex != nil || c.RegexFunc != nil {
			out = append(out, c)
		}
	}
	return out
}

// ConditionCommands returns commands with a condition trigger, in registration order.
func (r *Registry) ConditionCommands() []*Command {
	var out []*Command
	for _, c := range r.Ordered() {
		if c.Condition != nil {
			out = append(out, c)
		}
	}
	return out
}
