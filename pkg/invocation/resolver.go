// Package invocation finds which command a message invokes.
//
// Resolution runs two passes. The default pass tries the handler prefixes (and
// optionally the bot mention) and only accepts commands without their own
// prefixes. The override pass tries the prefixes declared by commands and only
// accepts the commands that declared them.
package invocation

import (
	"context"
	"slices"
	"strings"
	"unicode"

	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
)

// PrefixFunc returns the handler prefixes for m.
type PrefixFunc func(ctx context.Context, m message.Message) []string

// Static returns a PrefixFunc for a fixed prefix list.
func Static(prefixes ...string) PrefixFunc {
	return func(context.Context, message.Message) []string { return prefixes }
}

// Parsed is the outcome of resolution. Command is nil when no command matched;
// Matched reports whether any prefix matched at all.
type Parsed struct {
	Command     *cmd.Command
	Matched     bool
	Prefix      string
	Alias       string
	Content     string
	AfterPrefix string
}

// Resolver resolves messages against a registry.
type Resolver struct {
	Registry     *cmd.Registry
	Prefix       PrefixFunc
	AllowMention func(ctx context.Context, m message.Message) bool
	SelfID       func() string
}

type pair struct {
	prefix string
	ids    map[string]struct{} // nil: default pass
}

// Resolve runs both passes. The override result is used only when the default
// pass found no command and either the override pass found one or only the
// override pass matched a prefix.
func (r *Resolver) Resolve(ctx context.Context, m message.Message) Parsed {
	parsed := r.parseDefault(ctx, m)
	if parsed.Command != nil {
		return parsed
	}
	over := r.parseOverrides(ctx, m)
	if over.Command != nil || (!parsed.Matched && over.Matched) {
		return over
	}
	return parsed
}

func (r *Resolver) parseDefault(ctx context.Context, m message.Message) Parsed {
	var prefixes []string
	if r.Prefix != nil {
		prefixes = slices.Clone(r.Prefix(ctx, m))
	}
	if r.AllowMention != nil && r.SelfID != nil && r.AllowMention(ctx, m) {
		if id := r.SelfID(); id != "" {
			prefixes = append([]string{"<@" + id + ">", "<@!" + id + ">"}, prefixes...)
		}
	}
	pairs := make([]pair, 0, len(prefixes))
	for _, p := range prefixes {
		pairs = append(pairs, pair{prefix: p})
	}
	return r.parseMultiple(m.Content(), pairs)
}

func (r *Resolver) parseOverrides(ctx context.Context, m message.Message) Parsed {
	overrides := r.Registry.PrefixOverrides(ctx, m)
	if len(overrides) == 0 {
		return Parsed{}
	}
	pairs := make([]pair, 0, len(overrides))
	for _, o := range overrides {
		pairs = append(pairs, pair{prefix: o.Prefix, ids: o.IDs})
	}
	return r.parseMultiple(m.Content(), pairs)
}

// parseMultiple returns the first result with a command in prefix order, else
// the first result that matched a prefix.
func (r *Resolver) parseMultiple(content string, pairs []pair) Parsed {
	slices.SortStableFunc(pairs, func(a, b pair) int { return ComparePrefixes(a.prefix, b.prefix) })

	var guess *Parsed
	for _, p := range pairs {
		parsed := r.parseWithPrefix(content, p)
		if parsed.Command != nil {
			return parsed
		}
		if parsed.Matched && guess == nil {
			guess = &parsed
		}
	}
	if guess != nil {
		return *guess
	}
	return Parsed{}
}

func (r *Resolver) parseWithPrefix(content string, p pair) Parsed {
	if len(content) < len(p.prefix) || !strings.EqualFold(content[:len(p.prefix)], p.prefix) {
		return Parsed{}
	}
	after := content[len(p.prefix):]
	body := strings.TrimLeftFunc(after, unicode.IsSpace)
	alias := body
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		alias = body[:i]
	}

	parsed := Parsed{
		Matched:     true,
		Prefix:      p.prefix,
		Alias:       alias,
		Content:     strings.TrimSpace(body[len(alias):]),
		AfterPrefix: strings.TrimSpace(after),
	}
	if alias == "" {
		return parsed
	}
	c := r.Registry.FindAlias(alias)
	if c == nil {
		return parsed
	}
	if p.ids == nil {
		if c.HasPrefixOverride() {
			return parsed
		}
	} else if _, ok := p.ids[c.ID]; !ok {
		return parsed
	}
	parsed.Command = c
	return parsed
}

// ComparePrefixes orders prefixes for matching: the empty prefix last, longer
// prefixes first, equal lengths lexically.
func ComparePrefixes(a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	case len(a) != len(b):
		return len(b) - len(a)
	}
	return strings.Compare(a, b)
}
