package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/keshon/cmdcore/pkg/argument"
	"github.com/keshon/cmdcore/pkg/cmd"
	"github.com/keshon/cmdcore/pkg/message"
)

// tagStore keeps tags per guild in memory. DMs share the "" guild.
type tagStore struct {
	mu   sync.RWMutex
	tags map[string]map[string]string
}

var tags = &tagStore{tags: make(map[string]map[string]string)}

func (s *tagStore) get(guild, name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tags[guild][name]
	return v, ok
}

func (s *tagStore) set(guild, name, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tags[guild] == nil {
		s.tags[guild] = make(map[string]string)
	}
	s.tags[guild][name] = text
}

func (s *tagStore) delete(guild, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tags[guild][name]
	delete(s.tags[guild], name)
	return ok
}

func (s *tagStore) names(guild string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tags[guild]))
	for name := range s.tags[guild] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// The tag command has its own "?" prefix: `?tag name`, `?tag set name text`,
// `?tag delete name`, `?tag list`. The action may appear anywhere in the
// first two words.
func init() {
	define(func(*cmd.Registry) *cmd.Command {
		return &cmd.Command{
			ID:          "tag",
			Aliases:     []string{"tag", "t"},
			Prefix:      []string{"?"},
			Description: "Save and recall snippets of text.",
			Category:    categoryUtil,
			Args: []argument.Spec{
				{
					ID:        "action",
					Type:      argument.Choice("set", "delete", "list"),
					Unordered: argument.UnorderedAt(0, 1),
					Default:   "get",
				},
				{ID: "name", Type: argument.Lowercase},
				{ID: "text", Match: argument.MatchRest},
			},
			Exec: tag,
		}
	})
}

func tag(ctx context.Context, m message.Message, args any) (any, error) {
	a := args.(argument.Args)
	guild, name := m.GuildID(), a.String("name")

	action := a.String("action")
	if name == "" && action != "list" {
		return nil, m.Reply(ctx, "Which tag?")
	}

	switch action {
	case "list":
		names := tags.names(guild)
		if len(names) == 0 {
			return nil, m.Reply(ctx, "No tags yet.")
		}
		return names, m.Reply(ctx, "Tags: `"+strings.Join(names, "`, `")+"`")
	case "set":
		text := a.String("text")
		if text == "" {
			return nil, m.Reply(ctx, "A tag needs some text.")
		}
		tags.set(guild, name, text)
		return nil, m.Reply(ctx, fmt.Sprintf("Saved tag `%s`.", name))
	case "delete":
		if !tags.delete(guild, name) {
			return nil, m.Reply(ctx, fmt.Sprintf("No tag called `%s`.", name))
		}
		return nil, m.Reply(ctx, fmt.Sprintf("Deleted tag `%s`.", name))
	}

	text, ok := tags.get(guild, name)
	if !ok {
		return nil, m.Reply(ctx, fmt.Sprintf("No tag called `%s`.", name))
	}
	return text, m.Reply(ctx, text)
}
