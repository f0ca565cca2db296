package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/keshon/cmdcore/pkg/cmd"
)

// Override adjusts one command before it is registered.
type Override struct {
	Aliases   []string       `yaml:"aliases"`
	Prefix    []string       `yaml:"prefix"`
	Category  string         `yaml:"category"`
	Cooldown  *time.Duration `yaml:"cooldown"`
	Ratelimit *int           `yaml:"ratelimit"`
	Disabled  bool           `yaml:"disabled"`
}

// Overrides is the command overrides file:
//
//	commands:
//	  ping:
//	    aliases: [ping, p]
//	    cooldown: 5s
//	    ratelimit: 2
//	  tag:
//	    disabled: true
type Overrides struct {
	Commands map[string]Override `yaml:"commands"`
}

// LoadOverrides reads path. An empty path yields no overrides.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return &Overrides{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	return ParseOverrides(data)
}

func ParseOverrides(data []byte) (*Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	for id, ov := range o.Commands {
		if ov.Cooldown != nil && *ov.Cooldown < 0 {
			return nil, fmt.Errorf("override %q: negative cooldown", id)
		}
		if ov.Ratelimit != nil && *ov.Ratelimit < 0 {
			return nil, fmt.Errorf("override %q: negative ratelimit", id)
		}
	}
	return &o, nil
}

// Apply returns c with its override applied, or nil when it is disabled. c
// itself is not modified.
func (o *Overrides) Apply(c *cmd.Command) *cmd.Command {
	ov, ok := o.Commands[c.ID]
	if !ok {
		return c
	}
	if ov.Disabled {
		return nil
	}
	out := *c
	if ov.Aliases != nil {
		out.Aliases = ov.Aliases
	}
	if ov.Prefix != nil {
		out.Prefix = ov.Prefix
		out.PrefixFunc = nil
	}
	if ov.Category != "" {
		out.Category = ov.Category
	}
	if ov.Cooldown != nil {
		out.Cooldown = *ov.Cooldown
	}
	if ov.Ratelimit != nil {
		out.Ratelimit = *ov.Ratelimit
	}
	return &out
}
