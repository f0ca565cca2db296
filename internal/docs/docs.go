// Package docs renders the command reference from a registry.
package docs

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/keshon/cmdcore/pkg/argument"
	"github.com/keshon/cmdcore/pkg/cmd"
)

var reference = template.Must(template.New("reference").Funcs(template.FuncMap{
	"join":  strings.Join,
	"usage": usage,
}).Parse(`# Commands
{{range $p := .}}
### {{.Name}}
{{range .Commands}}
- **{{usage $p.Prefix .}}** - {{.Description}}{{if gt (len .Aliases) 1}} (aliases: {{join .Aliases ", "}}){{end}}
{{- end}}
{{end}}`))

type page struct {
	Prefix string
	cmd.Category
}

// Write renders every category of reg as markdown. prefix is shown in front
// of commands without their own prefix.
func Write(w io.Writer, reg *cmd.Registry, prefix string) error {
	cats := reg.Categories()
	pages := make([]page, len(cats))
	for i, c := range cats {
		pages[i] = page{Prefix: prefix, Category: c}
	}
	return reference.Execute(w, pages)
}

// usage shows how a command is invoked, e.g. `!say <text...> [--loud]`.
func usage(prefix string, c *cmd.Command) string {
	if len(c.Aliases) == 0 {
		if c.Regex != nil {
			return fmt.Sprintf("/%s/", c.Regex)
		}
		return c.ID
	}
	if len(c.Prefix) > 0 {
		prefix = c.Prefix[0]
	}
	parts := []string{prefix + c.Aliases[0]}
	for _, a := range c.Args {
		parts = append(parts, argUsage(a))
	}
	return strings.Join(parts, " ")
}

func argUsage(a argument.Spec) string {
	switch a.Match {
	case argument.MatchFlag:
		return "[" + a.Flags[0] + "]"
	case argument.MatchOption:
		return "[" + a.Flags[0] + " " + a.ID + "]"
	case argument.MatchRest, argument.MatchSeparate, argument.MatchRestContent:
		return "<" + a.ID + "...>"
	}
	return "<" + a.ID + ">"
}
