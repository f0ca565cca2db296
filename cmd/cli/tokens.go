package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/keshon/cmdcore/pkg/tokenizer"
)

func newTokensCmd() *cobra.Command {
	var opts tokenizer.Options
	var unquoted bool

	cmd := &cobra.Command{
		Use:     "tokens <text>",
		Short:   "Show how argument text is split into phrases, flags and options",
		Example: `  cmdcore-cli tokens --flag --loud --option times: 'say "hello there" --loud times:3'`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Quoted = !unquoted
			return writeTokens(cmd.OutOrStdout(), strings.Join(args, " "), opts)
		},
	}
	cmd.Flags().StringSliceVarP(&opts.FlagWords, "flag", "f", nil, "words parsed as flags")
	cmd.Flags().StringSliceVarP(&opts.OptionFlagWords, "option", "o", nil, "words parsed as options")
	cmd.Flags().StringVarP(&opts.Separator, "separator", "s", "", "split on this instead of whitespace")
	cmd.Flags().BoolVar(&unquoted, "unquoted", false, "do not treat quotes specially")
	return cmd
}

type tokenView struct {
	Kind   string `yaml:"kind"`
	Value  string `yaml:"value,omitempty"`
	Key    string `yaml:"key,omitempty"`
	Raw    string `yaml:"raw"`
	Quoted bool   `yaml:"quoted,omitempty"`
}

func writeTokens(w io.Writer, text string, opts tokenizer.Options) error {
	res := tokenizer.Parse(text, opts)
	out := struct {
		Tokens  []tokenView `yaml:"tokens"`
		Phrases []string    `yaml:"phrases"`
	}{}
	for _, t := range res.All {
		out.Tokens = append(out.Tokens, tokenView{Kind: t.Kind.String(), Value: t.Value, Key: t.Key, Raw: t.Raw, Quoted: t.Quoted})
	}
	for _, p := range res.Phrases {
		out.Phrases = append(out.Phrases, p.Value)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
