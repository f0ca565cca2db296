package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/keshon/cmdcore/internal/bot"
	"github.com/keshon/cmdcore/internal/config"
	"github.com/keshon/cmdcore/internal/docs"
)

func newDocsCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Write the command reference as markdown",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			h, err := bot.NewHandler(cfg, zerolog.Nop(), bot.Transport{})
			if err != nil {
				return err
			}
			defer h.Stop()

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			prefix := ""
			if len(cfg.Prefixes) > 0 {
				prefix = cfg.Prefixes[0]
			}
			return docs.Write(w, h.Registry(), prefix)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
