// Command cmdcore-cli drives the command handler from a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	repl := newReplCmd()
	root := &cobra.Command{
		Use:           "cmdcore-cli",
		Short:         "Try chat commands locally",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          repl.RunE,
	}
	root.Flags().AddFlagSet(repl.Flags())
	root.AddCommand(repl, newTokensCmd(), newDocsCmd())
	return root
}
