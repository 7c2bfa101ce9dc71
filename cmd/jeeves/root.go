package main

import (
	"github.com/spf13/cobra"
)

// version is stamped at build time via -ldflags; "dev" otherwise.
var version = "dev"

// NewRootCommand builds the jeeves root command: no default action beyond
// --help, with serve/reconcile/migrate/version as its subcommands.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "jeeves",
		Short: "Issue-lifecycle orchestrator for autonomous coding agents",
		Long: `jeeves tracks issues through a declarative workflow (plan, implement,
review, ...), drives AI coding providers (Claude Code, Codex, or a plain
script) through each phase, and exposes the whole thing over a small
command surface and event stream for a viewer UI to sit on top of.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newReconcileCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the jeeves version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}
