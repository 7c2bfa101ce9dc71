package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"jeeves/internal/boundary"
	"jeeves/internal/logging"
)

func newReconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Re-run project-file reconciliation for every tracked issue",
		Long: `reconcile walks every issue the store knows about and re-syncs its
worktree against the repo-file index (C13), the same operation the
viewer triggers per-issue through reconcile_project_files. Useful after a
manual worktree edit or an interrupted run leaves stray symlinks behind.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcileAll(cmd.Context())
		},
	}
}

func runReconcileAll(ctx context.Context) error {
	logger := logging.NewComponentLogger("reconcile")

	c, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	issues, err := c.store.ListIssues(ctx)
	if err != nil {
		return fmt.Errorf("list issues: %w", err)
	}

	for _, summary := range issues {
		env := c.commands.ReconcileProjectFiles(ctx, boundary.ReconcileProjectFilesRequest{
			Owner:  summary.Owner,
			Repo:   summary.Repo,
			Number: summary.IssueNumber,
		})
		if !env.OK {
			logger.Warn("reconcile %s/%s#%d: %s", summary.Owner, summary.Repo, summary.IssueNumber, env.Error)
			continue
		}
		logger.Info("reconciled %s/%s#%d", summary.Owner, summary.Repo, summary.IssueNumber)
	}
	return nil
}
