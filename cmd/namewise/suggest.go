package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"namewise/internal/batch"
	"namewise/internal/classify"
	"namewise/internal/fsops"
	"namewise/internal/metrics"
	"namewise/internal/tui"
	"namewise/pkg/types"
)

// newSuggestCmd creates the suggest command
func newSuggestCmd(a *app) *cobra.Command {
	var (
		yes     bool
		dryRun  bool
		all     bool
		hidden  bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "suggest [path...]",
		Short: "Suggest descriptive names and rename the ones you approve",
		Long: `Analyze files with ambiguous names and suggest descriptive ones.

Suggestions appear in a review screen as they arrive. Approve, reject or edit
them, then press enter to rename. With --yes every suggestion is applied
without review.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			entries, err := fsops.NewLister(a.fs).ShowHidden(hidden).Resolve(args)
			if err != nil {
				return err
			}
			if !all {
				entries = ambiguousOnly(entries)
			}

			dryRun = dryRun || a.cfg.Rename.DryRun
			s, err := a.newSession(dryRun, workers)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			ledger := s.pipeline.StartBatch(entries)
			if ledger.State() == batch.Completed {
				fmt.Fprintln(out, dimText("No files need new names"))
				return nil
			}
			a.warnNoCredential(cmd.ErrOrStderr())
			metrics.RecordBatch("cli")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var summary *batch.Summary
			if yes {
				if err := ledger.Analyze(ctx); err != nil {
					return err
				}
				ledger.ApproveAll()
				applied, err := ledger.ApplyApproved(ctx)
				if err != nil {
					return err
				}
				summary = &applied
			} else {
				summary, err = tui.Run(ctx, ledger)
				if err != nil {
					return err
				}
			}

			if summary == nil {
				fmt.Fprintln(out, dimText("Nothing renamed"))
				return nil
			}
			printSummary(out, *summary, dryRun)
			switch {
			case dryRun:
				fmt.Fprintln(out, dimText("Dry run: no files were changed"))
			case s.journal != nil && summary.Succeeded > 0:
				fmt.Fprintln(out, dimText("Undo with: namewise undo "+summary.BatchID))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "apply every suggestion without review")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show what would be renamed without renaming")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "suggest names for descriptive files too")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "include dotfiles")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "concurrent analysis requests (default from config)")

	return cmd
}

// ambiguousOnly keeps the files whose names the classifier flags
func ambiguousOnly(entries []types.FileEntry) []types.FileEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if !e.IsDir && classify.IsAmbiguous(e.Name) {
			out = append(out, e)
		}
	}
	return out
}
