package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"namewise/internal/fsops"
	"namewise/internal/history"
)

// newHistoryCmd creates the history command
func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past rename batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openHistory()
			if err != nil {
				return err
			}
			defer repo.Close()

			batches, err := repo.Batches(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(batches) == 0 {
				fmt.Fprintln(out, dimText("No renames recorded yet"))
				return nil
			}

			fmt.Fprintln(out, header("Rename history"))
			for _, b := range batches {
				line := fmt.Sprintf("%s  %3d files  %s", b.ID, b.Renames, humanize.Time(b.StartedAt))
				if b.Undone() {
					line += dimText(fmt.Sprintf("  undone %s", humanize.Time(b.UndoneAt)))
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "number of batches to show, 0 for all")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <batch-id>",
		Short: "List the renames of one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openHistory()
			if err != nil {
				return err
			}
			defer repo.Close()

			b, err := repo.Batch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renames, err := repo.Renames(cmd.Context(), b.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, header(fmt.Sprintf("Batch %s", b.ID)))
			for _, r := range renames {
				fmt.Fprintf(out, "  %s → %s\n", r.OldPath, filepath.Base(r.NewPath))
			}
			if b.Undone() {
				fmt.Fprintln(out, dimText("Undone "+humanize.Time(b.UndoneAt)))
			}
			return nil
		},
	})

	return cmd
}

// newUndoCmd creates the undo command
func newUndoCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "undo [batch-id]",
		Short: "Restore the original names of a batch",
		Long: `Restore the original names of a rename batch, most recent first.
Without an id the latest batch that has not been undone is reverted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openHistory()
			if err != nil {
				return err
			}
			defer repo.Close()

			ctx := cmd.Context()
			var b history.Batch
			if len(args) == 1 {
				b, err = repo.Batch(ctx, args[0])
			} else {
				b, err = repo.LatestUndoable(ctx)
			}
			if err != nil {
				return err
			}

			results, err := repo.Undo(ctx, b.ID, fsops.NewRenamer(a.fs, dryRun, a.logger))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			restored := 0
			for _, res := range results {
				if res.Error != nil {
					fmt.Fprintln(out, "  "+errorText(fmt.Sprintf("%s: %v", filepath.Base(res.SourcePath), res.Error)))
					continue
				}
				restored++
				fmt.Fprintf(out, "  %s → %s\n", filepath.Base(res.SourcePath), successStyle.Render(filepath.Base(res.DestinationPath)))
			}

			line := fmt.Sprintf("%d of %d names restored", restored, len(results))
			switch {
			case dryRun:
				fmt.Fprintln(out, dimText(line+" (dry run)"))
			case restored < len(results):
				fmt.Fprintln(out, warningText(line+"; the batch stays undoable"))
			default:
				fmt.Fprintln(out, successText(line))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show what would be restored without renaming")

	return cmd
}
