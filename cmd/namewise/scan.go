package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"namewise/internal/classify"
	"namewise/internal/fsops"
	"namewise/pkg/types"
)

// newScanCmd creates the scan command
func newScanCmd(a *app) *cobra.Command {
	var why, all, hidden bool

	cmd := &cobra.Command{
		Use:   "scan [path...]",
		Short: "List files whose names say nothing about their content",
		Long: `Scan directories or files and list the ones with auto-generated or
generic names. Nothing is sent anywhere and nothing is renamed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			entries, err := fsops.NewLister(a.fs).ShowHidden(hidden).Resolve(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			total, ambiguous := 0, 0
			for _, entry := range entries {
				if entry.IsDir {
					continue
				}
				total++
				verdict := classify.Explain(entry.Name)
				if verdict.Ambiguous {
					ambiguous++
				} else if !all {
					continue
				}
				fmt.Fprintln(out, scanLine(entry, verdict, why, a.cfg.IsSupported(entry)))
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, dimText(fmt.Sprintf("%d of %d files have ambiguous names", ambiguous, total)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&why, "why", "w", false, "show which check flagged each name")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list descriptive names too")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "include dotfiles")

	return cmd
}

func scanLine(entry types.FileEntry, verdict classify.Verdict, why, supported bool) string {
	mark := " "
	if verdict.Ambiguous {
		mark = "?"
	}
	line := fmt.Sprintf("%s %-40s %9s", mark, entry.Name, humanize.Bytes(uint64(entry.Size)))
	if !supported {
		line += dimText("  unsupported")
	}
	if why && verdict.Ambiguous {
		line += "  " + dimText(verdict.String())
	}
	return line
}
