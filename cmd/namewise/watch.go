package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"namewise/internal/batch"
	"namewise/internal/errors"
	"namewise/internal/log"
	"namewise/internal/metrics"
	"namewise/internal/watch"
)

// newWatchCmd creates the watch command
func newWatchCmd(a *app) *cobra.Command {
	var (
		debounce    time.Duration
		metricsAddr string
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "watch [directory...]",
		Short: "Rename new ambiguous files as they appear",
		Long: `Watch directories and give descriptive names to new files with ambiguous
names. Files arriving close together are renamed as one batch once the
directory has been quiet for the debounce window. Suggestions are applied
without review.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				dirs = a.cfg.Watch.Directories
			}
			if len(dirs) == 0 {
				return errors.New("no directories to watch; pass them as arguments or set watch.directories")
			}

			dryRun = dryRun || a.cfg.Rename.DryRun
			s, err := a.newSession(dryRun, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if metricsAddr == "" {
				metricsAddr = a.cfg.Metrics.Listen
			}
			if metricsAddr != "" {
				go serveMetrics(ctx, metricsAddr, a.logger)
			}

			out := cmd.OutOrStdout()
			daemon := watch.NewDaemon(a.cfg, s.pipeline, a.logger)
			if cmd.Flags().Changed("debounce") {
				daemon.SetDebounce(debounce)
			}
			daemon.SetCallback(func(summary batch.Summary, err error) {
				metrics.RecordBatch("watch")
				if err != nil {
					fmt.Fprintln(out, errorText(err.Error()))
					return
				}
				printSummary(out, summary, dryRun)
			})

			a.warnNoCredential(cmd.ErrOrStderr())
			fmt.Fprintln(out, header("Watching"))
			for _, dir := range dirs {
				fmt.Fprintln(out, "  "+dir)
			}
			fmt.Fprintln(out, dimText("Press Ctrl+C to stop"))

			if err := daemon.Watch(ctx, dirs); err != nil && ctx.Err() == nil {
				return err
			}
			status := daemon.Status()
			fmt.Fprintln(out, dimText(fmt.Sprintf("Stopped after %d batches, %d files renamed", status.Batches, status.FilesRenamed)))
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before a batch starts (default from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "log what would be renamed without renaming")

	return cmd
}

func serveMetrics(ctx context.Context, addr string, logger *log.Logger) {
	logger.With(log.F("addr", addr)).Info("Serving metrics")
	if err := metrics.Serve(ctx, addr); err != nil {
		logger.WithError(err).Error("Metrics server stopped")
	}
}
