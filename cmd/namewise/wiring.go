package main

import (
	"fmt"
	"io"
	"path/filepath"

	"namewise/internal/analysis"
	"namewise/internal/batch"
	"namewise/internal/credentials"
	"namewise/internal/errors"
	"namewise/internal/fsops"
	"namewise/internal/history"
	"namewise/internal/metrics"
)

// session is one wired pipeline and the resources it holds open
type session struct {
	pipeline *batch.Pipeline
	renamer  *fsops.FSRenamer
	journal  *history.Repository
	dryRun   bool
}

func (s *session) Close() {
	if s.journal != nil {
		s.journal.Close()
	}
}

func (a *app) credentials() credentials.Store {
	if a.creds == nil {
		a.creds = credentials.NewEnvStore(a.cfg.Analyzer.APIKeyEnv, credentials.DefaultEnvFiles()...)
	}
	return a.creds
}

func (a *app) suggester() batch.Suggester {
	analyzer := a.analyzer
	if analyzer == nil {
		analyzer = analysis.NewVisionClient(a.cfg, a.credentials(), a.logger)
	}
	return analysis.NewService(analysis.NewPreparer(a.fs, a.cfg, a.logger), analyzer)
}

func (a *app) openHistory() (*history.Repository, error) {
	if a.cfg.Rename.HistoryDB == "" {
		return nil, errors.New("rename history is disabled; set rename.history_db in the config")
	}
	return history.Open(a.cfg.Rename.HistoryDB, a.logger)
}

// newSession wires a pipeline. workers > 0 overrides the configured pool
// size. Dry runs never write to the history journal.
func (a *app) newSession(dryRun bool, workers int) (*session, error) {
	s := &session{renamer: fsops.NewRenamer(a.fs, dryRun, a.logger), dryRun: dryRun}

	opts := batch.Options{
		Workers:       a.cfg.Pipeline.Workers,
		HasCredential: a.credentials().Has(),
		Supported:     a.cfg.IsSupported,
		Recorder:      metrics.Recorder{},
		Logger:        a.logger,
	}
	if workers > 0 {
		opts.Workers = workers
	}
	if !dryRun && a.cfg.Rename.HistoryDB != "" {
		journal, err := history.Open(a.cfg.Rename.HistoryDB, a.logger)
		if err != nil {
			return nil, err
		}
		s.journal = journal
		opts.Journal = journal
	}

	s.pipeline = batch.NewPipeline(a.suggester(), s.renamer, opts)
	return s, nil
}

// warnNoCredential tells the user suggestions will only be tidied names
func (a *app) warnNoCredential(w io.Writer) {
	if a.credentials().Has() {
		return
	}
	fmt.Fprintln(w, warningText(fmt.Sprintf("No API key in $%s; names will be derived from the current ones", a.cfg.Analyzer.APIKeyEnv)))
}

// printSummary reports the outcome of an apply run
func printSummary(w io.Writer, summary batch.Summary, dryRun bool) {
	verb := "renamed"
	if dryRun {
		verb = "would be renamed"
	}
	for _, r := range summary.Renamed {
		fmt.Fprintf(w, "  %s → %s\n", r.Entry.Name, successStyle.Render(filepath.Base(r.NewPath)))
	}
	for _, f := range summary.Failed {
		fmt.Fprintln(w, "  "+errorText(fmt.Sprintf("%s: %s", f.Entry.Name, f.Kind)))
	}
	line := fmt.Sprintf("%d of %d %s", summary.Succeeded, summary.Approved, verb)
	if len(summary.Failed) > 0 {
		fmt.Fprintln(w, warningText(line))
		return
	}
	fmt.Fprintln(w, successText(line))
}
