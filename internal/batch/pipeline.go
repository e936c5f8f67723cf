// Package batch drives a rename batch: analysis of every candidate into a
// suggestion, user review, and application of the approved renames.
//
// Per-item analysis and rename calls run on a bounded worker pool. Workers
// never touch the ledger; they send results back on a channel and a single
// coordinator applies them, so counters advance once per item regardless of
// completion order.
package batch

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"namewise/internal/errors"
	"namewise/internal/fsops"
	"namewise/internal/log"
	"namewise/pkg/types"
)

// Suggester produces a suggested base name for one file.
type Suggester interface {
	Suggest(ctx context.Context, entry types.FileEntry) (string, error)
}

// SuggesterFunc adapts a function to the Suggester interface
type SuggesterFunc func(ctx context.Context, entry types.FileEntry) (string, error)

func (f SuggesterFunc) Suggest(ctx context.Context, entry types.FileEntry) (string, error) {
	return f(ctx, entry)
}

// Recorder receives pipeline measurements.
type Recorder interface {
	AnalysisFinished(fallback bool, d time.Duration)
	RenameFinished(result string)
	WorkerStarted()
	WorkerStopped()
}

// Journal records successful renames so they can be undone.
type Journal interface {
	RecordRename(ctx context.Context, batchID, oldPath, newPath string) error
}

type nopRecorder struct{}

func (nopRecorder) AnalysisFinished(bool, time.Duration) {}
func (nopRecorder) RenameFinished(string)                {}
func (nopRecorder) WorkerStarted()                       {}
func (nopRecorder) WorkerStopped()                       {}

// Options configures a Pipeline.
type Options struct {
	// Workers bounds concurrent analysis and rename calls. Defaults to 4.
	Workers int
	// HasCredential is false when no API key is configured; every candidate
	// then gets the fallback name without calling the suggester.
	HasCredential bool
	// Supported filters candidates. Directories are always dropped.
	Supported func(types.FileEntry) bool
	Recorder  Recorder
	Journal   Journal
	Logger    log.Logging
}

// Pipeline creates and runs ledgers.
type Pipeline struct {
	suggester Suggester
	renamer   fsops.Renamer
	opts      Options
	logger    log.Logging
}

// NewPipeline wires the collaborators of a batch.
func NewPipeline(suggester Suggester, renamer fsops.Renamer, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Pipeline{suggester: suggester, renamer: renamer, opts: opts, logger: opts.Logger}
}

// StartBatch filters candidates down to supported files, drops duplicate
// paths, and returns a ledger in Idle state. With nothing left the ledger is
// Completed straight away.
func (p *Pipeline) StartBatch(candidates []types.FileEntry) *Ledger {
	l := &Ledger{
		id:          uuid.NewString(),
		p:           p,
		suggestions: make(map[string]string),
		decisions:   make(map[string]Decision),
		fallbacks:   make(map[string]bool),
	}

	seen := make(map[string]bool)
	for _, c := range candidates {
		if c.IsDir {
			continue
		}
		if p.opts.Supported != nil && !p.opts.Supported(c) {
			continue
		}
		if seen[c.Key()] {
			continue
		}
		seen[c.Key()] = true
		l.candidates = append(l.candidates, c)
	}

	if len(l.candidates) == 0 {
		l.state = Completed
	}
	p.logger.With(log.F("batch", l.id), log.F("candidates", len(l.candidates)), log.F("offered", len(candidates))).
		Debug("Batch started")
	return l
}

// Run starts a batch and analyzes it.
func (p *Pipeline) Run(ctx context.Context, candidates []types.FileEntry) (*Ledger, error) {
	l := p.StartBatch(candidates)
	if err := l.Analyze(ctx); err != nil {
		return l, err
	}
	return l, nil
}

type analysisResult struct {
	entry      types.FileEntry
	suggestion string
	err        error
	elapsed    time.Duration
}

type renameResult struct {
	entry   types.FileEntry
	newPath string
	err     error
}

// Analyze obtains a suggestion for every candidate and moves the ledger to
// Reviewing. Analyzer failures never fail the batch: the entry gets the
// fallback name instead. Cancelling ctx stops new dispatches; running calls
// finish and entries not yet started get the fallback name.
func (l *Ledger) Analyze(ctx context.Context) error {
	p := l.p

	l.mu.Lock()
	switch l.state {
	case Completed:
		l.mu.Unlock()
		return nil
	case Idle:
	default:
		l.mu.Unlock()
		return errors.Wrapf(ErrWrongState, "cannot analyze in state %s", l.state)
	}
	l.setStateLocked(Analyzing)
	candidates := make([]types.FileEntry, len(l.candidates))
	copy(candidates, l.candidates)
	l.mu.Unlock()

	logger := p.logger.With(log.F("batch", l.id))
	outstanding := len(candidates)

	if !p.opts.HasCredential {
		logger.Info("No API credential configured, using fallback names")
		for _, c := range candidates {
			l.recordSuggestion(analysisResult{entry: c, err: errors.ErrNoCredential})
			outstanding--
		}
	} else {
		results := make(chan analysisResult, len(candidates))
		work := context.WithoutCancel(ctx)

		go func() {
			var g errgroup.Group
			g.SetLimit(p.opts.Workers)
			for _, c := range candidates {
				if ctx.Err() != nil {
					break
				}
				g.Go(func() error {
					if ctx.Err() != nil {
						results <- analysisResult{entry: c, err: ctx.Err()}
						return nil
					}
					results <- p.analyzeOne(work, c)
					return nil
				})
			}
			_ = g.Wait()
			close(results)
		}()

		for res := range results {
			l.recordSuggestion(res)
			outstanding--
		}

		if ctx.Err() != nil {
			for _, c := range candidates {
				if _, ok := l.Suggestion(c); !ok {
					l.recordSuggestion(analysisResult{entry: c, err: ctx.Err()})
					outstanding--
				}
			}
			logger.Warn("Analysis cancelled, remaining files got fallback names")
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if outstanding == 0 {
		l.setStateLocked(Reviewing)
	}
	logger.With(log.F("processed", l.processed)).Info("Analysis finished")
	return nil
}

func (p *Pipeline) analyzeOne(ctx context.Context, entry types.FileEntry) analysisResult {
	p.opts.Recorder.WorkerStarted()
	defer p.opts.Recorder.WorkerStopped()

	start := time.Now()
	suggestion, err := p.suggester.Suggest(ctx, entry)
	return analysisResult{entry: entry, suggestion: suggestion, err: err, elapsed: time.Since(start)}
}

// recordSuggestion is the coordinator's only way to add a suggestion.
func (l *Ledger) recordSuggestion(res analysisResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := res.entry.Key()
	suggestion := strings.TrimSpace(res.suggestion)
	fallback := res.err != nil || suggestion == ""
	if fallback {
		suggestion = FallbackName(res.entry)
		if res.err != nil && !errors.Is(res.err, errors.ErrNoCredential) {
			l.p.logger.With(log.F("path", res.entry.Path), log.F("error", res.err.Error())).
				Warn("Analysis failed, using fallback name")
		}
	}

	l.suggestions[key] = suggestion
	if fallback {
		l.fallbacks[key] = true
	}
	if _, ok := l.decisions[key]; !ok {
		l.decisions[key] = Pending
	}
	l.processed++
	l.p.opts.Recorder.AnalysisFinished(fallback, res.elapsed)
	l.publish(Event{Kind: SuggestionArrived, Entry: res.entry, Suggestion: suggestion, Decision: l.decisions[key]})
}

// ApplyApproved renames every approved entry to its sanitized suggestion and
// moves the ledger to Completed. The ledger must be Reviewing with at least
// one approved entry. Per-item failures are collected in the summary and
// never stop sibling renames.
func (l *Ledger) ApplyApproved(ctx context.Context) (Summary, error) {
	l.mu.Lock()
	if l.state != Reviewing {
		state := l.state
		l.mu.Unlock()
		return Summary{BatchID: l.id}, errors.Wrapf(ErrWrongState, "cannot apply in state %s", state)
	}
	entries, targets := l.approvedLocked()
	if len(entries) == 0 {
		l.mu.Unlock()
		return Summary{BatchID: l.id}, ErrNothingApproved
	}
	l.setStateLocked(Applying)
	l.mu.Unlock()

	return l.apply(ctx, entries, targets), nil
}

// RetryFailed re-runs the renames that failed in the last apply, using the
// current suggestions. The ledger must be Completed.
func (l *Ledger) RetryFailed(ctx context.Context) (Summary, error) {
	l.mu.Lock()
	if l.state != Completed {
		state := l.state
		l.mu.Unlock()
		return Summary{BatchID: l.id}, errors.Wrapf(ErrWrongState, "cannot retry in state %s", state)
	}
	if len(l.lastFailed) == 0 {
		l.mu.Unlock()
		return Summary{BatchID: l.id}, ErrNothingToRetry
	}
	entries := l.lastFailed
	targets := make([]string, len(entries))
	for i, e := range entries {
		targets[i] = Sanitize(l.suggestions[e.Key()])
	}
	l.setStateLocked(Applying)
	l.mu.Unlock()

	return l.apply(ctx, entries, targets), nil
}

func (l *Ledger) apply(ctx context.Context, entries []types.FileEntry, targets []string) Summary {
	p := l.p
	logger := p.logger.With(log.F("batch", l.id))
	summary := Summary{BatchID: l.id, Approved: len(entries)}

	results := make(chan renameResult, len(entries))
	work := context.WithoutCancel(ctx)
	dispatched := make([]bool, len(entries))

	go func() {
		var g errgroup.Group
		g.SetLimit(p.opts.Workers)
		for i := range entries {
			if ctx.Err() != nil {
				break
			}
			entry, target := entries[i], targets[i]
			dispatched[i] = true
			g.Go(func() error {
				if ctx.Err() != nil {
					results <- notAttempted(ctx, entry, target)
					return nil
				}
				results <- p.renameOne(work, entry, target)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	outstanding := len(entries)
	var failed []types.FileEntry
	record := func(res renameResult) {
		outstanding--
		if res.err == nil && p.opts.Journal != nil {
			if err := p.opts.Journal.RecordRename(work, l.id, res.entry.Path, res.newPath); err != nil {
				logger.With(log.F("path", res.entry.Path), log.F("error", err.Error())).Warn("Failed to journal rename")
			}
		}

		l.mu.Lock()
		defer l.mu.Unlock()

		if res.err != nil {
			kind := errors.RenameKindOf(res.err)
			summary.Failed = append(summary.Failed, Failure{Entry: res.entry, Kind: kind, Err: res.err})
			failed = append(failed, res.entry)
			p.opts.Recorder.RenameFinished(kind.String())
		} else {
			l.succeeded++
			summary.Succeeded++
			summary.Renamed = append(summary.Renamed, Renamed{Entry: res.entry, NewPath: res.newPath})
			p.opts.Recorder.RenameFinished("success")
		}
		l.publish(Event{Kind: RenameFinished, Entry: res.entry, NewPath: res.newPath, Err: res.err})
	}

	for res := range results {
		record(res)
	}
	// The dispatch goroutine has finished once results is closed.
	for i, entry := range entries {
		if !dispatched[i] {
			record(notAttempted(ctx, entry, targets[i]))
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastFailed = failed
	if outstanding == 0 {
		l.setStateLocked(Completed)
	}
	logger.With(log.F("succeeded", summary.Succeeded), log.F("failed", len(summary.Failed))).Info("Apply finished")
	return summary
}

func (p *Pipeline) renameOne(ctx context.Context, entry types.FileEntry, target string) renameResult {
	p.opts.Recorder.WorkerStarted()
	defer p.opts.Recorder.WorkerStopped()

	newPath, err := p.renamer.Rename(ctx, entry.Path, target)
	return renameResult{entry: entry, newPath: newPath, err: err}
}

func notAttempted(ctx context.Context, entry types.FileEntry, target string) renameResult {
	err := errors.NewRenameError("rename not attempted", entry.Path, fsops.Target(entry.Path, target), errors.Unknown, ctx.Err())
	return renameResult{entry: entry, err: err}
}
