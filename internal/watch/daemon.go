package watch

import (
	"context"
	"sync"
	"time"

	"namewise/internal/batch"
	"namewise/internal/classify"
	"namewise/internal/config"
	"namewise/internal/errors"
	"namewise/internal/log"
	"namewise/pkg/types"
)

// DaemonStatus represents the current status of the daemon
type DaemonStatus struct {
	Running          bool      // Whether the daemon is currently active
	WatchDirectories []string  // Directories being watched
	LastActivity     time.Time // Time of last accepted file
	FilesRenamed     int       // Total files renamed
	Batches          int       // Batches run
	Pending          int       // Files waiting for the debounce window
}

// Daemon collects new ambiguous files and renames them in auto-approved
// batches once no new file has arrived for the debounce window.
type Daemon struct {
	cfg      *config.Config
	pipeline *batch.Pipeline
	logger   log.Logging
	debounce time.Duration

	mutex        sync.RWMutex
	callback     func(batch.Summary, error)
	running      bool
	directories  []string
	renamed      int
	batches      int
	pending      int
	lastActivity time.Time
	// produced holds paths this daemon created, so their own create events
	// do not start another batch
	produced map[string]bool
}

// NewDaemon creates a daemon that feeds accepted files to pipeline
func NewDaemon(cfg *config.Config, pipeline *batch.Pipeline, logger log.Logging) *Daemon {
	if logger == nil {
		logger = log.Default()
	}
	return &Daemon{
		cfg:      cfg,
		pipeline: pipeline,
		logger:   logger,
		debounce: cfg.DebounceDuration(),
		produced: make(map[string]bool),
	}
}

// SetDebounce overrides the configured debounce window
func (d *Daemon) SetDebounce(window time.Duration) {
	d.debounce = window
}

// SetCallback sets a function called after every batch
func (d *Daemon) SetCallback(cb func(batch.Summary, error)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = cb
}

// Status returns the current status of the daemon
func (d *Daemon) Status() DaemonStatus {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	dirs := make([]string, len(d.directories))
	copy(dirs, d.directories)
	return DaemonStatus{
		Running:          d.running,
		WatchDirectories: dirs,
		LastActivity:     d.lastActivity,
		FilesRenamed:     d.renamed,
		Batches:          d.batches,
		Pending:          d.pending,
	}
}

// Accept reports whether a new file should be renamed: a supported file
// with an ambiguous name that this daemon did not produce itself.
func (d *Daemon) Accept(entry types.FileEntry) bool {
	if !d.cfg.IsSupported(entry) || !classify.IsAmbiguous(entry.Name) {
		return false
	}
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return !d.produced[entry.Key()]
}

// Watch watches dirs with fsnotify until ctx is cancelled
func (d *Daemon) Watch(ctx context.Context, dirs []string) error {
	if len(dirs) == 0 {
		return errors.New("no directories to watch")
	}

	w, err := New(d.logger)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := w.AddDirectory(dir); err != nil {
			w.fsWatcher.Close()
			return errors.Wrapf(err, "error adding watch directory %s", dir)
		}
	}
	if err := w.Start(); err != nil {
		w.fsWatcher.Close()
		return errors.Wrap(err, "error starting watcher")
	}
	defer w.Stop()

	d.mutex.Lock()
	d.directories = w.GetDirectories()
	d.mutex.Unlock()

	return d.Run(ctx, w.FileChannel())
}

// Run consumes events until ctx is cancelled or events is closed. Files
// still waiting for the debounce window are processed when events closes and
// dropped when ctx is cancelled.
func (d *Daemon) Run(ctx context.Context, events <-chan FileModification) error {
	d.mutex.Lock()
	if d.running {
		d.mutex.Unlock()
		return errors.New("daemon is already running")
	}
	d.running = true
	d.mutex.Unlock()

	defer func() {
		d.mutex.Lock()
		d.running = false
		d.pending = 0
		d.mutex.Unlock()
	}()

	var (
		pending []types.FileEntry
		seen    = make(map[string]bool)
		timer   *time.Timer
		timerC  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	take := func() []types.FileEntry {
		out := pending
		pending = nil
		seen = make(map[string]bool)
		d.setPending(0)
		return out
	}

	for {
		select {
		case <-ctx.Done():
			if len(pending) > 0 {
				d.logger.With(log.F("pending", len(pending))).Info("Watch stopped, pending files left unchanged")
			}
			return nil

		case mod, ok := <-events:
			if !ok {
				if len(pending) > 0 {
					d.process(ctx, take())
				}
				return nil
			}
			entry := mod.Entry()
			if seen[entry.Key()] || !d.Accept(entry) {
				continue
			}
			seen[entry.Key()] = true
			pending = append(pending, entry)
			d.logger.With(log.F("file", entry.Path)).Debug("Queued new file")

			d.mutex.Lock()
			d.lastActivity = mod.Timestamp
			d.pending = len(pending)
			d.mutex.Unlock()

			if timer == nil {
				timer = time.NewTimer(d.debounce)
			} else {
				timer.Reset(d.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			d.process(ctx, take())
		}
	}
}

func (d *Daemon) setPending(n int) {
	d.mutex.Lock()
	d.pending = n
	d.mutex.Unlock()
}

// process runs one auto-approved batch
func (d *Daemon) process(ctx context.Context, entries []types.FileEntry) {
	logger := d.logger.With(log.F("files", len(entries)))
	logger.Info("Starting batch for new files")

	summary, err := d.runBatch(ctx, entries)
	if err != nil {
		logger.With(log.F("error", err.Error())).Error("Batch failed")
	}

	d.mutex.Lock()
	d.batches++
	d.renamed += summary.Succeeded
	for _, r := range summary.Renamed {
		d.produced[types.NewFileEntry(r.NewPath, false, 0, time.Time{}).Key()] = true
	}
	cb := d.callback
	d.mutex.Unlock()

	if cb != nil {
		cb(summary, err)
	}
}

func (d *Daemon) runBatch(ctx context.Context, entries []types.FileEntry) (batch.Summary, error) {
	ledger, err := d.pipeline.Run(ctx, entries)
	if err != nil {
		return batch.Summary{BatchID: ledger.ID()}, err
	}
	if ledger.ApproveAll() == 0 {
		return batch.Summary{BatchID: ledger.ID()}, nil
	}
	return ledger.ApplyApproved(ctx)
}
