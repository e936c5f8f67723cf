// Package watch turns new files in watched directories into rename batches.
package watch

import (
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"namewise/internal/errors"
	"namewise/internal/log"
	"namewise/pkg/types"
)

// FileModification represents a file event detected by the watcher
type FileModification struct {
	Path      string
	Info      os.FileInfo
	Timestamp time.Time
	Op        fsnotify.Op
}

// Entry converts the modification into a file entry
func (m FileModification) Entry() types.FileEntry {
	if m.Info == nil {
		return types.NewFileEntry(m.Path, false, 0, time.Time{})
	}
	return types.NewFileEntry(m.Path, m.Info.IsDir(), m.Info.Size(), m.Info.ModTime())
}

// Watcher monitors directories for created and written files using fsnotify
type Watcher struct {
	directories []string
	fileModChan chan FileModification
	stopChan    chan struct{}
	done        chan struct{}
	fsWatcher   *fsnotify.Watcher
	logger      log.Logging

	mutex   sync.RWMutex
	running bool
}

// New creates a new directory watcher using fsnotify
func New(logger log.Logging) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Watcher{
		directories: []string{},
		fileModChan: make(chan FileModification, 64),
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
		fsWatcher:   fsWatcher,
		logger:      logger,
	}, nil
}

// AddDirectory adds a directory to watch. Subdirectories are not watched.
func (w *Watcher) AddDirectory(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		kind := errors.FileOperationFailed
		if os.IsNotExist(err) {
			kind = errors.FileNotFound
		}
		return errors.NewFileError("error accessing directory", dir, kind, err)
	}
	if !info.IsDir() {
		return errors.NewFileError("not a directory", dir, errors.InvalidPath, nil)
	}

	if err := w.fsWatcher.Add(dir); err != nil {
		return errors.NewFileError("failed to add directory to watcher", dir, errors.FileOperationFailed, err)
	}

	w.mutex.Lock()
	found := false
	for _, existingDir := range w.directories {
		if existingDir == dir {
			found = true
			break
		}
	}
	if !found {
		w.directories = append(w.directories, dir)
	}
	w.mutex.Unlock()
	w.logger.With(log.F("directory", dir)).Info("Watching directory")
	return nil
}

// FileChannel returns the channel that delivers file modification events.
// It is closed once the watcher stops.
func (w *Watcher) FileChannel() <-chan FileModification {
	return w.fileModChan
}

// Start begins the file watching process
func (w *Watcher) Start() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.running {
		return errors.New("watcher already running")
	}
	w.running = true

	go w.loop()

	w.logger.Debug("Watcher started")
	return nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer close(w.fileModChan)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}

			// The file may already be gone again
			info, err := os.Stat(event.Name)
			if err != nil {
				if !os.IsNotExist(err) {
					w.logger.With(log.F("file", event.Name), log.F("error", err.Error())).Error("Error stating file")
				}
				continue
			}
			if info.IsDir() {
				continue
			}

			mod := FileModification{
				Path:      event.Name,
				Info:      info,
				Timestamp: time.Now(),
				Op:        event.Op,
			}
			select {
			case w.fileModChan <- mod:
			case <-w.stopChan:
				return
			default:
				w.logger.With(log.F("file", event.Name)).Warn("Event channel is full, dropped event")
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.With(log.F("error", err.Error())).Error("fsnotify watcher error")

		case <-w.stopChan:
			return
		}
	}
}

// Stop halts the watcher and waits for its event loop to exit
func (w *Watcher) Stop() {
	w.mutex.Lock()
	if !w.running {
		w.mutex.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	w.mutex.Unlock()

	<-w.done
	if err := w.fsWatcher.Close(); err != nil {
		w.logger.With(log.F("error", err.Error())).Error("Error closing fsnotify watcher")
	}
	w.logger.Debug("Watcher stopped")
}

// IsRunning returns whether the watcher is currently active
func (w *Watcher) IsRunning() bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.running
}

// GetDirectories returns the list of directories being watched
func (w *Watcher) GetDirectories() []string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	dirsCopy := make([]string, len(w.directories))
	copy(dirsCopy, w.directories)
	return dirsCopy
}
