package fsops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"namewise/internal/errors"
	"namewise/internal/log"
	"namewise/pkg/types"
)

// Renamer gives a file a new base name in its own directory. The original
// extension is always preserved; newBase must not carry one.
type Renamer interface {
	Rename(ctx context.Context, path, newBase string) (string, error)
}

// FSRenamer renames files on an afero filesystem.
type FSRenamer struct {
	fs     afero.Fs
	dryRun bool
	logger log.Logging
	mu     sync.Mutex // Serializes the destination check and the move
}

// NewRenamer creates a renamer over fs. With dryRun set, renames are
// validated and the would-be path is returned without touching the file.
func NewRenamer(fs afero.Fs, dryRun bool, logger log.Logging) *FSRenamer {
	if logger == nil {
		logger = log.Default()
	}
	return &FSRenamer{fs: fs, dryRun: dryRun, logger: logger}
}

// IsDryRun returns whether the renamer only simulates renames
func (r *FSRenamer) IsDryRun() bool {
	return r.dryRun
}

// Target computes the destination path for renaming path to newBase.
func Target(path, newBase string) string {
	ext := filepath.Ext(path)
	return filepath.Join(filepath.Dir(path), newBase+ext)
}

// Rename moves path to newBase plus the original extension. Failures are
// *errors.RenameError values whose kind is FileNotFound, DestinationExists,
// FileAccessDenied or Unknown.
func (r *FSRenamer) Rename(ctx context.Context, path, newBase string) (string, error) {
	src := filepath.Clean(path)
	dest := Target(src, newBase)

	if err := ctx.Err(); err != nil {
		return "", errors.NewRenameError("rename cancelled", src, dest, errors.Unknown, err)
	}
	if strings.TrimSpace(newBase) == "" || strings.ContainsAny(newBase, `/\`) {
		return "", errors.NewRenameError("invalid target name", src, dest, errors.Unknown, nil)
	}

	srcInfo, err := r.fs.Stat(src)
	if err != nil {
		return "", r.classify("source file error", src, dest, err)
	}
	if srcInfo.IsDir() {
		return "", errors.NewRenameError("cannot rename directory", src, dest, errors.Unknown, nil)
	}

	// Renaming to the current name is not an error, nothing to do
	if src == dest {
		r.logger.Debugf("Source and destination are the same, skipping: %s", src)
		return dest, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkDestination(src, dest, srcInfo); err != nil {
		return "", err
	}

	if r.dryRun {
		r.logger.Infof("Would rename %s -> %s", src, dest)
		return dest, nil
	}

	r.logger.Debugf("Renaming %s to %s", src, dest)
	if err := r.fs.Rename(src, dest); err != nil {
		return "", r.classify("failed to rename file", src, dest, err)
	}

	r.logger.Infof("Renamed %s -> %s", src, dest)
	return dest, nil
}

// checkDestination refuses to overwrite. A destination that is the source
// file itself under a different case is allowed, so case-only renames work
// on case-insensitive filesystems.
func (r *FSRenamer) checkDestination(src, dest string, srcInfo os.FileInfo) error {
	destInfo, err := r.fs.Stat(dest)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return r.classify("error checking destination", src, dest, err)
	}
	if strings.EqualFold(src, dest) && os.SameFile(srcInfo, destInfo) {
		return nil
	}
	r.logger.Warnf("Destination file %s already exists", dest)
	return errors.NewRenameError("destination already exists", src, dest, errors.DestinationExists, nil)
}

func (r *FSRenamer) classify(msg, src, dest string, err error) error {
	kind := errors.Unknown
	switch {
	case os.IsNotExist(err):
		kind = errors.FileNotFound
	case os.IsExist(err):
		kind = errors.DestinationExists
	case os.IsPermission(err):
		kind = errors.FileAccessDenied
	}
	return errors.NewRenameError(msg, src, dest, kind, err)
}

// RenameAll renames each source to its paired base name, one after another,
// and reports a result per pair. Used by undo, where order matters.
func RenameAll(ctx context.Context, r Renamer, pairs [][2]string) []types.RenameResult {
	results := make([]types.RenameResult, 0, len(pairs))
	for _, pair := range pairs {
		result := types.RenameResult{SourcePath: pair[0], DestinationPath: Target(pair[0], pair[1])}
		newPath, err := r.Rename(ctx, pair[0], pair[1])
		if err != nil {
			result.Error = err
		} else {
			result.DestinationPath = newPath
			result.Renamed = true
		}
		results = append(results, result)
	}
	return results
}
