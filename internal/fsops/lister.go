// Package fsops provides the file-listing and rename collaborators used by
// the batch pipeline. Both work on an afero filesystem so tests can run on
// memory-backed trees.
package fsops

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"namewise/internal/errors"
	"namewise/pkg/types"
)

// Lister reads directories into FileEntry values.
type Lister struct {
	fs         afero.Fs
	showHidden bool
}

// NewLister creates a lister over fs
func NewLister(fs afero.Fs) *Lister {
	return &Lister{fs: fs}
}

// ShowHidden includes dot-files in listings
func (l *Lister) ShowHidden(show bool) *Lister {
	l.showHidden = show
	return l
}

// List returns the entries of dir, directories first, then by name.
func (l *Lister) List(dir string) ([]types.FileEntry, error) {
	info, err := l.fs.Stat(dir)
	if err != nil {
		return nil, statError("failed to read directory", dir, err)
	}
	if !info.IsDir() {
		return nil, errors.NewFileError("not a directory", dir, errors.InvalidPath, nil)
	}

	infos, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		return nil, statError("failed to read directory", dir, err)
	}

	entries := make([]types.FileEntry, 0, len(infos))
	for _, fi := range infos {
		if !l.showHidden && strings.HasPrefix(fi.Name(), ".") {
			continue
		}
		entries = append(entries, types.NewFileEntry(filepath.Join(dir, fi.Name()), fi.IsDir(), fi.Size(), fi.ModTime()))
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

// Stat builds a single entry for path
func (l *Lister) Stat(path string) (types.FileEntry, error) {
	fi, err := l.fs.Stat(path)
	if err != nil {
		return types.FileEntry{}, statError("failed to stat file", path, err)
	}
	return types.NewFileEntry(path, fi.IsDir(), fi.Size(), fi.ModTime()), nil
}

// Resolve turns command-line arguments into entries: directories are listed,
// files are stat'ed. Duplicates are dropped, first occurrence wins.
func (l *Lister) Resolve(paths []string) ([]types.FileEntry, error) {
	seen := make(map[string]bool)
	var out []types.FileEntry
	add := func(e types.FileEntry) {
		if seen[e.Key()] {
			return
		}
		seen[e.Key()] = true
		out = append(out, e)
	}

	for _, p := range paths {
		entry, err := l.Stat(p)
		if err != nil {
			return nil, err
		}
		if !entry.IsDir {
			add(entry)
			continue
		}
		children, err := l.List(p)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			add(child)
		}
	}
	return out, nil
}

func statError(msg, path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return errors.NewFileError(msg, path, errors.FileNotFound, err)
	case os.IsPermission(err):
		return errors.NewFileError(msg, path, errors.FileAccessDenied, err)
	default:
		return errors.NewFileError(msg, path, errors.FileOperationFailed, err)
	}
}
