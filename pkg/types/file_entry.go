package types

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// FileEntry is one filesystem object considered for renaming.
// Two entries are the same entry when their paths are equal.
type FileEntry struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	IsDir      bool      `json:"is_dir"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// NewFileEntry builds an entry for path, deriving Name from its last segment.
func NewFileEntry(path string, isDir bool, size int64, modified time.Time) FileEntry {
	return FileEntry{
		Name:       filepath.Base(path),
		Path:       path,
		IsDir:      isDir,
		Size:       size,
		ModifiedAt: modified,
	}
}

// Key returns the identity used for selection sets and suggestion maps.
func (f FileEntry) Key() string {
	return filepath.Clean(f.Path)
}

// Equal reports whether both entries refer to the same path.
func (f FileEntry) Equal(other FileEntry) bool {
	return f.Key() == other.Key()
}

// Ext returns the lowercased extension including the dot.
func (f FileEntry) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// Stem returns the name without its final extension.
func (f FileEntry) Stem() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// HasModTime reports whether the lister supplied a modification time.
func (f FileEntry) HasModTime() bool {
	return !f.ModifiedAt.IsZero()
}

// ToJSON converts the entry to a JSON string
func (f FileEntry) ToJSON() string {
	jsonBytes, _ := json.Marshal(f)
	return string(jsonBytes)
}

// String returns a human-readable representation
func (f FileEntry) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("File: %s\n", f.Path))
	if f.IsDir {
		sb.WriteString("Type: directory\n")
	}
	sb.WriteString(fmt.Sprintf("Size: %d bytes\n", f.Size))
	if f.HasModTime() {
		sb.WriteString(fmt.Sprintf("Modified: %s\n", f.ModifiedAt.Format(time.RFC3339)))
	}
	return sb.String()
}
