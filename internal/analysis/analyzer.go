// Package analysis turns a file into a suggested descriptive base name.
//
// A Preparer reads the file and builds a Request: a JPEG preview for images
// and video frames, or a text sample and metadata for everything else. An
// Analyzer, normally the VisionClient, sends the request to a remote model
// and returns a cleaned base name without extension.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"namewise/pkg/types"
)

// Mode selects how content is presented to the model.
type Mode int

const (
	// Textual requests describe the file in words
	Textual Mode = iota
	// Visual requests carry a picture of the content
	Visual
)

func (m Mode) String() string {
	if m == Visual {
		return "visual"
	}
	return "textual"
}

// Request is everything an Analyzer needs to name one file.
type Request struct {
	Path     string
	Name     string
	Mode     Mode
	Kind     types.FileKind
	MimeType string
	Size     int64
	// Image is a data URL of the JPEG preview, set only in Visual mode.
	Image string
	// Text is the leading part of a text-like file.
	Text  string
	Hints map[string]string
}

// Describe renders the request metadata as prompt context.
func (r Request) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current name: %s\n", r.Name)
	if r.MimeType != "" {
		fmt.Fprintf(&sb, "Type: %s (%s)\n", r.Kind, r.MimeType)
	} else {
		fmt.Fprintf(&sb, "Type: %s\n", r.Kind)
	}
	if r.Size > 0 {
		fmt.Fprintf(&sb, "Size: %s\n", humanize.Bytes(uint64(r.Size)))
	}

	keys := make([]string, 0, len(r.Hints))
	for k := range r.Hints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %s\n", k, r.Hints[k])
	}

	if r.Text != "" {
		sb.WriteString("Content excerpt:\n---\n")
		sb.WriteString(r.Text)
		if !strings.HasSuffix(r.Text, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("---\n")
	}
	return sb.String()
}

// Analyzer produces a suggested base name for a prepared request.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (string, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface
type AnalyzerFunc func(ctx context.Context, req Request) (string, error)

func (f AnalyzerFunc) Analyze(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
