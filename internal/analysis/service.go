package analysis

import (
	"context"

	"namewise/pkg/types"
)

// Service prepares a file and asks the analyzer to name it.
type Service struct {
	preparer *Preparer
	analyzer Analyzer
}

// NewService combines a preparer and an analyzer
func NewService(preparer *Preparer, analyzer Analyzer) *Service {
	return &Service{preparer: preparer, analyzer: analyzer}
}

// Suggest returns a base name (no extension) for entry.
func (s *Service) Suggest(ctx context.Context, entry types.FileEntry) (string, error) {
	req, err := s.preparer.Prepare(ctx, entry)
	if err != nil {
		return "", err
	}
	return s.analyzer.Analyze(ctx, req)
}
