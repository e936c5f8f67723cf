package testutils

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"namewise/internal/log"
)

// CreateTestFilesWithContent creates test files with specific content in dir
func CreateTestFilesWithContent(t *testing.T, fs afero.Fs, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(dir, 0755))
	for name, content := range files {
		err := afero.WriteFile(fs, filepath.Join(dir, name), []byte(content), 0644)
		require.NoError(t, err)
	}
}

// CreateAmbiguousFiles creates a mix of ambiguous and descriptive names
func CreateAmbiguousFiles(t *testing.T, fs afero.Fs, dir string) {
	files := map[string]string{
		"IMG_4821.jpg":          "image content",
		"untitled.txt":          "Shopping list: eggs, milk",
		"Quarterly_Budget.xlsx": "budget",
	}
	CreateTestFilesWithContent(t, fs, dir, files)
}

// QuietLogger returns a logger writing into the returned buffer
func QuietLogger() (log.Logging, *bytes.Buffer) {
	var buf bytes.Buffer
	return log.NewLogger(log.WithOutput(&buf)), &buf
}

// StripANSI removes ANSI escape sequences from a string
func StripANSI(str string) string {
	return ansi.Strip(str)
}
