package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namewise/internal/analysis"
	"namewise/internal/config"
	"namewise/internal/credentials"
	"namewise/pkg/testutils"
)

type cliEnv struct {
	fs   afero.Fs
	cfg  *config.Config
	opts []Option
}

// newCLIEnv prepares an in-memory tree under /in, a history journal on disk
// and an analyzer that knows two of the three files.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	fs := afero.NewMemMapFs()
	testutils.CreateAmbiguousFiles(t, fs, "/in")

	cfg := config.NewTestConfig()
	cfg.Rename.HistoryDB = filepath.Join(t.TempDir(), "history.db")

	names := map[string]string{"IMG_4821.jpg": "Harbor at Dusk", "untitled.txt": "Shopping List"}
	analyzer := analysis.AnalyzerFunc(func(_ context.Context, req analysis.Request) (string, error) {
		return names[req.Name], nil
	})

	return &cliEnv{
		fs:  fs,
		cfg: cfg,
		opts: []Option{
			WithFs(fs),
			WithConfig(cfg),
			WithCredentials(credentials.Static("test-key")),
			WithAnalyzer(analyzer),
		},
	}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCommand(t, e.opts, args...)
}

func runCommand(t *testing.T, opts []Option, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := NewRootCmd(opts...)
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return testutils.StripANSI(buf.String()), err
}

func (e *cliEnv) exists(t *testing.T, path string) bool {
	t.Helper()
	ok, err := afero.Exists(e.fs, path)
	require.NoError(t, err)
	return ok
}

func TestHelpListsCommands(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.run(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"scan", "suggest", "watch", "history", "undo", "config"} {
		assert.Contains(t, out, name)
	}
}

func TestScan(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "scan", "/in")
	require.NoError(t, err)
	assert.Contains(t, out, "IMG_4821.jpg")
	assert.Contains(t, out, "untitled.txt")
	assert.NotContains(t, out, "Quarterly_Budget.xlsx")
	assert.Contains(t, out, "2 of 3 files have ambiguous names")

	out, err = env.run(t, "scan", "--why", "--all", "/in")
	require.NoError(t, err)
	assert.Contains(t, out, "Quarterly_Budget.xlsx")
	assert.Contains(t, out, "generic word (untitled)")
}

func TestScanMissingPath(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "scan", "/nope")
	assert.Error(t, err)
}

func TestSuggestYes(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "suggest", "--yes", "/in")
	require.NoError(t, err)
	assert.Contains(t, out, "IMG_4821.jpg → Harbor at Dusk.jpg")
	assert.Contains(t, out, "untitled.txt → Shopping List.txt")
	assert.Contains(t, out, "2 of 2 renamed")
	assert.Contains(t, out, "Undo with: namewise undo")

	assert.True(t, env.exists(t, "/in/Harbor at Dusk.jpg"))
	assert.True(t, env.exists(t, "/in/Shopping List.txt"))
	assert.False(t, env.exists(t, "/in/IMG_4821.jpg"))
	// Descriptive names are left alone unless --all is given
	assert.True(t, env.exists(t, "/in/Quarterly_Budget.xlsx"))
}

func TestSuggestDryRun(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "suggest", "--yes", "--dry-run", "/in")
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 2 would be renamed")
	assert.Contains(t, out, "Dry run")
	assert.True(t, env.exists(t, "/in/IMG_4821.jpg"))
	assert.False(t, env.exists(t, "/in/Harbor at Dusk.jpg"))

	// Dry runs are not journaled
	out, err = env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No renames recorded yet")
}

func TestSuggestNothingToDo(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.run(t, "suggest", "--yes", "/in/Quarterly_Budget.xlsx")
	require.NoError(t, err)
	assert.Contains(t, out, "No files need new names")
}

func TestSuggestWithoutCredential(t *testing.T) {
	env := newCLIEnv(t)
	env.opts = append(env.opts, WithCredentials(credentials.Static("")))

	out, err := env.run(t, "suggest", "--yes", "/in")
	require.NoError(t, err)
	assert.Contains(t, out, "No API key")
	assert.Contains(t, out, "2 of 2 renamed")
	assert.False(t, env.exists(t, "/in/Harbor at Dusk.jpg"))
}

func TestHistoryAndUndo(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "suggest", "--yes", "/in")
	require.NoError(t, err)

	out, err := env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Rename history")
	assert.Contains(t, out, "2 files")

	out, err = env.run(t, "undo", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "(dry run)")
	assert.True(t, env.exists(t, "/in/Harbor at Dusk.jpg"))

	out, err = env.run(t, "undo")
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 2 names restored")
	assert.True(t, env.exists(t, "/in/IMG_4821.jpg"))
	assert.True(t, env.exists(t, "/in/untitled.txt"))
	assert.False(t, env.exists(t, "/in/Harbor at Dusk.jpg"))

	out, err = env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "undone")

	// Nothing left to undo
	_, err = env.run(t, "undo")
	assert.Error(t, err)
}

func TestHistoryShow(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "suggest", "--yes", "/in")
	require.NoError(t, err)

	_, err = env.run(t, "history", "show", "no-such-batch")
	assert.Error(t, err)
}

func TestHistoryDisabled(t *testing.T) {
	env := newCLIEnv(t)
	env.cfg.Rename.HistoryDB = ""

	_, err := env.run(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestWatchRequiresDirectories(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no directories to watch")
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "namewise", "config.yaml")
	opts := []Option{WithFs(afero.NewMemMapFs())}

	out, err := runCommand(t, opts, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = runCommand(t, opts, "--config", path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCommand(t, opts, "--config", path, "config", "init", "--force")
	require.NoError(t, err)

	out, err = runCommand(t, opts, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	out, err = runCommand(t, opts, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "workers:")
	assert.Contains(t, out, "api_key_env:")
}

func TestInvalidConfigFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline: [not, a, map]\n"), 0644))

	out, err := runCommand(t, []Option{WithFs(afero.NewMemMapFs())}, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Warning")
	assert.Contains(t, out, "Using default settings")
	assert.Contains(t, out, "workers:")
}

func TestConfigValidationErrorIsLoggedWithKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  workers: 0\n"), 0644))

	out, err := runCommand(t, []Option{WithFs(afero.NewMemMapFs())}, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "worker count must be >= 1")
	assert.Contains(t, out, "param=pipeline.workers")
	assert.Contains(t, out, "workers: 4")
}
