package watch_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namewise/internal/batch"
	"namewise/internal/config"
	"namewise/internal/fsops"
	"namewise/internal/log"
	"namewise/internal/watch"
	"namewise/pkg/types"
)

type result struct {
	summary batch.Summary
	err     error
}

func newDaemon(t *testing.T, fs afero.Fs, names map[string]string) (*watch.Daemon, chan result) {
	t.Helper()
	logger := log.NewLogger(log.WithOutput(&bytes.Buffer{}))
	cfg := config.NewTestConfig()

	suggester := batch.SuggesterFunc(func(_ context.Context, e types.FileEntry) (string, error) {
		return names[e.Name], nil
	})
	pipeline := batch.NewPipeline(suggester, fsops.NewRenamer(fs, false, logger), batch.Options{
		Workers:       2,
		HasCredential: true,
		Supported:     cfg.IsSupported,
		Logger:        logger,
	})

	d := watch.NewDaemon(cfg, pipeline, logger)
	d.SetDebounce(20 * time.Millisecond)
	results := make(chan result, 4)
	d.SetCallback(func(s batch.Summary, err error) { results <- result{s, err} })
	return d, results
}

func modification(t *testing.T, fs afero.Fs, path string) watch.FileModification {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte("data"), 0644))
	info, err := fs.Stat(path)
	require.NoError(t, err)
	return watch.FileModification{Path: path, Info: info, Timestamp: time.Now()}
}

func TestDaemonRenamesAmbiguousFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	d, results := newDaemon(t, fs, map[string]string{
		"IMG_4821.jpg": "Sunset Over Pier",
		"12345.pdf":    "Electric Bill",
	})

	events := make(chan watch.FileModification, 8)
	done := make(chan error)
	go func() { done <- d.Run(context.Background(), events) }()

	events <- modification(t, fs, "/in/IMG_4821.jpg")
	events <- modification(t, fs, "/in/Quarterly_Budget.xlsx")
	events <- modification(t, fs, "/in/setup.exe")
	events <- modification(t, fs, "/in/12345.pdf")
	// A second write to a queued file is ignored
	events <- modification(t, fs, "/in/12345.pdf")

	var res result
	select {
	case res = <-results:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for batch")
	}
	require.NoError(t, res.err)
	assert.Equal(t, 2, res.summary.Approved)
	assert.Equal(t, 2, res.summary.Succeeded)

	for _, p := range []string{"/in/Sunset Over Pier.jpg", "/in/Electric Bill.pdf", "/in/Quarterly_Budget.xlsx"} {
		ok, err := afero.Exists(fs, p)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}

	status := d.Status()
	assert.True(t, status.Running)
	assert.Equal(t, 1, status.Batches)
	assert.Equal(t, 2, status.FilesRenamed)
	assert.Equal(t, 0, status.Pending)

	close(events)
	require.NoError(t, <-done)
	assert.False(t, d.Status().Running)
}

func TestDaemonIgnoresItsOwnOutput(t *testing.T) {
	fs := afero.NewMemMapFs()
	// The suggester returns a name that is itself ambiguous
	d, results := newDaemon(t, fs, map[string]string{"IMG_0001.png": "IMG_0002"})

	events := make(chan watch.FileModification, 4)
	done := make(chan error)
	go func() { done <- d.Run(context.Background(), events) }()

	events <- modification(t, fs, "/in/IMG_0001.png")
	res := <-results
	require.Len(t, res.summary.Renamed, 1)
	assert.Equal(t, "/in/IMG_0002.png", res.summary.Renamed[0].NewPath)

	info, err := fs.Stat("/in/IMG_0002.png")
	require.NoError(t, err)
	events <- watch.FileModification{Path: "/in/IMG_0002.png", Info: info, Timestamp: time.Now()}
	close(events)
	require.NoError(t, <-done)

	assert.Equal(t, 1, d.Status().Batches)
	assert.Empty(t, results)
}

func TestDaemonFlushesPendingOnClose(t *testing.T) {
	fs := afero.NewMemMapFs()
	d, results := newDaemon(t, fs, map[string]string{"untitled.txt": "Grocery List"})
	d.SetDebounce(time.Hour)

	events := make(chan watch.FileModification, 1)
	events <- modification(t, fs, "/in/untitled.txt")
	close(events)

	require.NoError(t, d.Run(context.Background(), events))
	res := <-results
	assert.Equal(t, 1, res.summary.Succeeded)
}

func TestDaemonDropsPendingOnCancel(t *testing.T) {
	fs := afero.NewMemMapFs()
	d, results := newDaemon(t, fs, map[string]string{"untitled.txt": "Grocery List"})
	d.SetDebounce(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan watch.FileModification, 1)
	done := make(chan error)
	go func() { done <- d.Run(ctx, events) }()

	events <- modification(t, fs, "/in/untitled.txt")
	require.Eventually(t, func() bool { return d.Status().Pending == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Empty(t, results)
	ok, _ := afero.Exists(fs, "/in/untitled.txt")
	assert.True(t, ok)
}

func TestDaemonAccept(t *testing.T) {
	d, _ := newDaemon(t, afero.NewMemMapFs(), nil)

	assert.True(t, d.Accept(types.NewFileEntry("/in/IMG_4821.HEIC", false, 1, time.Time{})))
	assert.False(t, d.Accept(types.NewFileEntry("/in/Beach_Sunset_Hawaii.jpg", false, 1, time.Time{})))
	assert.False(t, d.Accept(types.NewFileEntry("/in/12345.exe", false, 1, time.Time{})))
	assert.False(t, d.Accept(types.NewFileEntry("/in/12345", true, 0, time.Time{})))
}

func TestDaemonWatchEndToEnd(t *testing.T) {
	dir := t.TempDir()
	fs := afero.NewOsFs()
	d, results := newDaemon(t, fs, map[string]string{"IMG_7000.jpg": "Mountain Lake"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error)
	go func() { done <- d.Watch(ctx, []string{dir}) }()

	require.Eventually(t, func() bool { return d.Status().Running }, 2*time.Second, 10*time.Millisecond)
	// Allow fsnotify to register the watch
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "IMG_7000.jpg"), []byte("jpeg"), 0644))

	select {
	case res := <-results:
		require.NoError(t, res.err)
		assert.Equal(t, 1, res.summary.Succeeded)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for batch")
	}
	_, err := os.Stat(filepath.Join(dir, "Mountain Lake.jpg"))
	assert.NoError(t, err)
	assert.Equal(t, []string{dir}, d.Status().WatchDirectories)

	cancel()
	require.NoError(t, <-done)
}

func TestDaemonWatchRequiresDirectories(t *testing.T) {
	d, _ := newDaemon(t, afero.NewMemMapFs(), nil)
	assert.Error(t, d.Watch(context.Background(), nil))
	assert.Error(t, d.Watch(context.Background(), []string{"/definitely/not/here"}))
}
