package history

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namewise/internal/errors"
	"namewise/internal/fsops"
	"namewise/internal/log"
)

func newRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open("", log.NewLogger(log.WithOutput(&bytes.Buffer{})))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(t, repo.RecordRename(ctx, "b1", "/in/IMG_1.jpg", "/in/Beach.jpg"))
	require.NoError(t, repo.RecordRename(ctx, "b1", "/in/scan.pdf", "/in/Invoice.pdf"))
	require.NoError(t, repo.RecordRename(ctx, "b2", "/in/untitled.txt", "/in/Notes.txt"))

	batches, err := repo.Batches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "b2", batches[0].ID)
	assert.Equal(t, 1, batches[0].Renames)
	assert.Equal(t, "b1", batches[1].ID)
	assert.Equal(t, 2, batches[1].Renames)
	assert.False(t, batches[1].Undone())
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 1, 0, time.UTC), batches[1].StartedAt)

	limited, err := repo.Batches(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	renames, err := repo.Renames(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, renames, 2)
	assert.Equal(t, 1, renames[0].Seq)
	assert.Equal(t, "/in/IMG_1.jpg", renames[0].OldPath)
	assert.Equal(t, "/in/Invoice.pdf", renames[1].NewPath)
	assert.NotEmpty(t, renames[0].ID)
}

func TestRecordRejectsBlankInput(t *testing.T) {
	repo := newRepo(t)
	err := repo.RecordRename(context.Background(), "", "/a", "/b")
	assert.True(t, errors.IsInvalidInputError(err))
}

func TestUnknownBatch(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.Batch(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrBatchNotFound)

	_, err = repo.LatestUndoable(context.Background())
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestUndoRevertsInReverseOrder(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	logger := log.NewLogger(log.WithOutput(&bytes.Buffer{}))
	renamer := fsops.NewRenamer(fs, false, logger)
	repo := newRepo(t)

	// a -> b then b's old name is reused: c -> a. Undo must restore a before c.
	require.NoError(t, afero.WriteFile(fs, "/in/a.txt", []byte("first"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/in/c.txt", []byte("second"), 0644))

	p, err := renamer.Rename(ctx, "/in/a.txt", "b")
	require.NoError(t, err)
	require.NoError(t, repo.RecordRename(ctx, "batch", "/in/a.txt", p))
	p, err = renamer.Rename(ctx, "/in/c.txt", "a")
	require.NoError(t, err)
	require.NoError(t, repo.RecordRename(ctx, "batch", "/in/c.txt", p))

	results, err := repo.Undo(ctx, "batch", renamer)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.NoError(t, res.Error)
		assert.True(t, res.Renamed)
	}
	assert.Equal(t, "/in/a.txt", results[0].SourcePath)
	assert.Equal(t, "/in/c.txt", results[0].DestinationPath)

	data, err := afero.ReadFile(fs, "/in/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
	data, err = afero.ReadFile(fs, "/in/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	b, err := repo.Batch(ctx, "batch")
	require.NoError(t, err)
	assert.True(t, b.Undone())

	_, err = repo.Undo(ctx, "batch", renamer)
	assert.ErrorIs(t, err, ErrAlreadyUndone)
}

func TestUndoPartialFailureKeepsBatchOpen(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	renamer := fsops.NewRenamer(fs, false, log.NewLogger(log.WithOutput(&bytes.Buffer{})))
	repo := newRepo(t)

	require.NoError(t, afero.WriteFile(fs, "/in/Beach.jpg", nil, 0644))
	require.NoError(t, repo.RecordRename(ctx, "b", "/in/IMG_1.jpg", "/in/Beach.jpg"))
	require.NoError(t, repo.RecordRename(ctx, "b", "/in/IMG_2.jpg", "/in/Gone.jpg"))

	results, err := repo.Undo(ctx, "b", renamer)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, errors.RenameNotFound, errors.RenameKindOf(results[0].Error))
	assert.NoError(t, results[1].Error)

	latest, err := repo.LatestUndoable(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)
}

func TestUndoDryRunLeavesBatchOpen(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	renamer := fsops.NewRenamer(fs, true, log.NewLogger(log.WithOutput(&bytes.Buffer{})))
	repo := newRepo(t)

	require.NoError(t, afero.WriteFile(fs, "/in/Beach.jpg", nil, 0644))
	require.NoError(t, repo.RecordRename(ctx, "b", "/in/IMG_1.jpg", "/in/Beach.jpg"))

	results, err := repo.Undo(ctx, "b", renamer)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/in/IMG_1.jpg", results[0].DestinationPath)

	ok, _ := afero.Exists(fs, "/in/Beach.jpg")
	assert.True(t, ok)
	b, err := repo.Batch(ctx, "b")
	require.NoError(t, err)
	assert.False(t, b.Undone())
}

func TestOpenOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	repo, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, repo.RecordRename(context.Background(), "b", "/x/a.txt", "/x/b.txt"))
	require.NoError(t, repo.Close())

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	batches, err := reopened.Batches(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 1, batches[0].Renames)
}
