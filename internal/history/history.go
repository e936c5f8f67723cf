// Package history keeps a journal of applied renames in SQLite so a batch can
// be listed and undone later.
package history

import (
	"context"
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"namewise/internal/errors"
	"namewise/internal/fsops"
	"namewise/internal/log"
	"namewise/pkg/types"
)

//go:embed db/schema.sql
var dbFS embed.FS

// Fixed width so timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrBatchNotFound is returned for an unknown batch id
	ErrBatchNotFound = errors.New("batch not found in history")
	// ErrAlreadyUndone is returned when undoing a batch twice
	ErrAlreadyUndone = errors.New("batch has already been undone")
)

// Rename is one journaled rename.
type Rename struct {
	ID        string
	BatchID   string
	Seq       int
	OldPath   string
	NewPath   string
	RenamedAt time.Time
}

// Batch summarizes one journaled batch.
type Batch struct {
	ID        string
	StartedAt time.Time
	UndoneAt  time.Time
	Renames   int
}

// Undone reports whether the batch was reverted
func (b Batch) Undone() bool {
	return !b.UndoneAt.IsZero()
}

// Repository is the SQLite rename journal. It satisfies the batch
// pipeline's Journal interface.
type Repository struct {
	db     *sql.DB
	logger log.Logging
	mu     sync.Mutex
	now    func() time.Time
}

// Open opens or creates the journal at dbPath. An empty path uses an
// in-memory database.
func Open(dbPath string, logger log.Logging) (*Repository, error) {
	if logger == nil {
		logger = log.Default()
	}
	db, err := InitDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db, logger: logger, now: time.Now}, nil
}

// InitDatabase opens the SQLite database and applies the embedded schema
func InitDatabase(dbPath string) (*sql.DB, error) {
	connectionString := dbPath
	if connectionString == "" {
		connectionString = ":memory:"
	} else if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", connectionString)
	if err != nil {
		dbErr := errors.NewDatabaseError("failed to open SQLite database", err)
		dbErr.WithContext("connectionString", connectionString)
		return nil, dbErr
	}
	// Every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.NewDatabaseError("failed to enable foreign keys", err)
	}

	schemaSQL, err := dbFS.ReadFile("db/schema.sql")
	if err != nil {
		db.Close()
		return nil, errors.NewDatabaseError("failed to read schema SQL", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		db.Close()
		return nil, errors.NewDatabaseError("failed to initialize database schema", err)
	}

	return db, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// RecordRename appends a successful rename to batchID, creating the batch on
// its first rename.
func (r *Repository) RecordRename(ctx context.Context, batchID, oldPath, newPath string) error {
	if batchID == "" || oldPath == "" || newPath == "" {
		return errors.NewInvalidInputError("batch id and both paths are required", nil).
			WithContext("batch", batchID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC().Format(timeLayout)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseError("failed to begin transaction", err).WithOperation("record")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO batches (id, started_at) VALUES (?, ?)`, batchID, now); err != nil {
		return errors.NewDatabaseError("failed to save batch", err).WithContext("batch", batchID)
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM renames WHERE batch_id = ?`, batchID).Scan(&seq); err != nil {
		return errors.NewDatabaseError("failed to read rename sequence", err).WithContext("batch", batchID)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO renames (id, batch_id, seq, old_path, new_path, renamed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), batchID, seq, oldPath, newPath, now); err != nil {
		dbErr := errors.NewDatabaseError("failed to save rename", err)
		dbErr.WithContext("batch", batchID)
		dbErr.WithContext("oldPath", oldPath)
		return dbErr
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("failed to commit rename", err).WithOperation("record")
	}
	return nil
}

// Batches returns the most recent batches first. A limit of zero or less
// returns all of them.
func (r *Repository) Batches(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.started_at, COALESCE(b.undone_at, ''), COUNT(r.id)
		FROM batches b
		LEFT JOIN renames r ON r.batch_id = b.id
		GROUP BY b.id
		ORDER BY b.started_at DESC, b.rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to query batches", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var (
			b                  Batch
			started, undoneStr string
		)
		if err := rows.Scan(&b.ID, &started, &undoneStr, &b.Renames); err != nil {
			return nil, errors.NewDatabaseError("failed to scan batch row", err)
		}
		if b.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if undoneStr != "" {
			if b.UndoneAt, err = parseTime(undoneStr); err != nil {
				return nil, err
			}
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("error iterating batch rows", err)
	}
	return batches, nil
}

// Batch returns one batch by id
func (r *Repository) Batch(ctx context.Context, id string) (Batch, error) {
	batches, err := r.Batches(ctx, 0)
	if err != nil {
		return Batch{}, err
	}
	for _, b := range batches {
		if b.ID == id {
			return b, nil
		}
	}
	return Batch{}, errors.Wrapf(ErrBatchNotFound, "batch %s", id)
}

// LatestUndoable returns the most recent batch that has not been undone
func (r *Repository) LatestUndoable(ctx context.Context) (Batch, error) {
	batches, err := r.Batches(ctx, 0)
	if err != nil {
		return Batch{}, err
	}
	for _, b := range batches {
		if !b.Undone() {
			return b, nil
		}
	}
	return Batch{}, ErrBatchNotFound
}

// Renames returns the renames of a batch in the order they were applied
func (r *Repository) Renames(ctx context.Context, batchID string) ([]Rename, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, batch_id, seq, old_path, new_path, renamed_at
		FROM renames
		WHERE batch_id = ?
		ORDER BY seq ASC
	`, batchID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to query renames", err).WithContext("batch", batchID)
	}
	defer rows.Close()

	var renames []Rename
	for rows.Next() {
		var (
			rn      Rename
			renamed string
		)
		if err := rows.Scan(&rn.ID, &rn.BatchID, &rn.Seq, &rn.OldPath, &rn.NewPath, &renamed); err != nil {
			return nil, errors.NewDatabaseError("failed to scan rename row", err)
		}
		if rn.RenamedAt, err = parseTime(renamed); err != nil {
			return nil, err
		}
		renames = append(renames, rn)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("error iterating rename rows", err)
	}
	return renames, nil
}

// Undo reverts every rename of a batch, last rename first, through the given
// renamer. The batch is marked undone only when all reversals succeed and the
// renamer is not a dry run; per-file failures are reported in the results.
func (r *Repository) Undo(ctx context.Context, batchID string, renamer fsops.Renamer) ([]types.RenameResult, error) {
	batch, err := r.Batch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Undone() {
		return nil, errors.Wrapf(ErrAlreadyUndone, "batch %s", batchID)
	}

	renames, err := r.Renames(ctx, batchID)
	if err != nil {
		return nil, err
	}

	pairs := make([][2]string, 0, len(renames))
	for i := len(renames) - 1; i >= 0; i-- {
		pairs = append(pairs, [2]string{renames[i].NewPath, stem(renames[i].OldPath)})
	}
	results := fsops.RenameAll(ctx, renamer, pairs)

	failed := 0
	for _, res := range results {
		if res.Error != nil {
			failed++
			r.logger.With(log.F("path", res.SourcePath), log.F("error", res.Error.Error())).Warn("Failed to undo rename")
		}
	}

	if dr, ok := renamer.(interface{ IsDryRun() bool }); ok && dr.IsDryRun() {
		return results, nil
	}
	if failed > 0 {
		r.logger.With(log.F("batch", batchID), log.F("failed", failed)).Warn("Batch only partially undone")
		return results, nil
	}
	if err := r.markUndone(ctx, batchID); err != nil {
		return results, err
	}
	r.logger.With(log.F("batch", batchID), log.F("renames", len(results))).Info("Batch undone")
	return results, nil
}

func (r *Repository) markUndone(ctx context.Context, batchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.ExecContext(ctx, `UPDATE batches SET undone_at = ? WHERE id = ?`,
		r.now().UTC().Format(timeLayout), batchID)
	if err != nil {
		return errors.NewDatabaseError("failed to mark batch undone", err).WithContext("batch", batchID)
	}
	return nil
}

// Vacuum performs database optimization
func (r *Repository) Vacuum() error {
	if _, err := r.db.Exec("VACUUM"); err != nil {
		return errors.NewDatabaseError("failed to vacuum database", err)
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		dbErr := errors.NewDatabaseError("failed to parse timestamp", err)
		dbErr.WithContext("timestamp", s)
		return time.Time{}, dbErr
	}
	return t, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func ensureDir(dbPath string) error {
	if strings.HasPrefix(dbPath, "file:") || dbPath == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewFileError("failed to create history directory", dir, errors.FileOperationFailed, err)
	}
	return nil
}
