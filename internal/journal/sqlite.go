package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db      *sql.DB
	closed  bool
	writeMu sync.Mutex
}

// NewSQLiteStore opens (creating if needed) the journal at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(60000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	store := &SQLiteStore{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		root TEXT NOT NULL,
		bucket TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		success INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		bytes INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS records (
		batch_id TEXT NOT NULL REFERENCES batches(id),
		local_path TEXT NOT NULL,
		remote_key TEXT NOT NULL,
		size INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (batch_id, remote_key)
	);

	CREATE INDEX IF NOT EXISTS idx_batches_started_at ON batches(started_at);
	CREATE INDEX IF NOT EXISTS idx_records_status ON records(batch_id, status);
	`

	_, err := s.db.Exec(query)
	return err
}

// BeginBatch stores a new batch with a fresh id.
func (s *SQLiteStore) BeginBatch(root, bucket string) (*Batch, error) {
	if s.closed {
		return nil, ErrClosed
	}

	batch := &Batch{
		ID:        uuid.NewString(),
		Root:      root,
		Bucket:    bucket,
		StartedAt: time.Now().UTC(),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.retryOnBusy(func() error {
		_, err := s.db.Exec(
			`INSERT INTO batches (id, root, bucket, started_at) VALUES (?, ?, ?, ?)`,
			batch.ID, batch.Root, batch.Bucket, batch.StartedAt,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert batch: %w", err)
	}
	return batch, nil
}

// FinishBatch stores the batch totals and marks it finished.
func (s *SQLiteStore) FinishBatch(batch *Batch) error {
	if s.closed {
		return ErrClosed
	}
	if batch.FinishedAt.IsZero() {
		batch.FinishedAt = time.Now().UTC()
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.retryOnBusy(func() error {
		res, err := s.db.Exec(`
		UPDATE batches
		SET finished_at = ?, success = ?, failed = ?, skipped = ?, bytes = ?
		WHERE id = ?`,
			batch.FinishedAt, batch.Success, batch.Failed, batch.Skipped, batch.Bytes, batch.ID,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("batch %s not found", batch.ID)
		}
		return nil
	})
}

// GetBatch returns the batch with id, or nil if there is none.
func (s *SQLiteStore) GetBatch(id string) (*Batch, error) {
	if s.closed {
		return nil, ErrClosed
	}

	var batch *Batch
	err := s.retryOnBusy(func() error {
		row := s.db.QueryRow(`
		SELECT id, root, bucket, started_at, finished_at, success, failed, skipped, bytes
		FROM batches WHERE id = ?`, id)
		b, err := scanBatch(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		batch = b
		return err
	})
	return batch, err
}

// ListBatches returns the most recent batches first.
func (s *SQLiteStore) ListBatches(limit int) ([]*Batch, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`
	SELECT id, root, bucket, started_at, finished_at, success, failed, skipped, bytes
	FROM batches
	ORDER BY started_at DESC, rowid DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*Batch, error) {
	var b Batch
	var finishedAt sql.NullTime
	err := row.Scan(
		&b.ID,
		&b.Root,
		&b.Bucket,
		&b.StartedAt,
		&finishedAt,
		&b.Success,
		&b.Failed,
		&b.Skipped,
		&b.Bytes,
	)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		b.FinishedAt = finishedAt.Time
	}
	return &b, nil
}

// SaveRecord saves or updates an object record with retry mechanism
func (s *SQLiteStore) SaveRecord(record *Record) error {
	if s.closed {
		return ErrClosed
	}

	// Serialize writes to avoid SQLITE_BUSY from multiple concurrent writers
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	record.UpdatedAt = time.Now().UTC()

	// UPSERT keeps the primary key row in place instead of DELETE+INSERT
	query := `
	INSERT INTO records
	(batch_id, local_path, remote_key, size, status, error, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(batch_id, remote_key) DO UPDATE SET
		local_path = excluded.local_path,
		size = excluded.size,
		status = excluded.status,
		error = excluded.error,
		updated_at = excluded.updated_at
	`

	return s.retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			record.BatchID,
			record.LocalPath,
			record.RemoteKey,
			record.Size,
			record.Status,
			record.Error,
			record.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to execute insert: %w", err)
		}
		return nil
	})
}

// ListRecords returns the records of batchID in the order they were written.
func (s *SQLiteStore) ListRecords(batchID string, status Status) ([]*Record, error) {
	if s.closed {
		return nil, ErrClosed
	}

	query := `
	SELECT batch_id, local_path, remote_key, size, status, error, updated_at
	FROM records WHERE batch_id = ?`
	args := []any{batchID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY rowid ASC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var record Record
		var errText sql.NullString

		err := rows.Scan(
			&record.BatchID,
			&record.LocalPath,
			&record.RemoteKey,
			&record.Size,
			&record.Status,
			&errText,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if errText.Valid {
			record.Error = errText.String
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// retryOnBusy retries the operation if SQLite is busy
func (s *SQLiteStore) retryOnBusy(operation func() error) error {
	const maxRetries = 10
	baseDelay := 50 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = operation()
		if err == nil || !isSQLiteBusyError(err) {
			return err
		}
		if attempt < maxRetries-1 {
			// Exponential backoff with a small linear jitter
			delay := baseDelay * time.Duration(1<<uint(attempt))
			jitter := time.Duration(attempt*10) * time.Millisecond
			time.Sleep(delay + jitter)
		}
	}
	return err
}

// isSQLiteBusyError checks if the error is a SQLite busy error
func isSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	errorStr := err.Error()
	return strings.Contains(errorStr, "database is locked") ||
		strings.Contains(errorStr, "SQLITE_BUSY")
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
