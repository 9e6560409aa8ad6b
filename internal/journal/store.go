// Package journal keeps a local history of upload batches and their objects.
// It is write-only from the upload path's point of view: nothing recorded
// here changes what a later batch uploads.
package journal

import (
	"errors"
	"time"
)

// Status of a recorded object.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// ErrClosed is returned by every Store method after Close.
var ErrClosed = errors.New("journal is closed")

// Batch is one invocation of the uploader.
type Batch struct {
	ID         string    `json:"id"`
	Root       string    `json:"root"`
	Bucket     string    `json:"bucket"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Success    uint64    `json:"success"`
	Failed     uint64    `json:"failed"`
	Skipped    uint64    `json:"skipped"`
	Bytes      int64     `json:"bytes"`
}

// Finished reports whether the batch ran to its summary.
func (b *Batch) Finished() bool {
	return !b.FinishedAt.IsZero()
}

// Record is the outcome of one object in a batch.
type Record struct {
	BatchID   string    `json:"batch_id"`
	LocalPath string    `json:"local_path"`
	RemoteKey string    `json:"remote_key"`
	Size      int64     `json:"size"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the interface for journal persistence
type Store interface {
	// Batch operations
	BeginBatch(root, bucket string) (*Batch, error)
	FinishBatch(batch *Batch) error
	GetBatch(id string) (*Batch, error)
	ListBatches(limit int) ([]*Batch, error)

	// Record operations
	SaveRecord(record *Record) error
	// ListRecords returns the records of a batch; an empty status lists all.
	ListRecords(batchID string, status Status) ([]*Record, error)

	// Cleanup
	Close() error
}
