package worker

import "time"

// DefaultMaxWorkers bounds the number of chunks, and so of concurrent uploads.
const DefaultMaxWorkers = 30

// Task is one file to upload under RemoteKey.
type Task struct {
	LocalPath string `json:"local_path"`
	RemoteKey string `json:"remote_key"`
}

// Outcome is the result of one upload attempt. Err is nil on success.
type Outcome struct {
	Task
	Chunk       int
	Size        int64
	ContentType string
	URL         string
	Duration    time.Duration
	Err         error
}

// Succeeded reports whether the upload completed.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Tally counts outcomes. Skipped counts tasks that never ran because their
// worker crashed or the batch was interrupted.
type Tally struct {
	Success uint64
	Failed  uint64
	Skipped uint64
	Bytes   int64
}

// Add folds o into t.
func (t *Tally) Add(o Tally) {
	t.Success += o.Success
	t.Failed += o.Failed
	t.Skipped += o.Skipped
	t.Bytes += o.Bytes
}

// Total is the number of tasks the tally accounts for.
func (t Tally) Total() uint64 {
	return t.Success + t.Failed + t.Skipped
}

// Config contains worker configuration
type Config struct {
	// PartSize is passed through to the storage client; 0 keeps its default.
	PartSize uint64
	// Threads is the per-object part concurrency hint.
	Threads uint
	// Domain, when set, is used to build download links for uploaded objects.
	Domain string
	// MaxWorkers caps concurrently running chunks.
	MaxWorkers int
}
