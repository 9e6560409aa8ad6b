package report

import (
	"encoding/json"
	"io"
	"sync"

	"qnup/internal/worker"
)

// JSONReporter writes one JSON object per line.
type JSONReporter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONReporter creates a reporter writing JSON lines to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

type outcomeLine struct {
	Type        string `json:"type"`
	Status      string `json:"status"`
	LocalPath   string `json:"local_path"`
	RemoteKey   string `json:"remote_key"`
	Worker      int    `json:"worker"`
	Size        int64  `json:"size_bytes"`
	ContentType string `json:"content_type,omitempty"`
	URL         string `json:"url,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}

type summaryLine struct {
	Type           string   `json:"type"`
	BatchID        string   `json:"batch_id,omitempty"`
	Root           string   `json:"root"`
	Directory      bool     `json:"directory"`
	Chunks         int      `json:"chunks"`
	Success        uint64   `json:"success"`
	Failed         uint64   `json:"failed"`
	Skipped        uint64   `json:"skipped"`
	Bytes          int64    `json:"bytes"`
	Crashed        []string `json:"crashed,omitempty"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
}

// Outcome writes an "outcome" line.
func (r *JSONReporter) Outcome(o worker.Outcome) {
	line := outcomeLine{
		Type:        "outcome",
		Status:      "success",
		LocalPath:   o.LocalPath,
		RemoteKey:   o.RemoteKey,
		Worker:      o.Chunk,
		Size:        o.Size,
		ContentType: o.ContentType,
		URL:         o.URL,
		DurationMS:  o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		line.Status = "failed"
		line.Error = o.Err.Error()
	}
	r.write(line)
}

// Summary writes a "summary" line.
func (r *JSONReporter) Summary(s Summary) {
	r.write(summaryLine{
		Type:           "summary",
		BatchID:        s.BatchID,
		Root:           s.Root,
		Directory:      s.IsDir,
		Chunks:         s.Chunks,
		Success:        s.Tally.Success,
		Failed:         s.Tally.Failed,
		Skipped:        s.Tally.Skipped,
		Bytes:          s.Tally.Bytes,
		Crashed:        s.Crashed,
		ElapsedSeconds: s.Elapsed.Seconds(),
	})
}

func (r *JSONReporter) write(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(v)
}
