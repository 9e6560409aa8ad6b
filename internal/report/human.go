package report

import (
	"fmt"
	"io"
	"sync"

	"qnup/internal/worker"

	"github.com/dustin/go-humanize"
	"github.com/mdp/qrterminal/v3"
)

// HumanReporter prints one line per object: successes to stdout, failures to
// stderr. Quiet drops success lines but keeps failures and the summary.
type HumanReporter struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
	quiet  bool
	qrcode bool

	lastURL string
}

// HumanOption customizes a HumanReporter.
type HumanOption func(*HumanReporter)

// WithQRCode prints a QR code of the download link after a single file
// upload.
func WithQRCode() HumanOption {
	return func(r *HumanReporter) { r.qrcode = true }
}

// NewHumanReporter creates a reporter writing plain text.
func NewHumanReporter(stdout, stderr io.Writer, quiet bool, opts ...HumanOption) *HumanReporter {
	r := &HumanReporter{stdout: stdout, stderr: stderr, quiet: quiet}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Outcome prints a single upload result. The object and link lines are
// written under one lock so concurrent workers never interleave them.
func (r *HumanReporter) Outcome(o worker.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !o.Succeeded() {
		_, _ = fmt.Fprintf(r.stderr, "😭 %s -> %s upload failed, %v\n", o.LocalPath, o.RemoteKey, o.Err)
		return
	}
	if r.quiet {
		return
	}
	_, _ = fmt.Fprintf(r.stdout, "🚀 %s -> %s uploaded\n", o.LocalPath, o.RemoteKey)
	if o.URL != "" {
		_, _ = fmt.Fprintf(r.stdout, "🔗 %s\n", o.URL)
		r.lastURL = o.URL
	}
}

// Summary prints the batch totals.
func (r *HumanReporter) Summary(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, crash := range s.Crashed {
		_, _ = fmt.Fprintf(r.stderr, "💥 %s\n", crash)
	}

	if !s.IsDir {
		if r.qrcode && r.lastURL != "" {
			qrterminal.GenerateHalfBlock(r.lastURL, qrterminal.L, r.stdout)
		}
		_, _ = fmt.Fprintf(r.stdout, "%.2fs elapsed.\n", s.Elapsed.Seconds())
		return
	}

	_, _ = fmt.Fprintf(r.stdout, "🚀 folder %s uploaded\n", s.Root)
	_, _ = fmt.Fprintf(r.stdout, "🔥 %d succeeded, %d failed, %s transferred, %.2fs elapsed.\n",
		s.Tally.Success,
		s.Tally.Failed,
		humanize.IBytes(uint64(max(s.Tally.Bytes, 0))),
		s.Elapsed.Seconds(),
	)
	if s.Tally.Skipped > 0 {
		_, _ = fmt.Fprintf(r.stdout, "⏭  %d skipped\n", s.Tally.Skipped)
	}
}
