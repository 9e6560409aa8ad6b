// Package report writes per-object outcomes and the batch summary.
package report

import (
	"io"
	"time"

	"qnup/internal/worker"
)

// Summary describes a finished batch.
type Summary struct {
	BatchID string
	Root    string
	IsDir   bool
	Chunks  int
	Tally   worker.Tally
	Crashed []string
	Elapsed time.Duration
}

// Failed reports whether any object failed or any worker crashed.
func (s Summary) Failed() bool {
	return s.Tally.Failed > 0 || len(s.Crashed) > 0
}

// Reporter receives outcomes while the batch runs and the summary once it is
// done. Outcome is called concurrently from many workers.
type Reporter interface {
	Outcome(worker.Outcome)
	Summary(Summary)
}

// Options selects and configures the console reporter.
type Options struct {
	JSON   bool
	Quiet  bool
	QRCode bool // human output only
}

// New returns the reporter selected by the output flags.
func New(stdout, stderr io.Writer, opts Options) Reporter {
	if opts.JSON {
		return NewJSONReporter(stdout)
	}
	var hopts []HumanOption
	if opts.QRCode {
		hopts = append(hopts, WithQRCode())
	}
	return NewHumanReporter(stdout, stderr, opts.Quiet, hopts...)
}

// Multi fans every call out to reporters in order.
type Multi []Reporter

func (m Multi) Outcome(o worker.Outcome) {
	for _, r := range m {
		r.Outcome(o)
	}
}

func (m Multi) Summary(s Summary) {
	for _, r := range m {
		r.Summary(s)
	}
}
