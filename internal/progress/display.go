package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Display periodically redraws a one-line status for a Tracker.
type Display struct {
	tracker  *Tracker
	out      io.Writer
	interval time.Duration
	stopCh   chan struct{}
	done     sync.WaitGroup

	mu    sync.Mutex
	width int // width of the line currently on screen, 0 when none
}

// NewDisplay creates a new progress display
func NewDisplay(tracker *Tracker, out io.Writer, interval time.Duration) *Display {
	return &Display{
		tracker:  tracker,
		out:      out,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the progress display
func (d *Display) Start() {
	d.done.Add(1)
	go d.displayLoop()
}

// Stop draws the final line and waits for the loop to exit.
func (d *Display) Stop() {
	close(d.stopCh)
	d.done.Wait()
}

func (d *Display) displayLoop() {
	defer d.done.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.draw()
		case <-d.stopCh:
			d.mu.Lock()
			d.drawLocked()
			fmt.Fprintln(d.out)
			d.width = 0
			d.mu.Unlock()
			return
		}
	}
}

func (d *Display) draw() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drawLocked()
}

func (d *Display) drawLocked() {
	line := d.Line(d.tracker.GetStatus())
	pad := ""
	if n := d.width - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	d.width = len(line)
	fmt.Fprintf(d.out, "\r%s%s", line, pad)
}

// Writer returns a writer for w that erases the progress line before each
// write. Output sharing the terminal with the display goes through it.
func (d *Display) Writer(w io.Writer) io.Writer {
	return &clearingWriter{d: d, w: w}
}

type clearingWriter struct {
	d *Display
	w io.Writer
}

func (c *clearingWriter) Write(p []byte) (int, error) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()

	if c.d.width > 0 {
		fmt.Fprintf(c.d.out, "\r%s\r", strings.Repeat(" ", c.d.width))
		c.d.width = 0
	}
	return c.w.Write(p)
}

// Line renders the status as a single line.
func (d *Display) Line(status Status) string {
	percent := 0.0
	if status.TotalObjects > 0 {
		percent = float64(status.ProcessedObjects) / float64(status.TotalObjects) * 100
	}

	return fmt.Sprintf("%s %d/%d (%.1f%%) ok %d fail %d | %s/%s | %s | eta %s",
		generateProgressBar(percent, 20),
		status.ProcessedObjects, status.TotalObjects, percent,
		status.SuccessObjects, status.FailedObjects,
		FormatBytes(status.ProcessedBytes), FormatBytes(status.TotalBytes),
		FormatSpeed(status.CurrentSpeed),
		FormatDuration(status.ETA),
	)
}

func generateProgressBar(percent float64, width int) string {
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}

	filled := int(percent * float64(width) / 100)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

// IsTerminalSupported reports whether f is an interactive terminal.
func IsTerminalSupported(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
