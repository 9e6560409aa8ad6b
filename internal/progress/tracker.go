package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Status represents the current batch status
type Status struct {
	TotalObjects     int64
	ProcessedObjects int64
	SuccessObjects   int64
	FailedObjects    int64
	SkippedObjects   int64
	TotalBytes       int64
	ProcessedBytes   int64
	StartTime        time.Time
	LastUpdateTime   time.Time
	CurrentSpeed     float64 // bytes/second over the last few seconds
	AverageSpeed     float64 // bytes/second since start
	ETA              time.Duration
}

// Tracker tracks upload progress. Safe for concurrent use.
type Tracker struct {
	mu           sync.RWMutex
	status       Status
	speedSamples []speedSample
	maxSamples   int
	now          func() time.Time
}

type speedSample struct {
	timestamp time.Time
	bytes     int64
}

// NewTracker creates a new progress tracker
func NewTracker() *Tracker {
	return newTracker(time.Now)
}

func newTracker(now func() time.Time) *Tracker {
	start := now()
	return &Tracker{
		status: Status{
			StartTime:      start,
			LastUpdateTime: start,
		},
		speedSamples: make([]speedSample, 0, 60),
		maxSamples:   60,
		now:          now,
	}
}

// SetTotal sets the total number of objects and bytes
func (t *Tracker) SetTotal(objects, bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.TotalObjects = objects
	t.status.TotalBytes = bytes
}

// AddSuccess records an uploaded object of the given size.
func (t *Tracker) AddSuccess(bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.SuccessObjects++
	t.status.ProcessedObjects++
	t.status.ProcessedBytes += bytes
	t.updateSpeed(bytes)
}

// AddFailed records a failed object. Its bytes count as processed for the ETA.
func (t *Tracker) AddFailed(bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.FailedObjects++
	t.status.ProcessedObjects++
	t.status.ProcessedBytes += bytes
	t.updateSpeed(0)
}

// AddSkipped records objects that were never attempted.
func (t *Tracker) AddSkipped(objects int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.SkippedObjects += objects
	t.status.ProcessedObjects += objects
}

// updateSpeed must be called with the lock held.
func (t *Tracker) updateSpeed(bytes int64) {
	now := t.now()

	t.speedSamples = append(t.speedSamples, speedSample{timestamp: now, bytes: bytes})
	if len(t.speedSamples) > t.maxSamples {
		t.speedSamples = t.speedSamples[1:]
	}

	t.calculateCurrentSpeed(now)
	t.calculateAverageSpeed(now)
	t.calculateETA()

	t.status.LastUpdateTime = now
}

// calculateCurrentSpeed uses samples from the last 5 seconds.
func (t *Tracker) calculateCurrentSpeed(now time.Time) {
	if len(t.speedSamples) < 2 {
		t.status.CurrentSpeed = 0
		return
	}

	cutoff := now.Add(-5 * time.Second)
	var recentBytes int64
	var firstSample *speedSample

	for i := len(t.speedSamples) - 1; i >= 0; i-- {
		sample := &t.speedSamples[i]
		if sample.timestamp.Before(cutoff) {
			break
		}
		recentBytes += sample.bytes
		firstSample = sample
	}

	if firstSample != nil {
		if d := now.Sub(firstSample.timestamp); d > 0 {
			t.status.CurrentSpeed = float64(recentBytes) / d.Seconds()
		}
	}
}

func (t *Tracker) calculateAverageSpeed(now time.Time) {
	if elapsed := now.Sub(t.status.StartTime); elapsed > 0 {
		t.status.AverageSpeed = float64(t.status.ProcessedBytes) / elapsed.Seconds()
	}
}

func (t *Tracker) calculateETA() {
	if t.status.TotalBytes == 0 || t.status.AverageSpeed == 0 {
		t.status.ETA = 0
		return
	}

	remainingBytes := t.status.TotalBytes - t.status.ProcessedBytes
	if remainingBytes <= 0 {
		t.status.ETA = 0
		return
	}

	etaSeconds := float64(remainingBytes) / t.status.AverageSpeed
	t.status.ETA = time.Duration(etaSeconds) * time.Second
}

// GetStatus returns a snapshot of the current status.
func (t *Tracker) GetStatus() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.status
}

// GetProgressPercent returns the object progress percentage
func (t *Tracker) GetProgressPercent() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.status.TotalObjects == 0 {
		return 0
	}

	return float64(t.status.ProcessedObjects) / float64(t.status.TotalObjects) * 100
}

// FormatBytes formats bytes in human readable format
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatSpeed formats speed in human readable format
func FormatSpeed(bytesPerSecond float64) string {
	if bytesPerSecond < 0 {
		bytesPerSecond = 0
	}
	return humanize.IBytes(uint64(bytesPerSecond)) + "/s"
}

// FormatDuration formats duration in human readable format
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
