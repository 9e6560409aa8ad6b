package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"qnup/internal/progress"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects and exposes upload metrics on its own registry.
type Collector struct {
	registry        *prometheus.Registry
	objectsTotal    *prometheus.CounterVec
	bytesTotal      prometheus.Counter
	inflightWorkers prometheus.Gauge
	duration        prometheus.Histogram
	progressTracker *progress.Tracker
}

// New creates a new metrics collector
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		objectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qnup_objects_total",
				Help: "Total number of objects processed",
			},
			[]string{"status"},
		),
		bytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qnup_bytes_total",
				Help: "Total bytes uploaded",
			},
		),
		inflightWorkers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "qnup_inflight_workers",
				Help: "Number of chunk workers currently running",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "qnup_object_duration_seconds",
				Help:    "Time taken to upload an object",
				Buckets: prometheus.DefBuckets,
			},
		),
		progressTracker: progress.NewTracker(),
	}

	c.registry.MustRegister(c.objectsTotal, c.bytesTotal, c.inflightWorkers, c.duration)

	return c
}

// IncSuccessWithBytes counts an uploaded object and its bytes.
func (c *Collector) IncSuccessWithBytes(bytes int64) {
	c.objectsTotal.WithLabelValues("success").Inc()
	c.bytesTotal.Add(float64(bytes))
	c.progressTracker.AddSuccess(bytes)
}

// IncFailedWithBytes counts a failed object; bytes is its local size, 0 if unknown.
func (c *Collector) IncFailedWithBytes(bytes int64) {
	c.objectsTotal.WithLabelValues("failed").Inc()
	c.progressTracker.AddFailed(bytes)
}

// AddSkipped counts objects that were never attempted.
func (c *Collector) AddSkipped(count int) {
	if count <= 0 {
		return
	}
	c.objectsTotal.WithLabelValues("skipped").Add(float64(count))
	c.progressTracker.AddSkipped(int64(count))
}

// WorkerStarted and WorkerFinished track running chunk workers.
func (c *Collector) WorkerStarted() {
	c.inflightWorkers.Inc()
}

func (c *Collector) WorkerFinished() {
	c.inflightWorkers.Dec()
}

// ObserveDuration observes upload duration
func (c *Collector) ObserveDuration(duration time.Duration) {
	c.duration.Observe(duration.Seconds())
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// StartServer serves /metrics on addr until ctx is done.
func (c *Collector) StartServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// GetProgressTracker returns the progress tracker
func (c *Collector) GetProgressTracker() *progress.Tracker {
	return c.progressTracker
}

// SetTotalCounts sets the total counts for progress tracking
func (c *Collector) SetTotalCounts(objects, bytes int64) {
	c.progressTracker.SetTotal(objects, bytes)
}
