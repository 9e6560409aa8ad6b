package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"qnup/internal/config"
	"qnup/internal/journal"
	"qnup/internal/metrics"
	"qnup/internal/progress"
	"qnup/internal/report"
	"qnup/internal/scan"
	"qnup/internal/storage"
	"qnup/internal/worker"

	"go.uber.org/zap"
)

// Uploader represents the main upload application
type Uploader struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   storage.Client
	reporter report.Reporter
	journal  journal.Store
	metrics  *metrics.Collector
	display  *progress.Display
	stderr   io.Writer

	ownsJournal bool
}

// Option customizes an Uploader.
type Option func(*Uploader)

// WithClient replaces the storage client built from the configuration.
func WithClient(client storage.Client) Option {
	return func(u *Uploader) { u.client = client }
}

// WithReporter replaces the console reporter.
func WithReporter(reporter report.Reporter) Option {
	return func(u *Uploader) { u.reporter = reporter }
}

// WithJournal records batches in store. The caller keeps ownership.
func WithJournal(store journal.Store) Option {
	return func(u *Uploader) { u.journal = store }
}

// New creates a new uploader instance
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, stdout, stderr io.Writer, opts ...Option) (*Uploader, error) {
	u := &Uploader{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		stderr:  stderr,
	}
	for _, opt := range opts {
		opt(u)
	}

	if u.client == nil {
		client, err := storage.New(ctx, cfg.StorageConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		u.client = client
	}

	// Console output shares stderr with the progress line.
	u.display = u.progressDisplay()
	if u.display != nil {
		stderr = u.display.Writer(stderr)
	}

	if u.reporter == nil {
		u.reporter = report.New(stdout, stderr, report.Options{
			JSON:   cfg.Output.JSON,
			Quiet:  cfg.Output.Quiet,
			QRCode: cfg.Output.QRCode,
		})
	}

	if u.journal == nil && cfg.Output.Journal != "" {
		store, err := journal.NewSQLiteStore(cfg.Output.Journal)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		u.journal = store
		u.ownsJournal = true
	}

	return u, nil
}

// Metrics returns the collector fed by the upload workers.
func (u *Uploader) Metrics() *metrics.Collector {
	return u.metrics
}

// Run uploads the configured path. Errors are fatal and returned before any
// object is uploaded; per-object failures only show up in the summary. An
// interrupted batch returns its summary together with the context error.
func (u *Uploader) Run(ctx context.Context) (report.Summary, error) {
	startTime := time.Now()

	files, err := scan.Files(u.cfg.Upload.Path)
	if err != nil {
		return report.Summary{}, fmt.Errorf("failed to enumerate files: %w", err)
	}

	p := buildPlan(files, u.cfg.Upload.ObjectName, u.cfg.Upload.LowercaseKeys, u.cfg.Upload.MaxWorkers)

	u.logger.Info("Starting upload",
		zap.String("path", files.Root),
		zap.String("bucket", u.cfg.Storage.Bucket),
		zap.Bool("directory", files.IsDir),
		zap.Int("files", len(p.tasks)),
		zap.Int("chunks", len(p.chunks)),
	)

	reporter := u.reporter
	summary := report.Summary{Root: files.Root, IsDir: files.IsDir, Chunks: len(p.chunks)}
	if u.journal != nil {
		recorder, err := journal.NewRecorder(u.journal, files.Root, u.cfg.Storage.Bucket, u.logger)
		if err != nil {
			return report.Summary{}, fmt.Errorf("failed to begin journal batch: %w", err)
		}
		summary.BatchID = recorder.BatchID()
		reporter = report.Multi{u.reporter, recorder}
	}

	u.metrics.SetTotalCounts(int64(len(p.tasks)), p.totalBytes)

	// Serve metrics for the lifetime of the batch
	if addr := u.cfg.Output.MetricsAddr; addr != "" {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		go func() {
			if err := u.metrics.StartServer(metricsCtx, addr); err != nil {
				u.logger.Error("Failed to start metrics server", zap.Error(err))
			}
		}()
	}

	if u.display != nil {
		u.display.Start()
	}

	pool := worker.NewPool(u.cfg.WorkerConfig(files.IsDir), u.client, u.metrics, reporter, u.logger)
	result := pool.Run(ctx, p.chunks)

	if u.display != nil {
		u.display.Stop()
	}

	summary.Tally = result.Tally
	summary.Elapsed = time.Since(startTime)
	for _, crash := range result.Crashed {
		u.logger.Error("Worker crashed",
			zap.Int("worker_id", crash.Chunk),
			zap.Any("panic", crash.Value),
			zap.ByteString("stack", crash.Stack),
		)
		summary.Crashed = append(summary.Crashed, crash.Error())
	}
	reporter.Summary(summary)

	u.logger.Info("Upload completed",
		zap.Uint64("success", summary.Tally.Success),
		zap.Uint64("failed", summary.Tally.Failed),
		zap.Uint64("skipped", summary.Tally.Skipped),
		zap.Duration("elapsed", summary.Elapsed),
	)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("upload interrupted: %w", err)
	}
	return summary, nil
}

// progressDisplay returns a display when progress is enabled and stderr is a
// terminal. JSON output never shows progress.
func (u *Uploader) progressDisplay() *progress.Display {
	if !u.cfg.Output.Progress || u.cfg.Output.JSON {
		return nil
	}
	f, ok := u.stderr.(*os.File)
	if !ok || !progress.IsTerminalSupported(f) {
		u.logger.Info("Progress display disabled (unsupported terminal)")
		return nil
	}
	return progress.NewDisplay(u.metrics.GetProgressTracker(), u.stderr, time.Second)
}

// Close cleans up resources
func (u *Uploader) Close() error {
	if u.journal != nil && u.ownsJournal {
		return u.journal.Close()
	}
	return nil
}
