package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"qnup/internal/metrics"
	"qnup/internal/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WorkerPanic records a chunk worker that crashed. The outcomes it reported
// before crashing stand; its remaining tasks are counted as skipped.
type WorkerPanic struct {
	Chunk int
	Value any
	Stack []byte
}

func (e *WorkerPanic) Error() string {
	return fmt.Sprintf("worker %d panicked: %v", e.Chunk, e.Value)
}

// Result is the aggregate of a batch.
type Result struct {
	Tally   Tally
	Chunks  int
	Crashed []*WorkerPanic
	Elapsed time.Duration
}

// Pool runs one worker per chunk.
type Pool struct {
	config  Config
	client  storage.Client
	metrics *metrics.Collector
	sink    Sink
	logger  *zap.Logger
}

// NewPool creates a new worker pool. client is shared by all workers.
func NewPool(
	config Config,
	client storage.Client,
	metricsCollector *metrics.Collector,
	sink Sink,
	logger *zap.Logger,
) *Pool {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultMaxWorkers
	}
	return &Pool{
		config:  config,
		client:  client,
		metrics: metricsCollector,
		sink:    sink,
		logger:  logger,
	}
}

// Run processes every chunk and returns once all workers have finished.
// Chunks run concurrently (at most config.MaxWorkers at a time); tasks within
// a chunk run in order. Workers keep private tallies that are summed after
// the join.
func (p *Pool) Run(ctx context.Context, chunks [][]Task) Result {
	startTime := time.Now()

	tallies := make([]Tally, len(chunks))
	crashes := make([]*WorkerPanic, len(chunks))

	var g errgroup.Group
	g.SetLimit(p.config.MaxWorkers)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			tallies[i], crashes[i] = p.worker(ctx, i, chunk)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{Chunks: len(chunks)}
	for i := range chunks {
		result.Tally.Add(tallies[i])
		if crashes[i] != nil {
			result.Crashed = append(result.Crashed, crashes[i])
		}
	}
	result.Elapsed = time.Since(startTime)
	return result
}

func (p *Pool) worker(ctx context.Context, id int, chunk []Task) (tally Tally, crash *WorkerPanic) {
	logger := p.logger.With(zap.Int("worker_id", id))
	logger.Debug("Worker started", zap.Int("tasks", len(chunk)))

	p.metrics.WorkerStarted()
	defer p.metrics.WorkerFinished()

	processor := &TaskProcessor{
		config:  p.config,
		client:  p.client,
		metrics: p.metrics,
		sink:    p.sink,
		logger:  logger,
		chunk:   id,
	}

	done := 0
	defer func() {
		if r := recover(); r != nil {
			crash = &WorkerPanic{Chunk: id, Value: r, Stack: debug.Stack()}
			remaining := len(chunk) - done
			tally.Skipped += uint64(remaining)
			p.metrics.AddSkipped(remaining)
			logger.Error("Worker crashed",
				zap.Any("panic", r),
				zap.Int("skipped", remaining),
			)
		}
	}()

	for _, task := range chunk {
		if ctx.Err() != nil {
			remaining := len(chunk) - done
			tally.Skipped += uint64(remaining)
			p.metrics.AddSkipped(remaining)
			logger.Info("Worker stopped - context cancelled", zap.Int("skipped", remaining))
			return tally, nil
		}

		outcome := processor.Process(ctx, task)
		done++
		if outcome.Succeeded() {
			tally.Success++
			tally.Bytes += outcome.Size
		} else {
			tally.Failed++
		}
	}

	logger.Debug("Worker finished - no more tasks",
		zap.Uint64("success", tally.Success),
		zap.Uint64("failed", tally.Failed),
	)
	return tally, nil
}
