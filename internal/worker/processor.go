package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"qnup/internal/metrics"
	"qnup/internal/objectkey"
	"qnup/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Sink receives every outcome as soon as it is produced. Implementations
// are called from many workers at once.
type Sink interface {
	Outcome(Outcome)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Outcome)

func (f SinkFunc) Outcome(o Outcome) { f(o) }

// TaskProcessor uploads tasks one at a time.
type TaskProcessor struct {
	config  Config
	client  storage.Client
	metrics *metrics.Collector
	sink    Sink
	logger  *zap.Logger
	chunk   int
}

// Process uploads a single task. Every error, from opening the file to the
// client call, is returned inside the Outcome; the task is never retried.
func (p *TaskProcessor) Process(ctx context.Context, task Task) Outcome {
	startTime := time.Now()

	outcome := Outcome{Task: task, Chunk: p.chunk}
	err := p.upload(ctx, &outcome)
	outcome.Duration = time.Since(startTime)

	if err != nil {
		outcome.Err = err
		p.metrics.IncFailedWithBytes(outcome.Size)
		p.logger.Info("Upload failed",
			zap.String("path", task.LocalPath),
			zap.String("key", task.RemoteKey),
			zap.Error(err),
		)
	} else {
		outcome.URL = objectkey.DownloadURL(p.config.Domain, task.RemoteKey)
		p.metrics.IncSuccessWithBytes(outcome.Size)
		p.metrics.ObserveDuration(outcome.Duration)
		p.logger.Debug("Upload completed",
			zap.String("path", task.LocalPath),
			zap.String("key", task.RemoteKey),
			zap.Int64("size", outcome.Size),
			zap.Duration("duration", outcome.Duration),
		)
	}

	p.sink.Outcome(outcome)
	return outcome
}

func (p *TaskProcessor) upload(ctx context.Context, outcome *Outcome) error {
	file, err := os.Open(outcome.LocalPath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}
	outcome.Size = info.Size()

	contentType, err := detectContentType(file)
	if err != nil {
		return err
	}
	outcome.ContentType = contentType

	opts := storage.PutOptions{
		ContentType: contentType,
		PartSize:    p.config.PartSize,
		Threads:     p.config.Threads,
	}
	return p.client.PutObject(ctx, outcome.RemoteKey, file, outcome.Size, opts)
}

// detectContentType sniffs the first 512 bytes and rewinds the file.
func detectContentType(file *os.File) (string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("read file: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind file: %w", err)
	}
	return mimetype.Detect(buf[:n]).String(), nil
}
