package journal

import (
	"qnup/internal/report"
	"qnup/internal/worker"

	"go.uber.org/zap"
)

// Recorder writes a batch's outcomes and summary to a Store. It implements
// report.Reporter so it can sit next to the console reporter. Journal write
// errors are logged and never fail an upload.
type Recorder struct {
	store  Store
	batch  *Batch
	logger *zap.Logger
}

// NewRecorder begins a batch in store.
func NewRecorder(store Store, root, bucket string, logger *zap.Logger) (*Recorder, error) {
	batch, err := store.BeginBatch(root, bucket)
	if err != nil {
		return nil, err
	}
	logger.Debug("Journal batch started", zap.String("batch_id", batch.ID))
	return &Recorder{store: store, batch: batch, logger: logger}, nil
}

// BatchID returns the id of the batch being recorded.
func (r *Recorder) BatchID() string {
	return r.batch.ID
}

// Outcome implements report.Reporter.
func (r *Recorder) Outcome(o worker.Outcome) {
	record := &Record{
		BatchID:   r.batch.ID,
		LocalPath: o.LocalPath,
		RemoteKey: o.RemoteKey,
		Size:      o.Size,
		Status:    StatusSuccess,
	}
	if o.Err != nil {
		record.Status = StatusFailed
		record.Error = o.Err.Error()
	}

	if err := r.store.SaveRecord(record); err != nil {
		r.logger.Warn("Failed to write journal record",
			zap.String("key", o.RemoteKey),
			zap.Error(err),
		)
	}
}

// Summary implements report.Reporter.
func (r *Recorder) Summary(s report.Summary) {
	r.batch.Success = s.Tally.Success
	r.batch.Failed = s.Tally.Failed
	r.batch.Skipped = s.Tally.Skipped
	r.batch.Bytes = s.Tally.Bytes

	if err := r.store.FinishBatch(r.batch); err != nil {
		r.logger.Warn("Failed to finish journal batch",
			zap.String("batch_id", r.batch.ID),
			zap.Error(err),
		)
	}
}
