package journal

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"qnup/internal/report"
	"qnup/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBatchLifecycle(t *testing.T) {
	store := newStore(t)

	batch, err := store.BeginBatch("docs", "assets")
	require.NoError(t, err)
	_, err = uuid.Parse(batch.ID)
	require.NoError(t, err)
	assert.False(t, batch.Finished())

	got, err := store.GetBatch(batch.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "docs", got.Root)
	assert.Equal(t, "assets", got.Bucket)
	assert.False(t, got.Finished())
	assert.WithinDuration(t, batch.StartedAt, got.StartedAt, time.Second)

	batch.Success, batch.Failed, batch.Skipped, batch.Bytes = 9, 1, 2, 4096
	require.NoError(t, store.FinishBatch(batch))

	got, err = store.GetBatch(batch.ID)
	require.NoError(t, err)
	assert.True(t, got.Finished())
	assert.Equal(t, uint64(9), got.Success)
	assert.Equal(t, uint64(1), got.Failed)
	assert.Equal(t, uint64(2), got.Skipped)
	assert.Equal(t, int64(4096), got.Bytes)
}

func TestGetBatchMissing(t *testing.T) {
	store := newStore(t)

	got, err := store.GetBatch("nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	err = store.FinishBatch(&Batch{ID: "nope"})
	assert.ErrorContains(t, err, "not found")
}

func TestListBatchesNewestFirst(t *testing.T) {
	store := newStore(t)

	var ids []string
	for i := 0; i < 4; i++ {
		b, err := store.BeginBatch(fmt.Sprintf("dir-%d", i), "assets")
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	batches, err := store.ListBatches(2)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, ids[3], batches[0].ID)
	assert.Equal(t, ids[2], batches[1].ID)

	all, err := store.ListBatches(0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRecords(t *testing.T) {
	store := newStore(t)
	batch, err := store.BeginBatch("docs", "assets")
	require.NoError(t, err)

	require.NoError(t, store.SaveRecord(&Record{BatchID: batch.ID, LocalPath: "docs/a", RemoteKey: "uploads/docs/a", Size: 1, Status: StatusSuccess}))
	require.NoError(t, store.SaveRecord(&Record{BatchID: batch.ID, LocalPath: "docs/b", RemoteKey: "uploads/docs/b", Status: StatusFailed, Error: "denied"}))
	require.NoError(t, store.SaveRecord(&Record{BatchID: batch.ID, LocalPath: "docs/c", RemoteKey: "uploads/docs/c", Size: 3, Status: StatusSuccess}))

	all, err := store.ListRecords(batch.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "uploads/docs/a", all[0].RemoteKey)
	assert.Equal(t, "uploads/docs/c", all[2].RemoteKey)

	failed, err := store.ListRecords(batch.ID, StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "docs/b", failed[0].LocalPath)
	assert.Equal(t, "denied", failed[0].Error)
	assert.False(t, failed[0].UpdatedAt.IsZero())

	// same key again overwrites
	require.NoError(t, store.SaveRecord(&Record{BatchID: batch.ID, LocalPath: "docs/b", RemoteKey: "uploads/docs/b", Size: 2, Status: StatusSuccess}))
	failed, err = store.ListRecords(batch.ID, StatusFailed)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestConcurrentRecordWrites(t *testing.T) {
	store := newStore(t)
	batch, err := store.BeginBatch("docs", "assets")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			assert.NoError(t, store.SaveRecord(&Record{
				BatchID:   batch.ID,
				LocalPath: fmt.Sprintf("docs/%d", i),
				RemoteKey: fmt.Sprintf("uploads/docs/%d", i),
				Status:    StatusSuccess,
			}))
		}()
	}
	wg.Wait()

	records, err := store.ListRecords(batch.ID, StatusSuccess)
	require.NoError(t, err)
	assert.Len(t, records, 30)
}

func TestClosedStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.BeginBatch("docs", "assets")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.SaveRecord(&Record{}), ErrClosed)
	_, err = store.ListBatches(1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	batch, err := store.BeginBatch("docs", "assets")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetBatch(batch.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "docs", got.Root)
}

func TestRecorder(t *testing.T) {
	store := newStore(t)
	rec, err := NewRecorder(store, "docs", "assets", zap.NewNop())
	require.NoError(t, err)

	var _ report.Reporter = rec

	rec.Outcome(worker.Outcome{Task: worker.Task{LocalPath: "docs/a", RemoteKey: "uploads/docs/a"}, Size: 10})
	rec.Outcome(worker.Outcome{Task: worker.Task{LocalPath: "docs/b", RemoteKey: "uploads/docs/b"}, Err: errors.New("quota exceeded")})
	rec.Summary(report.Summary{Tally: worker.Tally{Success: 1, Failed: 1, Skipped: 3, Bytes: 10}})

	batch, err := store.GetBatch(rec.BatchID())
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.True(t, batch.Finished())
	assert.Equal(t, uint64(3), batch.Skipped)

	failed, err := store.ListRecords(rec.BatchID(), StatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "quota exceeded", failed[0].Error)
}

type brokenStore struct{ Store }

func (brokenStore) SaveRecord(*Record) error { return errors.New("disk full") }
func (brokenStore) FinishBatch(*Batch) error { return errors.New("disk full") }

func TestRecorderSwallowsWriteErrors(t *testing.T) {
	rec := &Recorder{store: brokenStore{}, batch: &Batch{ID: "x"}, logger: zap.NewNop()}
	assert.NotPanics(t, func() {
		rec.Outcome(worker.Outcome{Task: worker.Task{RemoteKey: "k"}})
		rec.Summary(report.Summary{})
	})
}
