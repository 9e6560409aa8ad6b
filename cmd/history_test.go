package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"qnup/internal/journal"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedJournal(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	batch, err := store.BeginBatch("docs", "assets")
	require.NoError(t, err)
	require.NoError(t, store.SaveRecord(&journal.Record{BatchID: batch.ID, LocalPath: "docs/a", RemoteKey: "uploads/docs/a", Size: 2048, Status: journal.StatusSuccess}))
	require.NoError(t, store.SaveRecord(&journal.Record{BatchID: batch.ID, LocalPath: "docs/b", RemoteKey: "uploads/docs/b", Status: journal.StatusFailed, Error: "access denied"}))
	batch.Success, batch.Failed, batch.Bytes = 1, 1, 2048
	require.NoError(t, store.FinishBatch(batch))
	return path, batch.ID
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		for _, name := range []string{"failed", "json", "journal"} {
			_ = historyCmd.Flags().Set(name, historyCmd.Flags().Lookup(name).DefValue)
			historyCmd.Flags().Lookup(name).Changed = false
		}
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestHistoryListsBatches(t *testing.T) {
	path, id := seedJournal(t)

	out, err := execute(t, "history", "--journal", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "2.0 KiB")
}

func TestHistoryListsFailedRecords(t *testing.T) {
	path, id := seedJournal(t)

	out, err := execute(t, "history", id, "--failed", "--journal", path)
	require.NoError(t, err)
	assert.Contains(t, out, "uploads/docs/b")
	assert.Contains(t, out, "access denied")
	assert.NotContains(t, out, "uploads/docs/a")
}

func TestHistoryJSON(t *testing.T) {
	path, id := seedJournal(t)

	out, err := execute(t, "history", id, "--json", "--journal", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"remote_key": "uploads/docs/a"`)
	assert.Contains(t, out, `"status": "failed"`)
}

func TestHistoryUnknownBatch(t *testing.T) {
	path, _ := seedJournal(t)

	_, err := execute(t, "history", "nope", "--journal", path)
	assert.ErrorContains(t, err, "batch nope not found")
}

func TestHistoryWithoutJournal(t *testing.T) {
	_, err := execute(t, "history")
	assert.ErrorContains(t, err, "no journal configured")
}

func TestHistoryRejectsMissingFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "history"}
	cmd.Flags().String("journal", filepath.Join(t.TempDir(), "journal.db"), "")

	err := runHistory(cmd, nil)
	assert.ErrorContains(t, err, "flag accessed but not defined: json")
}
