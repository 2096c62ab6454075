package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	doc2pub "github.com/alnah/go-doc2pub"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(id string, started time.Time, retained string) doc2pub.JobRecord {
	state := "done"
	stage := ""
	if retained != "" {
		state = "failed"
		stage = "package"
	}
	return doc2pub.JobRecord{
		ID:          id,
		Input:       "input/" + id + ".pdf",
		Format:      "pdf",
		Output:      "output/" + id + ".pub",
		State:       state,
		FailedStage: stage,
		Retained:    retained,
		StartedAt:   started,
		FinishedAt:  started.Add(time.Second),
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	_, err := Open("")
	assert.ErrorIs(t, err, ErrEmptyPath)

	path := filepath.Join(t.TempDir(), "a", "b", "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.FileExists(t, path)

	// Reopening an existing ledger keeps the schema.
	store, err = Open(path)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestStore_RecordAndList(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.RecordJob(ctx, record(id, base.Add(time.Duration(i)*time.Minute), "")))
	}

	got, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "pdf", got[0].Format)
	assert.Equal(t, "output/c.pub", got[0].Output)
	assert.True(t, got[0].StartedAt.Equal(base.Add(2*time.Minute)))
	assert.True(t, got[0].FinishedAt.Equal(base.Add(2*time.Minute+time.Second)))

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_List_SubSecondOrder(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	ctx := context.Background()
	whole := time.Date(2026, 1, 15, 14, 30, 22, 0, time.UTC)

	// The later job is inserted first so row order cannot mask the sort.
	require.NoError(t, store.RecordJob(ctx, record("later", whole.Add(500*time.Millisecond), "")))
	require.NoError(t, store.RecordJob(ctx, record("whole", whole, "")))

	got, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "later", got[0].ID)
	assert.Equal(t, "whole", got[1].ID)
	assert.True(t, got[1].StartedAt.Equal(whole), "StartedAt = %v", got[1].StartedAt)
	assert.True(t, got[0].StartedAt.Equal(whole.Add(500*time.Millisecond)), "StartedAt = %v", got[0].StartedAt)
}

func TestStore_RecordJob_Replaces(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	ctx := context.Background()
	rec := record("x", time.Now(), "")

	require.NoError(t, store.RecordJob(ctx, rec))
	rec.State = "failed"
	rec.Error = "device packaging failed"
	require.NoError(t, store.RecordJob(ctx, rec))

	got, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "failed", got[0].State)
	assert.Equal(t, "device packaging failed", got[0].Error)
}

func TestStore_Retained(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	kept := filepath.Join(dir, "kept.epub")
	require.NoError(t, os.WriteFile(kept, []byte("EPUB"), 0o644))
	gone := filepath.Join(dir, "gone.epub")

	now := time.Now()
	require.NoError(t, store.RecordJob(ctx, record("ok", now, "")))
	require.NoError(t, store.RecordJob(ctx, record("kept", now.Add(time.Second), kept)))
	require.NoError(t, store.RecordJob(ctx, record("gone", now.Add(2*time.Second), gone)))

	got, err := store.Retained(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1, "only artifacts still on disk are listed")
	assert.Equal(t, "kept", got[0].ID)
	assert.Equal(t, "package", got[0].FailedStage)

	require.NoError(t, store.Forget(ctx, "kept"))
	got, err = store.Retained(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_AsRecorder(t *testing.T) {
	t.Parallel()

	var rec doc2pub.Recorder = testStore(t)
	assert.NoError(t, rec.RecordJob(context.Background(), record("r", time.Now(), "")))
}
