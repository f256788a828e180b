package internal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *JobStore {
	t.Helper()
	store, err := OpenJobStore(filepath.Join(t.TempDir(), "nested", "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestJobStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Create(ctx, TranscriptionJob{Name: "j1", VideoID: "vid", MediaURI: "s3://b/vid.mp3"}))

	job, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, JobInProgress, job.Status)
	assert.Equal(t, "s3://b/vid.mp3", job.MediaURI)
	assert.WithinDuration(t, time.Now(), job.CreatedAt, time.Minute)

	require.NoError(t, store.Finish(ctx, "j1", JobCompleted, "the text", ""))
	job, err = store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, JobCompleted, job.Status)
	assert.Equal(t, "the text", job.Transcript)
}

func TestJobStoreLatestCompleted(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.LatestCompleted(ctx, "vid")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Create(ctx, TranscriptionJob{Name: "old", VideoID: "vid"}))
	require.NoError(t, store.Finish(ctx, "old", JobCompleted, "old text", ""))
	require.NoError(t, store.Create(ctx, TranscriptionJob{Name: "failed", VideoID: "vid"}))
	require.NoError(t, store.Finish(ctx, "failed", JobFailed, "", "boom"))
	require.NoError(t, store.Create(ctx, TranscriptionJob{Name: "new", VideoID: "vid"}))
	require.NoError(t, store.Finish(ctx, "new", JobCompleted, "new text", ""))
	require.NoError(t, store.Create(ctx, TranscriptionJob{Name: "other", VideoID: "other"}))

	job, err := store.LatestCompleted(ctx, "vid")
	require.NoError(t, err)
	assert.Equal(t, "new", job.Name)
	assert.Equal(t, "new text", job.Transcript)
}

func TestJobStoreMissingJob(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Finish(ctx, "nope", JobFailed, "", ""), ErrNotFound)
}

func TestJobStoreDuplicateName(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.Create(ctx, TranscriptionJob{Name: "j", VideoID: "v"}))
	assert.Error(t, store.Create(ctx, TranscriptionJob{Name: "j", VideoID: "v"}))
}
