package job_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"retitle/features/job"
	"retitle/internal/event"
	"retitle/internal/state"
)

func TestStoreRepo_RoundTrip(t *testing.T) {
	store := state.NewMemoryStore()
	repo := job.NewStoreRepo(store)
	ctx := context.Background()

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	j := &job.Job{ID: "job_1", Channel: "@chan", Email: "a@b.co", Status: job.StatusQueued, CreatedAt: created}
	require.NoError(t, repo.Create(ctx, j))

	err := repo.Create(ctx, j)
	assert.True(t, errors.Is(err, job.ErrAlreadyExists))

	j.Videos = []event.Video{{VideoID: "v1", Title: "T"}}
	require.NoError(t, j.Transition(job.StatusGenerating, created.Add(time.Minute)))
	require.NoError(t, repo.Save(ctx, j))

	got, err := repo.Get(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, job.StatusGenerating, got.Status)
	assert.Equal(t, "@chan", got.Channel)
	assert.Len(t, got.Videos, 1)
	assert.True(t, created.Equal(got.CreatedAt))

	_, err = repo.Get(ctx, "missing")
	assert.True(t, errors.Is(err, job.ErrNotFound))

	require.NoError(t, repo.Delete(ctx, "job_1"))
	_, err = repo.Get(ctx, "job_1")
	assert.True(t, errors.Is(err, job.ErrNotFound))
}

func TestStoreRepo_ListSkipsUndecodable(t *testing.T) {
	store := state.NewMemoryStore()
	repo := job.NewStoreRepo(store)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &job.Job{ID: "job_a", Status: job.StatusQueued}))
	require.NoError(t, store.Set(ctx, job.Namespace, "job_bad", []byte("{not json")))
	require.NoError(t, repo.Save(ctx, &job.Job{ID: "job_b", Status: job.StatusCompleted}))

	jobs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job_a", jobs[0].ID)
	assert.Equal(t, "job_b", jobs[1].ID)
}
