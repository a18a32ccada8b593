package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"retitle/features/job"
	"retitle/internal/config"
	"retitle/internal/event"
	"retitle/internal/state"
	"retitle/internal/worker"
)

var fixedNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	repo *job.StoreRepo
	rec  *recorder
	deps worker.Deps
}

func newFixture() *fixture {
	repo := job.NewStoreRepo(state.NewMemoryStore())
	rec := &recorder{}
	return &fixture{
		repo: repo,
		rec:  rec,
		deps: worker.Deps{Jobs: repo, Bus: rec, Timeout: time.Second, Now: func() time.Time { return fixedNow }},
	}
}

func (f *fixture) seed(t *testing.T, j *job.Job) {
	t.Helper()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = fixedNow.Add(-time.Minute)
	}
	require.NoError(t, f.repo.Save(context.Background(), j))
}

func (f *fixture) job(t *testing.T, id string) *job.Job {
	t.Helper()
	j, err := f.repo.Get(context.Background(), id)
	require.NoError(t, err)
	return j
}

func msgOf(topic string, payload any) event.Message {
	return event.Message{Topic: topic, Payload: payload, PublishedAt: fixedNow}
}

var sampleVideos = []event.Video{
	{VideoID: "v1", Title: "my first vlog", URL: "https://www.youtube.com/watch?v=v1"},
	{VideoID: "v2", Title: "cooking pasta", URL: "https://www.youtube.com/watch?v=v2"},
}

func submitMsg(id, channel string) event.Message {
	return msgOf(config.TopicSubmit, event.Submit{JobID: id, Channel: channel, Email: "user@example.com"})
}
