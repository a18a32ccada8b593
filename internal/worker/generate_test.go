package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"retitle/features/job"
	"retitle/internal/adapter/gemini"
	"retitle/internal/bus"
	"retitle/internal/config"
	"retitle/internal/event"
	"retitle/internal/state"
	"retitle/internal/worker"
)

const goodTitles = `{"titles":[
 {"original":"my first vlog","improved":"My First Vlog: 24 Hours In Tokyo","rationale":"Adds specifics."},
 {"original":"cooking pasta","improved":"5-Minute Pasta Anyone Can Make","rationale":"Promises value."}
]}`

func fetchedMsg(id string, videos []event.Video) event.Message {
	return msgOf(config.TopicVideosFetched, event.VideosFetched{
		JobID: id, ChannelName: "Chan", Videos: videos, Email: "user@example.com",
	})
}

func TestGenerator_Success(t *testing.T) {
	f := newFixture()
	f.seed(t, &job.Job{ID: "job_1", Email: "user@example.com", Status: job.StatusGenerating})

	gen := new(MockGenerator)
	gen.On("GenerateJSON", mock.Anything, mock.Anything, worker.BuildPrompt("Chan", sampleVideos)).Return(goodTitles, nil)

	h := worker.NewGenerator(f.deps, gen, nil)
	require.NoError(t, h.Handle(context.Background(), fetchedMsg("job_1", sampleVideos)))

	gen.AssertExpectations(t)

	j := f.job(t, "job_1")
	assert.Equal(t, job.StatusDelivering, j.Status)
	require.Len(t, j.ImprovedTitles, 2)
	assert.Equal(t, sampleVideos[1].URL, j.ImprovedTitles[1].URL)

	ready := f.rec.on(config.TopicTitlesReady)
	require.Len(t, ready, 1)
	assert.Equal(t, j.ImprovedTitles, ready[0].(event.TitlesReady).ImprovedTitles)
}

func TestGenerator_UnparsableContent(t *testing.T) {
	f := newFixture()
	f.seed(t, &job.Job{ID: "job_1", Email: "user@example.com", Status: job.StatusGenerating})

	gen := new(MockGenerator)
	gen.On("GenerateJSON", mock.Anything, mock.Anything, mock.Anything).Return("sorry, I can't help with that", nil)

	h := worker.NewGenerator(f.deps, gen, nil)
	require.NoError(t, h.Handle(context.Background(), fetchedMsg("job_1", sampleVideos)))

	j := f.job(t, "job_1")
	assert.Equal(t, job.StatusFailed, j.Status)
	assert.Empty(t, j.ImprovedTitles)
	assert.Empty(t, f.rec.on(config.TopicTitlesReady))

	failures := f.rec.on(config.TopicTitlesError)
	require.Len(t, failures, 1)
	assert.Equal(t, worker.MsgGenerateFailed, failures[0].(event.Failure).Error)
}

func TestGenerator_MalformedEnvelope(t *testing.T) {
	f := newFixture()
	f.seed(t, &job.Job{ID: "job_1", Email: "user@example.com", Status: job.StatusGenerating})

	gen := new(MockGenerator)
	gen.On("GenerateJSON", mock.Anything, mock.Anything, mock.Anything).Return("", gemini.ErrMalformedEnvelope)

	h := worker.NewGenerator(f.deps, gen, nil)
	require.NoError(t, h.Handle(context.Background(), fetchedMsg("job_1", sampleVideos)))

	assert.Equal(t, job.StatusFailed, f.job(t, "job_1").Status)
	assert.Len(t, f.rec.on(config.TopicTitlesError), 1)
	assert.Empty(t, f.rec.on(config.TopicTitlesReady))
}

func TestGenerator_EmptyBatchStopsAtBus(t *testing.T) {
	b := bus.NewLocalBus()
	repo := job.NewStoreRepo(state.NewMemoryStore())
	require.NoError(t, repo.Create(context.Background(), &job.Job{ID: "job_1", Email: "user@example.com", Status: job.StatusFetching}))

	gen := new(MockGenerator)
	h := worker.NewGenerator(worker.Deps{Jobs: repo, Bus: b, Timeout: time.Second}, gen, nil)
	require.NoError(t, b.Subscribe(config.TopicVideosFetched, "generate", h.Handle))
	require.NoError(t, b.Start(context.Background()))
	defer b.Close()

	err := b.Publish(context.Background(), config.TopicVideosFetched, event.VideosFetched{
		JobID: "job_1", ChannelName: "Chan", Email: "user@example.com",
	})
	require.ErrorIs(t, err, event.ErrInvalidPayload)
	b.Wait()

	gen.AssertNotCalled(t, "GenerateJSON", mock.Anything, mock.Anything, mock.Anything)
	j, err := repo.Get(context.Background(), "job_1")
	require.NoError(t, err)
	assert.Equal(t, job.StatusFetching, j.Status)
}

func TestParseTitles(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"valid", goodTitles, false},
		{"not json", "hello", true},
		{"missing array", `{"other":[]}`, true},
		{"count mismatch", `{"titles":[{"original":"a","improved":"b","rationale":"c"}]}`, true},
		{"empty improved", `{"titles":[{"original":"a","improved":" ","rationale":"c"},{"original":"d","improved":"e","rationale":"f"}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := worker.ParseTitles(tt.text, sampleVideos)
			if tt.wantErr {
				assert.ErrorIs(t, err, worker.ErrUnparsableTitles)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(sampleVideos))
			for i := range got {
				assert.Equal(t, sampleVideos[i].URL, got[i].URL)
			}
		})
	}
}

func TestParseTitles_FillsMissingOriginal(t *testing.T) {
	text := `{"titles":[{"improved":"A"},{"improved":"B"}]}`
	got, err := worker.ParseTitles(text, sampleVideos)
	require.NoError(t, err)
	assert.Equal(t, "my first vlog", got[0].Original)
	assert.Equal(t, "cooking pasta", got[1].Original)
}

func TestBuildPrompt(t *testing.T) {
	p := worker.BuildPrompt("Chan", sampleVideos)
	assert.Contains(t, p, `from the channel "Chan"`)
	assert.Contains(t, p, "Video 1: my first vlog\n")
	assert.Contains(t, p, "Video 2: cooking pasta\n")
	assert.Contains(t, p, "exactly 2 entries")
}

func TestGenerator_GenerationErrorKeepsDiagnostic(t *testing.T) {
	f := newFixture()
	f.seed(t, &job.Job{ID: "job_1", Email: "user@example.com", Status: job.StatusGenerating})

	gen := new(MockGenerator)
	gen.On("GenerateJSON", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("rate limited"))

	h := worker.NewGenerator(f.deps, gen, nil)
	require.NoError(t, h.Handle(context.Background(), fetchedMsg("job_1", sampleVideos)))

	j := f.job(t, "job_1")
	assert.Contains(t, j.Error, "rate limited")
	assert.NotContains(t, f.rec.on(config.TopicTitlesError)[0].(event.Failure).Error, "rate limited")
}
