package worker_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"retitle/features/job"
	"retitle/internal/adapter/mailer"
	"retitle/internal/config"
	"retitle/internal/event"
	"retitle/internal/worker"
)

var sampleTitles = []event.ImprovedTitle{
	{Original: "a", Improved: "A!", Rationale: "louder", URL: "https://www.youtube.com/watch?v=v1"},
	{Original: "b", Improved: "B!", Rationale: "bolder", URL: "https://www.youtube.com/watch?v=v2"},
}

func readyMsg(id string) event.Message {
	return msgOf(config.TopicTitlesReady, event.TitlesReady{
		JobID: id, Email: "user@example.com", ChannelName: "Chan", ImprovedTitles: sampleTitles,
	})
}

func TestRenderSummary(t *testing.T) {
	sep := strings.Repeat("=", 50)
	want := "Here are the improved video titles for your channel \"Chan\":\n\n" +
		sep + "\n\n" +
		"Video 1:\nOriginal Title: a\nImproved Title: A!\nRationale: louder\nURL: https://www.youtube.com/watch?v=v1\n" +
		"\n" +
		"Video 2:\nOriginal Title: b\nImproved Title: B!\nRationale: bolder\nURL: https://www.youtube.com/watch?v=v2\n" +
		"\n" + sep + "\n\n" +
		"Thanks for using retitle.\n"

	got := worker.RenderSummary("Chan", sampleTitles)
	assert.Equal(t, want, got)
	assert.Equal(t, got, worker.RenderSummary("Chan", sampleTitles))
}

func TestDeliverer_Success(t *testing.T) {
	f := newFixture()
	f.seed(t, &job.Job{ID: "job_1", Email: "user@example.com", Status: job.StatusDelivering})

	sender := new(MockSender)
	sender.On("Send", mock.Anything, mailer.Message{
		To:      "user@example.com",
		Subject: `Improved Video Titles for Your Channel "Chan"`,
		Text:    worker.RenderSummary("Chan", sampleTitles),
	}).Return("msg_42", nil)

	h := worker.NewDeliverer(f.deps, sender, nil)
	require.NoError(t, h.Handle(context.Background(), readyMsg("job_1")))

	sender.AssertExpectations(t)

	j := f.job(t, "job_1")
	assert.Equal(t, job.StatusCompleted, j.Status)
	assert.Equal(t, "msg_42", j.EmailID)
	assert.NotNil(t, j.CompletedAt)

	sent := f.rec.on(config.TopicEmailSent)
	require.Len(t, sent, 1)
	assert.Equal(t, event.EmailSent{JobID: "job_1", Email: "user@example.com", EmailID: "msg_42"}, sent[0])
}

func TestDeliverer_SendFails(t *testing.T) {
	f := newFixture()
	f.seed(t, &job.Job{ID: "job_1", Email: "user@example.com", Status: job.StatusDelivering})

	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return("", mailer.ErrDeliveryRejected)

	h := worker.NewDeliverer(f.deps, sender, nil)
	require.NoError(t, h.Handle(context.Background(), readyMsg("job_1")))

	j := f.job(t, "job_1")
	assert.Equal(t, job.StatusFailed, j.Status)
	assert.Empty(t, j.EmailID)
	assert.Empty(t, f.rec.on(config.TopicEmailSent))

	failures := f.rec.on(config.TopicEmailError)
	require.Len(t, failures, 1)
	assert.Equal(t, worker.MsgDeliverFailed, failures[0].(event.Failure).Error)
}

func TestDeliverer_EmptyReceipt(t *testing.T) {
	f := newFixture()
	f.seed(t, &job.Job{ID: "job_1", Email: "user@example.com", Status: job.StatusDelivering})

	sender := new(MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return("", nil)

	h := worker.NewDeliverer(f.deps, sender, nil)
	require.NoError(t, h.Handle(context.Background(), readyMsg("job_1")))

	assert.Equal(t, job.StatusFailed, f.job(t, "job_1").Status)
	assert.Len(t, f.rec.on(config.TopicEmailError), 1)
}

func TestDeliverer_SkipsFailedJob(t *testing.T) {
	f := newFixture()
	f.seed(t, &job.Job{ID: "job_1", Email: "user@example.com", Status: job.StatusFailed, Error: "earlier"})

	sender := new(MockSender)
	h := worker.NewDeliverer(f.deps, sender, nil)
	require.NoError(t, h.Handle(context.Background(), readyMsg("job_1")))

	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	assert.Equal(t, "earlier", f.job(t, "job_1").Error)
	assert.Equal(t, 0, f.rec.count())
}

func TestDeliverer_WrongPayloadDropped(t *testing.T) {
	f := newFixture()
	sender := new(MockSender)
	h := worker.NewDeliverer(f.deps, sender, nil)

	err := h.Handle(context.Background(), msgOf(config.TopicTitlesReady, event.Submit{JobID: "x"}))
	require.NoError(t, err)
	assert.Equal(t, 0, f.rec.count())
}
