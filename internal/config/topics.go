package config

const (
	// TopicSubmit carries a freshly accepted request to the resolve stage.
	TopicSubmit = "submit"

	TopicChannelResolved = "channel.resolved"
	TopicChannelError    = "channel.error"

	TopicVideosFetched = "videos.fetched"
	TopicVideosError   = "videos.error"

	TopicTitlesReady = "titles.ready"
	TopicTitlesError = "titles.error"

	TopicEmailSent  = "email.sent"
	TopicEmailError = "email.error"

	// TopicErrorNotified is the sink event emitted after a failure notice went out.
	TopicErrorNotified = "error.notified"

	// TopicCleanupCompleted is the per-run summary of the retention janitor.
	TopicCleanupCompleted = "cleanup.completed"
)

// ErrorTopics lists every stage failure topic the error notifier listens on.
var ErrorTopics = []string{
	TopicChannelError,
	TopicVideosError,
	TopicTitlesError,
	TopicEmailError,
}

// SinkTopics end a flow; only the audit log subscribes to them.
var SinkTopics = []string{
	TopicEmailSent,
	TopicErrorNotified,
	TopicCleanupCompleted,
}

// AllTopics is used to pre-create NSQ topics at bootstrap.
var AllTopics = []string{
	TopicSubmit,
	TopicChannelResolved,
	TopicChannelError,
	TopicVideosFetched,
	TopicVideosError,
	TopicTitlesReady,
	TopicTitlesError,
	TopicEmailSent,
	TopicEmailError,
	TopicErrorNotified,
	TopicCleanupCompleted,
}
