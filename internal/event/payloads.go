package event

import "time"

type Video struct {
	VideoID     string    `json:"videoId" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
}

type ImprovedTitle struct {
	Original  string `json:"original" validate:"required"`
	Improved  string `json:"improved" validate:"required"`
	Rationale string `json:"rationale"`
	URL       string `json:"url,omitempty"`
}

type Submit struct {
	JobID   string `json:"jobId" validate:"required"`
	Channel string `json:"channel" validate:"required"`
	Email   string `json:"email" validate:"required"`
}

type ChannelResolved struct {
	JobID       string `json:"jobId" validate:"required"`
	ChannelID   string `json:"channelId" validate:"required"`
	ChannelName string `json:"channelName" validate:"required"`
	Email       string `json:"email" validate:"required"`
}

type VideosFetched struct {
	JobID       string  `json:"jobId" validate:"required"`
	ChannelName string  `json:"channelName" validate:"required"`
	Videos      []Video `json:"videos" validate:"required,min=1,dive"`
	Email       string  `json:"email" validate:"required"`
}

type TitlesReady struct {
	JobID          string          `json:"jobId" validate:"required"`
	Email          string          `json:"email" validate:"required"`
	ChannelName    string          `json:"channelName" validate:"required"`
	ImprovedTitles []ImprovedTitle `json:"improvedTitles" validate:"required,min=1,dive"`
}

type EmailSent struct {
	JobID   string `json:"jobId" validate:"required"`
	Email   string `json:"email" validate:"required"`
	EmailID string `json:"emailId" validate:"required"`
}

// Failure is shared by every stage error topic. Error is always one of the
// fixed user-facing messages, never an upstream diagnostic.
type Failure struct {
	JobID       string `json:"jobId" validate:"required"`
	Email       string `json:"email" validate:"required"`
	Error       string `json:"error" validate:"required"`
	ChannelName string `json:"channelName,omitempty"`
}

type ErrorNotified struct {
	JobID   string `json:"jobId" validate:"required"`
	Email   string `json:"email" validate:"required"`
	EmailID string `json:"emailId" validate:"required"`
}

type CleanupCompleted struct {
	Timestamp     time.Time `json:"timestamp" validate:"required"`
	RetentionDays int       `json:"retentionDays" validate:"min=1"`
	ScannedCount  int       `json:"scannedCount" validate:"min=0"`
	DeletedCount  int       `json:"deletedCount" validate:"min=0"`
	ErrorCount    int       `json:"errorCount" validate:"min=0"`
}
