package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"retitle/internal/adapter/breaker"
	"retitle/internal/event"
)

const watchURL = "https://www.youtube.com/watch?v="

type Channel struct {
	ID   string
	Name string
}

// Client covers the two lookups the pipeline needs: resolving a free-text
// channel query and listing a channel's most recent uploads.
type Client struct {
	svc     *yt.Service
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker
}

// NewClient builds a Data API client. rps paces outbound calls against the
// daily quota; extra options are appended after the API key.
func NewClient(ctx context.Context, apiKey string, rps float64, opts ...option.ClientOption) (*Client, error) {
	svc, err := yt.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		svc:     svc,
		limiter: rate.NewLimiter(limit, 1),
		cb:      breaker.New("youtube"),
	}, nil
}

// SearchChannel returns the top channel match for q, or nil when nothing
// matches. A nil result is not an error.
func (c *Client) SearchChannel(ctx context.Context, q string) (*Channel, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return breaker.Do(c.cb, func() (*Channel, error) {
		resp, err := c.svc.Search.List([]string{"snippet"}).
			Q(q).
			Type("channel").
			MaxResults(1).
			Context(ctx).
			Do()
		if err != nil {
			slog.ErrorContext(ctx, "youtube channel search failed", "query", q, "error", err)
			return nil, fmt.Errorf("search channel: %w", err)
		}
		if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
			return nil, nil
		}

		s := resp.Items[0].Snippet
		name := s.ChannelTitle
		if name == "" {
			name = s.Title
		}
		return &Channel{ID: s.ChannelId, Name: name}, nil
	})
}

// ListRecentVideos returns up to n uploads of channelID, newest first.
func (c *Client) ListRecentVideos(ctx context.Context, channelID string, n int64) ([]event.Video, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	return breaker.Do(c.cb, func() ([]event.Video, error) {
		resp, err := c.svc.Search.List([]string{"snippet"}).
			ChannelId(channelID).
			MaxResults(n).
			Order("date").
			Type("video").
			Context(ctx).
			Do()
		if err != nil {
			slog.ErrorContext(ctx, "youtube video listing failed", "channel_id", channelID, "error", err)
			return nil, fmt.Errorf("list videos: %w", err)
		}

		videos := make([]event.Video, 0, len(resp.Items))
		for _, item := range resp.Items {
			// videos.fetched requires a title on every video.
			if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil || strings.TrimSpace(item.Snippet.Title) == "" {
				continue
			}
			videos = append(videos, toVideo(item))
		}
		return videos, nil
	})
}

func toVideo(item *yt.SearchResult) event.Video {
	v := event.Video{
		VideoID: item.Id.VideoId,
		Title:   item.Snippet.Title,
		URL:     watchURL + item.Id.VideoId,
	}
	if ts, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
		v.PublishedAt = ts
	}
	if th := item.Snippet.Thumbnails; th != nil {
		switch {
		case th.High != nil:
			v.Thumbnail = th.High.Url
		case th.Medium != nil:
			v.Thumbnail = th.Medium.Url
		case th.Default != nil:
			v.Thumbnail = th.Default.Url
		}
	}
	return v
}
