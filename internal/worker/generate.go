package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"retitle/features/job"
	"retitle/internal/config"
	"retitle/internal/event"
)

const systemInstruction = "You are a YouTube SEO and engagement expert who helps creators write better titles for their videos to increase click-through rates and views. You understand the importance of using keywords, emotional triggers, and curiosity to craft compelling titles that attract viewers."

// Generator asks the text-generation service for an improved title per video.
type Generator struct {
	step
	gen TitleGenerator
}

func NewGenerator(deps Deps, gen TitleGenerator, configErr error) *Generator {
	if configErr == nil && gen == nil {
		configErr = errMissingCollaborator
	}
	return &Generator{
		step: step{
			name:       "generate",
			errorTopic: config.TopicTitlesError,
			inProgress: job.StatusGenerating,
			configErr:  configErr,
			configMsg:  MsgGenerateFailed,
			deps:       deps,
		},
		gen: gen,
	}
}

func (h *Generator) Handle(ctx context.Context, msg event.Message) error {
	p, ok := payloadOf[event.VideosFetched](ctx, h.name, msg)
	if !ok {
		return nil
	}
	r := ref{JobID: p.JobID, Email: p.Email, ChannelName: p.ChannelName}
	ctx, ok = h.accept(ctx, r)
	if !ok || !h.checkConfig(ctx, r) {
		return nil
	}

	j, err := h.begin(ctx, r)
	if errors.Is(err, errSkip) {
		return nil
	}
	if err != nil {
		h.fail(ctx, j, r, err, MsgGenerateFailed)
		return nil
	}

	callCtx, cancel := h.call(ctx)
	text, err := h.gen.GenerateJSON(callCtx, systemInstruction, BuildPrompt(p.ChannelName, p.Videos))
	cancel()
	if err != nil {
		// Envelope and content problems surface here from the adapter.
		slog.ErrorContext(ctx, "generation call failed", "error", err)
		h.fail(ctx, j, r, fmt.Errorf("generate: %w", err), MsgGenerateFailed)
		return nil
	}

	titles, err := ParseTitles(text, p.Videos)
	if err != nil {
		slog.ErrorContext(ctx, "generated content rejected", "error", err, "content_length", len(text))
		h.fail(ctx, j, r, err, MsgGenerateFailed)
		return nil
	}

	j.Videos = p.Videos
	j.ImprovedTitles = titles

	h.advance(ctx, j, r, job.StatusDelivering, config.TopicTitlesReady, event.TitlesReady{
		JobID:          p.JobID,
		Email:          p.Email,
		ChannelName:    p.ChannelName,
		ImprovedTitles: titles,
	}, MsgGenerateFailed)
	return nil
}

// BuildPrompt lists the titles in order and pins the response shape so the
// reply can be matched back to the batch by index.
func BuildPrompt(channelName string, videos []event.Video) string {
	var list strings.Builder
	for i, v := range videos {
		fmt.Fprintf(&list, "Video %d: %s\n", i+1, v.Title)
	}

	return fmt.Sprintf(`You are a YouTube title optimization expert.
Below are %d video titles from the channel "%s".

For each title, provide:
1. An improved version that is more engaging, SEO-friendly, and likely to get more clicks.
2. A brief rationale (1-2 sentences) explaining why the improved title is better.

Guidelines:
Keep the core topic and authenticity.
Use action verbs, numbers, and specific value propositions.
Make it curiosity-inducing without being clickbait.
Optimize for searchability and clarity.

Video Titles:
%s
Respond in JSON format with exactly %d entries in the same order as the titles above:
{
  "titles": [
    {
      "original": "...",
      "improved": "...",
      "rationale": "..."
    }
  ]
}`, len(videos), channelName, list.String(), len(videos))
}

// ParseTitles validates the generated text as a titles array parallel to
// videos and copies each video's URL onto the entry at the same index.
func ParseTitles(text string, videos []event.Video) ([]event.ImprovedTitle, error) {
	var parsed struct {
		Titles []event.ImprovedTitle `json:"titles"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableTitles, err)
	}
	if parsed.Titles == nil {
		return nil, fmt.Errorf("%w: missing titles array", ErrUnparsableTitles)
	}
	if len(parsed.Titles) != len(videos) {
		return nil, fmt.Errorf("%w: got %d titles for %d videos", ErrUnparsableTitles, len(parsed.Titles), len(videos))
	}

	out := make([]event.ImprovedTitle, len(parsed.Titles))
	for i, t := range parsed.Titles {
		if strings.TrimSpace(t.Improved) == "" {
			return nil, fmt.Errorf("%w: entry %d has no improved title", ErrUnparsableTitles, i+1)
		}
		if t.Original == "" {
			t.Original = videos[i].Title
		}
		t.URL = videos[i].URL
		out[i] = t
	}
	return out, nil
}
