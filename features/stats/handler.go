package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"retitle/features/job"
	"retitle/internal/middleware"
)

type JobLister interface {
	List(ctx context.Context) ([]job.Job, error)
}

type Handler struct {
	jobs JobLister
}

func NewHandler(j JobLister) *Handler {
	return &Handler{jobs: j}
}

type StatsResponse struct {
	Total      int                `json:"total"`
	Active     int                `json:"active"`
	Completed  int                `json:"completed"`
	FailedJobs int                `json:"failed_jobs"`
	ByStatus   map[job.Status]int `json:"by_status"`
}

// Summarize counts jobs per status. Active is every non-terminal job.
func Summarize(jobs []job.Job) StatsResponse {
	resp := StatsResponse{Total: len(jobs), ByStatus: make(map[job.Status]int)}
	for _, j := range jobs {
		resp.ByStatus[j.Status]++
		switch {
		case j.Status == job.StatusCompleted:
			resp.Completed++
		case j.Status == job.StatusFailed:
			resp.FailedJobs++
		default:
			resp.Active++
		}
	}
	return resp
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	jobs, err := h.jobs.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list jobs", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count jobs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": Summarize(jobs)}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
