package job

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"retitle/internal/middleware"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type SubmitRequest struct {
	Channel string `json:"channel" validate:"required"`
	Email   string `json:"email" validate:"required"`
}

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s, validate: validator.New()}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", "invalid request body", http.StatusBadRequest)
		return
	}
	req.Channel = strings.TrimSpace(req.Channel)
	req.Email = strings.TrimSpace(req.Email)

	if msg := h.check(req); msg != "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", msg, http.StatusBadRequest)
		return
	}

	j, err := h.service.Submit(ctx, req.Channel, req.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to submit job", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	resp := map[string]interface{}{
		"success": true,
		"jobId":   j.ID,
		"message": AckMessage,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) check(req SubmitRequest) string {
	if err := h.validate.Struct(req); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			switch errs[0].Field() {
			case "Channel":
				return "channel is required"
			case "Email":
				if errs[0].Tag() == "required" {
					return "email is required"
				}
				return "email is invalid"
			}
		}
		return err.Error()
	}
	if !emailPattern.MatchString(req.Email) {
		return "email is invalid"
	}
	return ""
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
