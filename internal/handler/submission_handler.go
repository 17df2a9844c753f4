package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Nomankaif/debtprotection-quiz/internal/models"
	"github.com/Nomankaif/debtprotection-quiz/internal/service"
	"github.com/Nomankaif/debtprotection-quiz/internal/validation"
)

// LivenessMessage is the body of GET /.
const LivenessMessage = "Form API is running"

type SubmissionHandler struct {
	svc    *service.SubmissionService
	logger *slog.Logger
}

func NewSubmissionHandler(svc *service.SubmissionService, logger *slog.Logger) *SubmissionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionHandler{svc: svc, logger: logger}
}

func (h *SubmissionHandler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(LivenessMessage))
}

// Health checks the store. It answers 503 when the store does not respond.
func (h *SubmissionHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Health(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "unavailable",
			"message": "Store unavailable",
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	switch err := readObject(r, &req); {
	case err == nil:
	case errors.Is(err, errEmptyBody):
		writeError(w, http.StatusBadRequest, "Request body is empty. Did you send JSON?")
		return
	case errors.Is(err, errBodyTooBig):
		writeError(w, http.StatusRequestEntityTooLarge, "Request body is too large.")
		return
	case errors.As(err, new(validation.Errors)):
		h.writeSubmitError(w, r, err)
		return
	default:
		writeError(w, http.StatusBadRequest, "Request body is not valid JSON.")
		return
	}

	resp, err := h.svc.Submit(r.Context(), &req)
	if err != nil {
		h.writeSubmitError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *SubmissionHandler) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var missing *service.MissingFieldsError
	var invalid validation.Errors
	switch {
	case errors.As(err, &missing):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message":  "Missing or invalid required fields",
			"required": service.RequiredFields,
			"missing":  missing.Missing,
			"received": missing.Received,
		})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Invalid form data",
			"errors":  invalid,
		})
	default:
		h.logger.ErrorContext(r.Context(), "submission failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message": "Unexpected server error",
			"error":   err.Error(),
		})
	}
}
