package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Nomankaif/debtprotection-quiz/internal/models"
	"github.com/Nomankaif/debtprotection-quiz/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// AdminHandler serves the read-only submission views.
type AdminHandler struct {
	svc    *service.SubmissionService
	logger *slog.Logger
}

func NewAdminHandler(svc *service.SubmissionService, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{svc: svc, logger: logger}
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	subs, total, err := h.svc.List(r.Context(), skip, limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list submissions", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"submissions": subs,
		"total":       total,
		"skip":        skip,
		"limit":       limit,
	})
}

func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Submission not found.")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "get submission", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "submission stats", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *AdminHandler) Indexes(w http.ResponseWriter, r *http.Request) {
	indexes, err := h.svc.Indexes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"indexes": indexes})
}
