package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/unowned-ai/daybook/pkg/entries"
)

// EntryService is what the handlers need from entries.Loader.
type EntryService interface {
	Load(ctx context.Context, param string) (entries.SerializedEntry, error)
	Update(ctx context.Context, param string, in entries.EntryInput) (entries.SerializedEntry, error)
	Create(ctx context.Context, in entries.EntryInput) (entries.SerializedEntry, error)
	Delete(ctx context.Context, param string) error
	ListTags(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// EntryHandler serves the entry API and detail page.
type EntryHandler struct {
	service EntryService
	logger  *slog.Logger
	pages   *pageRenderer
}

func NewEntryHandler(service EntryService, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{
		service: service,
		logger:  logger,
		pages:   newPageRenderer(),
	}
}

func entryLinks(uuid string) map[string]string {
	return map[string]string{
		"self": "/api/entries/" + uuid,
		"page": "/entries/" + uuid,
	}
}

// Get handles GET /api/entries/{uuid}
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Load(r.Context(), r.PathValue("uuid"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, entry, entryLinks(entry.UUID))
}

// Update handles PUT /api/entries/{uuid}
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in entries.EntryInput
	if err := DecodeJSON(w, r, &in); err != nil {
		WriteError(w, bodyProblem(err))
		return
	}

	entry, err := h.service.Update(r.Context(), r.PathValue("uuid"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, entry, entryLinks(entry.UUID))
}

// Create handles POST /api/entries
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in entries.EntryInput
	if err := DecodeJSON(w, r, &in); err != nil {
		WriteError(w, bodyProblem(err))
		return
	}

	entry, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	links := entryLinks(entry.UUID)
	w.Header().Set("Location", links["self"])
	WriteData(w, http.StatusCreated, entry, links)
}

// Delete handles DELETE /api/entries/{uuid}
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), r.PathValue("uuid"))
	if errors.Is(err, entries.ErrNotYetAvailable) {
		WriteError(w, NewNotImplementedError("Deleting entries"))
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /api/tags
func (h *EntryHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, tags, nil)
}

// Health handles GET /health
func (h *EntryHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "health check failed",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.Any("error", err),
		)
		WriteError(w, NewUnavailableError("store unreachable"))
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Page handles GET /entries/{uuid}
func (h *EntryHandler) Page(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Load(r.Context(), r.PathValue("uuid"))
	if errors.Is(err, entries.ErrEntryNotFound) {
		h.pages.notFound(w)
		return
	}
	if err != nil {
		h.logError(r, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := h.pages.entry(w, entry); err != nil {
		h.logError(r, err)
	}
}

func (h *EntryHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	problem := MapError(err)
	if problem.Status >= http.StatusInternalServerError {
		h.logError(r, err)
	}
	problem.Instance = r.URL.Path
	WriteError(w, problem)
}

func (h *EntryHandler) logError(r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
		slog.Any("error", err),
	)
}
