package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/srishtiii28/alphascan/internal/api/middleware"
	"github.com/srishtiii28/alphascan/internal/api/response"
	"github.com/srishtiii28/alphascan/internal/domain"
	"github.com/srishtiii28/alphascan/internal/service"
)

// WatchHandler handles watch registration endpoints
type WatchHandler struct {
	watchService *service.WatchService
}

// NewWatchHandler creates a new watch handler
func NewWatchHandler(watchService *service.WatchService) *WatchHandler {
	return &WatchHandler{watchService: watchService}
}

// Create registers a watch on a group or a single forum topic
func (h *WatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.WatchCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	entry, err := h.watchService.Add(r.Context(), userID, input)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.Created(w, entry)
}

// List returns the caller's watch entries
func (h *WatchHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	entries, err := h.watchService.List(r.Context(), userID)
	if err != nil {
		response.InternalError(w, err.Error())
		return
	}
	if entries == nil {
		entries = []domain.WatchEntry{}
	}

	response.OK(w, entries)
}

// Delete stops a watcher and removes its entry
func (h *WatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.WatchDelete
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	if err := h.watchService.Remove(r.Context(), userID, input); err != nil {
		writeDomainError(w, err)
		return
	}

	response.NoContent(w)
}

// Groups lists the caller's dialogs
func (h *WatchHandler) Groups(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	groups, err := h.watchService.Groups(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.OK(w, groups)
}

// Topics lists the forum topics of one group
func (h *WatchHandler) Topics(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid group ID")
		return
	}

	topics, err := h.watchService.Topics(r.Context(), userID, groupID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.OK(w, topics)
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrCredentialsMissing), errors.Is(err, domain.ErrSessionExpired):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, domain.ErrGroupNotFound), errors.Is(err, domain.ErrTopicNotFound):
		response.NotFound(w, err.Error())
	default:
		response.InternalError(w, err.Error())
	}
}
