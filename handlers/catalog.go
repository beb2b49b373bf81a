package handlers

import (
	"errors"
	"net/http"

	"bingetracker/internal/auth"
	"bingetracker/models"
	"bingetracker/services/browse"
	"bingetracker/services/catalog"
)

type browseHub interface {
	For(userID string) *browse.Holder
}

var _ browseHub = (*browse.Hub)(nil)

// CatalogHandler exposes popular titles and search for the signed-in user.
type CatalogHandler struct {
	hub browseHub
}

func NewCatalogHandler(hub browseHub) *CatalogHandler {
	return &CatalogHandler{hub: hub}
}

type CatalogViewRequest struct {
	Filter *models.ContentFilter `json:"filter"`
	Sort   *models.ContentSort   `json:"sort"`
}

func catalogStatus(err error) int {
	switch {
	case errors.Is(err, browse.ErrInvalidFilter), errors.Is(err, browse.ErrInvalidSort):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrRequestFailed), errors.Is(err, catalog.ErrAPIKeyMissing):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *CatalogHandler) holder(r *http.Request) *browse.Holder {
	return h.hub.For(auth.GetUserID(r))
}

// View returns the current catalog state without fetching.
func (h *CatalogHandler) View(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.holder(r).Snapshot())
}

// LoadPopular fetches the first page of popular movies and shows.
func (h *CatalogHandler) LoadPopular(w http.ResponseWriter, r *http.Request) {
	holder := h.holder(r)
	if err := holder.LoadPopular(r.Context()); err != nil {
		writeJSONError(w, err.Error(), catalogStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, holder.Snapshot())
}

// Search runs ?q= against movies and shows. An empty query clears results.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	holder := h.holder(r)
	if err := holder.Search(r.Context(), r.URL.Query().Get("q")); err != nil {
		writeJSONError(w, err.Error(), catalogStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, holder.Snapshot())
}

// UpdateView changes the content filter and/or sort.
func (h *CatalogHandler) UpdateView(w http.ResponseWriter, r *http.Request) {
	var req CatalogViewRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	holder := h.holder(r)
	state := holder.Snapshot()
	var err error
	if req.Filter != nil {
		if state, err = holder.UpdateFilter(*req.Filter); err != nil {
			writeJSONError(w, err.Error(), catalogStatus(err))
			return
		}
	}
	if req.Sort != nil {
		if state, err = holder.UpdateSort(*req.Sort); err != nil {
			writeJSONError(w, err.Error(), catalogStatus(err))
			return
		}
	}
	writeJSON(w, http.StatusOK, state)
}

// Events streams the catalog state over a websocket.
func (h *CatalogHandler) Events(w http.ResponseWriter, r *http.Request) {
	holder := h.holder(r)
	streamState(w, r, "catalog", holder.Snapshot, holder.Subscribe)
}
