package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"bingetracker/internal/auth"
	"bingetracker/models"
	"bingetracker/services/binges"
	"bingetracker/services/catalog"
)

type bingeHub interface {
	For(userID string) *binges.Holder
}

var _ bingeHub = (*binges.Hub)(nil)

// BingesHandler exposes the binge view of the signed-in user.
type BingesHandler struct {
	hub bingeHub
}

func NewBingesHandler(hub bingeHub) *BingesHandler {
	return &BingesHandler{hub: hub}
}

type CreateBingeRequest struct {
	Name string                          `json:"name"`
	Item *models.StoredEntertainmentItem `json:"item"`
}

type CreateBingeResponse struct {
	ID    string       `json:"id"`
	State binges.State `json:"state"`
}

type AddItemRequest struct {
	Item *models.StoredEntertainmentItem `json:"item"`
}

type WatchedRequest struct {
	Watched bool `json:"watched"`
}

type BingeViewRequest struct {
	Filter *models.BingeFilter `json:"filter"`
	Sort   *models.BingeSort   `json:"sort"`
}

func bingeStatus(err error) int {
	switch {
	case errors.Is(err, binges.ErrNameRequired),
		errors.Is(err, binges.ErrItemRequired),
		errors.Is(err, binges.ErrInvalidFilter),
		errors.Is(err, binges.ErrInvalidSort),
		errors.Is(err, models.ErrUnknownEntertainmentType):
		return http.StatusBadRequest
	case errors.Is(err, binges.ErrBingeNotFound):
		return http.StatusNotFound
	case errors.Is(err, binges.ErrItemAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrRequestFailed),
		errors.Is(err, catalog.ErrAPIKeyMissing):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeBingeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	if errors.Is(err, binges.ErrItemAlreadyExists) {
		msg = binges.AlreadyExistsMessage
	}
	writeJSONError(w, msg, bingeStatus(err))
}

func (h *BingesHandler) holder(r *http.Request) *binges.Holder {
	return h.hub.For(auth.GetUserID(r))
}

func itemFromRequest(stored *models.StoredEntertainmentItem) (models.EntertainmentItem, error) {
	if stored == nil {
		return nil, binges.ErrItemRequired
	}
	return models.FromStored(*stored)
}

func intVar(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(mux.Vars(r)[name])
	return n, err == nil
}

// List reloads the user's binges and returns the view.
func (h *BingesHandler) List(w http.ResponseWriter, r *http.Request) {
	holder := h.holder(r)
	if err := holder.Load(r.Context()); err != nil {
		writeBingeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holder.Snapshot())
}

// Create stores a new binge seeded with one item.
func (h *BingesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBingeRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	item, err := itemFromRequest(req.Item)
	if err != nil {
		writeBingeError(w, err)
		return
	}

	holder := h.holder(r)
	id, err := holder.Create(r.Context(), req.Name, item)
	if err != nil {
		writeBingeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateBingeResponse{ID: id, State: holder.Snapshot()})
}

// Delete removes a binge.
func (h *BingesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	holder := h.holder(r)
	if err := holder.Delete(r.Context(), mux.Vars(r)["bingeID"]); err != nil {
		writeBingeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holder.Snapshot())
}

// AddItem appends a movie or show to a binge.
func (h *BingesHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	item, err := itemFromRequest(req.Item)
	if err != nil {
		writeBingeError(w, err)
		return
	}

	holder := h.holder(r)
	if err := holder.AddItem(r.Context(), mux.Vars(r)["bingeID"], item); err != nil {
		writeBingeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holder.Snapshot())
}

// SetMovieWatched marks a movie as watched or unwatched.
func (h *BingesHandler) SetMovieWatched(w http.ResponseWriter, r *http.Request) {
	movieID, ok := intVar(r, "movieID")
	if !ok {
		writeJSONError(w, "invalid movie id", http.StatusBadRequest)
		return
	}
	var req WatchedRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	holder := h.holder(r)
	if err := holder.ToggleMovieWatched(r.Context(), mux.Vars(r)["bingeID"], movieID, req.Watched); err != nil {
		writeBingeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holder.Snapshot())
}

// SetEpisodeWatched marks one episode of a show as watched or unwatched.
func (h *BingesHandler) SetEpisodeWatched(w http.ResponseWriter, r *http.Request) {
	showID, ok1 := intVar(r, "showID")
	season, ok2 := intVar(r, "season")
	episode, ok3 := intVar(r, "episode")
	if !ok1 || !ok2 || !ok3 {
		writeJSONError(w, "invalid show, season or episode", http.StatusBadRequest)
		return
	}
	var req WatchedRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	holder := h.holder(r)
	if err := holder.ToggleEpisodeWatched(r.Context(), mux.Vars(r)["bingeID"], showID, season, episode, req.Watched); err != nil {
		writeBingeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holder.Snapshot())
}

// UpdateView changes the filter and/or sort of the binge view.
func (h *BingesHandler) UpdateView(w http.ResponseWriter, r *http.Request) {
	var req BingeViewRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	holder := h.holder(r)
	state := holder.Snapshot()
	var err error
	if req.Filter != nil {
		if state, err = holder.UpdateFilter(*req.Filter); err != nil {
			writeBingeError(w, err)
			return
		}
	}
	if req.Sort != nil {
		if state, err = holder.UpdateSort(*req.Sort); err != nil {
			writeBingeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, state)
}

// Events streams the binge view over a websocket.
func (h *BingesHandler) Events(w http.ResponseWriter, r *http.Request) {
	holder := h.holder(r)
	streamState(w, r, "binges", holder.Snapshot, holder.Subscribe)
}
