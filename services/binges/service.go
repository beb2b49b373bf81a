package binges

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"bingetracker/internal/docstore"
	"bingetracker/internal/observe"
	"bingetracker/models"
)

// AlreadyExistsMessage is surfaced in the holder state when a duplicate item
// is added.
const AlreadyExistsMessage = "Item already exists in binge."

var (
	ErrNameRequired      = errors.New("binge name is required")
	ErrItemRequired      = errors.New("seed item is required")
	ErrItemAlreadyExists = errors.New("item already exists in binge")
	ErrBingeNotFound     = errors.New("binge not found")
	ErrInvalidFilter     = errors.New("invalid binge filter")
	ErrInvalidSort       = errors.New("invalid binge sort")
)

// State is a snapshot of one user's binge view.
type State struct {
	Operation      models.OperationState `json:"operation"`
	Binges         []models.Binge        `json:"binges"`
	FilteredBinges []models.Binge        `json:"filteredBinges"`
	Filter         models.BingeFilter    `json:"filter"`
	Sort           models.BingeSort      `json:"sort"`
	CreatedBingeID string                `json:"createdBingeId,omitempty"`
}

func (s State) clone() State {
	out := s
	out.Binges = append(make([]models.Binge, 0, len(s.Binges)), s.Binges...)
	out.FilteredBinges = append(make([]models.Binge, 0, len(s.FilteredBinges)), s.FilteredBinges...)
	return out
}

// Holder owns the binge view of a single user. The mutex only guards state;
// store and catalog calls run unlocked, so concurrent operations interleave
// and the last one to finish decides the final state.
type Holder struct {
	owner     string
	store     Store
	episodes  EpisodeSource
	collation Collation
	dispatch  *observe.Dispatcher[State]

	mu    sync.RWMutex
	state State
}

// NewHolder creates an idle holder for owner.
func NewHolder(owner string, store Store, episodes EpisodeSource, collation Collation) *Holder {
	return &Holder{
		owner:     owner,
		store:     store,
		episodes:  episodes,
		collation: collation,
		dispatch:  observe.NewDispatcher[State](),
		state: State{
			Operation:      models.Idle(),
			Binges:         []models.Binge{},
			FilteredBinges: []models.Binge{},
			Filter:         models.BingeFilterAll,
			Sort:           models.BingeSortAlphabetical,
		},
	}
}

// Owner returns the user id this holder serves.
func (h *Holder) Owner() string { return h.owner }

// Snapshot returns a copy of the current state.
func (h *Holder) Snapshot() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.clone()
}

// Subscribe registers fn for every state change.
func (h *Holder) Subscribe(fn func(State)) (cancel func()) {
	return h.dispatch.Subscribe(fn)
}

// update mutates state, recomputes the derived view and notifies observers.
func (h *Holder) update(fn func(*State)) State {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.state)
	h.state.FilteredBinges = DeriveView(h.state.Binges, h.state.Filter, h.state.Sort, h.collation)
	snap := h.state.clone()
	h.dispatch.Publish(snap)
	return snap
}

func (h *Holder) setOperation(op models.OperationState) {
	h.update(func(s *State) { s.Operation = op })
}

func (h *Holder) fail(op string, err error) error {
	msg := err.Error()
	if errors.Is(err, ErrItemAlreadyExists) {
		msg = AlreadyExistsMessage
	}
	log.Printf("[binges] %s failed for user %s: %v", op, h.owner, err)
	h.setOperation(models.Failed(msg))
	return err
}

func (h *Holder) fetchAll(ctx context.Context) ([]models.Binge, error) {
	docs, err := h.store.ListBingesByUser(ctx, h.owner)
	if err != nil {
		return nil, err
	}
	out := make([]models.Binge, 0, len(docs))
	for _, doc := range docs {
		b, err := doc.ToBinge()
		if err != nil {
			return nil, fmt.Errorf("binge %s: %w", doc.ID, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// loadOwned reads a binge and hides documents that belong to other users.
func (h *Holder) loadOwned(ctx context.Context, bingeID string) (models.BingeDocument, error) {
	doc, err := h.store.GetBinge(ctx, bingeID)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.BingeDocument{}, ErrBingeNotFound
	}
	if err != nil {
		return models.BingeDocument{}, err
	}
	if doc.UserID != h.owner {
		return models.BingeDocument{}, ErrBingeNotFound
	}
	return doc, nil
}

// refreshBinge re-reads one binge so its progress is derived from the stored
// list, and splices it into the user's binges.
func (h *Holder) refreshBinge(ctx context.Context, bingeID string) error {
	doc, err := h.loadOwned(ctx, bingeID)
	if err != nil {
		return err
	}
	fresh, err := doc.ToBinge()
	if err != nil {
		return err
	}
	h.update(func(s *State) {
		binges := make([]models.Binge, 0, len(s.Binges)+1)
		replaced := false
		for _, b := range s.Binges {
			if b.ID == fresh.ID {
				binges = append(binges, fresh)
				replaced = true
				continue
			}
			binges = append(binges, b)
		}
		if !replaced {
			binges = append(binges, fresh)
		}
		s.Binges = binges
	})
	return nil
}

// Load replaces the user's binges with the stored ones.
func (h *Holder) Load(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	h.setOperation(models.Loading())

	binges, err := h.fetchAll(ctx)
	if err != nil {
		return h.fail("load", err)
	}
	h.update(func(s *State) {
		s.Binges = binges
		s.Operation = models.Success()
	})
	return nil
}

// Create stores an empty binge, adds seed to it and records the new id.
func (h *Holder) Create(ctx context.Context, name string, seed models.EntertainmentItem) (string, error) {
	ctx = context.WithoutCancel(ctx)
	name = strings.TrimSpace(name)
	if name == "" {
		return "", h.fail("create", ErrNameRequired)
	}
	if seed == nil {
		return "", h.fail("create", ErrItemRequired)
	}
	h.setOperation(models.Loading())

	doc, err := h.store.CreateBinge(ctx, h.owner, name, nil)
	if err != nil {
		return "", h.fail("create", err)
	}
	if err := h.addItem(ctx, doc.ID, seed); err != nil {
		return doc.ID, h.fail("create", err)
	}
	if err := h.refreshBinge(ctx, doc.ID); err != nil {
		return doc.ID, h.fail("create", err)
	}

	log.Printf("[binges] user %s created binge %s (%q)", h.owner, doc.ID, name)
	h.update(func(s *State) {
		s.CreatedBingeID = doc.ID
		s.Operation = models.Success()
	})
	return doc.ID, nil
}

// Delete removes a binge and reloads the user's list. Deleting a binge that
// is already gone only reloads.
func (h *Holder) Delete(ctx context.Context, bingeID string) error {
	ctx = context.WithoutCancel(ctx)
	h.setOperation(models.Loading())

	doc, err := h.store.GetBinge(ctx, bingeID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		// already deleted elsewhere; last write wins
	case err != nil:
		return h.fail("delete", err)
	case doc.UserID != h.owner:
		return h.fail("delete", ErrBingeNotFound)
	default:
		if err := h.store.DeleteBinge(ctx, bingeID); err != nil {
			return h.fail("delete", err)
		}
	}

	binges, err := h.fetchAll(ctx)
	if err != nil {
		return h.fail("delete", err)
	}
	h.update(func(s *State) {
		s.Binges = binges
		if s.CreatedBingeID == bingeID {
			s.CreatedBingeID = ""
		}
		s.Operation = models.Success()
	})
	return nil
}

// addItem is a plain read-modify-write of the whole list. It does not run in
// a transaction: a concurrent add or toggle between the read and the write is
// overwritten.
func (h *Holder) addItem(ctx context.Context, bingeID string, item models.EntertainmentItem) error {
	doc, err := h.loadOwned(ctx, bingeID)
	if err != nil {
		return err
	}
	if models.ContainsItem(doc.EntertainmentList, item.ItemID()) {
		return ErrItemAlreadyExists
	}

	if show, ok := item.(models.TVShow); ok {
		item = EnrichShow(ctx, h.episodes, show)
	}

	list := make([]models.StoredEntertainmentItem, 0, len(doc.EntertainmentList)+1)
	list = append(list, doc.EntertainmentList...)
	list = append(list, models.ToStored(item))

	if err := h.store.SetEntertainmentList(ctx, bingeID, list); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrBingeNotFound
		}
		return err
	}
	return nil
}

// AddItem appends item to a binge. A duplicate id leaves the binge untouched
// and reports ErrItemAlreadyExists.
func (h *Holder) AddItem(ctx context.Context, bingeID string, item models.EntertainmentItem) error {
	ctx = context.WithoutCancel(ctx)
	if item == nil {
		return h.fail("add item", ErrItemRequired)
	}
	h.setOperation(models.Loading())

	if err := h.addItem(ctx, bingeID, item); err != nil {
		return h.fail("add item", err)
	}
	if err := h.refreshBinge(ctx, bingeID); err != nil {
		return h.fail("add item", err)
	}
	h.setOperation(models.Success())
	return nil
}

// ToggleMovieWatched sets the watched flag of a movie in a binge.
func (h *Holder) ToggleMovieWatched(ctx context.Context, bingeID string, movieID int, watched bool) error {
	return h.toggle(ctx, "toggle movie", bingeID, func(list []models.StoredEntertainmentItem) {
		for i := range list {
			if list[i].ID == movieID && list[i].Type == models.EntertainmentTypeMovie {
				list[i].Watched = watched
			}
		}
	})
}

// ToggleEpisodeWatched adds or removes one (season, episode) pair from a
// show's watched set.
func (h *Holder) ToggleEpisodeWatched(ctx context.Context, bingeID string, showID, season, episode int, watched bool) error {
	pair := models.EpisodeWatched{SeasonNumber: season, EpisodeNumber: episode}
	return h.toggle(ctx, "toggle episode", bingeID, func(list []models.StoredEntertainmentItem) {
		for i := range list {
			if list[i].ID != showID || list[i].Type != models.EntertainmentTypeTVShow {
				continue
			}
			set := models.NewEpisodeSet(list[i].WatchedEpisodes...)
			if watched {
				set = set.With(pair)
			} else {
				set = set.Without(pair)
			}
			list[i].WatchedEpisodes = []models.EpisodeWatched(set)
		}
	})
}

// toggle runs mutate inside a store transaction, then re-reads the binge.
func (h *Holder) toggle(ctx context.Context, op, bingeID string, mutate func([]models.StoredEntertainmentItem)) error {
	ctx = context.WithoutCancel(ctx)
	h.setOperation(models.Loading())

	_, err := h.store.UpdateBinge(ctx, bingeID, func(doc *models.BingeDocument) error {
		if doc.UserID != h.owner {
			return ErrBingeNotFound
		}
		mutate(doc.EntertainmentList)
		return nil
	})
	if errors.Is(err, docstore.ErrNotFound) {
		err = ErrBingeNotFound
	}
	if err != nil {
		return h.fail(op, err)
	}

	if err := h.refreshBinge(ctx, bingeID); err != nil {
		return h.fail(op, err)
	}
	h.setOperation(models.Success())
	return nil
}

// UpdateFilter changes the filter and recomputes the view.
func (h *Holder) UpdateFilter(filter models.BingeFilter) (State, error) {
	if !filter.Valid() {
		return h.Snapshot(), ErrInvalidFilter
	}
	return h.update(func(s *State) { s.Filter = filter }), nil
}

// UpdateSort changes the sort and recomputes the view.
func (h *Holder) UpdateSort(order models.BingeSort) (State, error) {
	if !order.Valid() {
		return h.Snapshot(), ErrInvalidSort
	}
	return h.update(func(s *State) { s.Sort = order }), nil
}

// Hub hands out one Holder per user.
type Hub struct {
	store     Store
	episodes  EpisodeSource
	collation Collation

	mu      sync.Mutex
	holders map[string]*Holder
}

func NewHub(store Store, episodes EpisodeSource, collation Collation) *Hub {
	return &Hub{
		store:     store,
		episodes:  episodes,
		collation: collation,
		holders:   make(map[string]*Holder),
	}
}

// For returns the holder of userID, creating it on first use.
func (h *Hub) For(userID string) *Holder {
	h.mu.Lock()
	defer h.mu.Unlock()
	if holder, ok := h.holders[userID]; ok {
		return holder
	}
	holder := NewHolder(userID, h.store, h.episodes, h.collation)
	h.holders[userID] = holder
	return holder
}

// Forget drops the holder of userID, e.g. after sign-out.
func (h *Hub) Forget(userID string) {
	h.mu.Lock()
	delete(h.holders, userID)
	h.mu.Unlock()
}
