package browse

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"bingetracker/internal/observe"
	"bingetracker/models"
	"bingetracker/services/catalog"
)

var (
	ErrInvalidFilter = errors.New("invalid content filter")
	ErrInvalidSort   = errors.New("invalid content sort")
)

// Catalog is the subset of the catalog client used for browsing.
type Catalog interface {
	PopularMovies(ctx context.Context, page int) ([]models.Movie, error)
	PopularShows(ctx context.Context, page int) ([]models.TVShow, error)
	SearchMovies(ctx context.Context, query string, page int) ([]models.Movie, error)
	SearchShows(ctx context.Context, query string, page int) ([]models.TVShow, error)
}

var _ Catalog = (*catalog.Client)(nil)

// State is a snapshot of one user's catalog view. The filtered lists are
// derived from the popular lists only.
type State struct {
	Operation      models.OperationState `json:"operation"`
	PopularMovies  []models.Movie        `json:"popularMovies"`
	PopularShows   []models.TVShow       `json:"popularShows"`
	Query          string                `json:"query"`
	SearchMovies   []models.Movie        `json:"searchMovies"`
	SearchShows    []models.TVShow       `json:"searchShows"`
	Filter         models.ContentFilter  `json:"filter"`
	Sort           models.ContentSort    `json:"sort"`
	FilteredMovies []models.Movie        `json:"filteredMovies"`
	FilteredShows  []models.TVShow       `json:"filteredShows"`
}

func (s State) clone() State {
	out := s
	out.PopularMovies = listCopy(s.PopularMovies)
	out.PopularShows = listCopy(s.PopularShows)
	out.SearchMovies = listCopy(s.SearchMovies)
	out.SearchShows = listCopy(s.SearchShows)
	out.FilteredMovies = listCopy(s.FilteredMovies)
	out.FilteredShows = listCopy(s.FilteredShows)
	return out
}

// listCopy never returns nil so every list encodes as a JSON array.
func listCopy[T any](in []T) []T {
	return append(make([]T, 0, len(in)), in...)
}

// Holder owns one user's catalog browsing state.
type Holder struct {
	catalog  Catalog
	dispatch *observe.Dispatcher[State]

	mu    sync.RWMutex
	state State
}

func NewHolder(c Catalog) *Holder {
	return &Holder{
		catalog:  c,
		dispatch: observe.NewDispatcher[State](),
		state: State{
			Operation:      models.Idle(),
			PopularMovies:  []models.Movie{},
			PopularShows:   []models.TVShow{},
			SearchMovies:   []models.Movie{},
			SearchShows:    []models.TVShow{},
			Filter:         models.ContentFilterAll,
			Sort:           models.ContentSortPopularity,
			FilteredMovies: []models.Movie{},
			FilteredShows:  []models.TVShow{},
		},
	}
}

func (h *Holder) Snapshot() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.clone()
}

func (h *Holder) Subscribe(fn func(State)) (cancel func()) {
	return h.dispatch.Subscribe(fn)
}

func (h *Holder) update(fn func(*State)) State {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.state)
	h.state.FilteredMovies, h.state.FilteredShows = Derive(h.state.PopularMovies, h.state.PopularShows, h.state.Filter, h.state.Sort)
	snap := h.state.clone()
	h.dispatch.Publish(snap)
	return snap
}

func (h *Holder) fail(op string, err error) error {
	log.Printf("[browse] %s failed: %v", op, err)
	h.update(func(s *State) { s.Operation = models.Failed(err.Error()) })
	return err
}

// LoadPopular fetches the first page of popular movies and shows side by
// side. A list that arrives is kept even if the other one fails.
func (h *Holder) LoadPopular(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	h.update(func(s *State) { s.Operation = models.Loading() })

	var (
		movies []models.Movie
		shows  []models.TVShow
	)
	p := pool.New().WithErrors()
	p.Go(func() error {
		var err error
		movies, err = h.catalog.PopularMovies(ctx, 1)
		return err
	})
	p.Go(func() error {
		var err error
		shows, err = h.catalog.PopularShows(ctx, 1)
		return err
	})
	err := p.Wait()

	h.update(func(s *State) {
		if movies != nil {
			s.PopularMovies = movies
		}
		if shows != nil {
			s.PopularShows = shows
		}
	})
	if err != nil {
		return h.fail("load popular", err)
	}
	h.update(func(s *State) { s.Operation = models.Success() })
	return nil
}

// Search queries movies and shows. A blank query clears the results without
// any request. Calls are not sequenced: whichever response pair lands last
// overwrites the results.
func (h *Holder) Search(ctx context.Context, query string) error {
	ctx = context.WithoutCancel(ctx)
	if strings.TrimSpace(query) == "" {
		h.update(func(s *State) {
			s.Query = ""
			s.SearchMovies = []models.Movie{}
			s.SearchShows = []models.TVShow{}
		})
		return nil
	}
	h.update(func(s *State) { s.Operation = models.Loading() })

	var (
		movies []models.Movie
		shows  []models.TVShow
	)
	p := pool.New().WithErrors()
	p.Go(func() error {
		var err error
		movies, err = h.catalog.SearchMovies(ctx, query, 0)
		return err
	})
	p.Go(func() error {
		var err error
		shows, err = h.catalog.SearchShows(ctx, query, 0)
		return err
	})
	if err := p.Wait(); err != nil {
		return h.fail("search", err)
	}

	h.update(func(s *State) {
		s.Query = query
		s.SearchMovies = listCopy(movies)
		s.SearchShows = listCopy(shows)
		s.Operation = models.Success()
	})
	return nil
}

func (h *Holder) UpdateFilter(filter models.ContentFilter) (State, error) {
	if !filter.Valid() {
		return h.Snapshot(), ErrInvalidFilter
	}
	return h.update(func(s *State) { s.Filter = filter }), nil
}

func (h *Holder) UpdateSort(order models.ContentSort) (State, error) {
	if !order.Valid() {
		return h.Snapshot(), ErrInvalidSort
	}
	return h.update(func(s *State) { s.Sort = order }), nil
}

// Derive applies the content filter and sort to the popular lists.
func Derive(movies []models.Movie, shows []models.TVShow, filter models.ContentFilter, order models.ContentSort) ([]models.Movie, []models.TVShow) {
	outMovies := []models.Movie{}
	outShows := []models.TVShow{}
	if filter != models.ContentFilterTVShows {
		outMovies = append(outMovies, movies...)
	}
	if filter != models.ContentFilterMovies {
		outShows = append(outShows, shows...)
	}

	switch order {
	case models.ContentSortNewest:
		sort.SliceStable(outMovies, func(i, j int) bool { return newer(outMovies[i].ReleaseDate, outMovies[j].ReleaseDate) })
		sort.SliceStable(outShows, func(i, j int) bool { return newer(outShows[i].ReleaseDate, outShows[j].ReleaseDate) })
	case models.ContentSortRating:
		sort.SliceStable(outMovies, func(i, j int) bool { return lowerRating(outMovies[i].Rating, outMovies[j].Rating) })
		sort.SliceStable(outShows, func(i, j int) bool { return lowerRating(outShows[i].Rating, outShows[j].Rating) })
	}
	return outMovies, outShows
}

// newer orders date strings descending; absent dates go last.
func newer(a, b *string) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return *a > *b
}

// lowerRating orders ratings ascending; absent ratings go first.
func lowerRating(a, b *float64) bool {
	switch {
	case b == nil:
		return false
	case a == nil:
		return true
	}
	return *a < *b
}

// Hub hands out one Holder per user.
type Hub struct {
	catalog Catalog

	mu      sync.Mutex
	holders map[string]*Holder
}

func NewHub(c Catalog) *Hub {
	return &Hub{catalog: c, holders: make(map[string]*Holder)}
}

func (h *Hub) For(userID string) *Holder {
	h.mu.Lock()
	defer h.mu.Unlock()
	if holder, ok := h.holders[userID]; ok {
		return holder
	}
	holder := NewHolder(h.catalog)
	h.holders[userID] = holder
	return holder
}

func (h *Hub) Forget(userID string) {
	h.mu.Lock()
	delete(h.holders, userID)
	h.mu.Unlock()
}
