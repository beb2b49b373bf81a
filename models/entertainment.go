package models

import (
	"errors"
	"fmt"
	"sort"
)

// EntertainmentType tags the variant of an EntertainmentItem.
type EntertainmentType string

const (
	EntertainmentTypeMovie  EntertainmentType = "MOVIE"
	EntertainmentTypeTVShow EntertainmentType = "TV_SHOW"
)

// ErrUnknownEntertainmentType is returned when a stored item carries a type tag
// that matches neither variant.
var ErrUnknownEntertainmentType = errors.New("unknown entertainment type")

// EntertainmentItem is a movie or a TV show tracked within a binge.
// The only implementations are Movie and TVShow.
type EntertainmentItem interface {
	ItemID() int
	ItemTitle() string
	Type() EntertainmentType
	sealed()
}

// Movie is the movie variant of EntertainmentItem.
type Movie struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	PosterPath  *string  `json:"posterPath,omitempty"`
	Overview    string   `json:"overview"`
	ReleaseDate *string  `json:"releaseDate,omitempty"`
	Watched     bool     `json:"watched"`
	Rating      *float64 `json:"rating,omitempty"`
}

func (m Movie) ItemID() int             { return m.ID }
func (m Movie) ItemTitle() string       { return m.Title }
func (m Movie) Type() EntertainmentType { return EntertainmentTypeMovie }
func (Movie) sealed()                   {}

// TVShow is the TV show variant of EntertainmentItem.
type TVShow struct {
	ID              int        `json:"id"`
	Title           string     `json:"title"`
	PosterPath      *string    `json:"posterPath,omitempty"`
	Overview        string     `json:"overview"`
	ReleaseDate     *string    `json:"releaseDate,omitempty"`
	TotalEpisodes   *int       `json:"totalEpisodes,omitempty"`
	WatchedEpisodes EpisodeSet `json:"watchedEpisodes"`
	Episodes        []Episode  `json:"episodes,omitempty"`
	Rating          *float64   `json:"rating,omitempty"`
}

func (s TVShow) ItemID() int             { return s.ID }
func (s TVShow) ItemTitle() string       { return s.Title }
func (s TVShow) Type() EntertainmentType { return EntertainmentTypeTVShow }
func (TVShow) sealed()                   {}

// Episode is a single episode of a show. Its identity is the
// (SeasonNumber, EpisodeNumber) pair within that show.
type Episode struct {
	EpisodeNumber int    `json:"episodeNumber"`
	SeasonNumber  int    `json:"seasonNumber"`
	Title         string `json:"name"`
}

// EpisodeWatched marks one episode of a show as complete.
type EpisodeWatched struct {
	SeasonNumber  int `json:"seasonNumber"`
	EpisodeNumber int `json:"episodeNumber"`
}

// EpisodeSet is a set of watched episodes, unique by (season, episode).
// Methods never modify the receiver.
type EpisodeSet []EpisodeWatched

// NewEpisodeSet builds a set from pairs, dropping duplicates and keeping the
// first occurrence order.
func NewEpisodeSet(pairs ...EpisodeWatched) EpisodeSet {
	set := make(EpisodeSet, 0, len(pairs))
	for _, p := range pairs {
		if !set.Contains(p) {
			set = append(set, p)
		}
	}
	return set
}

// Contains reports whether the pair is present.
func (s EpisodeSet) Contains(p EpisodeWatched) bool {
	for _, e := range s {
		if e == p {
			return true
		}
	}
	return false
}

// With returns a set that includes p.
func (s EpisodeSet) With(p EpisodeWatched) EpisodeSet {
	out := make(EpisodeSet, len(s), len(s)+1)
	copy(out, s)
	if s.Contains(p) {
		return out
	}
	return append(out, p)
}

// Without returns a set that excludes p.
func (s EpisodeSet) Without(p EpisodeWatched) EpisodeSet {
	out := make(EpisodeSet, 0, len(s))
	for _, e := range s {
		if e != p {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of watched episodes.
func (s EpisodeSet) Len() int { return len(s) }

// Sorted returns a copy ordered by season then episode.
func (s EpisodeSet) Sorted() EpisodeSet {
	out := make(EpisodeSet, len(s))
	copy(out, s)
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeasonNumber == out[j].SeasonNumber {
			return out[i].EpisodeNumber < out[j].EpisodeNumber
		}
		return out[i].SeasonNumber < out[j].SeasonNumber
	})
	return out
}

// StoredEntertainmentItem is the flat form of an EntertainmentItem used for
// persistence and JSON responses.
type StoredEntertainmentItem struct {
	ID              int               `json:"id"`
	Title           string            `json:"title"`
	PosterPath      *string           `json:"posterPath,omitempty"`
	Overview        string            `json:"overview"`
	Type            EntertainmentType `json:"type"`
	ReleaseDate     *string           `json:"releaseDate,omitempty"`
	Watched         bool              `json:"watched"`
	TotalEpisodes   *int              `json:"totalEpisodes,omitempty"`
	WatchedEpisodes []EpisodeWatched  `json:"watchedEpisodes"`
	Episodes        []Episode         `json:"episodes,omitempty"`
	Rating          *float64          `json:"rating,omitempty"`
}

// ToStored flattens an item for persistence.
func ToStored(item EntertainmentItem) StoredEntertainmentItem {
	switch v := item.(type) {
	case Movie:
		return StoredEntertainmentItem{
			ID:              v.ID,
			Title:           v.Title,
			PosterPath:      v.PosterPath,
			Overview:        v.Overview,
			Type:            EntertainmentTypeMovie,
			ReleaseDate:     v.ReleaseDate,
			Watched:         v.Watched,
			WatchedEpisodes: []EpisodeWatched{},
			Rating:          v.Rating,
		}
	case TVShow:
		watched := make([]EpisodeWatched, len(v.WatchedEpisodes))
		copy(watched, v.WatchedEpisodes)
		return StoredEntertainmentItem{
			ID:              v.ID,
			Title:           v.Title,
			PosterPath:      v.PosterPath,
			Overview:        v.Overview,
			Type:            EntertainmentTypeTVShow,
			ReleaseDate:     v.ReleaseDate,
			TotalEpisodes:   v.TotalEpisodes,
			WatchedEpisodes: watched,
			Episodes:        v.Episodes,
			Rating:          v.Rating,
		}
	}
	panic(fmt.Sprintf("models: unexpected entertainment item %T", item))
}

// FromStored rebuilds the variant named by the stored type tag.
func FromStored(stored StoredEntertainmentItem) (EntertainmentItem, error) {
	switch stored.Type {
	case EntertainmentTypeMovie:
		return Movie{
			ID:          stored.ID,
			Title:       stored.Title,
			PosterPath:  stored.PosterPath,
			Overview:    stored.Overview,
			ReleaseDate: stored.ReleaseDate,
			Watched:     stored.Watched,
			Rating:      stored.Rating,
		}, nil
	case EntertainmentTypeTVShow:
		return TVShow{
			ID:              stored.ID,
			Title:           stored.Title,
			PosterPath:      stored.PosterPath,
			Overview:        stored.Overview,
			ReleaseDate:     stored.ReleaseDate,
			TotalEpisodes:   stored.TotalEpisodes,
			WatchedEpisodes: NewEpisodeSet(stored.WatchedEpisodes...),
			Episodes:        stored.Episodes,
			Rating:          stored.Rating,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEntertainmentType, stored.Type)
}

// ToStoredList flattens a list of items.
func ToStoredList(items []EntertainmentItem) []StoredEntertainmentItem {
	out := make([]StoredEntertainmentItem, 0, len(items))
	for _, item := range items {
		out = append(out, ToStored(item))
	}
	return out
}

// FromStoredList rebuilds a list of items, failing on the first bad tag.
func FromStoredList(stored []StoredEntertainmentItem) ([]EntertainmentItem, error) {
	out := make([]EntertainmentItem, 0, len(stored))
	for _, s := range stored {
		item, err := FromStored(s)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// ContainsItem reports whether an item with the given id is in the list.
func ContainsItem(items []StoredEntertainmentItem, id int) bool {
	for _, item := range items {
		if item.ID == id {
			return true
		}
	}
	return false
}
