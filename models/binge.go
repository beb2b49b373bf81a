package models

import (
	"encoding/json"
	"time"
)

// Binge is a user's named collection of tracked movies and shows.
type Binge struct {
	ID                string
	UserID            string
	Name              string
	EntertainmentList []EntertainmentItem
	LastUpdated       time.Time
	// Progress is derived from EntertainmentList on every read.
	Progress float64
}

// BingeDocument is the persisted form of a binge.
type BingeDocument struct {
	ID                string                    `json:"id"`
	UserID            string                    `json:"userId"`
	Name              string                    `json:"name"`
	EntertainmentList []StoredEntertainmentItem `json:"entertainmentList"`
	LastUpdated       time.Time                 `json:"lastUpdated"`
}

// ToBinge converts the document and derives progress.
func (d BingeDocument) ToBinge() (Binge, error) {
	items, err := FromStoredList(d.EntertainmentList)
	if err != nil {
		return Binge{}, err
	}
	return Binge{
		ID:                d.ID,
		UserID:            d.UserID,
		Name:              d.Name,
		EntertainmentList: items,
		LastUpdated:       d.LastUpdated,
		Progress:          CalculateProgress(items),
	}, nil
}

// ToDocument flattens the binge for persistence. Progress is not carried.
func (b Binge) ToDocument() BingeDocument {
	return BingeDocument{
		ID:                b.ID,
		UserID:            b.UserID,
		Name:              b.Name,
		EntertainmentList: ToStoredList(b.EntertainmentList),
		LastUpdated:       b.LastUpdated,
	}
}

// HasMovies reports whether any item is a movie.
func (b Binge) HasMovies() bool {
	for _, item := range b.EntertainmentList {
		if _, ok := item.(Movie); ok {
			return true
		}
	}
	return false
}

// HasShows reports whether any item is a TV show.
func (b Binge) HasShows() bool {
	for _, item := range b.EntertainmentList {
		if _, ok := item.(TVShow); ok {
			return true
		}
	}
	return false
}

// MarshalJSON serializes items through their stored form and always includes
// the freshly derived progress.
func (b Binge) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ID                string                    `json:"id"`
		UserID            string                    `json:"userId"`
		Name              string                    `json:"name"`
		EntertainmentList []StoredEntertainmentItem `json:"entertainmentList"`
		LastUpdated       time.Time                 `json:"lastUpdated"`
		Progress          float64                   `json:"progress"`
	}{
		ID:                b.ID,
		UserID:            b.UserID,
		Name:              b.Name,
		EntertainmentList: ToStoredList(b.EntertainmentList),
		LastUpdated:       b.LastUpdated,
		Progress:          CalculateProgress(b.EntertainmentList),
	})
}

// BingeFilter restricts which binges appear in the derived view.
type BingeFilter string

const (
	BingeFilterAll         BingeFilter = "ALL"
	BingeFilterMoviesOnly  BingeFilter = "MOVIES_ONLY"
	BingeFilterTVShowsOnly BingeFilter = "TV_SHOWS_ONLY"
)

// Valid reports whether f is a known filter.
func (f BingeFilter) Valid() bool {
	switch f {
	case BingeFilterAll, BingeFilterMoviesOnly, BingeFilterTVShowsOnly:
		return true
	}
	return false
}

// BingeSort orders the derived view.
type BingeSort string

const (
	BingeSortAlphabetical    BingeSort = "ALPHABETICAL"
	BingeSortProgress        BingeSort = "PROGRESS"
	BingeSortRecentlyUpdated BingeSort = "RECENTLY_UPDATED"
)

// Valid reports whether s is a known sort.
func (s BingeSort) Valid() bool {
	switch s {
	case BingeSortAlphabetical, BingeSortProgress, BingeSortRecentlyUpdated:
		return true
	}
	return false
}
