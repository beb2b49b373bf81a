package models

// SeasonSummary is one entry of a show's season list.
type SeasonSummary struct {
	SeasonNumber int `json:"seasonNumber"`
	EpisodeCount int `json:"episodeCount"`
}

// ShowDetails is the subset of catalog show details needed for enrichment.
type ShowDetails struct {
	ID      int             `json:"id"`
	Name    string          `json:"name"`
	Seasons []SeasonSummary `json:"seasons"`
}

// SeasonDetails lists the episodes of one season in catalog order.
type SeasonDetails struct {
	SeasonNumber int       `json:"seasonNumber"`
	Episodes     []Episode `json:"episodes"`
}

// ContentFilter narrows the catalog browsing view.
type ContentFilter string

const (
	ContentFilterAll     ContentFilter = "ALL"
	ContentFilterMovies  ContentFilter = "MOVIES"
	ContentFilterTVShows ContentFilter = "TV_SHOWS"
)

func (f ContentFilter) Valid() bool {
	switch f {
	case ContentFilterAll, ContentFilterMovies, ContentFilterTVShows:
		return true
	}
	return false
}

// ContentSort orders the catalog browsing view.
type ContentSort string

const (
	ContentSortPopularity ContentSort = "POPULARITY"
	ContentSortNewest     ContentSort = "NEWEST"
	ContentSortRating     ContentSort = "RATING"
)

func (s ContentSort) Valid() bool {
	switch s {
	case ContentSortPopularity, ContentSortNewest, ContentSortRating:
		return true
	}
	return false
}
