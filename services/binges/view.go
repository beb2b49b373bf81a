package binges

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"bingetracker/models"
)

// Collation compares binge names for the ALPHABETICAL sort. The zero value
// compares byte-wise.
type Collation struct {
	tag   language.Tag
	isSet bool
}

// NewCollation parses a BCP 47 locale. An empty locale yields byte-wise order.
func NewCollation(locale string) (Collation, error) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return Collation{}, nil
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return Collation{}, err
	}
	return Collation{tag: tag, isSet: true}, nil
}

func (c Collation) less() func(a, b string) bool {
	if !c.isSet {
		return func(a, b string) bool { return a < b }
	}
	// collators keep internal buffers, one per derivation
	col := collate.New(c.tag)
	return func(a, b string) bool { return col.CompareString(a, b) < 0 }
}

// FilterBinges keeps the binges that match filter. A binge holding both
// movies and shows only passes ALL.
func FilterBinges(binges []models.Binge, filter models.BingeFilter) []models.Binge {
	out := make([]models.Binge, 0, len(binges))
	for _, b := range binges {
		switch filter {
		case models.BingeFilterMoviesOnly:
			if !b.HasMovies() || b.HasShows() {
				continue
			}
		case models.BingeFilterTVShowsOnly:
			if !b.HasShows() || b.HasMovies() {
				continue
			}
		}
		out = append(out, b)
	}
	return out
}

// SortBinges returns a stably sorted copy.
func SortBinges(binges []models.Binge, order models.BingeSort, collation Collation) []models.Binge {
	out := make([]models.Binge, len(binges))
	copy(out, binges)

	switch order {
	case models.BingeSortProgress:
		progress := make(map[string]float64, len(out))
		for _, b := range out {
			progress[b.ID] = models.CalculateProgress(b.EntertainmentList)
		}
		sort.SliceStable(out, func(i, j int) bool { return progress[out[i].ID] > progress[out[j].ID] })
	case models.BingeSortRecentlyUpdated:
		sort.SliceStable(out, func(i, j int) bool { return out[i].LastUpdated.After(out[j].LastUpdated) })
	default:
		less := collation.less()
		sort.SliceStable(out, func(i, j int) bool { return less(out[i].Name, out[j].Name) })
	}
	return out
}

// DeriveView applies filter then sort.
func DeriveView(binges []models.Binge, filter models.BingeFilter, order models.BingeSort, collation Collation) []models.Binge {
	return SortBinges(FilterBinges(binges, filter), order, collation)
}
