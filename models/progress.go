package models

// CalculateProgress returns the watched/total ratio across items.
// A movie counts as one unit; a show counts TotalEpisodes units (zero when
// unknown) of which len(WatchedEpisodes) are watched. Returns 0 when the total
// is zero.
func CalculateProgress(items []EntertainmentItem) float64 {
	total, watched := 0, 0
	for _, item := range items {
		switch v := item.(type) {
		case Movie:
			total++
			if v.Watched {
				watched++
			}
		case TVShow:
			if v.TotalEpisodes != nil {
				total += *v.TotalEpisodes
			}
			watched += v.WatchedEpisodes.Len()
		}
	}
	if total <= 0 {
		return 0
	}
	ratio := float64(watched) / float64(total)
	if ratio > 1 {
		// watchedEpisodes can outgrow a stale totalEpisodes
		return 1
	}
	return ratio
}
