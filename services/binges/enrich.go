package binges

import (
	"context"
	"fmt"
	"log"

	"bingetracker/models"
)

// FetchEpisodes gathers every regular-season episode of a show. Specials
// (season 0) are skipped and seasons are fetched one after another. The first
// failure stops the walk; episodes gathered so far are returned with the error.
func FetchEpisodes(ctx context.Context, src EpisodeSource, showID int) ([]models.Episode, error) {
	episodes := []models.Episode{}

	details, err := src.ShowDetails(ctx, showID)
	if err != nil {
		return episodes, fmt.Errorf("show %d details: %w", showID, err)
	}
	log.Printf("[binges] show %d (%s) has %d seasons", showID, details.Name, len(details.Seasons))

	for _, season := range details.Seasons {
		if season.SeasonNumber <= 0 {
			continue
		}
		sd, err := src.Season(ctx, showID, season.SeasonNumber)
		if err != nil {
			return episodes, fmt.Errorf("show %d season %d: %w", showID, season.SeasonNumber, err)
		}
		episodes = append(episodes, sd.Episodes...)
	}
	return episodes, nil
}

// EnrichShow attaches the fetched episode list to show and sets
// TotalEpisodes to its length. Fetch errors are logged, not returned, and
// whatever was gathered before the failure is kept.
func EnrichShow(ctx context.Context, src EpisodeSource, show models.TVShow) models.TVShow {
	episodes, err := FetchEpisodes(ctx, src, show.ID)
	if err != nil {
		log.Printf("[binges] episode fetch incomplete, keeping %d episodes: %v", len(episodes), err)
	}
	total := len(episodes)
	show.Episodes = episodes
	show.TotalEpisodes = &total
	if show.WatchedEpisodes == nil {
		show.WatchedEpisodes = models.NewEpisodeSet()
	}
	return show
}
