package binges_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"bingetracker/models"
	"bingetracker/services/binges"
	"bingetracker/services/binges/mocks"
)

func seasonOf(season, count int) models.SeasonDetails {
	sd := models.SeasonDetails{SeasonNumber: season}
	for i := 1; i <= count; i++ {
		sd.Episodes = append(sd.Episodes, models.Episode{SeasonNumber: season, EpisodeNumber: i, Title: "Episode"})
	}
	return sd
}

func TestFetchEpisodesSkipsSpecialsInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockEpisodeSource(ctrl)

	gomock.InOrder(
		src.EXPECT().ShowDetails(gomock.Any(), 7).Return(models.ShowDetails{
			ID: 7,
			Seasons: []models.SeasonSummary{
				{SeasonNumber: 0, EpisodeCount: 4},
				{SeasonNumber: 1, EpisodeCount: 2},
				{SeasonNumber: 2, EpisodeCount: 3},
			},
		}, nil),
		src.EXPECT().Season(gomock.Any(), 7, 1).Return(seasonOf(1, 2), nil),
		src.EXPECT().Season(gomock.Any(), 7, 2).Return(seasonOf(2, 3), nil),
	)

	episodes, err := binges.FetchEpisodes(context.Background(), src, 7)
	if err != nil {
		t.Fatalf("FetchEpisodes: %v", err)
	}
	if len(episodes) != 5 {
		t.Fatalf("expected 5 episodes, got %d", len(episodes))
	}
	if episodes[0].SeasonNumber != 1 || episodes[4].SeasonNumber != 2 || episodes[4].EpisodeNumber != 3 {
		t.Fatalf("episodes out of order: %+v", episodes)
	}
}

func TestEnrichShowKeepsPartialEpisodes(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockEpisodeSource(ctrl)

	src.EXPECT().ShowDetails(gomock.Any(), 9).Return(models.ShowDetails{
		ID: 9,
		Seasons: []models.SeasonSummary{
			{SeasonNumber: 1}, {SeasonNumber: 2}, {SeasonNumber: 3},
		},
	}, nil)
	src.EXPECT().Season(gomock.Any(), 9, 1).Return(seasonOf(1, 4), nil)
	src.EXPECT().Season(gomock.Any(), 9, 2).Return(models.SeasonDetails{}, errors.New("timeout"))
	// season 3 must not be requested once season 2 fails

	show := binges.EnrichShow(context.Background(), src, models.TVShow{ID: 9, Title: "Partial"})
	if len(show.Episodes) != 4 {
		t.Fatalf("expected 4 gathered episodes, got %d", len(show.Episodes))
	}
	if show.TotalEpisodes == nil || *show.TotalEpisodes != 4 {
		t.Fatalf("expected totalEpisodes 4, got %v", show.TotalEpisodes)
	}
}

func TestEnrichShowDetailsFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockEpisodeSource(ctrl)
	src.EXPECT().ShowDetails(gomock.Any(), 3).Return(models.ShowDetails{}, errors.New("unavailable"))

	show := binges.EnrichShow(context.Background(), src, models.TVShow{ID: 3})
	if len(show.Episodes) != 0 || show.TotalEpisodes == nil || *show.TotalEpisodes != 0 {
		t.Fatalf("expected empty enrichment, got %+v", show)
	}
}
