package binges

import (
	"context"

	"bingetracker/internal/docstore"
	"bingetracker/models"
	"bingetracker/services/catalog"
)

//go:generate mockgen -destination=mocks/episode_source.go -package=mocks bingetracker/services/binges EpisodeSource

// Store is the binge document persistence the holders depend on.
type Store interface {
	CreateBinge(ctx context.Context, userID, name string, list []models.StoredEntertainmentItem) (models.BingeDocument, error)
	GetBinge(ctx context.Context, id string) (models.BingeDocument, error)
	ListBingesByUser(ctx context.Context, userID string) ([]models.BingeDocument, error)
	SetEntertainmentList(ctx context.Context, id string, list []models.StoredEntertainmentItem) error
	UpdateBinge(ctx context.Context, id string, fn func(*models.BingeDocument) error) (models.BingeDocument, error)
	DeleteBinge(ctx context.Context, id string) error
}

// EpisodeSource is the catalog subset used to enrich TV shows.
type EpisodeSource interface {
	ShowDetails(ctx context.Context, showID int) (models.ShowDetails, error)
	Season(ctx context.Context, showID, seasonNumber int) (models.SeasonDetails, error)
}

var (
	_ Store         = (*docstore.Store)(nil)
	_ EpisodeSource = (*catalog.Client)(nil)
)
