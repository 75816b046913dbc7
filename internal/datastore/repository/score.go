package repository

import (
	"context"

	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore/entities"
)

// ControlScoreRepository persists computed control scores. One logical row
// exists per (site_id, dimension, date); UpsertScore overwrites that slot.
type ControlScoreRepository interface {
	// UpsertScore inserts the score or replaces the existing row with the
	// same (site_id, dimension, date) natural key.
	UpsertScore(ctx context.Context, score *entities.ControlScore) error
	// GetScore returns the score for an exact natural key.
	// Returns ErrScoreNotFound if absent.
	GetScore(ctx context.Context, siteID string, dimension control.Dimension, date string) (*entities.ControlScore, error)
	// LatestScore returns the most recent score for (site, dimension), or
	// ErrScoreNotFound when the pair has never been scored.
	LatestScore(ctx context.Context, siteID string, dimension control.Dimension) (*entities.ControlScore, error)
	// LatestScoreBefore returns the most recent score strictly before the
	// given date, used for trend computation.
	LatestScoreBefore(ctx context.Context, siteID string, dimension control.Dimension, date string) (*entities.ControlScore, error)
	// LatestScores returns the latest score per dimension for a site, in the
	// stable dimension order. Dimensions never scored are omitted.
	LatestScores(ctx context.Context, siteID string) ([]entities.ControlScore, error)
	// ListScores returns score history matching the filter, newest first.
	ListScores(ctx context.Context, filter ScoreFilter) ([]entities.ControlScore, error)
	// PatchScore applies a partial update to a score row by id.
	PatchScore(ctx context.Context, id uint, patch entities.ControlScorePatch) error
	// SiteIDs returns the distinct site ids present in the score table.
	SiteIDs(ctx context.Context) ([]string, error)
}

// ScoreFilter controls score history queries.
type ScoreFilter struct {
	SiteID    string
	Dimension control.Dimension
	FromDate  string
	ToDate    string
	Limit     int
}
