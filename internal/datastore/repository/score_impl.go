package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// controlScoreRepository implements ControlScoreRepository.
type controlScoreRepository struct {
	db *gorm.DB
}

// NewControlScoreRepository creates a new ControlScoreRepository.
func NewControlScoreRepository(db *gorm.DB) ControlScoreRepository {
	return &controlScoreRepository{db: db}
}

// UpsertScore inserts or replaces the row for the score's natural key.
func (r *controlScoreRepository) UpsertScore(ctx context.Context, score *entities.ControlScore) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "site_id"}, {Name: "dimension"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"score", "factors", "trend", "recommendations", "calculated_at", "calculated_by",
			}),
		}).
		Create(score).Error
	if err != nil {
		return fmt.Errorf("failed to upsert control score: %w", err)
	}
	return nil
}

// GetScore returns the score for an exact natural key.
func (r *controlScoreRepository) GetScore(ctx context.Context, siteID string, dimension control.Dimension, date string) (*entities.ControlScore, error) {
	var score entities.ControlScore
	err := r.db.WithContext(ctx).
		Where("site_id = ? AND dimension = ? AND date = ?", siteID, dimension, date).
		First(&score).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrScoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get control score: %w", err)
	}
	return &score, nil
}

// LatestScore returns the most recent score for (site, dimension).
func (r *controlScoreRepository) LatestScore(ctx context.Context, siteID string, dimension control.Dimension) (*entities.ControlScore, error) {
	var score entities.ControlScore
	err := r.db.WithContext(ctx).
		Where("site_id = ? AND dimension = ?", siteID, dimension).
		Order("date DESC").
		First(&score).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrScoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest control score: %w", err)
	}
	return &score, nil
}

// LatestScoreBefore returns the most recent score strictly before date.
func (r *controlScoreRepository) LatestScoreBefore(ctx context.Context, siteID string, dimension control.Dimension, date string) (*entities.ControlScore, error) {
	var score entities.ControlScore
	err := r.db.WithContext(ctx).
		Where("site_id = ? AND dimension = ? AND date < ?", siteID, dimension, date).
		Order("date DESC").
		First(&score).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrScoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prior control score: %w", err)
	}
	return &score, nil
}

// LatestScores returns the latest score per dimension for a site.
// Iterates dimensions individually; fourteen point lookups on an indexed
// key keep this dialect-portable between SQLite and MySQL.
func (r *controlScoreRepository) LatestScores(ctx context.Context, siteID string) ([]entities.ControlScore, error) {
	var scores []entities.ControlScore
	for _, dimension := range control.Dimensions() {
		score, err := r.LatestScore(ctx, siteID, dimension)
		if errors.Is(err, ErrScoreNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		scores = append(scores, *score)
	}
	return scores, nil
}

// ListScores returns score history matching the filter, newest first.
func (r *controlScoreRepository) ListScores(ctx context.Context, filter ScoreFilter) ([]entities.ControlScore, error) {
	var scores []entities.ControlScore
	query := r.db.WithContext(ctx).Model(&entities.ControlScore{})

	if filter.SiteID != "" {
		query = query.Where("site_id = ?", filter.SiteID)
	}
	if filter.Dimension != "" {
		query = query.Where("dimension = ?", filter.Dimension)
	}
	if filter.FromDate != "" {
		query = query.Where("date >= ?", filter.FromDate)
	}
	if filter.ToDate != "" {
		query = query.Where("date <= ?", filter.ToDate)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("date DESC, dimension ASC").Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("failed to list control scores: %w", err)
	}
	return scores, nil
}

// PatchScore applies a partial update to a score row by id.
func (r *controlScoreRepository) PatchScore(ctx context.Context, id uint, patch entities.ControlScorePatch) error {
	updates := map[string]any{}
	if patch.Score != nil {
		updates["score"] = *patch.Score
	}
	if patch.Factors != nil {
		updates["factors"] = *patch.Factors
	}
	if patch.Trend != nil {
		updates["trend"] = *patch.Trend
	}
	if patch.Recommendations != nil {
		updates["recommendations"] = *patch.Recommendations
	}
	if patch.CalculatedAt != nil {
		updates["calculated_at"] = *patch.CalculatedAt
	}
	if patch.CalculatedBy != nil {
		updates["calculated_by"] = *patch.CalculatedBy
	}
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&entities.ControlScore{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to patch control score %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrScoreNotFound
	}
	return nil
}

// SiteIDs returns the distinct site ids present in the score table.
func (r *controlScoreRepository) SiteIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entities.ControlScore{}).
		Distinct("site_id").
		Order("site_id ASC").
		Pluck("site_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list site ids: %w", err)
	}
	return ids, nil
}
