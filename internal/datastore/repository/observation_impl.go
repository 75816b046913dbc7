package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/site360/site360-go/internal/datastore/entities"
	"gorm.io/gorm"
)

// observationBatchSize bounds the rows per INSERT when saving observations.
const observationBatchSize = 500

// observationRepository implements ObservationRepository.
type observationRepository struct {
	db *gorm.DB
}

// NewObservationRepository creates a new ObservationRepository.
func NewObservationRepository(db *gorm.DB) ObservationRepository {
	return &observationRepository{db: db}
}

// SaveObservations inserts observations in batches.
func (r *observationRepository) SaveObservations(ctx context.Context, observations []entities.Observation) (int, error) {
	if len(observations) == 0 {
		return 0, nil
	}

	var saved int
	for i := 0; i < len(observations); i += observationBatchSize {
		end := min(i+observationBatchSize, len(observations))
		batch := observations[i:end]

		if err := r.db.WithContext(ctx).Create(&batch).Error; err != nil {
			return saved, fmt.Errorf("failed to save observations: %w", err)
		}
		saved += len(batch)
	}
	return saved, nil
}

// ListObservations returns observations matching the filter, oldest first.
func (r *observationRepository) ListObservations(ctx context.Context, filter ObservationFilter) ([]entities.Observation, error) {
	var observations []entities.Observation
	query := r.db.WithContext(ctx).Model(&entities.Observation{})

	if filter.SiteID != "" {
		query = query.Where("site_id = ?", filter.SiteID)
	}
	if filter.Dimension != "" {
		query = query.Where("dimension = ?", filter.Dimension)
	}
	if filter.MetricKey != "" {
		query = query.Where("metric_key = ?", filter.MetricKey)
	}
	if !filter.From.IsZero() {
		query = query.Where("observed_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("observed_at < ?", filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("observed_at ASC, id ASC").Find(&observations).Error; err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	return observations, nil
}

// DeleteObservationsBefore deletes observations older than the given time.
func (r *observationRepository) DeleteObservationsBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("observed_at < ?", before).Delete(&entities.Observation{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete observations before %v: %w", before, result.Error)
	}
	return result.RowsAffected, nil
}

// SiteIDs returns the distinct site ids present in the observation table.
func (r *observationRepository) SiteIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entities.Observation{}).
		Distinct("site_id").Order("site_id ASC").Pluck("site_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list observation site ids: %w", err)
	}
	return ids, nil
}
