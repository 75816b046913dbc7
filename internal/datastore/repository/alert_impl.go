package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore/entities"
	"gorm.io/gorm"
)

// alertRepository implements AlertRepository.
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new AlertRepository.
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

// CreateAlert inserts a new active alert from the creation shape.
func (r *alertRepository) CreateAlert(ctx context.Context, insert *entities.AlertInsert) (*entities.Alert, error) {
	alert := &entities.Alert{
		ID:             uuid.NewString(),
		SiteID:         insert.SiteID,
		Dimension:      insert.Dimension,
		Severity:       insert.Severity,
		Title:          insert.Title,
		Message:        insert.Message,
		SourceTable:    insert.SourceTable,
		SourceID:       insert.SourceID,
		Status:         control.AlertStatusActive,
		ActionRequired: insert.ActionRequired,
	}
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}
	return alert, nil
}

// GetAlert returns an alert by id.
func (r *alertRepository) GetAlert(ctx context.Context, id string) (*entities.Alert, error) {
	var alert entities.Alert
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert %s: %w", id, err)
	}
	return &alert, nil
}

// ListAlerts returns alerts matching the filter with pagination.
func (r *alertRepository) ListAlerts(ctx context.Context, filter AlertFilter) ([]entities.Alert, int64, error) {
	var alerts []entities.Alert
	var total int64

	base := r.db.WithContext(ctx).Model(&entities.Alert{})
	if filter.SiteID != "" {
		base = base.Where("site_id = ?", filter.SiteID)
	}
	if filter.Dimension != "" {
		base = base.Where("dimension = ?", filter.Dimension)
	}
	if filter.Status != nil {
		base = base.Where("status = ?", *filter.Status)
	}
	if filter.Severity != nil {
		base = base.Where("severity = ?", *filter.Severity)
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	query := base.Order("created_at DESC, id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Find(&alerts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, total, nil
}

// FindOpenAlert returns the active or acknowledged alert for the dedup key.
func (r *alertRepository) FindOpenAlert(ctx context.Context, siteID string, dimension control.Dimension, sourceTable, sourceID string) (*entities.Alert, error) {
	var alert entities.Alert
	err := r.db.WithContext(ctx).
		Where("site_id = ? AND dimension = ? AND source_table = ? AND source_id = ?",
			siteID, dimension, sourceTable, sourceID).
		Where("status IN ?", []control.AlertStatus{control.AlertStatusActive, control.AlertStatusAcknowledged}).
		Order("created_at DESC").
		First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open alert: %w", err)
	}
	return &alert, nil
}

// PatchAlert applies a partial update to an alert by id.
func (r *alertRepository) PatchAlert(ctx context.Context, id string, patch entities.AlertPatch) error {
	updates := patchUpdates(patch)
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&entities.Alert{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to patch alert %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// TransitionAlert applies a patch only when the row is in an expected status.
func (r *alertRepository) TransitionAlert(ctx context.Context, id string, expected []control.AlertStatus, patch entities.AlertPatch) error {
	updates := patchUpdates(patch)
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&entities.Alert{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to transition alert %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing row from a status conflict.
		if _, err := r.GetAlert(ctx, id); err != nil {
			return err
		}
		return ErrAlertConflict
	}
	return nil
}

// patchUpdates converts the non-nil patch fields into a gorm updates map.
func patchUpdates(patch entities.AlertPatch) map[string]any {
	updates := map[string]any{}
	if patch.Severity != nil {
		updates["severity"] = *patch.Severity
	}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Message != nil {
		updates["message"] = *patch.Message
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.ActionRequired != nil {
		updates["action_required"] = *patch.ActionRequired
	}
	if patch.ActionTaken != nil {
		updates["action_taken"] = *patch.ActionTaken
	}
	if patch.AcknowledgedAt != nil {
		updates["acknowledged_at"] = *patch.AcknowledgedAt
	}
	if patch.AcknowledgedBy != nil {
		updates["acknowledged_by"] = *patch.AcknowledgedBy
	}
	if patch.ResolvedAt != nil {
		updates["resolved_at"] = *patch.ResolvedAt
	}
	if patch.ResolvedBy != nil {
		updates["resolved_by"] = *patch.ResolvedBy
	}
	return updates
}
