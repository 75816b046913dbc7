package repository

import (
	"context"

	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore/entities"
)

// AlertRepository persists alerts and their lifecycle transitions.
type AlertRepository interface {
	// CreateAlert inserts a new alert from the creation shape, filling in
	// the server-assigned id and status, and returns the stored row.
	CreateAlert(ctx context.Context, insert *entities.AlertInsert) (*entities.Alert, error)
	// GetAlert returns an alert by id. Returns ErrAlertNotFound if absent.
	GetAlert(ctx context.Context, id string) (*entities.Alert, error)
	// ListAlerts returns alerts matching the filter, newest first, plus the
	// total count before pagination.
	ListAlerts(ctx context.Context, filter AlertFilter) ([]entities.Alert, int64, error)
	// FindOpenAlert returns the single active or acknowledged alert for the
	// dedup key, or ErrAlertNotFound when the condition has no open alert.
	FindOpenAlert(ctx context.Context, siteID string, dimension control.Dimension, sourceTable, sourceID string) (*entities.Alert, error)
	// PatchAlert applies a partial update to an alert by id.
	PatchAlert(ctx context.Context, id string, patch entities.AlertPatch) error
	// TransitionAlert applies a patch only if the alert is currently in one
	// of the expected statuses (compare-and-set). Returns ErrAlertConflict
	// when the row exists but the status check failed.
	TransitionAlert(ctx context.Context, id string, expected []control.AlertStatus, patch entities.AlertPatch) error
}

// AlertFilter controls alert listing queries.
type AlertFilter struct {
	SiteID    string
	Dimension control.Dimension
	Status    *control.AlertStatus
	Severity  *control.Severity
	Limit     int
	Offset    int
}
