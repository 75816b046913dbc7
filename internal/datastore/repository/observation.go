package repository

import (
	"context"
	"time"

	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore/entities"
)

// ObservationRepository persists ingested observations. Observations are
// immutable, so the interface offers no update operations.
type ObservationRepository interface {
	// SaveObservations inserts observations in batches and returns the count saved.
	SaveObservations(ctx context.Context, observations []entities.Observation) (int, error)
	// ListObservations returns observations matching the filter, oldest first.
	ListObservations(ctx context.Context, filter ObservationFilter) ([]entities.Observation, error)
	// DeleteObservationsBefore deletes observations observed before the given
	// time, returning the number deleted. Used by retention cleanup.
	DeleteObservationsBefore(ctx context.Context, before time.Time) (int64, error)
	// SiteIDs returns the distinct site ids present in the observation table.
	SiteIDs(ctx context.Context) ([]string, error)
}

// ObservationFilter controls observation listing queries.
type ObservationFilter struct {
	SiteID    string
	Dimension control.Dimension
	MetricKey string
	From      time.Time
	To        time.Time
	Limit     int
}
