package ingest

import (
	"fmt"

	"github.com/site360/site360-go/internal/datastore/entities"
	"github.com/site360/site360-go/internal/logger"
)

// Ingestor converts domain records into observations using the declarative
// table mappings. It is stateless and safe for concurrent use.
type Ingestor struct {
	log logger.Logger
}

// NewIngestor creates a new Ingestor.
func NewIngestor(log logger.Logger) *Ingestor {
	return &Ingestor{log: log}
}

// Ingest converts one domain record into its observations. The record's
// fields are not mutated. Errors wrap ErrUnrecognizedSource or
// ErrMissingField and are non-fatal to the caller's batch.
func (in *Ingestor) Ingest(record *DomainRecord) ([]entities.Observation, error) {
	mappings, ok := sourceMappings[record.Table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedSource, record.Table)
	}
	if record.SiteID == "" {
		return nil, fmt.Errorf("%w: site_id", ErrMissingField)
	}
	if record.ID == "" {
		return nil, fmt.Errorf("%w: id", ErrMissingField)
	}

	observations := make([]entities.Observation, 0, len(mappings))
	for i := range mappings {
		mapping := &mappings[i]
		value, err := mapping.Extract(record.Fields, record.ObservedAt)
		if err != nil {
			return nil, fmt.Errorf("table %s record %s: %w", record.Table, record.ID, err)
		}
		observations = append(observations, entities.Observation{
			SiteID:      record.SiteID,
			Dimension:   mapping.Dimension,
			MetricKey:   mapping.MetricKey,
			Value:       value,
			Unit:        mapping.Unit,
			ObservedAt:  record.ObservedAt,
			SourceTable: record.Table,
			SourceID:    record.ID,
		})
	}
	return observations, nil
}

// Failure records one skipped record from a batch, for caller audit.
type Failure struct {
	Table    string
	SourceID string
	Err      error
}

// IngestBatch converts records, skipping and collecting per-record failures.
// A failing record never aborts the remainder of the batch.
func (in *Ingestor) IngestBatch(records []DomainRecord) ([]entities.Observation, []Failure) {
	var observations []entities.Observation
	var failures []Failure

	for i := range records {
		record := &records[i]
		obs, err := in.Ingest(record)
		if err != nil {
			failures = append(failures, Failure{Table: record.Table, SourceID: record.ID, Err: err})
			in.log.Warn("skipped domain record",
				logger.String("table", record.Table),
				logger.String("source_id", record.ID),
				logger.Error(err))
			continue
		}
		observations = append(observations, obs...)
	}
	return observations, failures
}
