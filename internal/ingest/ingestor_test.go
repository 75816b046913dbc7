package ingest

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/logger"
)

func newTestIngestor() *Ingestor {
	return NewIngestor(logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil))
}

func record(table, id string, fields map[string]any) DomainRecord {
	return DomainRecord{
		Table:      table,
		ID:         id,
		SiteID:     "site-1",
		ObservedAt: time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
		Fields:     fields,
	}
}

func TestIngestMaterialUsage(t *testing.T) {
	t.Parallel()

	in := newTestIngestor()
	rec := record(control.TableMaterialUsage, "mu-1", map[string]any{
		"quantity":         115.0,
		"planned_quantity": 100.0,
	})

	obs, err := in.Ingest(&rec)
	require.NoError(t, err)
	require.Len(t, obs, 1)

	assert.Equal(t, "site-1", obs[0].SiteID)
	assert.Equal(t, control.DimensionMaterial, obs[0].Dimension)
	assert.Equal(t, control.MetricUsageVariancePct, obs[0].MetricKey)
	assert.InDelta(t, 15.0, obs[0].Value, 1e-9)
	assert.Equal(t, "%", obs[0].Unit)
	assert.Equal(t, control.TableMaterialUsage, obs[0].SourceTable)
	assert.Equal(t, "mu-1", obs[0].SourceID)
	assert.Equal(t, rec.ObservedAt, obs[0].ObservedAt)
}

func TestIngestMaterialUsageUnderConsumption(t *testing.T) {
	t.Parallel()

	rec := record(control.TableMaterialUsage, "mu-2", map[string]any{
		"quantity":         70.0,
		"planned_quantity": 100.0,
	})
	obs, err := newTestIngestor().Ingest(&rec)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.InDelta(t, -30.0, obs[0].Value, 1e-9, "under-consumption stays signed")
}

func TestIngestMaterialUsageRejectsNonPositivePlan(t *testing.T) {
	t.Parallel()

	rec := record(control.TableMaterialUsage, "mu-3", map[string]any{
		"quantity":         10.0,
		"planned_quantity": 0.0,
	})
	_, err := newTestIngestor().Ingest(&rec)
	require.ErrorIs(t, err, ErrMissingField)
}

func TestIngestUnrecognizedTable(t *testing.T) {
	t.Parallel()

	rec := record("weather_observations", "w-1", nil)
	_, err := newTestIngestor().Ingest(&rec)
	require.ErrorIs(t, err, ErrUnrecognizedSource)
}

func TestIngestRequiresIdentity(t *testing.T) {
	t.Parallel()

	in := newTestIngestor()

	noSite := record(control.TableDefects, "d-1", map[string]any{"severity": "low"})
	noSite.SiteID = ""
	_, err := in.Ingest(&noSite)
	require.ErrorIs(t, err, ErrMissingField)

	noID := record(control.TableDefects, "", map[string]any{"severity": "low"})
	_, err = in.Ingest(&noID)
	require.ErrorIs(t, err, ErrMissingField)
}

func TestIngestSafetyIncident(t *testing.T) {
	t.Parallel()

	rec := record(control.TableSafetyIncidents, "si-1", map[string]any{
		"severity":       "high",
		"injuries_count": 2.0,
	})
	obs, err := newTestIngestor().Ingest(&rec)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, control.DimensionSafety, obs[0].Dimension)
	assert.InDelta(t, 50.0, obs[0].Value, 1e-9, "40 severity points plus 5 per injury")
}

func TestIngestSafetyIncidentUnknownSeverity(t *testing.T) {
	t.Parallel()

	rec := record(control.TableSafetyIncidents, "si-2", map[string]any{
		"severity": "catastrophic",
	})
	_, err := newTestIngestor().Ingest(&rec)
	require.ErrorIs(t, err, ErrMissingField)
}

func TestIngestMilestoneDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		fields map[string]any
		want   float64
	}{
		{
			name: "completed late",
			fields: map[string]any{
				"planned_date": "2026-03-01",
				"actual_date":  "2026-03-08",
			},
			want: 7,
		},
		{
			name: "completed early clamps to zero",
			fields: map[string]any{
				"planned_date": "2026-03-20",
				"actual_date":  "2026-03-18",
			},
			want: 0,
		},
		{
			name:   "open milestone measured against observation time",
			fields: map[string]any{"planned_date": "2026-03-04"},
			want:   10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := record(control.TableMilestones, "m-1", tt.fields)
			obs, err := newTestIngestor().Ingest(&rec)
			require.NoError(t, err)
			require.Len(t, obs, 1)
			assert.Equal(t, control.MetricMilestoneDelayDays, obs[0].MetricKey)
			assert.InDelta(t, tt.want, obs[0].Value, 1e-9)
		})
	}
}

func TestIngestResolvedDefectIsClean(t *testing.T) {
	t.Parallel()

	rec := record(control.TableDefects, "d-2", map[string]any{
		"severity": "critical",
		"status":   "resolved",
	})
	obs, err := newTestIngestor().Ingest(&rec)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Zero(t, obs[0].Value)
}

func TestIngestSubcontractorRatingShortfall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rating float64
		want   float64
	}{
		{5, 0},
		{3, 50},
		{1, 100},
		{0, 100}, // clamped to the 1-5 scale
		{9, 0},   // clamped
	}
	for _, tt := range tests {
		rec := record(control.TableSubcontractorPerformance, "sp-1", map[string]any{
			"overall_rating": tt.rating,
		})
		obs, err := newTestIngestor().Ingest(&rec)
		require.NoError(t, err)
		require.Len(t, obs, 1)
		assert.InDelta(t, tt.want, obs[0].Value, 1e-9, "rating %v", tt.rating)
	}
}

func TestIngestNumericCoercion(t *testing.T) {
	t.Parallel()

	// Fields arriving from JSON decoding or manual construction carry mixed
	// numeric types; all must coerce.
	rec := record(control.TableProgressLogs, "pl-1", map[string]any{
		"planned_progress": 60,
		"actual_progress":  "45.5",
	})
	obs, err := newTestIngestor().Ingest(&rec)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.InDelta(t, 14.5, obs[0].Value, 1e-9)
}

func TestIngestHazardousWasteEscalatedPenalty(t *testing.T) {
	t.Parallel()

	rec := record(control.TableWasteLogs, "wl-1", map[string]any{
		"properly_disposed": false,
		"waste_type":        "hazardous",
	})
	obs, err := newTestIngestor().Ingest(&rec)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.InDelta(t, 75.0, obs[0].Value, 1e-9)
}

func TestIngestExpiredDocument(t *testing.T) {
	t.Parallel()

	in := newTestIngestor()

	expired := record(control.TableDocuments, "doc-1", map[string]any{
		"expiry_date": "2026-01-01",
	})
	obs, err := in.Ingest(&expired)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.InDelta(t, 20.0, obs[0].Value, 1e-9)

	perpetual := record(control.TableDocuments, "doc-2", map[string]any{})
	obs, err = in.Ingest(&perpetual)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Zero(t, obs[0].Value, "documents without expiry never penalize")
}

func TestIngestBatchSkipsFailures(t *testing.T) {
	t.Parallel()

	records := []DomainRecord{
		record(control.TableMaterialUsage, "mu-1", map[string]any{
			"quantity": 110.0, "planned_quantity": 100.0,
		}),
		record("unknown_table", "x-1", nil),
		record(control.TableDefects, "d-3", map[string]any{
			"severity": "medium",
		}),
		record(control.TableSafetyIncidents, "si-3", nil), // missing severity
	}

	obs, failures := newTestIngestor().IngestBatch(records)
	assert.Len(t, obs, 2)
	require.Len(t, failures, 2)

	assert.Equal(t, "unknown_table", failures[0].Table)
	assert.ErrorIs(t, failures[0].Err, ErrUnrecognizedSource)
	assert.Equal(t, control.TableSafetyIncidents, failures[1].Table)
	assert.ErrorIs(t, failures[1].Err, ErrMissingField)
}

func TestMappedTablesAreKnownSources(t *testing.T) {
	t.Parallel()

	tables := MappedTables()
	assert.Len(t, tables, 22)
	for _, table := range tables {
		assert.True(t, control.KnownSourceTable(table), "mapped table %q not a known source", table)
	}
}
