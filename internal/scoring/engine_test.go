package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site360/site360-go/internal/conf"
	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore/entities"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(&conf.ScoringSettings{CalculatedBy: control.SystemActor})
	require.NoError(t, err)
	return engine
}

func obs(dim control.Dimension, metric string, value float64) entities.Observation {
	return entities.Observation{
		SiteID:      "site-1",
		Dimension:   dim,
		MetricKey:   metric,
		Value:       value,
		ObservedAt:  time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		SourceTable: "material_usage",
		SourceID:    "rec-1",
	}
}

func TestNewEngineValidatesOverrides(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]map[string]float64
		wantErr   string
	}{
		{
			name:      "unknown dimension",
			overrides: map[string]map[string]float64{"bogus": {control.MetricUsageVariancePct: 2.0}},
			wantErr:   "unknown dimension",
		},
		{
			name:      "unknown metric",
			overrides: map[string]map[string]float64{string(control.DimensionMaterial): {"bogus_metric": 2.0}},
			wantErr:   "unknown metric",
		},
		{
			name:      "composite dimension",
			overrides: map[string]map[string]float64{string(control.DimensionOverallManagement): {control.MetricScore: 1.0}},
			wantErr:   "composite",
		},
		{
			name:      "negative weight",
			overrides: map[string]map[string]float64{string(control.DimensionMaterial): {control.MetricUsageVariancePct: -1}},
			wantErr:   "negative weight",
		},
		{
			name:      "valid override",
			overrides: map[string]map[string]float64{string(control.DimensionMaterial): {control.MetricUsageVariancePct: 0.5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(&conf.ScoringSettings{WeightOverrides: tt.overrides})
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestComputeScoreMaterialVariance(t *testing.T) {
	engine := newTestEngine(t)

	// 115 units used against 100 planned is a 15% overrun: score 85.
	score, ok := engine.ComputeScore(ScoreInput{
		SiteID:       "site-1",
		Dimension:    control.DimensionMaterial,
		Date:         "2026-03-10",
		Observations: []entities.Observation{obs(control.DimensionMaterial, control.MetricUsageVariancePct, 15)},
		CalculatedAt: time.Now(),
	})
	require.True(t, ok)
	assert.InDelta(t, 85.0, score.Score, 0.001)
	assert.Equal(t, control.TrendFlat, score.Trend)
	assert.Equal(t, control.SystemActor, score.CalculatedBy)

	factor, found := score.Factors[control.MetricUsageVariancePct]
	require.True(t, found)
	assert.InDelta(t, 15.0, factor.Value, 0.001)
	assert.InDelta(t, -15.0, factor.Contribution, 0.001)

	// A 30% overrun drops the score to 70.
	score, ok = engine.ComputeScore(ScoreInput{
		SiteID:       "site-1",
		Dimension:    control.DimensionMaterial,
		Date:         "2026-03-10",
		Observations: []entities.Observation{obs(control.DimensionMaterial, control.MetricUsageVariancePct, 30)},
		CalculatedAt: time.Now(),
	})
	require.True(t, ok)
	assert.InDelta(t, 70.0, score.Score, 0.001)
}

func TestComputeScoreAbsoluteVariance(t *testing.T) {
	engine := newTestEngine(t)

	// Undershoot is as bad as overshoot; the raw signed value survives in
	// the factor for auditing.
	score, ok := engine.ComputeScore(ScoreInput{
		SiteID:       "site-1",
		Dimension:    control.DimensionMaterial,
		Date:         "2026-03-10",
		Observations: []entities.Observation{obs(control.DimensionMaterial, control.MetricUsageVariancePct, -20)},
		CalculatedAt: time.Now(),
	})
	require.True(t, ok)
	assert.InDelta(t, 80.0, score.Score, 0.001)
	assert.InDelta(t, -20.0, score.Factors[control.MetricUsageVariancePct].Value, 0.001)
}

func TestComputeScoreMeanAggregation(t *testing.T) {
	engine := newTestEngine(t)

	score, ok := engine.ComputeScore(ScoreInput{
		SiteID:    "site-1",
		Dimension: control.DimensionMaterial,
		Date:      "2026-03-10",
		Observations: []entities.Observation{
			obs(control.DimensionMaterial, control.MetricUsageVariancePct, 10),
			obs(control.DimensionMaterial, control.MetricUsageVariancePct, 20),
		},
		CalculatedAt: time.Now(),
	})
	require.True(t, ok)
	assert.InDelta(t, 85.0, score.Score, 0.001)
}

func TestComputeScoreSumAggregation(t *testing.T) {
	engine := newTestEngine(t)

	// Safety incidents accumulate: two incidents cost their combined
	// penalties.
	score, ok := engine.ComputeScore(ScoreInput{
		SiteID:    "site-1",
		Dimension: control.DimensionSafety,
		Date:      "2026-03-10",
		Observations: []entities.Observation{
			obs(control.DimensionSafety, control.MetricIncidentPenalty, 20),
			obs(control.DimensionSafety, control.MetricIncidentPenalty, 10),
			obs(control.DimensionSafety, control.MetricNearMissPenalty, 5),
		},
		CalculatedAt: time.Now(),
	})
	require.True(t, ok)
	assert.InDelta(t, 65.0, score.Score, 0.001)
}

func TestComputeScoreClampsToBounds(t *testing.T) {
	engine := newTestEngine(t)

	score, ok := engine.ComputeScore(ScoreInput{
		SiteID:    "site-1",
		Dimension: control.DimensionSafety,
		Date:      "2026-03-10",
		Observations: []entities.Observation{
			obs(control.DimensionSafety, control.MetricIncidentPenalty, 500),
		},
		CalculatedAt: time.Now(),
	})
	require.True(t, ok)
	assert.Equal(t, 0.0, score.Score)
}

func TestComputeScoreNoObservations(t *testing.T) {
	engine := newTestEngine(t)

	// No data is not a perfect score: no record at all.
	_, ok := engine.ComputeScore(ScoreInput{
		SiteID:       "site-1",
		Dimension:    control.DimensionMaterial,
		Date:         "2026-03-10",
		CalculatedAt: time.Now(),
	})
	assert.False(t, ok)
}

func TestComputeScoreIgnoresForeignMetrics(t *testing.T) {
	engine := newTestEngine(t)

	// An observation whose metric does not belong to the dimension's
	// profile carries no weight; on its own it produces no record.
	_, ok := engine.ComputeScore(ScoreInput{
		SiteID:       "site-1",
		Dimension:    control.DimensionMaterial,
		Date:         "2026-03-10",
		Observations: []entities.Observation{obs(control.DimensionMaterial, control.MetricIncidentPenalty, 40)},
		CalculatedAt: time.Now(),
	})
	assert.False(t, ok)
}

func TestComputeScoreDeterministic(t *testing.T) {
	engine := newTestEngine(t)

	input := ScoreInput{
		SiteID:    "site-1",
		Dimension: control.DimensionSafety,
		Date:      "2026-03-10",
		Observations: []entities.Observation{
			obs(control.DimensionSafety, control.MetricIncidentPenalty, 20),
			obs(control.DimensionSafety, control.MetricNearMissPenalty, 5),
		},
		CalculatedAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	first, ok := engine.ComputeScore(input)
	require.True(t, ok)
	second, ok := engine.ComputeScore(input)
	require.True(t, ok)
	assert.Equal(t, first, second)

	firstJSON, err := first.Factors.Value()
	require.NoError(t, err)
	secondJSON, err := second.Factors.Value()
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

func TestTrendDerivation(t *testing.T) {
	engine := newTestEngine(t)
	prior := func(v float64) *float64 { return &v }

	tests := []struct {
		name  string
		prior *float64
		want  control.Trend
	}{
		{name: "no prior", prior: nil, want: control.TrendFlat},
		{name: "improved", prior: prior(60), want: control.TrendUp},
		{name: "declined", prior: prior(95), want: control.TrendDown},
		{name: "unchanged", prior: prior(85), want: control.TrendFlat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, ok := engine.ComputeScore(ScoreInput{
				SiteID:       "site-1",
				Dimension:    control.DimensionMaterial,
				Date:         "2026-03-10",
				Observations: []entities.Observation{obs(control.DimensionMaterial, control.MetricUsageVariancePct, 15)},
				Prior:        tt.prior,
				CalculatedAt: time.Now(),
			})
			require.True(t, ok)
			assert.Equal(t, tt.want, score.Trend)
		})
	}
}

func TestComputeComposite(t *testing.T) {
	engine := newTestEngine(t)

	score, ok := engine.ComputeComposite(CompositeInput{
		SiteID: "site-1",
		Date:   "2026-03-10",
		Scores: []entities.ControlScore{
			{Dimension: control.DimensionMaterial, Score: 80},
			{Dimension: control.DimensionSafety, Score: 60},
		},
		CalculatedAt: time.Now(),
	})
	require.True(t, ok)
	assert.Equal(t, control.DimensionOverallManagement, score.Dimension)
	assert.InDelta(t, 70.0, score.Score, 0.001)
	assert.Len(t, score.Factors, 2)
	assert.InDelta(t, 80.0, score.Factors[string(control.DimensionMaterial)].Value, 0.001)
}

func TestComputeCompositeEmpty(t *testing.T) {
	engine := newTestEngine(t)

	_, ok := engine.ComputeComposite(CompositeInput{SiteID: "site-1", Date: "2026-03-10"})
	assert.False(t, ok)

	// A stale overall record in the input does not feed itself.
	_, ok = engine.ComputeComposite(CompositeInput{
		SiteID: "site-1",
		Date:   "2026-03-10",
		Scores: []entities.ControlScore{{Dimension: control.DimensionOverallManagement, Score: 50}},
	})
	assert.False(t, ok)
}

func TestRecommendationNamesWorstFactor(t *testing.T) {
	engine := newTestEngine(t)

	score, ok := engine.ComputeScore(ScoreInput{
		SiteID:    "site-1",
		Dimension: control.DimensionSafety,
		Date:      "2026-03-10",
		Observations: []entities.Observation{
			obs(control.DimensionSafety, control.MetricIncidentPenalty, 40),
			obs(control.DimensionSafety, control.MetricNearMissPenalty, 5),
		},
		CalculatedAt: time.Now(),
	})
	require.True(t, ok)
	assert.InDelta(t, 55.0, score.Score, 0.001)
	assert.Contains(t, score.Recommendations, control.MetricIncidentPenalty)

	// Healthy scores carry no recommendation.
	score, ok = engine.ComputeScore(ScoreInput{
		SiteID:       "site-1",
		Dimension:    control.DimensionSafety,
		Date:         "2026-03-10",
		Observations: []entities.Observation{obs(control.DimensionSafety, control.MetricNearMissPenalty, 2)},
		CalculatedAt: time.Now(),
	})
	require.True(t, ok)
	assert.Empty(t, score.Recommendations)
}

func TestWeightOverridesApplied(t *testing.T) {
	engine, err := NewEngine(&conf.ScoringSettings{
		WeightOverrides: map[string]map[string]float64{
			string(control.DimensionMaterial): {control.MetricUsageVariancePct: 2.0},
		},
	})
	require.NoError(t, err)

	score, ok := engine.ComputeScore(ScoreInput{
		SiteID:       "site-1",
		Dimension:    control.DimensionMaterial,
		Date:         "2026-03-10",
		Observations: []entities.Observation{obs(control.DimensionMaterial, control.MetricUsageVariancePct, 15)},
		CalculatedAt: time.Now(),
	})
	require.True(t, ok)
	assert.InDelta(t, 70.0, score.Score, 0.001)
}
