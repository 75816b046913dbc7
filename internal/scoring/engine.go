package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/site360/site360-go/internal/conf"
	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore/entities"
)

const (
	maxScore = 100.0
	minScore = 0.0
)

// Engine computes control scores from observation sets. It is stateless
// apart from its profile configuration and safe for concurrent use.
type Engine struct {
	profiles     map[control.Dimension]Profile
	calculatedBy string
}

// NewEngine builds an engine from the default profiles with the settings'
// weight overrides applied. It fails at construction time when the
// configuration references an unknown dimension or metric, or when a
// dimension has no profile; a partially configured engine would silently
// skip observations.
func NewEngine(settings *conf.ScoringSettings) (*Engine, error) {
	profiles := DefaultProfiles()

	for dim, metrics := range settings.WeightOverrides {
		profile, ok := profiles[control.Dimension(dim)]
		if !ok {
			return nil, fmt.Errorf("weight override for unknown dimension %q", dim)
		}
		if profile.Composite {
			return nil, fmt.Errorf("dimension %q is composite and has no metric weights", dim)
		}
		for metric, weight := range metrics {
			rule, ok := profile.Metrics[metric]
			if !ok {
				return nil, fmt.Errorf("weight override for unknown metric %q in dimension %q", metric, dim)
			}
			if weight < 0 {
				return nil, fmt.Errorf("negative weight %v for metric %q in dimension %q", weight, metric, dim)
			}
			rule.Weight = weight
			profile.Metrics[metric] = rule
		}
	}

	for _, dim := range control.Dimensions() {
		profile, ok := profiles[dim]
		if !ok {
			return nil, fmt.Errorf("no scoring profile for dimension %q", dim)
		}
		if !profile.Composite && len(profile.Metrics) == 0 {
			return nil, fmt.Errorf("scoring profile for dimension %q has no metrics", dim)
		}
	}

	calculatedBy := settings.CalculatedBy
	if calculatedBy == "" {
		calculatedBy = control.SystemActor
	}

	return &Engine{profiles: profiles, calculatedBy: calculatedBy}, nil
}

// ScoreInput is one scoring request: all observations of one dimension at
// one site for one day, plus the previous score for trend derivation.
type ScoreInput struct {
	SiteID       string
	Dimension    control.Dimension
	Date         string
	Observations []entities.Observation
	// Prior is the most recent score before Date, nil when none exists.
	Prior        *float64
	CalculatedAt time.Time
}

// ComputeScore aggregates the input's observations into a score record.
// The second return is false when the input holds no scoreable
// observations; no record is produced then, distinguishing "no data" from
// a perfect score.
func (e *Engine) ComputeScore(input ScoreInput) (*entities.ControlScore, bool) {
	profile := e.profiles[input.Dimension]
	if profile.Composite {
		return nil, false
	}

	grouped := make(map[string][]float64)
	for _, obs := range input.Observations {
		if _, ok := profile.Metrics[obs.MetricKey]; !ok {
			continue
		}
		grouped[obs.MetricKey] = append(grouped[obs.MetricKey], obs.Value)
	}
	if len(grouped) == 0 {
		return nil, false
	}

	factors := make(entities.FactorMap, len(grouped))
	score := maxScore
	for metric, values := range grouped {
		rule := profile.Metrics[metric]
		raw := aggregate(rule.Aggregation, values)
		effective := raw
		if rule.Absolute {
			effective = math.Abs(raw)
		}
		contribution := -effective * rule.Weight
		factors[metric] = entities.Factor{Value: raw, Contribution: contribution}
		score += contribution
	}
	score = clamp(score)

	return &entities.ControlScore{
		SiteID:          input.SiteID,
		Dimension:       input.Dimension,
		Date:            input.Date,
		Score:           score,
		Factors:         factors,
		Trend:           trendFor(input.Prior, score),
		Recommendations: recommendationFor(input.Dimension, score, factors),
		CalculatedAt:    input.CalculatedAt,
		CalculatedBy:    e.calculatedBy,
	}, true
}

// CompositeInput feeds the overall_management score: the other dimensions'
// scores for the same site and day.
type CompositeInput struct {
	SiteID       string
	Date         string
	Scores       []entities.ControlScore
	Prior        *float64
	CalculatedAt time.Time
}

// ComputeComposite averages the given dimension scores into the
// overall_management record. Dimensions without a score for the day are
// absent from the input and simply carry no weight; an empty input yields
// no record.
func (e *Engine) ComputeComposite(input CompositeInput) (*entities.ControlScore, bool) {
	if len(input.Scores) == 0 {
		return nil, false
	}

	factors := make(entities.FactorMap, len(input.Scores))
	total := 0.0
	n := float64(len(input.Scores))
	for _, s := range input.Scores {
		if s.Dimension == control.DimensionOverallManagement {
			continue
		}
		total += s.Score
		factors[string(s.Dimension)] = entities.Factor{Value: s.Score, Contribution: s.Score / n}
	}
	if len(factors) == 0 {
		return nil, false
	}
	score := clamp(total / float64(len(factors)))

	return &entities.ControlScore{
		SiteID:          input.SiteID,
		Dimension:       control.DimensionOverallManagement,
		Date:            input.Date,
		Score:           score,
		Factors:         factors,
		Trend:           trendFor(input.Prior, score),
		Recommendations: recommendationFor(control.DimensionOverallManagement, score, factors),
		CalculatedAt:    input.CalculatedAt,
		CalculatedBy:    e.calculatedBy,
	}, true
}

func aggregate(agg Aggregation, values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	if agg == AggregationMean && len(values) > 0 {
		return sum / float64(len(values))
	}
	return sum
}

func clamp(score float64) float64 {
	return math.Min(maxScore, math.Max(minScore, score))
}

func trendFor(prior *float64, score float64) control.Trend {
	switch {
	case prior == nil:
		return control.TrendFlat
	case score > *prior:
		return control.TrendUp
	case score < *prior:
		return control.TrendDown
	default:
		return control.TrendFlat
	}
}

// recommendationFor names the worst contributor when the score warrants
// attention. Scores of 70 and above carry no recommendation.
func recommendationFor(dim control.Dimension, score float64, factors entities.FactorMap) string {
	if score >= 70 {
		return ""
	}

	worst := ""
	worstContribution := 0.0
	keys := make([]string, 0, len(factors))
	for k := range factors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if f := factors[k]; f.Contribution < worstContribution {
			worst = k
			worstContribution = f.Contribution
		}
	}
	if worst == "" {
		return ""
	}
	return fmt.Sprintf("Review %s controls: %s is the largest detractor (%.1f points)", dim, worst, -worstContribution)
}
