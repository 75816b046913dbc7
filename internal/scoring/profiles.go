// Package scoring computes bounded per-dimension control scores from
// observation sets.
package scoring

import (
	"github.com/site360/site360-go/internal/control"
)

// Aggregation selects how multiple observations of one metric collapse into
// a single value before weighting.
type Aggregation string

const (
	// AggregationSum adds observation values; used for event-style
	// penalties where every occurrence counts.
	AggregationSum Aggregation = "sum"
	// AggregationMean averages observation values; used for rate-style
	// metrics where the share of bad records matters, not the count.
	AggregationMean Aggregation = "mean"
)

// MetricRule weights one metric's aggregated value into the score.
type MetricRule struct {
	Weight      float64
	Aggregation Aggregation
	// Absolute applies the weight to |value|; used for signed variance
	// metrics where both over- and under-shoot are bad.
	Absolute bool
}

// Profile is the per-dimension aggregation configuration.
type Profile struct {
	Dimension control.Dimension
	Metrics   map[string]MetricRule
	// Composite marks a dimension computed from the other dimensions'
	// scores instead of raw observations (overall_management).
	Composite bool
}

// DefaultProfiles returns the built-in scoring configuration for all
// fourteen dimensions.
func DefaultProfiles() map[control.Dimension]Profile {
	return map[control.Dimension]Profile{
		control.DimensionPlanning: {
			Dimension: control.DimensionPlanning,
			Metrics: map[string]MetricRule{
				control.MetricPlanRevisionPenalty: {Weight: 1.0, Aggregation: AggregationSum},
				control.MetricStalePlanAccess:     {Weight: 0.3, Aggregation: AggregationMean},
			},
		},
		control.DimensionDesignChange: {
			Dimension: control.DimensionDesignChange,
			Metrics: map[string]MetricRule{
				control.MetricChangeImpactPenalty: {Weight: 1.0, Aggregation: AggregationSum},
			},
		},
		control.DimensionSchedule: {
			Dimension: control.DimensionSchedule,
			Metrics: map[string]MetricRule{
				control.MetricMilestoneDelayDays:   {Weight: 2.0, Aggregation: AggregationMean},
				control.MetricProgressShortfallPct: {Weight: 1.0, Aggregation: AggregationMean},
			},
		},
		control.DimensionMaterial: {
			Dimension: control.DimensionMaterial,
			Metrics: map[string]MetricRule{
				control.MetricUsageVariancePct: {Weight: 1.0, Aggregation: AggregationMean, Absolute: true},
			},
		},
		control.DimensionLossPrevention: {
			Dimension: control.DimensionLossPrevention,
			Metrics: map[string]MetricRule{
				control.MetricInventoryVariancePct: {Weight: 2.0, Aggregation: AggregationMean, Absolute: true},
			},
		},
		control.DimensionQuality: {
			Dimension: control.DimensionQuality,
			Metrics: map[string]MetricRule{
				control.MetricInspectionFailPenalty: {Weight: 0.5, Aggregation: AggregationMean},
				control.MetricDefectPenalty:         {Weight: 1.0, Aggregation: AggregationSum},
			},
		},
		control.DimensionSafety: {
			Dimension: control.DimensionSafety,
			Metrics: map[string]MetricRule{
				control.MetricIncidentPenalty: {Weight: 1.0, Aggregation: AggregationSum},
				control.MetricNearMissPenalty: {Weight: 1.0, Aggregation: AggregationSum},
			},
		},
		control.DimensionRegulatory: {
			Dimension: control.DimensionRegulatory,
			Metrics: map[string]MetricRule{
				control.MetricComplianceFailPenalty: {Weight: 0.6, Aggregation: AggregationMean},
				control.MetricPermitRiskPenalty:     {Weight: 1.0, Aggregation: AggregationSum},
			},
		},
		control.DimensionDocumentation: {
			Dimension: control.DimensionDocumentation,
			Metrics: map[string]MetricRule{
				control.MetricIncompleteLogPenalty:   {Weight: 0.5, Aggregation: AggregationMean},
				control.MetricExpiredDocumentPenalty: {Weight: 1.0, Aggregation: AggregationSum},
			},
		},
		control.DimensionSubcontractor: {
			Dimension: control.DimensionSubcontractor,
			Metrics: map[string]MetricRule{
				control.MetricPerformanceShortfall: {Weight: 1.0, Aggregation: AggregationMean},
			},
		},
		control.DimensionWorkforce: {
			Dimension: control.DimensionWorkforce,
			Metrics: map[string]MetricRule{
				control.MetricAttendanceShortfall:   {Weight: 0.7, Aggregation: AggregationMean},
				control.MetricProductivityShortfall: {Weight: 0.3, Aggregation: AggregationMean},
			},
		},
		control.DimensionEquipment: {
			Dimension: control.DimensionEquipment,
			Metrics: map[string]MetricRule{
				control.MetricConditionPenalty:   {Weight: 0.5, Aggregation: AggregationMean},
				control.MetricMaintenancePenalty: {Weight: 1.0, Aggregation: AggregationSum},
			},
		},
		control.DimensionSiteOrganization: {
			Dimension: control.DimensionSiteOrganization,
			Metrics: map[string]MetricRule{
				control.MetricSiteHazardPenalty:    {Weight: 1.0, Aggregation: AggregationSum},
				control.MetricWasteHandlingPenalty: {Weight: 0.5, Aggregation: AggregationMean},
			},
		},
		control.DimensionOverallManagement: {
			Dimension: control.DimensionOverallManagement,
			Composite: true,
		},
	}
}
