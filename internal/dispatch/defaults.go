package dispatch

import (
	"fmt"
	"strings"

	"github.com/site360/site360-go/internal/control"
)

// Score thresholds for the built-in per-dimension rules.
const (
	defaultScoreWarnBound     = 50
	defaultScoreCriticalBound = 25
)

// DefaultRules returns the built-in threshold rules. They are active unless
// disabled in settings, and settings-file rules are appended to them.
func DefaultRules() []control.ThresholdRule {
	rules := []control.ThresholdRule{
		{
			Name:           "material-usage-overrun",
			Dimension:      control.DimensionMaterial,
			MetricKey:      control.MetricUsageVariancePct,
			Operator:       control.OperatorGreaterThan,
			Bound:          25,
			Severity:       control.SeverityMedium,
			Title:          "Material usage exceeds plan",
			Message:        "Material usage variance is {{value}}%, above the {{bound}}% threshold",
			ActionRequired: "Verify quantities on site and check for waste or theft",
		},
		{
			Name:           "material-usage-undershoot",
			Dimension:      control.DimensionMaterial,
			MetricKey:      control.MetricUsageVariancePct,
			Operator:       control.OperatorLessThan,
			Bound:          -25,
			Severity:       control.SeverityMedium,
			Title:          "Material usage far below plan",
			Message:        "Material usage variance is {{value}}%, below the {{bound}}% threshold",
			ActionRequired: "Check whether work is behind plan or records are missing",
		},
		{
			Name:           "serious-safety-incident",
			Dimension:      control.DimensionSafety,
			MetricKey:      control.MetricIncidentPenalty,
			Operator:       control.OperatorGreaterOrEqual,
			Bound:          40,
			Severity:       control.SeverityCritical,
			Title:          "Serious safety incident reported",
			Message:        "A high-severity safety incident was recorded (penalty {{value}})",
			ActionRequired: "Stop affected work and start the incident investigation",
		},
		{
			Name:           "milestone-slipping",
			Dimension:      control.DimensionSchedule,
			MetricKey:      control.MetricMilestoneDelayDays,
			Operator:       control.OperatorGreaterThan,
			Bound:          7,
			Severity:       control.SeverityHigh,
			Title:          "Milestone more than a week late",
			Message:        "Milestone is {{value}} days past its planned date",
			ActionRequired: "Review the schedule and re-baseline downstream milestones",
		},
		{
			Name:           "permit-at-risk",
			Dimension:      control.DimensionRegulatory,
			MetricKey:      control.MetricPermitRiskPenalty,
			Operator:       control.OperatorGreaterOrEqual,
			Bound:          50,
			Severity:       control.SeverityHigh,
			Title:          "Permit expired or revoked",
			Message:        "A permit is no longer valid (risk penalty {{value}})",
			ActionRequired: "Halt the permitted work until the permit is reinstated",
		},
		{
			Name:           "critical-defect",
			Dimension:      control.DimensionQuality,
			MetricKey:      control.MetricDefectPenalty,
			Operator:       control.OperatorGreaterOrEqual,
			Bound:          40,
			Severity:       control.SeverityHigh,
			Title:          "Critical defect open",
			Message:        "A critical defect is open (penalty {{value}})",
			ActionRequired: "Schedule rework and re-inspection",
		},
		{
			Name:           "inventory-shrinkage",
			Dimension:      control.DimensionLossPrevention,
			MetricKey:      control.MetricInventoryVariancePct,
			Operator:       control.OperatorLessThan,
			Bound:          -10,
			Severity:       control.SeverityHigh,
			Title:          "Inventory shrinkage detected",
			Message:        "Inventory variance is {{value}}%, indicating possible loss",
			ActionRequired: "Run a stock count and review site access logs",
		},
	}

	for _, dim := range control.Dimensions() {
		label := strings.ReplaceAll(string(dim), "_", " ")
		rules = append(rules,
			control.ThresholdRule{
				Name:           fmt.Sprintf("%s-score-low", dim),
				Dimension:      dim,
				MetricKey:      control.MetricScore,
				Operator:       control.OperatorLessThan,
				Bound:          defaultScoreWarnBound,
				Severity:       control.SeverityHigh,
				Title:          fmt.Sprintf("Low %s score", label),
				Message:        fmt.Sprintf("The %s control score dropped to {{value}}, below {{bound}}", label),
				ActionRequired: fmt.Sprintf("Review the %s factors behind today's score", label),
			},
			control.ThresholdRule{
				Name:           fmt.Sprintf("%s-score-critical", dim),
				Dimension:      dim,
				MetricKey:      control.MetricScore,
				Operator:       control.OperatorLessThan,
				Bound:          defaultScoreCriticalBound,
				Severity:       control.SeverityCritical,
				Title:          fmt.Sprintf("Critical %s score", label),
				Message:        fmt.Sprintf("The %s control score dropped to {{value}}, below {{bound}}", label),
				ActionRequired: fmt.Sprintf("Escalate %s issues to site management today", label),
			},
		)
	}

	return rules
}

// ActiveRules merges the built-in rules with the configured extras,
// honoring the disable flag for the defaults.
func ActiveRules(configured []control.ThresholdRule, disableDefaults bool) []control.ThresholdRule {
	var rules []control.ThresholdRule
	if !disableDefaults {
		rules = DefaultRules()
	}
	return append(rules, configured...)
}
