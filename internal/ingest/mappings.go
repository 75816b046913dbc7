package ingest

import (
	"fmt"
	"math"
	"time"

	"github.com/site360/site360-go/internal/control"
)

// fieldMapping declares how one source table contributes one metric: the
// target dimension, the metric key, and a value-extraction rule over the
// record's fields.
type fieldMapping struct {
	Dimension control.Dimension
	MetricKey string
	Unit      string
	Extract   func(fields map[string]any, observedAt time.Time) (float64, error)
}

// Severity-keyed penalty tables. Values are penalty points; 0 is clean.
var (
	defectPenalties = map[string]float64{
		"low": 5, "medium": 10, "high": 20, "critical": 40,
	}
	incidentPenalties = map[string]float64{
		"low": 10, "medium": 20, "high": 40, "critical": 60,
	}
	nearMissPenalties = map[string]float64{
		"low": 2, "medium": 5, "high": 8, "critical": 12,
	}
	changeImpactPenalties = map[string]float64{
		"low": 5, "medium": 15, "high": 30, "critical": 50,
	}
	hazardPenalties = map[string]float64{
		"low": 5, "medium": 15, "high": 30, "critical": 50,
	}
)

// severityPenalty resolves a severity-typed field against a penalty table.
func severityPenalty(fields map[string]any, key string, table map[string]float64) (float64, error) {
	severity, err := strField(fields, key)
	if err != nil {
		return 0, err
	}
	penalty, ok := table[severity]
	if !ok {
		return 0, fmt.Errorf("%w: %s (unknown severity %q)", ErrMissingField, key, severity)
	}
	return penalty, nil
}

// ratingShortfall converts a 1-5 rating into 0-100 penalty points.
func ratingShortfall(fields map[string]any, key string) (float64, error) {
	rating, err := numField(fields, key)
	if err != nil {
		return 0, err
	}
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	return (5 - rating) / 4 * 100, nil
}

// sourceMappings is the declarative ingestion policy: one entry per upstream
// table, each producing one or more dimension-tagged metrics. Values are not
// clamped here; raw variance may exceed 100 %.
var sourceMappings = map[string][]fieldMapping{
	control.TablePlans: {{
		Dimension: control.DimensionPlanning,
		MetricKey: control.MetricPlanRevisionPenalty,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			status, err := strField(fields, "status")
			if err != nil {
				return 0, err
			}
			switch status {
			case "rejected":
				return 30, nil
			case "requires_revision":
				return 15, nil
			case "pending":
				return 5, nil
			default:
				return 0, nil
			}
		},
	}},
	control.TablePlanUsageLogs: {{
		Dimension: control.DimensionPlanning,
		MetricKey: control.MetricStalePlanAccess,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			if _, err := strField(fields, "action"); err != nil {
				return 0, err
			}
			if boolField(fields, "superseded", false) {
				return 100, nil
			}
			return 0, nil
		},
	}},
	control.TableChangeRequests: {{
		Dimension: control.DimensionDesignChange,
		MetricKey: control.MetricChangeImpactPenalty,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			// Only unreviewed requests count against the dimension.
			if optStrField(fields, "status", "pending") != "pending" {
				return 0, nil
			}
			return severityPenalty(fields, "impact", changeImpactPenalties)
		},
	}},
	control.TableMilestones: {{
		Dimension: control.DimensionSchedule,
		MetricKey: control.MetricMilestoneDelayDays,
		Unit:      "days",
		Extract: func(fields map[string]any, observedAt time.Time) (float64, error) {
			planned, err := dateField(fields, "planned_date")
			if err != nil {
				return 0, err
			}
			// Completed milestones compare actual vs planned; open ones
			// compare the observation time vs planned.
			reference := observedAt
			if _, ok := fields["actual_date"]; ok {
				if reference, err = dateField(fields, "actual_date"); err != nil {
					return 0, err
				}
			}
			delay := reference.Sub(planned).Hours() / 24
			return math.Max(0, math.Floor(delay)), nil
		},
	}},
	control.TableProgressLogs: {{
		Dimension: control.DimensionSchedule,
		MetricKey: control.MetricProgressShortfallPct,
		Unit:      "%",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			planned, err := numField(fields, "planned_progress")
			if err != nil {
				return 0, err
			}
			actual, err := numField(fields, "actual_progress")
			if err != nil {
				return 0, err
			}
			return math.Max(0, planned-actual), nil
		},
	}},
	control.TableMaterialUsage: {{
		Dimension: control.DimensionMaterial,
		MetricKey: control.MetricUsageVariancePct,
		Unit:      "%",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			quantity, err := numField(fields, "quantity")
			if err != nil {
				return 0, err
			}
			planned, err := numField(fields, "planned_quantity")
			if err != nil {
				return 0, err
			}
			if planned <= 0 {
				return 0, fmt.Errorf("%w: planned_quantity (must be positive)", ErrMissingField)
			}
			// Signed: over-consumption is positive, under-consumption negative.
			return (quantity - planned) / planned * 100, nil
		},
	}},
	control.TableInventoryAnomalies: {{
		Dimension: control.DimensionLossPrevention,
		MetricKey: control.MetricInventoryVariancePct,
		Unit:      "%",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			if v, err := numField(fields, "variance_percentage"); err == nil {
				return v, nil
			}
			expected, err := numField(fields, "expected_quantity")
			if err != nil {
				return 0, err
			}
			actual, err := numField(fields, "actual_quantity")
			if err != nil {
				return 0, err
			}
			if expected <= 0 {
				return 0, fmt.Errorf("%w: expected_quantity (must be positive)", ErrMissingField)
			}
			return (actual - expected) / expected * 100, nil
		},
	}},
	control.TableInspections: {{
		Dimension: control.DimensionQuality,
		MetricKey: control.MetricInspectionFailPenalty,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			result, err := strField(fields, "result")
			if err != nil {
				return 0, err
			}
			switch result {
			case "fail":
				return 100, nil
			case "pass_with_notes":
				return 25, nil
			default:
				return 0, nil
			}
		},
	}},
	control.TableDefects: {{
		Dimension: control.DimensionQuality,
		MetricKey: control.MetricDefectPenalty,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			switch optStrField(fields, "status", "open") {
			case "resolved", "closed":
				return 0, nil
			}
			return severityPenalty(fields, "severity", defectPenalties)
		},
	}},
	control.TableSafetyIncidents: {{
		Dimension: control.DimensionSafety,
		MetricKey: control.MetricIncidentPenalty,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			penalty, err := severityPenalty(fields, "severity", incidentPenalties)
			if err != nil {
				return 0, err
			}
			if injuries, err := numField(fields, "injuries_count"); err == nil {
				penalty += injuries * 5
			}
			return penalty, nil
		},
	}},
	control.TableNearMisses: {{
		Dimension: control.DimensionSafety,
		MetricKey: control.MetricNearMissPenalty,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			return severityPenalty(fields, "potential_severity", nearMissPenalties)
		},
	}},
	control.TableComplianceChecks: {{
		Dimension: control.DimensionRegulatory,
		MetricKey: control.MetricComplianceFailPenalty,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			result, err := strField(fields, "result")
			if err != nil {
				return 0, err
			}
			if result == "fail" {
				return 100, nil
			}
			return 0, nil
		},
	}},
	control.TablePermits: {{
		Dimension: control.DimensionRegulatory,
		MetricKey: control.MetricPermitRiskPenalty,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			status, err := strField(fields, "status")
			if err != nil {
				return 0, err
			}
			switch status {
			case "revoked":
				return 60, nil
			case "expired":
				return 50, nil
			case "pending":
				return 10, nil
			default:
				return 0, nil
			}
		},
	}},
	control.TableDailyLogs: {{
		Dimension: control.DimensionDocumentation,
		MetricKey: control.MetricIncompleteLogPenalty,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			if boolField(fields, "complete", true) {
				return 0, nil
			}
			return 100, nil
		},
	}},
	control.TableDocuments: {{
		Dimension: control.DimensionDocumentation,
		MetricKey: control.MetricExpiredDocumentPenalty,
		Unit:      "points",
		Extract: func(fields map[string]any, observedAt time.Time) (float64, error) {
			if _, ok := fields["expiry_date"]; !ok {
				return 0, nil
			}
			expiry, err := dateField(fields, "expiry_date")
			if err != nil {
				return 0, err
			}
			if expiry.Before(observedAt) {
				return 20, nil
			}
			return 0, nil
		},
	}},
	control.TableSubcontractorPerformance: {{
		Dimension: control.DimensionSubcontractor,
		MetricKey: control.MetricPerformanceShortfall,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			return ratingShortfall(fields, "overall_rating")
		},
	}},
	control.TableAttendance: {{
		Dimension: control.DimensionWorkforce,
		MetricKey: control.MetricAttendanceShortfall,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			status, err := strField(fields, "status")
			if err != nil {
				return 0, err
			}
			switch status {
			case "absent":
				return 100, nil
			case "late":
				return 25, nil
			default:
				return 0, nil
			}
		},
	}},
	control.TableProductivityLogs: {{
		Dimension: control.DimensionWorkforce,
		MetricKey: control.MetricProductivityShortfall,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			return ratingShortfall(fields, "quality_rating")
		},
	}},
	control.TableEquipmentUsage: {{
		Dimension: control.DimensionEquipment,
		MetricKey: control.MetricConditionPenalty,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			switch optStrField(fields, "condition", "good") {
			case "poor":
				return 30, nil
			case "fair":
				return 10, nil
			default:
				return 0, nil
			}
		},
	}},
	control.TableMaintenanceLogs: {{
		Dimension: control.DimensionEquipment,
		MetricKey: control.MetricMaintenancePenalty,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			maintenanceType, err := strField(fields, "type")
			if err != nil {
				return 0, err
			}
			switch maintenanceType {
			case "emergency":
				return 40, nil
			case "corrective":
				return 20, nil
			default:
				return 0, nil
			}
		},
	}},
	control.TableSiteConditions: {{
		Dimension: control.DimensionSiteOrganization,
		MetricKey: control.MetricSiteHazardPenalty,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			return severityPenalty(fields, "hazard_level", hazardPenalties)
		},
	}},
	control.TableWasteLogs: {{
		Dimension: control.DimensionSiteOrganization,
		MetricKey: control.MetricWasteHandlingPenalty,
		Unit:      "points",
		Extract: func(fields map[string]any, _ time.Time) (float64, error) {
			if boolField(fields, "properly_disposed", true) {
				return 0, nil
			}
			penalty := 50.0
			if optStrField(fields, "waste_type", "") == "hazardous" {
				penalty += 25
			}
			return penalty, nil
		},
	}},
}

// MappedTables returns the source tables the ingestor understands.
func MappedTables() []string {
	tables := make([]string, 0, len(sourceMappings))
	for table := range sourceMappings {
		tables = append(tables, table)
	}
	return tables
}
