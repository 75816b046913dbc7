// Package control defines the vocabulary of the fourteen construction-site
// control dimensions: dimension names, source tables, metric keys, severity
// levels, alert statuses and comparison operators.
package control

// Dimension identifies one of the fourteen control dimensions tracked per site.
type Dimension string

const (
	DimensionPlanning          Dimension = "planning"
	DimensionDesignChange      Dimension = "design_change"
	DimensionSchedule          Dimension = "schedule"
	DimensionMaterial          Dimension = "material"
	DimensionLossPrevention    Dimension = "loss_prevention"
	DimensionQuality           Dimension = "quality"
	DimensionSafety            Dimension = "safety"
	DimensionRegulatory        Dimension = "regulatory"
	DimensionDocumentation     Dimension = "documentation"
	DimensionSubcontractor     Dimension = "subcontractor"
	DimensionWorkforce         Dimension = "workforce"
	DimensionEquipment         Dimension = "equipment"
	DimensionSiteOrganization  Dimension = "site_organization"
	DimensionOverallManagement Dimension = "overall_management"
)

// Dimensions returns all control dimensions in stable order.
// DimensionOverallManagement is last: it aggregates the other thirteen.
func Dimensions() []Dimension {
	return []Dimension{
		DimensionPlanning,
		DimensionDesignChange,
		DimensionSchedule,
		DimensionMaterial,
		DimensionLossPrevention,
		DimensionQuality,
		DimensionSafety,
		DimensionRegulatory,
		DimensionDocumentation,
		DimensionSubcontractor,
		DimensionWorkforce,
		DimensionEquipment,
		DimensionSiteOrganization,
		DimensionOverallManagement,
	}
}

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool {
	for _, known := range Dimensions() {
		if d == known {
			return true
		}
	}
	return false
}

// Upstream source tables the ingestor understands.
const (
	TablePlans                    = "plans"
	TablePlanUsageLogs            = "plan_usage_logs"
	TableChangeRequests           = "change_requests"
	TableMilestones               = "milestones"
	TableProgressLogs             = "progress_logs"
	TableMaterialUsage            = "material_usage"
	TableInventoryAnomalies       = "inventory_anomalies"
	TableInspections              = "inspections"
	TableDefects                  = "defects"
	TableSafetyIncidents          = "safety_incidents"
	TableNearMisses               = "near_misses"
	TableComplianceChecks         = "compliance_checks"
	TablePermits                  = "permits"
	TableDailyLogs                = "daily_logs"
	TableDocuments                = "documents"
	TableSubcontractorPerformance = "subcontractor_performance"
	TableAttendance               = "attendance"
	TableProductivityLogs         = "productivity_logs"
	TableEquipmentUsage           = "equipment_usage"
	TableMaintenanceLogs          = "maintenance_logs"
	TableSiteConditions           = "site_conditions"
	TableWasteLogs                = "waste_logs"

	// TableControlScores is the virtual source table recorded on alerts
	// triggered by a computed dimension score rather than a raw record.
	TableControlScores = "control_scores"
)

// KnownSourceTable reports whether t is an engine-managed source table,
// including the virtual control_scores table. Alerts from other sources
// are user-created and outside the evaluator's lifecycle authority.
func KnownSourceTable(t string) bool {
	switch t {
	case TablePlans, TablePlanUsageLogs, TableChangeRequests, TableMilestones,
		TableProgressLogs, TableMaterialUsage, TableInventoryAnomalies,
		TableInspections, TableDefects, TableSafetyIncidents, TableNearMisses,
		TableComplianceChecks, TablePermits, TableDailyLogs, TableDocuments,
		TableSubcontractorPerformance, TableAttendance, TableProductivityLogs,
		TableEquipmentUsage, TableMaintenanceLogs, TableSiteConditions,
		TableWasteLogs, TableControlScores:
		return true
	default:
		return false
	}
}

// Metric keys produced by the ingestor. Values are either percentages
// (suffix _pct), day counts (suffix _days) or penalty points where 0 is
// clean and higher is worse.
const (
	MetricPlanRevisionPenalty    = "plan_revision_penalty"
	MetricStalePlanAccess        = "stale_plan_access"
	MetricChangeImpactPenalty    = "change_impact_penalty"
	MetricMilestoneDelayDays     = "milestone_delay_days"
	MetricProgressShortfallPct   = "progress_shortfall_pct"
	MetricUsageVariancePct       = "usage_variance_pct"
	MetricInventoryVariancePct   = "inventory_variance_pct"
	MetricInspectionFailPenalty  = "inspection_fail_penalty"
	MetricDefectPenalty          = "defect_penalty"
	MetricIncidentPenalty        = "incident_penalty"
	MetricNearMissPenalty        = "near_miss_penalty"
	MetricComplianceFailPenalty  = "compliance_fail_penalty"
	MetricPermitRiskPenalty      = "permit_risk_penalty"
	MetricIncompleteLogPenalty   = "incomplete_log_penalty"
	MetricExpiredDocumentPenalty = "expired_document_penalty"
	MetricPerformanceShortfall   = "performance_shortfall"
	MetricAttendanceShortfall    = "attendance_shortfall"
	MetricProductivityShortfall  = "productivity_shortfall"
	MetricConditionPenalty       = "condition_penalty"
	MetricMaintenancePenalty     = "maintenance_penalty"
	MetricSiteHazardPenalty      = "site_hazard_penalty"
	MetricWasteHandlingPenalty   = "waste_handling_penalty"

	// MetricScore is the virtual metric a threshold rule uses to target the
	// computed dimension score instead of a raw observation.
	MetricScore = "score"
)

// Severity levels match the original schema's severity_level enum.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordering of a severity for escalation comparisons.
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Alert lifecycle statuses.
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
	AlertStatusDismissed    AlertStatus = "dismissed"
)

// Terminal reports whether the status ends the alert lifecycle.
func (s AlertStatus) Terminal() bool {
	return s == AlertStatusResolved || s == AlertStatusDismissed
}

// Trend indicates how a score moved relative to the prior score.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// Comparison operators for threshold rules.
const (
	OperatorGreaterThan    = "greater_than"
	OperatorLessThan       = "less_than"
	OperatorGreaterOrEqual = "greater_or_equal"
	OperatorLessOrEqual    = "less_or_equal"
	OperatorEqual          = "equal"
)

// ValidOperator reports whether op is a known comparison operator.
func ValidOperator(op string) bool {
	switch op {
	case OperatorGreaterThan, OperatorLessThan, OperatorGreaterOrEqual, OperatorLessOrEqual, OperatorEqual:
		return true
	default:
		return false
	}
}

// Compare applies operator to value vs bound. Unknown operators never match.
func Compare(value float64, operator string, bound float64) bool {
	switch operator {
	case OperatorGreaterThan:
		return value > bound
	case OperatorLessThan:
		return value < bound
	case OperatorGreaterOrEqual:
		return value >= bound
	case OperatorLessOrEqual:
		return value <= bound
	case OperatorEqual:
		return value == bound
	default:
		return false
	}
}

// SystemActor is the identity recorded on machine-made lifecycle changes,
// e.g. resolved_by on auto-resolved alerts and calculated_by on scores.
const SystemActor = "system"
