package control

// Schema describes the full catalog of control dimensions and their metrics.
// The dashboard uses it to render score breakdowns and rule editors.
type Schema struct {
	Dimensions []DimensionSchema `json:"dimensions"`
	Operators  []OperatorSchema  `json:"operators"`
}

// DimensionSchema describes one control dimension and its metrics.
type DimensionSchema struct {
	Name    Dimension      `json:"name"`
	Label   string         `json:"label"`
	Metrics []MetricSchema `json:"metrics,omitempty"`
}

// MetricSchema describes a metric produced by the ingestor.
type MetricSchema struct {
	Name      string   `json:"name"`
	Label     string   `json:"label"`
	Unit      string   `json:"unit"`
	Operators []string `json:"operators"`
}

// OperatorSchema describes a comparison operator for the UI.
type OperatorSchema struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// thresholdOperators are the operators valid for numeric threshold rules.
var thresholdOperators = []string{
	OperatorGreaterThan, OperatorLessThan,
	OperatorGreaterOrEqual, OperatorLessOrEqual, OperatorEqual,
}

// GetSchema returns the full control schema for the dashboard.
func GetSchema() Schema {
	return Schema{
		Dimensions: []DimensionSchema{
			{
				Name:  DimensionPlanning,
				Label: "Planning",
				Metrics: []MetricSchema{
					metric(MetricPlanRevisionPenalty, "Plan Revision Penalty", "points"),
					metric(MetricStalePlanAccess, "Stale Plan Access", "points"),
				},
			},
			{
				Name:  DimensionDesignChange,
				Label: "Design Change",
				Metrics: []MetricSchema{
					metric(MetricChangeImpactPenalty, "Change Impact Penalty", "points"),
				},
			},
			{
				Name:  DimensionSchedule,
				Label: "Schedule",
				Metrics: []MetricSchema{
					metric(MetricMilestoneDelayDays, "Milestone Delay", "days"),
					metric(MetricProgressShortfallPct, "Progress Shortfall", "%"),
				},
			},
			{
				Name:  DimensionMaterial,
				Label: "Materials",
				Metrics: []MetricSchema{
					metric(MetricUsageVariancePct, "Usage Variance", "%"),
				},
			},
			{
				Name:  DimensionLossPrevention,
				Label: "Loss Prevention",
				Metrics: []MetricSchema{
					metric(MetricInventoryVariancePct, "Inventory Variance", "%"),
				},
			},
			{
				Name:  DimensionQuality,
				Label: "Quality",
				Metrics: []MetricSchema{
					metric(MetricInspectionFailPenalty, "Inspection Failures", "points"),
					metric(MetricDefectPenalty, "Open Defects", "points"),
				},
			},
			{
				Name:  DimensionSafety,
				Label: "Safety",
				Metrics: []MetricSchema{
					metric(MetricIncidentPenalty, "Incidents", "points"),
					metric(MetricNearMissPenalty, "Near Misses", "points"),
				},
			},
			{
				Name:  DimensionRegulatory,
				Label: "Regulatory Compliance",
				Metrics: []MetricSchema{
					metric(MetricComplianceFailPenalty, "Failed Checks", "points"),
					metric(MetricPermitRiskPenalty, "Permit Risk", "points"),
				},
			},
			{
				Name:  DimensionDocumentation,
				Label: "Documentation",
				Metrics: []MetricSchema{
					metric(MetricIncompleteLogPenalty, "Incomplete Daily Logs", "points"),
					metric(MetricExpiredDocumentPenalty, "Expired Documents", "points"),
				},
			},
			{
				Name:  DimensionSubcontractor,
				Label: "Subcontractors",
				Metrics: []MetricSchema{
					metric(MetricPerformanceShortfall, "Performance Shortfall", "points"),
				},
			},
			{
				Name:  DimensionWorkforce,
				Label: "Workforce",
				Metrics: []MetricSchema{
					metric(MetricAttendanceShortfall, "Attendance Shortfall", "points"),
					metric(MetricProductivityShortfall, "Productivity Shortfall", "points"),
				},
			},
			{
				Name:  DimensionEquipment,
				Label: "Equipment",
				Metrics: []MetricSchema{
					metric(MetricConditionPenalty, "Condition Penalty", "points"),
					metric(MetricMaintenancePenalty, "Unplanned Maintenance", "points"),
				},
			},
			{
				Name:  DimensionSiteOrganization,
				Label: "Site Organization",
				Metrics: []MetricSchema{
					metric(MetricSiteHazardPenalty, "Site Hazards", "points"),
					metric(MetricWasteHandlingPenalty, "Waste Handling", "points"),
				},
			},
			{
				Name:  DimensionOverallManagement,
				Label: "Overall Management",
				// Aggregate of the other thirteen dimension scores; no raw metrics.
			},
		},
		Operators: []OperatorSchema{
			{Name: OperatorGreaterThan, Label: "greater than"},
			{Name: OperatorLessThan, Label: "less than"},
			{Name: OperatorGreaterOrEqual, Label: "greater or equal"},
			{Name: OperatorLessOrEqual, Label: "less or equal"},
			{Name: OperatorEqual, Label: "equal"},
		},
	}
}

func metric(name, label, unit string) MetricSchema {
	return MetricSchema{Name: name, Label: label, Unit: unit, Operators: thresholdOperators}
}
