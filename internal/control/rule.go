package control

// ThresholdRule defines when a score or raw observation triggers an alert.
// Rules are configuration, not domain rows: they ship as built-in defaults
// and can be overridden or extended from the settings file.
type ThresholdRule struct {
	Name      string    `json:"name" mapstructure:"name"`
	Dimension Dimension `json:"dimension" mapstructure:"dimension"`
	// MetricKey selects the observation metric to test, or MetricScore to
	// test the computed dimension score.
	MetricKey string   `json:"metric_key" mapstructure:"metric_key"`
	Operator  string   `json:"operator" mapstructure:"operator"`
	Bound     float64  `json:"bound" mapstructure:"bound"`
	Severity  Severity `json:"severity" mapstructure:"severity"`
	// Title and Message template the alert text. Message may reference
	// {{value}} and {{bound}}.
	Title          string `json:"title" mapstructure:"title"`
	Message        string `json:"message" mapstructure:"message"`
	ActionRequired string `json:"action_required,omitempty" mapstructure:"action_required"`
}

// Matches reports whether the rule's comparator holds for the given value.
func (r *ThresholdRule) Matches(value float64) bool {
	return Compare(value, r.Operator, r.Bound)
}
