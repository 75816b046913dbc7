package dispatch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore/entities"
	"github.com/site360/site360-go/internal/logger"
)

// Evaluator matches threshold rules against one site's scores and
// observations and diffs the result against the site's open alerts.
type Evaluator struct {
	rules []control.ThresholdRule
	log   logger.Logger
}

// NewEvaluator creates an evaluator over a fixed rule set.
func NewEvaluator(rules []control.ThresholdRule, log logger.Logger) *Evaluator {
	return &Evaluator{rules: rules, log: log}
}

// Input is one evaluation pass: everything known about a single site at one
// point in time.
type Input struct {
	SiteID string
	// Scores are the site's freshly computed dimension scores.
	Scores []entities.ControlScore
	// Observations are the raw measurements behind the scores.
	Observations []entities.Observation
	// OpenAlerts are all active and acknowledged alerts for the site.
	OpenAlerts []entities.Alert
	Now        time.Time
}

// candidate is one firing condition keyed by its dedup identity.
type candidate struct {
	rule  *control.ThresholdRule
	value float64
}

type dedupKey struct {
	dimension   control.Dimension
	sourceTable string
	sourceID    string
}

// Evaluate runs every rule against the input and returns the mutations that
// reconcile the open-alert set with the currently firing conditions:
// creates for new breaches, escalations for breaches that got worse, and
// auto-resolves for open alerts whose condition no longer fires. Alerts
// whose source the evaluator does not own are left alone.
func (e *Evaluator) Evaluate(in Input) []Mutation {
	firing := e.collectFiring(in)

	var mutations []Mutation
	open := make(map[dedupKey]*entities.Alert, len(in.OpenAlerts))
	for i := range in.OpenAlerts {
		a := &in.OpenAlerts[i]
		open[dedupKey{a.Dimension, a.SourceTable, a.SourceID}] = a
	}

	keys := make([]dedupKey, 0, len(firing))
	for k := range firing {
		keys = append(keys, k)
	}
	sortKeys(keys)

	for _, key := range keys {
		cand := firing[key]
		existing, ok := open[key]
		if !ok {
			mutations = append(mutations, Mutation{
				Kind: MutationCreate,
				Rule: cand.rule.Name,
				Insert: &entities.AlertInsert{
					SiteID:         in.SiteID,
					Dimension:      key.dimension,
					Severity:       cand.rule.Severity,
					Title:          cand.rule.Title,
					Message:        renderMessage(cand.rule, cand.value),
					SourceTable:    key.sourceTable,
					SourceID:       key.sourceID,
					ActionRequired: cand.rule.ActionRequired,
				},
			})
			continue
		}
		if cand.rule.Severity.Rank() > existing.Severity.Rank() {
			severity := cand.rule.Severity
			title := cand.rule.Title
			message := renderMessage(cand.rule, cand.value)
			patch := entities.AlertPatch{
				Severity: &severity,
				Title:    &title,
				Message:  &message,
			}
			if cand.rule.ActionRequired != "" {
				required := cand.rule.ActionRequired
				patch.ActionRequired = &required
			}
			mutations = append(mutations, Mutation{
				Kind:     MutationEscalate,
				Rule:     cand.rule.Name,
				AlertID:  existing.ID,
				Expected: []control.AlertStatus{control.AlertStatusActive, control.AlertStatusAcknowledged},
				Patch:    patch,
			})
		}
	}

	for i := range in.OpenAlerts {
		a := &in.OpenAlerts[i]
		key := dedupKey{a.Dimension, a.SourceTable, a.SourceID}
		if _, stillFiring := firing[key]; stillFiring {
			continue
		}
		if !control.KnownSourceTable(a.SourceTable) {
			continue
		}
		status := control.AlertStatusResolved
		resolvedBy := control.SystemActor
		resolvedAt := in.Now
		actionTaken := "Condition cleared on re-evaluation"
		mutations = append(mutations, Mutation{
			Kind:     MutationAutoResolve,
			AlertID:  a.ID,
			Expected: []control.AlertStatus{control.AlertStatusActive, control.AlertStatusAcknowledged},
			Patch: entities.AlertPatch{
				Status:      &status,
				ResolvedAt:  &resolvedAt,
				ResolvedBy:  &resolvedBy,
				ActionTaken: &actionTaken,
			},
		})
	}

	if len(mutations) > 0 {
		e.log.Debug("alert evaluation produced mutations",
			logger.String("site_id", in.SiteID),
			logger.Int("firing", len(firing)),
			logger.Int("mutations", len(mutations)))
	}
	return mutations
}

// collectFiring matches every rule against the input. When several rules
// fire on the same dedup key the most severe one wins.
func (e *Evaluator) collectFiring(in Input) map[dedupKey]candidate {
	firing := make(map[dedupKey]candidate)
	record := func(key dedupKey, rule *control.ThresholdRule, value float64) {
		if prev, ok := firing[key]; ok && prev.rule.Severity.Rank() >= rule.Severity.Rank() {
			return
		}
		firing[key] = candidate{rule: rule, value: value}
	}

	for i := range e.rules {
		rule := &e.rules[i]
		if rule.MetricKey == control.MetricScore {
			for j := range in.Scores {
				score := &in.Scores[j]
				if score.Dimension != rule.Dimension || !rule.Matches(score.Score) {
					continue
				}
				// Score alerts dedup on the dimension itself so one
				// open alert tracks the condition across days.
				key := dedupKey{score.Dimension, control.TableControlScores, string(score.Dimension)}
				record(key, rule, score.Score)
			}
			continue
		}
		for j := range in.Observations {
			obs := &in.Observations[j]
			if obs.Dimension != rule.Dimension || obs.MetricKey != rule.MetricKey || !rule.Matches(obs.Value) {
				continue
			}
			key := dedupKey{obs.Dimension, obs.SourceTable, obs.SourceID}
			record(key, rule, obs.Value)
		}
	}
	return firing
}

func renderMessage(rule *control.ThresholdRule, value float64) string {
	msg := rule.Message
	if msg == "" {
		msg = fmt.Sprintf("%s is %s (threshold %s)", rule.MetricKey, formatFloat(value), formatFloat(rule.Bound))
	}
	return strings.NewReplacer(
		"{{value}}", formatFloat(value),
		"{{bound}}", formatFloat(rule.Bound),
	).Replace(msg)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// sortKeys orders dedup keys for deterministic mutation output.
func sortKeys(keys []dedupKey) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.dimension != b.dimension {
			return a.dimension < b.dimension
		}
		if a.sourceTable != b.sourceTable {
			return a.sourceTable < b.sourceTable
		}
		return a.sourceID < b.sourceID
	})
}
