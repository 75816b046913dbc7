// Package pipeline orchestrates one full evaluation pass: ingest domain
// records into observations, compute per-dimension scores, and reconcile
// alerts against the freshly scored state.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore/entities"
	"github.com/site360/site360-go/internal/datastore/repository"
	"github.com/site360/site360-go/internal/dispatch"
	"github.com/site360/site360-go/internal/ingest"
	"github.com/site360/site360-go/internal/logger"
	"github.com/site360/site360-go/internal/mqtt"
	"github.com/site360/site360-go/internal/notification"
	"github.com/site360/site360-go/internal/observability"
	"github.com/site360/site360-go/internal/scoring"
)

const dateLayout = "2006-01-02"

// Deps wires the runner's collaborators. Observations, Scores, Alerts,
// Ingestor, Engine, Evaluator, Metrics and Log are required; Notifier and
// Publisher are optional delivery targets.
type Deps struct {
	Observations repository.ObservationRepository
	Scores       repository.ControlScoreRepository
	Alerts       repository.AlertRepository
	Ingestor     *ingest.Ingestor
	Engine       *scoring.Engine
	Evaluator    *dispatch.Evaluator
	Notifier     *notification.Service
	Publisher    *mqtt.AlertPublisher
	Metrics      *observability.Metrics
	Log          logger.Logger
}

// Runner executes evaluation passes. Sites are processed in parallel;
// within a site, dimensions are scored sequentially so the composite score
// sees every fresh dimension score.
type Runner struct {
	deps Deps
}

// NewRunner validates deps and creates a runner.
func NewRunner(deps Deps) (*Runner, error) {
	switch {
	case deps.Observations == nil, deps.Scores == nil, deps.Alerts == nil:
		return nil, errors.New("pipeline requires all three repositories")
	case deps.Ingestor == nil, deps.Engine == nil, deps.Evaluator == nil:
		return nil, errors.New("pipeline requires ingestor, engine and evaluator")
	case deps.Metrics == nil, deps.Log == nil:
		return nil, errors.New("pipeline requires metrics and a logger")
	}
	return &Runner{deps: deps}, nil
}

// IngestRecords converts domain records to observations and persists them.
// Unmappable records are skipped and reported; they never abort the batch.
func (r *Runner) IngestRecords(ctx context.Context, records []ingest.DomainRecord) (int, []ingest.Failure, error) {
	observations, failures := r.deps.Ingestor.IngestBatch(records)
	for i := range failures {
		r.deps.Metrics.IngestFailures.WithLabelValues(failures[i].Table).Inc()
	}

	saved, err := r.deps.Observations.SaveObservations(ctx, observations)
	if err != nil {
		return saved, failures, fmt.Errorf("failed to persist observations: %w", err)
	}
	for i := range observations {
		r.deps.Metrics.ObservationsIngested.WithLabelValues(observations[i].SourceTable).Inc()
	}
	return saved, failures, nil
}

// RunAll evaluates every known site for the day containing now. Sites run
// in parallel; one failing site does not stop the others.
func (r *Runner) RunAll(ctx context.Context, now time.Time) error {
	start := time.Now()

	sites, err := r.siteIDs(ctx)
	if err != nil {
		return err
	}
	if len(sites) == 0 {
		r.deps.Log.Debug("no sites to evaluate")
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, siteID := range sites {
		wg.Add(1)
		go func(siteID string) {
			defer wg.Done()
			if err := r.RunSite(ctx, siteID, now); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("site %s: %w", siteID, err))
				mu.Unlock()
			}
		}(siteID)
	}
	wg.Wait()

	r.deps.Metrics.PipelineRuns.Inc()
	r.deps.Metrics.PipelineRunDuration.Observe(time.Since(start).Seconds())
	r.deps.Log.Info("pipeline run finished",
		logger.Int("sites", len(sites)),
		logger.Int("failed", len(errs)))
	return errors.Join(errs...)
}

// RunSite scores one site for the day containing now and reconciles its
// alerts.
func (r *Runner) RunSite(ctx context.Context, siteID string, now time.Time) error {
	date := now.UTC().Format(dateLayout)
	dayStart := now.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	observations, err := r.deps.Observations.ListObservations(ctx, repository.ObservationFilter{
		SiteID: siteID,
		From:   dayStart,
		To:     dayEnd,
	})
	if err != nil {
		return err
	}

	byDimension := make(map[control.Dimension][]entities.Observation)
	for _, obs := range observations {
		byDimension[obs.Dimension] = append(byDimension[obs.Dimension], obs)
	}

	var computed []entities.ControlScore
	for _, dim := range control.Dimensions() {
		if dim == control.DimensionOverallManagement {
			continue
		}
		dimObs := byDimension[dim]
		if len(dimObs) == 0 {
			continue
		}
		prior, err := r.priorScore(ctx, siteID, dim, date)
		if err != nil {
			return err
		}
		score, ok := r.deps.Engine.ComputeScore(scoring.ScoreInput{
			SiteID:       siteID,
			Dimension:    dim,
			Date:         date,
			Observations: dimObs,
			Prior:        prior,
			CalculatedAt: now,
		})
		if !ok {
			continue
		}
		if err := r.deps.Scores.UpsertScore(ctx, score); err != nil {
			return err
		}
		r.deps.Metrics.ScoresComputed.WithLabelValues(string(dim)).Inc()
		computed = append(computed, *score)
	}

	prior, err := r.priorScore(ctx, siteID, control.DimensionOverallManagement, date)
	if err != nil {
		return err
	}
	if overall, ok := r.deps.Engine.ComputeComposite(scoring.CompositeInput{
		SiteID:       siteID,
		Date:         date,
		Scores:       computed,
		Prior:        prior,
		CalculatedAt: now,
	}); ok {
		if err := r.deps.Scores.UpsertScore(ctx, overall); err != nil {
			return err
		}
		r.deps.Metrics.ScoresComputed.WithLabelValues(string(control.DimensionOverallManagement)).Inc()
		computed = append(computed, *overall)
	}

	openAlerts, err := r.openAlerts(ctx, siteID)
	if err != nil {
		return err
	}

	mutations := r.deps.Evaluator.Evaluate(dispatch.Input{
		SiteID:       siteID,
		Scores:       computed,
		Observations: observations,
		OpenAlerts:   openAlerts,
		Now:          now,
	})
	return r.apply(ctx, mutations)
}

// siteIDs merges sites seen in observations with sites already scored, so
// a site keeps being evaluated (and its alerts auto-resolved) after its
// observations age out.
func (r *Runner) siteIDs(ctx context.Context) ([]string, error) {
	fromObs, err := r.deps.Observations.SiteIDs(ctx)
	if err != nil {
		return nil, err
	}
	fromScores, err := r.deps.Scores.SiteIDs(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(fromObs)+len(fromScores))
	var sites []string
	for _, id := range append(fromObs, fromScores...) {
		if !seen[id] {
			seen[id] = true
			sites = append(sites, id)
		}
	}
	return sites, nil
}

func (r *Runner) priorScore(ctx context.Context, siteID string, dim control.Dimension, date string) (*float64, error) {
	prior, err := r.deps.Scores.LatestScoreBefore(ctx, siteID, dim, date)
	if errors.Is(err, repository.ErrScoreNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prior.Score, nil
}

func (r *Runner) openAlerts(ctx context.Context, siteID string) ([]entities.Alert, error) {
	var open []entities.Alert
	for _, status := range []control.AlertStatus{control.AlertStatusActive, control.AlertStatusAcknowledged} {
		alerts, _, err := r.deps.Alerts.ListAlerts(ctx, repository.AlertFilter{
			SiteID: siteID,
			Status: &status,
		})
		if err != nil {
			return nil, err
		}
		open = append(open, alerts...)
	}
	return open, nil
}

// apply writes the evaluator's mutations to the alert store and fans the
// results out to the bell feed and MQTT. Delivery failures are logged and
// do not fail the run.
func (r *Runner) apply(ctx context.Context, mutations []dispatch.Mutation) error {
	for i := range mutations {
		m := &mutations[i]
		switch m.Kind {
		case dispatch.MutationCreate:
			alert, err := r.deps.Alerts.CreateAlert(ctx, m.Insert)
			if err != nil {
				return err
			}
			r.deps.Metrics.AlertsCreated.Inc()
			r.deps.Log.Info("alert created",
				logger.String("alert_id", alert.ID),
				logger.String("site_id", alert.SiteID),
				logger.String("dimension", string(alert.Dimension)),
				logger.String("severity", string(alert.Severity)),
				logger.String("rule", m.Rule))
			r.notify(ctx, alert)
			r.publish(ctx, "created", alert)

		case dispatch.MutationEscalate:
			if ok, err := r.transition(ctx, m); err != nil {
				return err
			} else if !ok {
				continue
			}
			r.deps.Metrics.AlertsEscalated.Inc()
			alert, err := r.deps.Alerts.GetAlert(ctx, m.AlertID)
			if err != nil {
				return err
			}
			r.deps.Log.Info("alert escalated",
				logger.String("alert_id", alert.ID),
				logger.String("severity", string(alert.Severity)),
				logger.String("rule", m.Rule))
			r.notify(ctx, alert)
			r.publish(ctx, "escalated", alert)

		case dispatch.MutationAutoResolve:
			if ok, err := r.transition(ctx, m); err != nil {
				return err
			} else if !ok {
				continue
			}
			r.deps.Metrics.AlertsAutoResolved.Inc()
			alert, err := r.deps.Alerts.GetAlert(ctx, m.AlertID)
			if err != nil {
				return err
			}
			r.deps.Log.Info("alert auto-resolved",
				logger.String("alert_id", alert.ID),
				logger.String("site_id", alert.SiteID))
			r.publish(ctx, "resolved", alert)
		}
	}
	return nil
}

// transition applies a guarded patch. A status conflict means another actor
// moved the alert first; the mutation is dropped, not retried.
func (r *Runner) transition(ctx context.Context, m *dispatch.Mutation) (bool, error) {
	err := r.deps.Alerts.TransitionAlert(ctx, m.AlertID, m.Expected, m.Patch)
	if errors.Is(err, repository.ErrAlertConflict) || errors.Is(err, repository.ErrAlertNotFound) {
		r.deps.Log.Warn("alert changed concurrently, dropping mutation",
			logger.String("alert_id", m.AlertID),
			logger.String("kind", string(m.Kind)))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Runner) notify(ctx context.Context, alert *entities.Alert) {
	if r.deps.Notifier == nil {
		return
	}
	r.deps.Notifier.NotifyAlert(ctx, alert.Severity, alert.SiteID, alert.ID, alert.Title, alert.Message)
}

func (r *Runner) publish(ctx context.Context, event string, alert *entities.Alert) {
	if r.deps.Publisher == nil {
		return
	}
	if err := r.deps.Publisher.PublishAlert(ctx, event, alert); err != nil {
		r.deps.Log.Warn("failed to publish alert event",
			logger.String("alert_id", alert.ID),
			logger.Error(err))
	}
}
