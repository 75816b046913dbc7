// Package scheduler drives periodic pipeline runs and observation
// retention cleanup.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/site360/site360-go/internal/conf"
	"github.com/site360/site360-go/internal/datastore/repository"
	"github.com/site360/site360-go/internal/logger"
	"github.com/site360/site360-go/internal/pipeline"
)

// Scheduler runs the evaluation pipeline on a cron spec and prunes old
// observations once a day.
type Scheduler struct {
	cron         *cron.Cron
	runner       *pipeline.Runner
	observations repository.ObservationRepository
	spec         string
	retention    time.Duration
	log          logger.Logger
}

// New creates a scheduler. Retention <= 0 disables observation cleanup.
func New(settings *conf.SchedulerSettings, retention time.Duration, runner *pipeline.Runner, observations repository.ObservationRepository, log logger.Logger) *Scheduler {
	spec := settings.Cron
	if spec == "" {
		spec = "@hourly"
	}
	return &Scheduler{
		cron:         cron.New(),
		runner:       runner,
		observations: observations,
		spec:         spec,
		retention:    retention,
		log:          log,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.runPipeline); err != nil {
		return fmt.Errorf("failed to schedule pipeline job %q: %w", s.spec, err)
	}
	if s.retention > 0 {
		if _, err := s.cron.AddFunc("@daily", s.pruneObservations); err != nil {
			return fmt.Errorf("failed to schedule retention job: %w", err)
		}
	}

	s.cron.Start()
	s.log.Info("scheduler started",
		logger.String("spec", s.spec),
		logger.Bool("retention", s.retention > 0))
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish or the
// context to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out with jobs still running")
	}
}

func (s *Scheduler) runPipeline() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := s.runner.RunAll(ctx, time.Now()); err != nil {
		s.log.Error("scheduled pipeline run failed", logger.Error(err))
	}
}

func (s *Scheduler) pruneObservations() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.retention)
	deleted, err := s.observations.DeleteObservationsBefore(ctx, cutoff)
	if err != nil {
		s.log.Error("observation retention cleanup failed", logger.Error(err))
		return
	}
	if deleted > 0 {
		s.log.Info("pruned old observations", logger.Int64("deleted", deleted))
	}
}
