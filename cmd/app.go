package cmd

import (
	"fmt"
	"os"

	"github.com/site360/site360-go/internal/conf"
	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore"
	"github.com/site360/site360-go/internal/datastore/repository"
	"github.com/site360/site360-go/internal/dispatch"
	"github.com/site360/site360-go/internal/ingest"
	"github.com/site360/site360-go/internal/logger"
	"github.com/site360/site360-go/internal/mqtt"
	"github.com/site360/site360-go/internal/notification"
	"github.com/site360/site360-go/internal/observability"
	"github.com/site360/site360-go/internal/pipeline"
	"github.com/site360/site360-go/internal/scoring"
)

// app holds the assembled engine components shared by the serve and
// evaluate commands.
type app struct {
	settings *conf.Settings
	log      logger.Logger
	manager  *datastore.Manager
	metrics  *observability.Metrics

	observations repository.ObservationRepository
	scores       repository.ControlScoreRepository
	alerts       repository.AlertRepository

	rules    []control.ThresholdRule
	runner   *pipeline.Runner
	notifier *notification.Service
	mqtt     mqtt.Client
	pub      *mqtt.AlertPublisher
}

// buildApp loads configuration and wires the engine. withDelivery enables
// the bell feed, push targets and MQTT; the one-shot evaluate command runs
// without them.
func buildApp(withDelivery bool) (*app, error) {
	settings, err := conf.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewSlogLogger(os.Stderr, logger.LogLevel(settings.Main.LogLevel), nil)

	manager, err := datastore.Open(&settings.Database)
	if err != nil {
		return nil, err
	}

	a := &app{
		settings:     settings,
		log:          log,
		manager:      manager,
		observations: repository.NewObservationRepository(manager.DB()),
		scores:       repository.NewControlScoreRepository(manager.DB()),
		alerts:       repository.NewAlertRepository(manager.DB()),
		rules:        dispatch.ActiveRules(settings.Alerting.Rules, settings.Alerting.DisableDefaultRules),
	}

	a.metrics, err = observability.NewMetrics()
	if err != nil {
		a.close()
		return nil, err
	}

	engine, err := scoring.NewEngine(&settings.Scoring)
	if err != nil {
		a.close()
		return nil, err
	}

	if withDelivery {
		notification.Initialize(&notification.ServiceConfig{
			Capacity:        settings.Notification.BellCapacity,
			PushURLs:        settings.Notification.PushURLs,
			MinPushSeverity: control.Severity(settings.Notification.MinPushSeverity),
		})
		a.notifier = notification.GetService()
		a.notifier.SetLogger(log.With(logger.String("component", "notification")))

		if settings.MQTT.Enabled {
			client, err := mqtt.NewClient(&settings.MQTT, a.metrics, log.With(logger.String("component", "mqtt")))
			if err != nil {
				a.close()
				return nil, err
			}
			a.mqtt = client
			a.pub = mqtt.NewAlertPublisher(client, settings.MQTT.TopicPrefix, log)
		}
	}

	a.runner, err = pipeline.NewRunner(pipeline.Deps{
		Observations: a.observations,
		Scores:       a.scores,
		Alerts:       a.alerts,
		Ingestor:     ingest.NewIngestor(log.With(logger.String("component", "ingest"))),
		Engine:       engine,
		Evaluator:    dispatch.NewEvaluator(a.rules, log.With(logger.String("component", "dispatch"))),
		Notifier:     a.notifier,
		Publisher:    a.pub,
		Metrics:      a.metrics,
		Log:          log.With(logger.String("component", "pipeline")),
	})
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) close() {
	if a.mqtt != nil {
		a.mqtt.Disconnect()
	}
	if a.manager != nil {
		if err := a.manager.Close(); err != nil {
			a.log.Error("failed to close database", logger.Error(err))
		}
	}
}
