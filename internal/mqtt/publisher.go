package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/site360/site360-go/internal/datastore/entities"
	"github.com/site360/site360-go/internal/logger"
)

// AlertPublisher serializes alert events onto per-site topics:
// {prefix}/{site_id}/alerts.
type AlertPublisher struct {
	client Client
	prefix string
	log    logger.Logger
}

// NewAlertPublisher creates a publisher over an already configured client.
func NewAlertPublisher(client Client, topicPrefix string, log logger.Logger) *AlertPublisher {
	if topicPrefix == "" {
		topicPrefix = "site360"
	}
	return &AlertPublisher{client: client, prefix: topicPrefix, log: log}
}

// alertEvent is the wire shape of one alert lifecycle event.
type alertEvent struct {
	Event string          `json:"event"`
	Alert *entities.Alert `json:"alert"`
}

// PublishAlert sends one alert lifecycle event (created, escalated,
// resolved) for the alert's site.
func (p *AlertPublisher) PublishAlert(ctx context.Context, event string, alert *entities.Alert) error {
	payload, err := json.Marshal(alertEvent{Event: event, Alert: alert})
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	topic := fmt.Sprintf("%s/%s/alerts", p.prefix, alert.SiteID)
	if err := p.client.Publish(ctx, topic, string(payload)); err != nil {
		return fmt.Errorf("failed to publish alert %s: %w", alert.ID, err)
	}
	p.log.Debug("published alert event",
		logger.String("topic", topic),
		logger.String("event", event),
		logger.String("alert_id", alert.ID))
	return nil
}
