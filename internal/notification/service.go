package notification

import (
	"context"
	"sync"
	"time"

	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/logger"
)

// ServiceConfig tunes the notification service.
type ServiceConfig struct {
	// Capacity bounds the bell feed; the oldest entries fall off.
	Capacity int
	// PushURLs are shoutrrr targets for severities at or above
	// MinPushSeverity. Empty disables push delivery.
	PushURLs        []string
	MinPushSeverity control.Severity
	PushTimeout     time.Duration
}

// DefaultServiceConfig returns a config with sane defaults.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Capacity:        200,
		MinPushSeverity: control.SeverityHigh,
		PushTimeout:     30 * time.Second,
	}
}

// Service keeps the in-memory bell feed and fans qualifying notifications
// out to push providers. Safe for concurrent use.
type Service struct {
	mu       sync.RWMutex
	feed     []*Notification
	capacity int

	minPush  control.Severity
	provider *ShoutrrrProvider
	log      logger.Logger
}

// NewService creates a notification service. A nil config uses defaults.
func NewService(config *ServiceConfig) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}
	capacity := config.Capacity
	if capacity <= 0 {
		capacity = 200
	}

	s := &Service{
		feed:     make([]*Notification, 0, capacity),
		capacity: capacity,
		minPush:  config.MinPushSeverity,
		log:      logger.Default(),
	}
	if len(config.PushURLs) > 0 {
		s.provider = NewShoutrrrProvider("push", true, config.PushURLs, nil, config.PushTimeout)
	}
	return s
}

// SetLogger replaces the service logger.
func (s *Service) SetLogger(log logger.Logger) {
	s.log = log
}

// Create adds a notification to the bell feed.
func (s *Service) Create(typ Type, priority Priority, title, message string) *Notification {
	n := NewNotification(typ, priority, title, message)
	s.append(n)
	return n
}

// NotifyAlert records an alert event in the bell feed and pushes it to the
// configured targets when the severity qualifies. Push failures are logged,
// not returned: delivery is best effort and must not fail the pipeline.
func (s *Service) NotifyAlert(ctx context.Context, severity control.Severity, siteID, alertID, title, message string) *Notification {
	n := NewNotification(TypeAlert, PriorityForSeverity(severity), title, message).
		WithMetadata("site_id", siteID).
		WithMetadata("alert_id", alertID).
		WithMetadata("severity", string(severity))
	s.append(n)

	if s.provider != nil && severity.Rank() >= s.minPush.Rank() {
		if err := s.provider.Send(ctx, n); err != nil {
			s.log.Error("failed to push alert notification",
				logger.String("alert_id", alertID),
				logger.Error(err))
		}
	}
	return n
}

// List returns the newest notifications first, up to limit. A non-positive
// limit returns the whole feed.
func (s *Service) List(limit int) []*Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.feed)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*Notification, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.feed[i])
	}
	return out
}

// Len returns the current feed size.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.feed)
}

func (s *Service) append(n *Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed = append(s.feed, n)
	if len(s.feed) > s.capacity {
		s.feed = s.feed[len(s.feed)-s.capacity:]
	}
}
