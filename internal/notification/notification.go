// Package notification delivers alert events to people: an in-memory bell
// feed for the dashboard and optional push targets via shoutrrr.
package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/site360/site360-go/internal/control"
)

// Type classifies a notification for the bell feed UI.
type Type string

const (
	TypeInfo  Type = "info"
	TypeAlert Type = "alert"
	TypeError Type = "error"
)

// Priority orders notifications in the bell feed.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// PriorityForSeverity maps an alert severity onto a feed priority.
func PriorityForSeverity(s control.Severity) Priority {
	switch s {
	case control.SeverityCritical:
		return PriorityCritical
	case control.SeverityHigh:
		return PriorityHigh
	case control.SeverityMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Notification is one bell feed entry.
type Notification struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Priority  Priority       `json:"priority"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewNotification creates a notification with a fresh id and timestamp.
func NewNotification(typ Type, priority Priority, title, message string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Priority:  priority,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithMetadata attaches a metadata key, returning the notification for
// chaining.
func (n *Notification) WithMetadata(key string, value any) *Notification {
	if n.Metadata == nil {
		n.Metadata = make(map[string]any)
	}
	n.Metadata[key] = value
	return n
}
