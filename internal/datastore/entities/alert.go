package entities

import (
	"time"

	"github.com/site360/site360-go/internal/control"
)

// Alert is a threshold-breach notification for a site. At most one
// non-terminal alert exists per (site_id, dimension, source_table,
// source_id); re-detection updates the existing row.
type Alert struct {
	ID             string              `gorm:"primaryKey;size:36" json:"id"`
	SiteID         string              `gorm:"size:36;not null;index:idx_alerts_site_status,priority:1" json:"site_id"`
	Dimension      control.Dimension   `gorm:"size:50;default:''" json:"dimension,omitempty"`
	Severity       control.Severity    `gorm:"size:10;not null" json:"severity"`
	Title          string              `gorm:"size:255;not null" json:"title"`
	Message        string              `gorm:"size:2000;not null" json:"message"`
	SourceTable    string              `gorm:"size:100;default:''" json:"source_table,omitempty"`
	SourceID       string              `gorm:"size:36;default:''" json:"source_id,omitempty"`
	Status         control.AlertStatus `gorm:"size:20;not null;index:idx_alerts_site_status,priority:2" json:"status"`
	ActionRequired string              `gorm:"size:1000;default:''" json:"action_required,omitempty"`
	ActionTaken    string              `gorm:"size:1000;default:''" json:"action_taken,omitempty"`
	CreatedAt      time.Time           `gorm:"autoCreateTime" json:"created_at"`
	AcknowledgedAt *time.Time          `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string              `gorm:"size:100;default:''" json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time          `json:"resolved_at,omitempty"`
	ResolvedBy     string              `gorm:"size:100;default:''" json:"resolved_by,omitempty"`
}

// TableName returns the table name for GORM.
func (Alert) TableName() string {
	return "alerts"
}

// AlertInsert is the creation shape for an alert: server-assigned columns
// (id, created_at) are omitted and filled in by the repository.
type AlertInsert struct {
	SiteID         string
	Dimension      control.Dimension
	Severity       control.Severity
	Title          string
	Message        string
	SourceTable    string
	SourceID       string
	ActionRequired string
}

// AlertPatch is the partial-update shape for an alert. Only non-nil fields
// are written; id, site_id and created_at are immutable.
type AlertPatch struct {
	Severity       *control.Severity
	Title          *string
	Message        *string
	Status         *control.AlertStatus
	ActionRequired *string
	ActionTaken    *string
	AcknowledgedAt *time.Time
	AcknowledgedBy *string
	ResolvedAt     *time.Time
	ResolvedBy     *string
}
