package entities

import (
	"time"

	"github.com/site360/site360-go/internal/control"
)

// Observation is a single dimension-tagged measurement derived from one
// upstream domain record. Observations are immutable once created; there is
// no update shape for them.
type Observation struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	SiteID      string            `gorm:"size:36;not null;index:idx_observations_site_dim_date,priority:1" json:"site_id"`
	Dimension   control.Dimension `gorm:"size:50;not null;index:idx_observations_site_dim_date,priority:2" json:"dimension"`
	MetricKey   string            `gorm:"size:100;not null" json:"metric_key"`
	Value       float64           `gorm:"not null" json:"value"`
	Unit        string            `gorm:"size:20;default:''" json:"unit"`
	ObservedAt  time.Time         `gorm:"not null;index:idx_observations_site_dim_date,priority:3" json:"observed_at"`
	SourceTable string            `gorm:"size:100;not null" json:"source_table"`
	SourceID    string            `gorm:"size:36;not null" json:"source_id"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for GORM.
func (Observation) TableName() string {
	return "observations"
}
