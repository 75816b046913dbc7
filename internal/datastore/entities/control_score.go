package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/site360/site360-go/internal/control"
)

// Factor records one metric's raw value and its signed contribution to the
// final score, kept for auditability.
type Factor struct {
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
}

// FactorMap serializes factors as a JSON text column. json.Marshal emits map
// keys in sorted order, so identical factor sets produce identical column
// values.
type FactorMap map[string]Factor

// Value implements driver.Valuer.
func (m FactorMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal factors: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *FactorMap) Scan(value any) error {
	if value == nil {
		*m = FactorMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FactorMap", value)
	}
	if len(data) == 0 {
		*m = FactorMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// ControlScore is the computed per-day score of one control dimension at one
// site. One logical record exists per (site_id, dimension, date);
// recomputation upserts the same slot.
type ControlScore struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	SiteID          string            `gorm:"size:36;not null;uniqueIndex:uq_scores_site_dim_date,priority:1" json:"site_id"`
	Dimension       control.Dimension `gorm:"size:50;not null;uniqueIndex:uq_scores_site_dim_date,priority:2" json:"dimension"`
	Date            string            `gorm:"size:10;not null;uniqueIndex:uq_scores_site_dim_date,priority:3" json:"date"`
	Score           float64           `gorm:"not null" json:"score"`
	Factors         FactorMap         `gorm:"type:text" json:"factors"`
	Trend           control.Trend     `gorm:"size:10;not null;default:'flat'" json:"trend"`
	Recommendations string            `gorm:"size:2000;default:''" json:"recommendations"`
	CalculatedAt    time.Time         `gorm:"not null" json:"calculated_at"`
	CalculatedBy    string            `gorm:"size:100;not null" json:"calculated_by"`
}

// TableName returns the table name for GORM.
func (ControlScore) TableName() string {
	return "control_scores"
}

// ControlScorePatch is the partial-update shape for a score row. Only
// non-nil fields are written; the natural key and id are immutable.
type ControlScorePatch struct {
	Score           *float64
	Factors         *FactorMap
	Trend           *control.Trend
	Recommendations *string
	CalculatedAt    *time.Time
	CalculatedBy    *string
}
