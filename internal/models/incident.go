package models

import (
	"time"
)

const (
	IncidentActive       = "active"
	IncidentAcknowledged = "acknowledged"
	IncidentResolved     = "resolved"
)

// Incident is a bounded span of degraded availability for one monitor,
// scoped to one region. At most one open incident (EndTime == nil) may exist
// per (monitor, region); the tracker's keyed lock enforces it.
type Incident struct {
	BaseModel

	MonitorID uint   `gorm:"not null;index" json:"monitor_id"`
	OrgID     uint   `gorm:"not null;index" json:"org_id"`
	Region    string `gorm:"not null;index" json:"region"`

	Status    string     `gorm:"not null;default:active" json:"status"`
	StartTime time.Time  `gorm:"not null" json:"start_time"`
	EndTime   *time.Time `json:"end_time"`

	AcknowledgedBy *string    `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedBy     *string    `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`

	LastError     string `json:"last_error,omitempty"`
	LastErrorType string `json:"last_error_type,omitempty"`
	FailureCount  int    `gorm:"not null;default:1" json:"failure_count"`

	// Relationships
	Monitor Monitor `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}

// Duration is the incident length for display, using now while still open.
func (i *Incident) Duration(now time.Time) time.Duration {
	end := now
	if i.EndTime != nil {
		end = *i.EndTime
	}
	return end.Sub(i.StartTime)
}
