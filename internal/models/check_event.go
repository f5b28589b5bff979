package models

import (
	"time"

	"gorm.io/datatypes"
)

// CheckEvent is one probe execution, append-only. It is the sole input to
// uptime/percentile aggregation and incident detection.
type CheckEvent struct {
	BaseModel

	MonitorID uint   `gorm:"not null;index:idx_event_monitor_time" json:"monitor_id"`
	OrgID     uint   `gorm:"not null;index" json:"org_id"`
	Region    string `gorm:"not null;index" json:"region"`
	Status    string `gorm:"not null" json:"status"` // "success", "failure", "timeout"

	StatusCode     int     `json:"status_code,omitempty"`
	ResponseTimeMs float64 `gorm:"not null" json:"response_time_ms"`

	// HTTP phase timings, milliseconds.
	DNSMs      float64 `json:"dns_ms,omitempty"`
	ConnectMs  float64 `json:"connect_ms,omitempty"`
	TLSMs      float64 `json:"tls_ms,omitempty"`
	TTFBMs     float64 `json:"ttfb_ms,omitempty"`
	TransferMs float64 `json:"transfer_ms,omitempty"`

	ResponseSize     int64          `json:"response_size,omitempty"`
	ValidationErrors datatypes.JSON `gorm:"type:jsonb" json:"validation_errors,omitempty"`
	ErrorType        string         `json:"error_type,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty"`

	CheckedAt time.Time `gorm:"not null;index:idx_event_monitor_time" json:"checked_at"`

	// Relationships
	Monitor Monitor `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
