package models

import (
	"time"
)

// MonitorStatus is the current-state snapshot for one (monitor, region) pair.
// It is written exclusively by the status tracker.
type MonitorStatus struct {
	BaseModel

	MonitorID uint   `gorm:"not null;uniqueIndex:idx_monitor_region" json:"monitor_id"`
	Region    string `gorm:"not null;uniqueIndex:idx_monitor_region" json:"region"`
	Status    string `gorm:"not null;default:unknown" json:"status"` // "up", "down", "unknown"

	ConsecutiveFailures  int `gorm:"not null;default:0" json:"consecutive_failures"`
	ConsecutiveSuccesses int `gorm:"not null;default:0" json:"consecutive_successes"`

	LastCheckedAt *time.Time `json:"last_checked_at"`
	NextCheckAt   time.Time  `gorm:"not null;index" json:"next_check_at"`

	// Derived rolling windows; nil until at least one check exists in the window.
	Uptime24h          *float64 `json:"uptime_percentage_24h"`
	Uptime7d           *float64 `json:"uptime_percentage_7d"`
	Uptime30d          *float64 `json:"uptime_percentage_30d"`
	AvgResponseTime24h *float64 `json:"average_response_time_24h"`

	// Relationships
	Monitor Monitor `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
