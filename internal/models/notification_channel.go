package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationChannel struct {
	BaseModel

	OrgID   uint           `gorm:"not null;index" json:"org_id"`
	Name    string         `gorm:"not null" json:"name"`
	Type    string         `gorm:"not null" json:"type"` // "email", "discord", "slack", "sms"
	Enabled bool           `gorm:"not null;default:true" json:"enabled"`
	Config  datatypes.JSON `gorm:"type:jsonb" json:"config"`

	// nil means the channel applies to every monitor in the organization.
	MonitorIDs    []uint   `gorm:"serializer:json" json:"monitor_ids"`
	TriggerEvents []string `gorm:"serializer:json" json:"trigger_events"`

	CooldownMinutes int        `gorm:"not null;default:0" json:"cooldown_minutes"`
	LastNotifiedAt  *time.Time `json:"last_notified_at"`
}

// AppliesTo reports whether this channel covers the given monitor.
func (c *NotificationChannel) AppliesTo(monitorID uint) bool {
	if c.MonitorIDs == nil {
		return true
	}
	for _, id := range c.MonitorIDs {
		if id == monitorID {
			return true
		}
	}
	return false
}

// Triggers reports whether the channel subscribes to the given event type.
func (c *NotificationChannel) Triggers(event string) bool {
	for _, e := range c.TriggerEvents {
		if e == event {
			return true
		}
	}
	return false
}
