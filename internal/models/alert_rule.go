package models

import (
	"time"
)

const (
	AlertConditionResponseTimeAbove = "response_time_above"
	AlertConditionUptimeBelow       = "uptime_below"
)

type AlertRule struct {
	BaseModel

	MonitorID uint    `gorm:"not null;index" json:"monitor_id"`
	OrgID     uint    `gorm:"not null;index" json:"org_id"`
	Name      string  `gorm:"not null" json:"name"`
	Condition string  `gorm:"not null" json:"condition"`
	Threshold float64 `gorm:"not null" json:"threshold"`
	Enabled   bool    `gorm:"not null;default:true" json:"enabled"`

	// Relationships
	Monitor Monitor        `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	History []AlertHistory `gorm:"foreignKey:RuleID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}

const (
	AlertTriggered = "triggered"
	AlertResolved  = "resolved"
)

type AlertHistory struct {
	BaseModel

	RuleID    uint   `gorm:"not null;index" json:"rule_id"`
	MonitorID uint   `gorm:"not null;index" json:"monitor_id"`
	Status    string `gorm:"not null" json:"status"` // "triggered" or "resolved"
	Message   string `json:"message"`

	TriggeredAt time.Time  `gorm:"not null" json:"triggered_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
}
