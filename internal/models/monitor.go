package models

import (
	"gorm.io/datatypes"
)

type Monitor struct {
	BaseModel

	OrgID             uint           `gorm:"not null;index" json:"org_id"`
	Name              string         `gorm:"not null" json:"name"`
	Type              string         `gorm:"not null" json:"type"` // "http" or "tcp"
	Enabled           bool           `gorm:"not null;default:true" json:"enabled"`
	Interval          int            `gorm:"not null" json:"interval"` // seconds
	MonitoringType    string         `gorm:"not null;default:local" json:"monitoring_type"`
	Regions           []string       `gorm:"serializer:json" json:"regions"`
	Config            datatypes.JSON `gorm:"type:jsonb" json:"config"`
	ValidationRules   datatypes.JSON `gorm:"type:jsonb" json:"validation_rules,omitempty"`
	FailureThreshold  int            `gorm:"not null;default:1" json:"failure_threshold"`
	RecoveryThreshold int            `gorm:"not null;default:1" json:"recovery_threshold"`

	// Relationships
	Statuses    []MonitorStatus `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	CheckEvents []CheckEvent    `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	Incidents   []Incident      `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	AlertRules  []AlertRule     `gorm:"foreignKey:MonitorID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}

// RegionList returns the configured regions, falling back to the default
// region for monitors created without one.
func (m *Monitor) RegionList() []string {
	if len(m.Regions) == 0 {
		return []string{"default"}
	}
	return m.Regions
}
