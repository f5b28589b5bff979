package incidents

import (
	"errors"
	"fmt"
	"time"

	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/types"
	"gorm.io/gorm"
)

var ErrInvalidState = errors.New("invalid incident state transition")

// Open creates an incident for a down transition. If an open incident already
// exists for the (monitor, region) pair, the existing one is updated instead
// of duplicating, which keeps the at-most-one-open invariant under concurrent
// ticks.
func Open(db *gorm.DB, monitor *models.Monitor, region string, result types.ProbeResult, reason string) (*models.Incident, bool, error) {
	existing, err := findOpen(db, monitor.ID, region)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		existing.FailureCount++
		existing.LastError = reason
		existing.LastErrorType = string(result.ErrorType)
		if err := db.Save(existing).Error; err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	incident := &models.Incident{
		MonitorID:     monitor.ID,
		OrgID:         monitor.OrgID,
		Region:        region,
		Status:        models.IncidentActive,
		StartTime:     result.Timestamp,
		LastError:     reason,
		LastErrorType: string(result.ErrorType),
		FailureCount:  1,
	}

	if err := db.Create(incident).Error; err != nil {
		return nil, false, err
	}

	return incident, true, nil
}

// RecordFailure bumps the open incident for every bad probe while it stays
// open, even without a fresh transition. No open incident is not an error.
func RecordFailure(db *gorm.DB, monitorID uint, region string, result types.ProbeResult, reason string) error {
	incident, err := findOpen(db, monitorID, region)
	if err != nil {
		return err
	}

	if incident == nil {
		return nil
	}

	incident.FailureCount++
	incident.LastError = reason
	incident.LastErrorType = string(result.ErrorType)

	return db.Save(incident).Error
}

// CloseOnRecovery resolves the open incident for a recovery transition.
// Auto-resolve overrides acknowledged but never touches resolved incidents.
func CloseOnRecovery(db *gorm.DB, monitorID uint, region string, at time.Time) (*models.Incident, error) {
	incident, err := findOpen(db, monitorID, region)
	if err != nil {
		return nil, err
	}

	if incident == nil {
		return nil, nil
	}

	incident.EndTime = &at
	incident.Status = models.IncidentResolved
	incident.ResolvedAt = &at

	if err := db.Save(incident).Error; err != nil {
		return nil, err
	}

	return incident, nil
}

// Acknowledge moves an active incident to acknowledged. Acknowledging an
// already-acknowledged incident is a no-op, not an error.
func Acknowledge(db *gorm.DB, orgID, incidentID uint, actor string) (*models.Incident, error) {
	var incident models.Incident

	if err := db.Where("id = ? AND org_id = ?", incidentID, orgID).First(&incident).Error; err != nil {
		return nil, err
	}

	switch incident.Status {
	case models.IncidentAcknowledged:
		return &incident, nil
	case models.IncidentResolved:
		return nil, fmt.Errorf("%w: cannot acknowledge a resolved incident", ErrInvalidState)
	}

	now := time.Now()
	incident.Status = models.IncidentAcknowledged
	incident.AcknowledgedBy = &actor
	incident.AcknowledgedAt = &now

	if err := db.Save(&incident).Error; err != nil {
		return nil, err
	}

	return &incident, nil
}

// Resolve manually closes an incident from active or acknowledged. Resolved
// is terminal; resolving again is a no-op.
func Resolve(db *gorm.DB, orgID, incidentID uint, actor string) (*models.Incident, error) {
	var incident models.Incident

	if err := db.Where("id = ? AND org_id = ?", incidentID, orgID).First(&incident).Error; err != nil {
		return nil, err
	}

	if incident.Status == models.IncidentResolved {
		return &incident, nil
	}

	now := time.Now()
	if incident.EndTime == nil {
		incident.EndTime = &now
	}
	incident.Status = models.IncidentResolved
	incident.ResolvedBy = &actor
	incident.ResolvedAt = &now

	if err := db.Save(&incident).Error; err != nil {
		return nil, err
	}

	return &incident, nil
}

func findOpen(db *gorm.DB, monitorID uint, region string) (*models.Incident, error) {
	var incident models.Incident

	err := db.Where("monitor_id = ? AND region = ? AND end_time IS NULL", monitorID, region).
		Order("start_time DESC").
		First(&incident).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &incident, nil
}
