package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/upwatch-dev/upwatch/internal/incidents"
	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/monitors"
	"github.com/upwatch-dev/upwatch/internal/types"
	"github.com/upwatch-dev/upwatch/internal/validate"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Listener receives status-change events after they are committed.
type Listener interface {
	OnStatusChange(ctx context.Context, event types.StatusChangeEvent)
}

// Tracker is the per-(monitor, region) state machine. All mutations of the
// status snapshot and open incidents go through Apply, which serializes work
// per key so concurrent ticks can never double-open an incident or flip
// status inconsistently.
type Tracker struct {
	db        *gorm.DB
	logger    *zap.Logger
	keys      *keyedMutex
	listeners []Listener
}

func New(db *gorm.DB, logger *zap.Logger) *Tracker {
	return &Tracker{
		db:     db,
		logger: logger,
		keys:   newKeyedMutex(),
	}
}

func (t *Tracker) Subscribe(l Listener) {
	t.listeners = append(t.listeners, l)
}

// Apply feeds one probe result through validation, the state machine and
// incident handling. A result for a deleted monitor is silently discarded,
// as is a result older than the last applied check.
func (t *Tracker) Apply(ctx context.Context, monitorID uint, region string, result types.ProbeResult) error {
	unlock := t.keys.Lock(monitorID, region)
	defer unlock()

	var change *types.StatusChangeEvent

	err := t.db.Transaction(func(tx *gorm.DB) error {
		var monitor models.Monitor

		if err := tx.First(&monitor, monitorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				t.logger.Info("dropping result for deleted monitor", zap.Uint("monitor_id", monitorID))
				return nil
			}
			return err
		}

		rules, err := monitors.ParseRules(monitor.ValidationRules)
		if err != nil {
			t.logger.Warn("unparseable validation rules, skipping them",
				zap.Uint("monitor_id", monitorID), zap.Error(err))
			rules = nil
		}

		outcome := validate.Apply(result, rules)

		status, err := t.loadStatus(tx, monitorID, region)
		if err != nil {
			return err
		}

		if status.LastCheckedAt != nil && result.Timestamp.Before(*status.LastCheckedAt) {
			t.logger.Warn("discarding stale probe result",
				zap.Uint("monitor_id", monitorID), zap.String("region", region))
			return nil
		}

		if err := tx.Create(buildCheckEvent(&monitor, region, result, outcome)).Error; err != nil {
			return err
		}

		ok := result.OK() && outcome.Passed
		prev := types.MonitorState(status.Status)
		reason := failureReason(result, outcome)

		var to types.MonitorState

		if ok {
			status.ConsecutiveSuccesses++
			status.ConsecutiveFailures = 0
			if prev != types.StateUp && status.ConsecutiveSuccesses >= monitor.RecoveryThreshold {
				to = types.StateUp
			}
		} else {
			status.ConsecutiveFailures++
			status.ConsecutiveSuccesses = 0
			if prev != types.StateDown && status.ConsecutiveFailures >= monitor.FailureThreshold {
				to = types.StateDown
			}
		}

		switch {
		case to == types.StateDown:
			if _, _, err := incidents.Open(tx, &monitor, region, result, reason); err != nil {
				return err
			}
		case to == types.StateUp:
			if _, err := incidents.CloseOnRecovery(tx, monitorID, region, result.Timestamp); err != nil {
				return err
			}
		case !ok:
			if err := incidents.RecordFailure(tx, monitorID, region, result, reason); err != nil {
				return err
			}
		}

		if to != "" {
			status.Status = string(to)
		}

		if err := refreshWindows(tx, status); err != nil {
			return err
		}

		now := time.Now()
		status.LastCheckedAt = &now
		status.NextCheckAt = now.Add(time.Duration(monitor.Interval) * time.Second)

		if err := tx.Save(status).Error; err != nil {
			return err
		}

		if err := t.evaluateAlertRules(tx, &monitor, result, status); err != nil {
			return err
		}

		if to != "" {
			change = &types.StatusChangeEvent{
				MonitorID:   monitor.ID,
				MonitorName: monitor.Name,
				MonitorType: monitor.Type,
				OrgID:       monitor.OrgID,
				Region:      region,
				From:        prev,
				To:          to,
				Result:      result,
				Reason:      reason,
			}
		}

		return nil
	})

	if err != nil {
		return err
	}

	if change != nil {
		t.logger.Info("status transition",
			zap.Uint("monitor_id", change.MonitorID),
			zap.String("region", change.Region),
			zap.String("from", string(change.From)),
			zap.String("to", string(change.To)))

		for _, l := range t.listeners {
			l.OnStatusChange(ctx, *change)
		}
	}

	return nil
}

// SeedStatuses creates the unknown status rows for a monitor's regions so the
// scheduler picks the monitor up on its next pass.
func SeedStatuses(db *gorm.DB, monitor *models.Monitor) error {
	now := time.Now()

	for _, region := range monitor.RegionList() {
		status := models.MonitorStatus{
			MonitorID:   monitor.ID,
			Region:      region,
			Status:      string(types.StateUnknown),
			NextCheckAt: now,
		}

		err := db.Where("monitor_id = ? AND region = ?", monitor.ID, region).
			FirstOrCreate(&status).Error
		if err != nil {
			return err
		}
	}

	return nil
}

func (t *Tracker) loadStatus(tx *gorm.DB, monitorID uint, region string) (*models.MonitorStatus, error) {
	var status models.MonitorStatus

	err := tx.Where("monitor_id = ? AND region = ?", monitorID, region).First(&status).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		status = models.MonitorStatus{
			MonitorID: monitorID,
			Region:    region,
			Status:    string(types.StateUnknown),
		}
		return &status, nil
	}

	if err != nil {
		return nil, err
	}

	return &status, nil
}

func buildCheckEvent(monitor *models.Monitor, region string, result types.ProbeResult, outcome validate.Outcome) *models.CheckEvent {
	event := &models.CheckEvent{
		MonitorID:      monitor.ID,
		OrgID:          monitor.OrgID,
		Region:         region,
		Status:         string(result.Status),
		StatusCode:     result.StatusCode,
		ResponseTimeMs: result.DurationMs,
		ResponseSize:   result.ResponseSize,
		ErrorType:      string(result.ErrorType),
		ErrorMessage:   result.ErrorMessage,
		CheckedAt:      result.Timestamp,
	}

	if result.Timings != nil {
		event.DNSMs = result.Timings.DNSMs
		event.ConnectMs = result.Timings.ConnectMs
		event.TLSMs = result.Timings.TLSMs
		event.TTFBMs = result.Timings.TTFBMs
		event.TransferMs = result.Timings.TransferMs
	}

	if len(outcome.Errors) > 0 {
		if raw, err := json.Marshal(outcome.Errors); err == nil {
			event.ValidationErrors = raw
		}
	}

	return event
}

func failureReason(result types.ProbeResult, outcome validate.Outcome) string {
	if outcome.Passed {
		return ""
	}

	parts := make([]string, 0, len(outcome.Errors))
	for _, e := range outcome.Errors {
		parts = append(parts, e.Message)
	}

	return strings.Join(parts, "; ")
}
