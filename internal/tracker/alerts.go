package tracker

import (
	"errors"
	"fmt"
	"time"

	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// evaluateAlertRules runs the monitor's alert rules against the freshly
// applied result, opening a history row when a condition trips and resolving
// it once the condition clears.
func (t *Tracker) evaluateAlertRules(tx *gorm.DB, monitor *models.Monitor, result types.ProbeResult, status *models.MonitorStatus) error {
	var rules []models.AlertRule

	err := tx.Where("monitor_id = ? AND enabled = ?", monitor.ID, true).Find(&rules).Error
	if err != nil {
		return err
	}

	for _, rule := range rules {
		triggered, message := evaluateCondition(rule, result, status)

		open, err := findOpenAlert(tx, rule.ID)
		if err != nil {
			return err
		}

		switch {
		case triggered && open == nil:
			history := models.AlertHistory{
				RuleID:      rule.ID,
				MonitorID:   monitor.ID,
				Status:      models.AlertTriggered,
				Message:     message,
				TriggeredAt: time.Now(),
			}
			if err := tx.Create(&history).Error; err != nil {
				return err
			}
			t.logger.Info("alert rule triggered",
				zap.Uint("rule_id", rule.ID),
				zap.Uint("monitor_id", monitor.ID),
				zap.String("message", message))
		case !triggered && open != nil:
			now := time.Now()
			open.Status = models.AlertResolved
			open.ResolvedAt = &now
			if err := tx.Save(open).Error; err != nil {
				return err
			}
			t.logger.Info("alert rule resolved",
				zap.Uint("rule_id", rule.ID),
				zap.Uint("monitor_id", monitor.ID))
		}
	}

	return nil
}

func evaluateCondition(rule models.AlertRule, result types.ProbeResult, status *models.MonitorStatus) (bool, string) {
	switch rule.Condition {
	case models.AlertConditionResponseTimeAbove:
		if result.OK() && result.DurationMs > rule.Threshold {
			return true, fmt.Sprintf("response time %.0fms above %.0fms", result.DurationMs, rule.Threshold)
		}
	case models.AlertConditionUptimeBelow:
		if status.Uptime24h != nil && *status.Uptime24h < rule.Threshold {
			return true, fmt.Sprintf("24h uptime %.2f%% below %.2f%%", *status.Uptime24h, rule.Threshold)
		}
	}

	return false, ""
}

func findOpenAlert(tx *gorm.DB, ruleID uint) (*models.AlertHistory, error) {
	var history models.AlertHistory

	err := tx.Where("rule_id = ? AND status = ?", ruleID, models.AlertTriggered).
		Order("triggered_at DESC").
		First(&history).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &history, nil
}
