package tracker

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/types"
	"gorm.io/gorm"
)

// refreshWindows recomputes the rolling uptime and latency aggregates from
// the event store. Windows with zero checks stay nil rather than 0 or 100.
// A failed query aborts the tick instead of persisting empty aggregates.
func refreshWindows(tx *gorm.DB, status *models.MonitorStatus) error {
	now := time.Now()

	uptime24h, err := windowUptime(tx, status.MonitorID, status.Region, now.Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("24h uptime window: %w", err)
	}

	uptime7d, err := windowUptime(tx, status.MonitorID, status.Region, now.Add(-7*24*time.Hour))
	if err != nil {
		return fmt.Errorf("7d uptime window: %w", err)
	}

	uptime30d, err := windowUptime(tx, status.MonitorID, status.Region, now.Add(-30*24*time.Hour))
	if err != nil {
		return fmt.Errorf("30d uptime window: %w", err)
	}

	avgResponse, err := windowAvgResponse(tx, status.MonitorID, status.Region, now.Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("24h response average: %w", err)
	}

	status.Uptime24h = uptime24h
	status.Uptime7d = uptime7d
	status.Uptime30d = uptime30d
	status.AvgResponseTime24h = avgResponse

	return nil
}

func windowUptime(tx *gorm.DB, monitorID uint, region string, since time.Time) (*float64, error) {
	var total, successful int64

	err := tx.Model(&models.CheckEvent{}).
		Where("monitor_id = ? AND region = ? AND checked_at > ?", monitorID, region, since).
		Count(&total).Error
	if err != nil {
		return nil, err
	}

	if total == 0 {
		return nil, nil
	}

	err = tx.Model(&models.CheckEvent{}).
		Where("monitor_id = ? AND region = ? AND status = ? AND checked_at > ?",
			monitorID, region, types.CheckSuccess, since).
		Count(&successful).Error
	if err != nil {
		return nil, err
	}

	pct := float64(successful) / float64(total) * 100

	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	return &pct, nil
}

func windowAvgResponse(tx *gorm.DB, monitorID uint, region string, since time.Time) (*float64, error) {
	var avg sql.NullFloat64

	err := tx.Model(&models.CheckEvent{}).
		Select("AVG(response_time_ms)").
		Where("monitor_id = ? AND region = ? AND status = ? AND checked_at > ?",
			monitorID, region, types.CheckSuccess, since).
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}

	if !avg.Valid {
		return nil, nil
	}

	return &avg.Float64, nil
}
