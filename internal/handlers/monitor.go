package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/upwatch-dev/upwatch/db"
	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/monitors"
	"github.com/upwatch-dev/upwatch/internal/tracker"
	"github.com/upwatch-dev/upwatch/internal/types"
	"github.com/upwatch-dev/upwatch/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateMonitorRequest struct {
	Name              string                 `json:"name" binding:"required"`
	Type              string                 `json:"type" binding:"required"` // "http" or "tcp"
	Interval          int                    `json:"interval" binding:"required"`
	MonitoringType    string                 `json:"monitoring_type"`
	Regions           []string               `json:"regions"`
	Config            map[string]interface{} `json:"config" binding:"required"`
	ValidationRules   []types.ValidationRule `json:"validation_rules"`
	FailureThreshold  int                    `json:"failure_threshold"`
	RecoveryThreshold int                    `json:"recovery_threshold"`
}

type UpdateMonitorRequest struct {
	Name              string                 `json:"name" binding:"required"`
	Type              string                 `json:"type" binding:"required"`
	Interval          int                    `json:"interval" binding:"required"`
	Enabled           *bool                  `json:"enabled"`
	MonitoringType    string                 `json:"monitoring_type"`
	Regions           []string               `json:"regions"`
	Config            map[string]interface{} `json:"config" binding:"required"`
	ValidationRules   []types.ValidationRule `json:"validation_rules"`
	FailureThreshold  int                    `json:"failure_threshold"`
	RecoveryThreshold int                    `json:"recovery_threshold"`
}

type MonitorSummary struct {
	ID                uint                   `json:"id"`
	Name              string                 `json:"name"`
	Type              string                 `json:"type"`
	Enabled           bool                   `json:"enabled"`
	Interval          int                    `json:"interval"`
	MonitoringType    string                 `json:"monitoring_type"`
	Regions           []string               `json:"regions"`
	Config            map[string]interface{} `json:"config"`
	ValidationRules   []types.ValidationRule `json:"validation_rules,omitempty"`
	FailureThreshold  int                    `json:"failure_threshold"`
	RecoveryThreshold int                    `json:"recovery_threshold"`
	Statuses          []RegionStatus         `json:"statuses"`
}

type RegionStatus struct {
	Region               string     `json:"region"`
	Status               string     `json:"status"`
	ConsecutiveFailures  int        `json:"consecutive_failures"`
	ConsecutiveSuccesses int        `json:"consecutive_successes"`
	LastCheckedAt        *time.Time `json:"last_checked_at"`
	NextCheckAt          time.Time  `json:"next_check_at"`
	Uptime24h            *float64   `json:"uptime_percentage_24h"`
	Uptime7d             *float64   `json:"uptime_percentage_7d"`
	Uptime30d            *float64   `json:"uptime_percentage_30d"`
	AvgResponseTime24h   *float64   `json:"average_response_time_24h"`
}

func CreateMonitor(ctx *gin.Context) {
	var req CreateMonitorRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orgID, err := utils.GetOrgID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	monitor, err := buildMonitor(orgID, req.Name, req.Type, req.Interval, req.MonitoringType,
		req.Regions, req.Config, req.ValidationRules, req.FailureThreshold, req.RecoveryThreshold)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := db.DB.Create(monitor).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create monitor"})
		return
	}

	// Seed status rows so the scheduler picks the monitor up immediately.
	if err := tracker.SeedStatuses(db.DB, monitor); err != nil {
		logger.Error("failed to seed monitor statuses", zap.Uint("monitor_id", monitor.ID), zap.Error(err))
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Monitor created successfully", "monitor_id": monitor.ID})
}

func GetMonitors(ctx *gin.Context) {
	orgID, err := utils.GetOrgID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var monitorList []models.Monitor

	if err := db.DB.Where("org_id = ?", orgID).Order("id ASC").Find(&monitorList).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve monitors"})
		return
	}

	summaries := make([]MonitorSummary, 0, len(monitorList))

	for i := range monitorList {
		summaries = append(summaries, buildMonitorSummary(&monitorList[i]))
	}

	ctx.JSON(http.StatusOK, summaries)
}

func GetMonitor(ctx *gin.Context) {
	monitor, ok := loadMonitor(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, buildMonitorSummary(monitor))
}

func UpdateMonitor(ctx *gin.Context) {
	monitor, ok := loadMonitor(ctx)
	if !ok {
		return
	}

	var req UpdateMonitorRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := buildMonitor(monitor.OrgID, req.Name, req.Type, req.Interval, req.MonitoringType,
		req.Regions, req.Config, req.ValidationRules, req.FailureThreshold, req.RecoveryThreshold)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	monitor.Name = updated.Name
	monitor.Type = updated.Type
	monitor.Interval = updated.Interval
	monitor.MonitoringType = updated.MonitoringType
	monitor.Regions = updated.Regions
	monitor.Config = updated.Config
	monitor.ValidationRules = updated.ValidationRules
	monitor.FailureThreshold = updated.FailureThreshold
	monitor.RecoveryThreshold = updated.RecoveryThreshold

	if req.Enabled != nil {
		monitor.Enabled = *req.Enabled
	}

	if err := db.DB.Save(monitor).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update monitor"})
		return
	}

	if err := syncStatusRows(monitor); err != nil {
		logger.Error("failed to sync monitor statuses", zap.Uint("monitor_id", monitor.ID), zap.Error(err))
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Monitor updated successfully", "monitor_id": monitor.ID})
}

func DeleteMonitor(ctx *gin.Context) {
	monitor, ok := loadMonitor(ctx)
	if !ok {
		return
	}

	// Cascades to statuses, events, incidents and alert rules. An in-flight
	// probe's late write is discarded by the tracker's existence check.
	if err := db.DB.Select("Statuses", "CheckEvents", "Incidents", "AlertRules").Delete(monitor).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete monitor"})
		return
	}

	if statsService != nil {
		statsService.Invalidate(ctx.Request.Context(), monitor.ID)
	}

	ctx.Status(http.StatusNoContent)
}

func GetMonitorEvents(ctx *gin.Context) {
	monitor, ok := loadMonitor(ctx)
	if !ok {
		return
	}

	limit, offset := utils.Pagination(ctx, 50, 200)

	query := db.DB.Where("monitor_id = ?", monitor.ID)

	if status := ctx.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	if region := ctx.Query("region"); region != "" {
		query = query.Where("region = ?", region)
	}

	var events []models.CheckEvent

	err := query.Order("checked_at DESC").Limit(limit).Offset(offset).Find(&events).Error
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve events"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"events": events,
		"limit":  limit,
		"offset": offset,
	})
}

func GetMonitorStats(ctx *gin.Context) {
	monitor, ok := loadMonitor(ctx)
	if !ok {
		return
	}

	summary, err := statsService.Get(ctx.Request.Context(), monitor.ID, ctx.Query("region"), ctx.Query("interval"))

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, summary)
}

func buildMonitor(orgID uint, name, monitorType string, interval int, monitoringType string,
	regions []string, config map[string]interface{}, rules []types.ValidationRule,
	failureThreshold, recoveryThreshold int) (*models.Monitor, error) {

	if interval <= 0 {
		return nil, errors.New("interval must be positive")
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, errors.New("invalid config format")
	}

	if err := monitors.ValidateConfig(monitorType, configJSON); err != nil {
		return nil, err
	}

	if monitoringType == "" {
		monitoringType = string(types.MonitoringLocal)
	}

	switch types.MonitoringType(monitoringType) {
	case types.MonitoringLocal, types.MonitoringGlobal:
	default:
		return nil, errors.New("monitoring_type must be local or global")
	}

	if monitoringType == string(types.MonitoringLocal) && len(regions) > 1 {
		return nil, errors.New("local monitoring allows a single region")
	}

	monitor := &models.Monitor{
		OrgID:             orgID,
		Name:              name,
		Type:              monitorType,
		Enabled:           true,
		Interval:          interval,
		MonitoringType:    monitoringType,
		Regions:           regions,
		Config:            configJSON,
		FailureThreshold:  max(failureThreshold, 1),
		RecoveryThreshold: max(recoveryThreshold, 1),
	}

	if len(rules) > 0 {
		rulesJSON, err := json.Marshal(rules)
		if err != nil {
			return nil, errors.New("invalid validation rules")
		}
		monitor.ValidationRules = rulesJSON
	}

	return monitor, nil
}

// syncStatusRows seeds rows for new regions and drops rows for removed ones.
func syncStatusRows(monitor *models.Monitor) error {
	if err := tracker.SeedStatuses(db.DB, monitor); err != nil {
		return err
	}

	return db.DB.Where("monitor_id = ? AND region NOT IN ?", monitor.ID, monitor.RegionList()).
		Delete(&models.MonitorStatus{}).Error
}

func loadMonitor(ctx *gin.Context) (*models.Monitor, bool) {
	orgID, err := utils.GetOrgID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	monitorID, err := utils.GetMonitorID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	var monitor models.Monitor

	if err := db.DB.Where("id = ? AND org_id = ?", monitorID, orgID).First(&monitor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Monitor not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve monitor"})
		}
		return nil, false
	}

	return &monitor, true
}

func buildMonitorSummary(monitor *models.Monitor) MonitorSummary {
	var config map[string]interface{}
	if err := json.Unmarshal(monitor.Config, &config); err != nil {
		config = make(map[string]interface{})
	}

	var rules []types.ValidationRule
	if len(monitor.ValidationRules) > 0 {
		_ = json.Unmarshal(monitor.ValidationRules, &rules)
	}

	summary := MonitorSummary{
		ID:                monitor.ID,
		Name:              monitor.Name,
		Type:              monitor.Type,
		Enabled:           monitor.Enabled,
		Interval:          monitor.Interval,
		MonitoringType:    monitor.MonitoringType,
		Regions:           monitor.RegionList(),
		Config:            config,
		ValidationRules:   rules,
		FailureThreshold:  monitor.FailureThreshold,
		RecoveryThreshold: monitor.RecoveryThreshold,
		Statuses:          []RegionStatus{},
	}

	var statuses []models.MonitorStatus
	if err := db.DB.Where("monitor_id = ?", monitor.ID).Order("region ASC").Find(&statuses).Error; err != nil {
		logger.Error("failed to load monitor statuses", zap.Uint("monitor_id", monitor.ID), zap.Error(err))
		return summary
	}

	for _, status := range statuses {
		summary.Statuses = append(summary.Statuses, RegionStatus{
			Region:               status.Region,
			Status:               status.Status,
			ConsecutiveFailures:  status.ConsecutiveFailures,
			ConsecutiveSuccesses: status.ConsecutiveSuccesses,
			LastCheckedAt:        status.LastCheckedAt,
			NextCheckAt:          status.NextCheckAt,
			Uptime24h:            status.Uptime24h,
			Uptime7d:             status.Uptime7d,
			Uptime30d:            status.Uptime30d,
			AvgResponseTime24h:   status.AvgResponseTime24h,
		})
	}

	return summary
}
