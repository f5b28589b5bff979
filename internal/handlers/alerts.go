package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/upwatch-dev/upwatch/db"
	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/utils"
	"gorm.io/gorm"
)

type AlertRuleRequest struct {
	Name      string  `json:"name" binding:"required"`
	Condition string  `json:"condition" binding:"required"` // response_time_above, uptime_below
	Threshold float64 `json:"threshold" binding:"required"`
	Enabled   *bool   `json:"enabled"`
}

func GetAlertRules(ctx *gin.Context) {
	monitor, ok := loadMonitor(ctx)
	if !ok {
		return
	}

	var rules []models.AlertRule

	if err := db.DB.Where("monitor_id = ?", monitor.ID).Order("id ASC").Find(&rules).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alert rules"})
		return
	}

	ctx.JSON(http.StatusOK, rules)
}

func CreateAlertRule(ctx *gin.Context) {
	monitor, ok := loadMonitor(ctx)
	if !ok {
		return
	}

	var req AlertRuleRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Condition {
	case models.AlertConditionResponseTimeAbove, models.AlertConditionUptimeBelow:
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported alert condition"})
		return
	}

	rule := models.AlertRule{
		MonitorID: monitor.ID,
		OrgID:     monitor.OrgID,
		Name:      req.Name,
		Condition: req.Condition,
		Threshold: req.Threshold,
		Enabled:   true,
	}

	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := db.DB.Create(&rule).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert rule"})
		return
	}

	ctx.JSON(http.StatusCreated, rule)
}

func DeleteAlertRule(ctx *gin.Context) {
	monitor, ok := loadMonitor(ctx)
	if !ok {
		return
	}

	ruleID, err := utils.GetRuleID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var rule models.AlertRule

	if err := db.DB.Where("id = ? AND monitor_id = ?", ruleID, monitor.ID).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Alert rule not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alert rule"})
		}
		return
	}

	if err := db.DB.Select("History").Delete(&rule).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert rule"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func GetAlertHistory(ctx *gin.Context) {
	monitor, ok := loadMonitor(ctx)
	if !ok {
		return
	}

	limit, offset := utils.Pagination(ctx, 50, 200)

	var history []models.AlertHistory

	err := db.DB.Where("monitor_id = ?", monitor.ID).
		Order("triggered_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&history).Error
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alert history"})
		return
	}

	ctx.JSON(http.StatusOK, history)
}
