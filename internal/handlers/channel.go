package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/upwatch-dev/upwatch/db"
	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/types"
	"github.com/upwatch-dev/upwatch/internal/utils"
	"gorm.io/gorm"
)

type ChannelRequest struct {
	Name            string                 `json:"name" binding:"required"`
	Type            string                 `json:"type" binding:"required"` // email, discord, slack, sms
	Enabled         *bool                  `json:"enabled"`
	Config          map[string]interface{} `json:"config" binding:"required"`
	MonitorIDs      []uint                 `json:"monitor_ids"` // null applies to all monitors
	TriggerEvents   []string               `json:"trigger_events" binding:"required"`
	CooldownMinutes int                    `json:"cooldown_minutes"`
}

func GetChannels(ctx *gin.Context) {
	orgID, err := utils.GetOrgID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var channels []models.NotificationChannel

	if err := db.DB.Where("org_id = ?", orgID).Order("id ASC").Find(&channels).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve channels"})
		return
	}

	ctx.JSON(http.StatusOK, channels)
}

func CreateChannel(ctx *gin.Context) {
	orgID, err := utils.GetOrgID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req ChannelRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel, err := buildChannel(orgID, &req)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := db.DB.Create(channel).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create channel"})
		return
	}

	ctx.JSON(http.StatusCreated, channel)
}

func UpdateChannel(ctx *gin.Context) {
	channel, ok := loadChannel(ctx)
	if !ok {
		return
	}

	var req ChannelRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := buildChannel(channel.OrgID, &req)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel.Name = updated.Name
	channel.Type = updated.Type
	channel.Enabled = updated.Enabled
	channel.Config = updated.Config
	channel.MonitorIDs = updated.MonitorIDs
	channel.TriggerEvents = updated.TriggerEvents
	channel.CooldownMinutes = updated.CooldownMinutes

	if err := db.DB.Save(channel).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update channel"})
		return
	}

	ctx.JSON(http.StatusOK, channel)
}

func DeleteChannel(ctx *gin.Context) {
	channel, ok := loadChannel(ctx)
	if !ok {
		return
	}

	if err := db.DB.Delete(channel).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete channel"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

// TestChannel fires a test message through the channel's transport,
// bypassing cooldown and trigger filtering.
func TestChannel(ctx *gin.Context) {
	channel, ok := loadChannel(ctx)
	if !ok {
		return
	}

	if err := notifier.Test(ctx.Request.Context(), channel); err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Test notification sent"})
}

func buildChannel(orgID uint, req *ChannelRequest) (*models.NotificationChannel, error) {
	switch types.ChannelType(req.Type) {
	case types.ChannelEmail, types.ChannelDiscord, types.ChannelSlack, types.ChannelSMS:
	default:
		return nil, errors.New("unsupported channel type")
	}

	if len(req.TriggerEvents) == 0 {
		return nil, errors.New("at least one trigger event is required")
	}

	for _, event := range req.TriggerEvents {
		switch types.TriggerEvent(event) {
		case types.TriggerDown, types.TriggerRecovery:
		default:
			return nil, errors.New("unsupported trigger event " + event)
		}
	}

	if req.CooldownMinutes < 0 {
		return nil, errors.New("cooldown_minutes must not be negative")
	}

	configJSON, err := json.Marshal(req.Config)
	if err != nil {
		return nil, errors.New("invalid config format")
	}

	channel := &models.NotificationChannel{
		OrgID:           orgID,
		Name:            req.Name,
		Type:            req.Type,
		Enabled:         true,
		Config:          configJSON,
		MonitorIDs:      req.MonitorIDs,
		TriggerEvents:   req.TriggerEvents,
		CooldownMinutes: req.CooldownMinutes,
	}

	if req.Enabled != nil {
		channel.Enabled = *req.Enabled
	}

	return channel, nil
}

func loadChannel(ctx *gin.Context) (*models.NotificationChannel, bool) {
	orgID, err := utils.GetOrgID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	channelID, err := utils.GetChannelID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	var channel models.NotificationChannel

	if err := db.DB.Where("id = ? AND org_id = ?", channelID, orgID).First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve channel"})
		}
		return nil, false
	}

	return &channel, true
}
