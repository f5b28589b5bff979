package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/upwatch-dev/upwatch/db"
	"github.com/upwatch-dev/upwatch/internal/incidents"
	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/utils"
	"gorm.io/gorm"
)

func GetIncidents(ctx *gin.Context) {
	orgID, err := utils.GetOrgID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, offset := utils.Pagination(ctx, 50, 200)

	query := db.DB.Where("org_id = ?", orgID)

	switch status := ctx.Query("status"); status {
	case "", "all":
	case models.IncidentActive, models.IncidentAcknowledged, models.IncidentResolved:
		query = query.Where("status = ?", status)
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
		return
	}

	var incidentList []models.Incident

	err = query.Order("start_time DESC").Limit(limit).Offset(offset).Find(&incidentList).Error
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve incidents"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"incidents": incidentList,
		"limit":     limit,
		"offset":    offset,
	})
}

func AcknowledgeIncident(ctx *gin.Context) {
	orgID, incidentID, ok := incidentParams(ctx)
	if !ok {
		return
	}

	incident, err := incidents.Acknowledge(db.DB, orgID, incidentID, utils.Actor(ctx))

	if err != nil {
		respondIncidentError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, incident)
}

func ResolveIncident(ctx *gin.Context) {
	orgID, incidentID, ok := incidentParams(ctx)
	if !ok {
		return
	}

	incident, err := incidents.Resolve(db.DB, orgID, incidentID, utils.Actor(ctx))

	if err != nil {
		respondIncidentError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, incident)
}

func incidentParams(ctx *gin.Context) (uint, uint, bool) {
	orgID, err := utils.GetOrgID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, 0, false
	}

	incidentID, err := utils.GetIncidentID(ctx)

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, 0, false
	}

	return orgID, incidentID, true
}

func respondIncidentError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Incident not found"})
	case errors.Is(err, incidents.ErrInvalidState):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update incident"})
	}
}
