package utils

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

func pathID(ctx *gin.Context, name string) (uint, error) {
	raw := ctx.Param(name)

	if raw == "" {
		return 0, errors.New("missing " + name)
	}

	id, err := strconv.ParseUint(raw, 10, 32)

	if err != nil {
		return 0, errors.New("invalid " + name)
	}

	return uint(id), nil
}

func GetMonitorID(ctx *gin.Context) (uint, error) {
	return pathID(ctx, "monitor_id")
}

func GetIncidentID(ctx *gin.Context) (uint, error) {
	return pathID(ctx, "incident_id")
}

func GetChannelID(ctx *gin.Context) (uint, error) {
	return pathID(ctx, "channel_id")
}

func GetRuleID(ctx *gin.Context) (uint, error) {
	return pathID(ctx, "rule_id")
}

// Pagination parses limit/offset query parameters with sane caps.
func Pagination(ctx *gin.Context, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit

	if raw := ctx.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	offset := 0

	if raw := ctx.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}
