package utils

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/upwatch-dev/upwatch/internal/types"
)

func GetOrgID(ctx *gin.Context) (uint, error) {
	value, exists := ctx.Get(types.ContextOrgKey)

	if !exists {
		return 0, fmt.Errorf("organization not resolved")
	}

	orgID, ok := value.(uint)

	if !ok {
		return 0, fmt.Errorf("invalid organization id in context")
	}

	return orgID, nil
}

// Actor names who performed a manual operation, for incident audit fields.
func Actor(ctx *gin.Context) string {
	if actor := ctx.GetHeader("X-User"); actor != "" {
		return actor
	}

	return "api"
}
