package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/upwatch-dev/upwatch/internal/types"
)

// OrgScope resolves the organization every request operates on. The engine
// does not own authentication; the fronting API gateway is expected to have
// verified the caller and set this header.
func OrgScope() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		orgHeader := ctx.GetHeader("X-Org-ID")

		if orgHeader == "" {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Org-ID header is required"})
			return
		}

		orgID, err := strconv.ParseUint(orgHeader, 10, 32)

		if err != nil || orgID == 0 {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid X-Org-ID header"})
			return
		}

		ctx.Set(types.ContextOrgKey, uint(orgID))
		ctx.Next()
	}
}
