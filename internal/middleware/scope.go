package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/acadsuite/campus-portal-api/internal/models"
	"github.com/acadsuite/campus-portal-api/internal/service"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
	"github.com/acadsuite/campus-portal-api/pkg/response"
)

// ContextScopeKey is the gin context key storing the resolved scope.
const ContextScopeKey = "currentScope"

// Scope resolves the caller's visibility set from their claims and stores it
// for handlers. Runs after JWT.
func Scope(scopeService *service.ScopeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		scope, err := scopeService.Resolve(c.Request.Context(), claims.UserID, claims.Role)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextScopeKey, scope)
		c.Next()
	}
}
