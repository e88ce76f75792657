package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/acadsuite/campus-portal-api/internal/middleware"
	"github.com/acadsuite/campus-portal-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func scopeFromContext(c *gin.Context) models.Scope {
	value, exists := c.Get(middleware.ContextScopeKey)
	if !exists {
		return models.Scope{}
	}
	scope, ok := value.(models.Scope)
	if !ok {
		return models.Scope{}
	}
	return scope
}
