package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadsuite/campus-portal-api/internal/models"
	"github.com/acadsuite/campus-portal-api/internal/service"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
	"github.com/acadsuite/campus-portal-api/pkg/response"
)

// DashboardHandler handles role dashboard endpoints.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Get godoc
// @Summary Return the dashboard matching the caller's role
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	scope := scopeFromContext(c)
	ctx := c.Request.Context()

	var (
		payload  interface{}
		cacheHit bool
		err      error
	)
	switch scope.Role {
	case models.RoleAdmin:
		payload, cacheHit, err = h.service.Admin(ctx, scope)
	case models.RoleTeacher:
		payload, cacheHit, err = h.service.Teacher(ctx, scope)
	case models.RoleStudent:
		payload, cacheHit, err = h.service.Student(ctx, scope)
	default:
		err = appErrors.ErrForbidden
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil, map[string]interface{}{"cache_hit": cacheHit})
}
