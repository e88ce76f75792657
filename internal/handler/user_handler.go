package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acadsuite/campus-portal-api/internal/service"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
	"github.com/acadsuite/campus-portal-api/pkg/response"
)

// UserHandler handles admin user provisioning endpoints.
type UserHandler struct {
	service *service.ProvisioningService
}

// NewUserHandler constructs a user handler.
func NewUserHandler(svc *service.ProvisioningService) *UserHandler {
	return &UserHandler{service: svc}
}

// Create godoc
// @Summary Provision a user and their role record
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.ProvisionUserRequest true "User payload"
// @Success 201 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ProvisionUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.CreateUser(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Reactivated {
		response.JSON(c, http.StatusOK, result, nil)
		return
	}
	response.Created(c, result)
}
