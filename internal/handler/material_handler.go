package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/acadsuite/campus-portal-api/internal/models"
	"github.com/acadsuite/campus-portal-api/internal/service"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
	"github.com/acadsuite/campus-portal-api/pkg/response"
	"github.com/acadsuite/campus-portal-api/pkg/storage"
)

// MaterialHandler handles study material endpoints.
type MaterialHandler struct {
	service *service.MaterialService
	files   *storage.LocalStorage
}

// NewMaterialHandler constructs a material handler.
func NewMaterialHandler(svc *service.MaterialService, files *storage.LocalStorage) *MaterialHandler {
	return &MaterialHandler{service: svc, files: files}
}

// List godoc
// @Summary List study materials visible to the caller
// @Tags Materials
// @Produce json
// @Param semester_id query string false "Filter by semester"
// @Param subject_id query string false "Filter by subject"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /materials [get]
func (h *MaterialHandler) List(c *gin.Context) {
	var filter models.MaterialFilter
	filter.SemesterID = c.Query("semester_id")
	filter.SubjectID = c.Query("subject_id")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	materials, pagination, err := h.service.List(c.Request.Context(), filter, scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, materials, pagination)
}

// Get godoc
// @Summary Get material by id
// @Tags Materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Envelope
// @Router /materials/{id} [get]
func (h *MaterialHandler) Get(c *gin.Context) {
	material, err := h.service.Get(c.Request.Context(), c.Param("id"), scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, material, nil)
}

// Create godoc
// @Summary Publish a study material, optionally with a file
// @Tags Materials
// @Accept mpfd
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /materials [post]
func (h *MaterialHandler) Create(c *gin.Context) {
	var req service.CreateMaterialRequest
	req.SemesterID = c.PostForm("semester_id")
	if subjectID := c.PostForm("subject_id"); subjectID != "" {
		req.SubjectID = &subjectID
	}
	req.Title = c.PostForm("title")
	if description := c.PostForm("description"); description != "" {
		req.Description = &description
	}
	if name, data, err := readUpload(c, "file"); err == nil {
		req.FileName = name
		req.FileData = data
	}

	material, err := h.service.Create(c.Request.Context(), req, scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, material)
}

// Update godoc
// @Summary Edit a material's title and description
// @Tags Materials
// @Accept json
// @Produce json
// @Param id path string true "Material ID"
// @Param payload body service.UpdateMaterialRequest true "Material payload"
// @Success 200 {object} response.Envelope
// @Router /materials/{id} [put]
func (h *MaterialHandler) Update(c *gin.Context) {
	var req service.UpdateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	material, err := h.service.Update(c.Request.Context(), c.Param("id"), req, scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, material, nil)
}

// Delete godoc
// @Summary Soft-delete a material
// @Tags Materials
// @Param id path string true "Material ID"
// @Success 204
// @Router /materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), scopeFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DownloadLink godoc
// @Summary Issue a short-lived signed download URL
// @Tags Materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Envelope
// @Router /materials/{id}/download [get]
func (h *MaterialHandler) DownloadLink(c *gin.Context) {
	link, err := h.service.DownloadLink(c.Request.Context(), c.Param("id"), scopeFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Stream a file referenced by a signed token
// @Tags Materials
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Router /downloads/{token} [get]
func (h *MaterialHandler) Download(c *gin.Context) {
	material, relPath, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.files.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	defer file.Close()

	filename := "download"
	if material.FileName != nil {
		filename = *material.FileName
	}
	c.FileAttachment(h.files.Path(relPath), filename)
}
