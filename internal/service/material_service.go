package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/acadsuite/campus-portal-api/internal/models"
	appErrors "github.com/acadsuite/campus-portal-api/pkg/errors"
	"github.com/acadsuite/campus-portal-api/pkg/storage"
)

type materialRepository interface {
	List(ctx context.Context, filter models.MaterialFilter) ([]models.MaterialDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Material, error)
	Create(ctx context.Context, material *models.Material) error
	Update(ctx context.Context, material *models.Material) error
	Deactivate(ctx context.Context, id string) error
}

type materialSigner interface {
	Generate(recordID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (recordID, relPath string, expiresAt time.Time, err error)
}

// CreateMaterialRequest holds payload for sharing a material.
type CreateMaterialRequest struct {
	SemesterID  string  `json:"semester_id" validate:"required"`
	SubjectID   *string `json:"subject_id"`
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description"`
	FileName    string  `json:"-"`
	FileData    []byte  `json:"-"`
}

// UpdateMaterialRequest holds payload for editing a material.
type UpdateMaterialRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description"`
}

// MaterialDownload carries a signed link for fetching the stored file.
type MaterialDownload struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MaterialService handles study material use-cases. Downloads go through
// short-lived signed tokens rather than exposing storage paths.
type MaterialService struct {
	repo      materialRepository
	uploads   uploadStore
	signer    materialSigner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMaterialService constructs the material service.
func NewMaterialService(repo materialRepository, uploads uploadStore, signer materialSigner, validate *validator.Validate, logger *zap.Logger) *MaterialService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterialService{repo: repo, uploads: uploads, signer: signer, validator: validate, logger: logger}
}

// List returns materials narrowed to the caller's scope.
func (s *MaterialService) List(ctx context.Context, filter models.MaterialFilter, scope models.Scope) ([]models.MaterialDetail, *models.Pagination, error) {
	switch scope.Role {
	case models.RoleStudent, models.RoleTeacher:
		if len(scope.SemesterIDs) == 0 {
			return []models.MaterialDetail{}, paginationFor(filter.Page, filter.PageSize, 0), nil
		}
		filter.SemesterIDs = scope.SemesterIDs
	}
	materials, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list materials")
	}
	return materials, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one material.
func (s *MaterialService) Get(ctx context.Context, id string, scope models.Scope) (*models.Material, error) {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}
	if !scope.AllowsSemester(material.SemesterID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "material is outside your semester")
	}
	return material, nil
}

// Create shares a material inside the teacher's assigned scope.
func (s *MaterialService) Create(ctx context.Context, req CreateMaterialRequest, scope models.Scope) (*models.Material, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}
	if scope.TeacherID == "" && !scope.Unrestricted() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers share materials")
	}
	subjectID := ""
	if req.SubjectID != nil {
		subjectID = *req.SubjectID
	}
	if !scope.AllowsSemester(req.SemesterID) || !scope.AllowsSubject(subjectID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "semester or subject is outside your assignments")
	}

	material := &models.Material{
		TeacherID:   scope.TeacherID,
		SemesterID:  req.SemesterID,
		SubjectID:   req.SubjectID,
		Title:       req.Title,
		Description: req.Description,
		Active:      true,
	}

	if len(req.FileData) > 0 {
		relPath := storage.ObjectPath("materials", scope.TeacherID, req.FileName)
		stored, err := s.uploads.Save(relPath, req.FileData)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store material file")
		}
		material.FilePath = &stored
		material.FileName = &req.FileName
	}

	if err := s.repo.Create(ctx, material); err != nil {
		if material.FilePath != nil {
			if cleanupErr := s.uploads.Delete(*material.FilePath); cleanupErr != nil {
				s.logger.Warn("failed to remove orphaned material file", zap.Error(cleanupErr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create material")
	}
	return material, nil
}

// Update edits a material owned by the caller.
func (s *MaterialService) Update(ctx context.Context, id string, req UpdateMaterialRequest, scope models.Scope) (*models.Material, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}
	material, err := s.ownedMaterial(ctx, id, scope)
	if err != nil {
		return nil, err
	}
	material.Title = req.Title
	material.Description = req.Description
	if err := s.repo.Update(ctx, material); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update material")
	}
	return material, nil
}

// Delete soft-deletes a material owned by the caller.
func (s *MaterialService) Delete(ctx context.Context, id string, scope models.Scope) error {
	if _, err := s.ownedMaterial(ctx, id, scope); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete material")
	}
	return nil
}

// DownloadLink issues a short-lived signed token for fetching the file.
func (s *MaterialService) DownloadLink(ctx context.Context, id string, scope models.Scope) (*MaterialDownload, error) {
	material, err := s.Get(ctx, id, scope)
	if err != nil {
		return nil, err
	}
	if material.FilePath == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "material has no attached file")
	}
	token, expiresAt, err := s.signer.Generate(material.ID, *material.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &MaterialDownload{URL: "/downloads/" + token, ExpiresAt: expiresAt}, nil
}

// ResolveDownload validates a signed token and opens the referenced file
// path. The handler streams the file back.
func (s *MaterialService) ResolveDownload(ctx context.Context, token string) (*models.Material, string, error) {
	recordID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "download link is invalid or expired")
	}
	material, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}
	if material.FilePath == nil || *material.FilePath != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "download link no longer matches the stored file")
	}
	return material, relPath, nil
}

func (s *MaterialService) ownedMaterial(ctx context.Context, id string, scope models.Scope) (*models.Material, error) {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load material")
	}
	if !scope.Unrestricted() && material.TeacherID != scope.TeacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "material belongs to another teacher")
	}
	return material, nil
}
