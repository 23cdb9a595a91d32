package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/brightclass/brightclass-api/internal/models"
	appErrors "github.com/brightclass/brightclass-api/pkg/errors"
)

type classRepository interface {
	ListClasses(ctx context.Context, schoolID string) ([]models.Class, error)
	FindClassByID(ctx context.Context, schoolID, id string) (*models.Class, error)
	CreateClass(ctx context.Context, class *models.Class) error
	UpdateClass(ctx context.Context, class *models.Class) error
	ListSections(ctx context.Context, schoolID, classID string) ([]models.Section, error)
	FindSectionByID(ctx context.Context, schoolID, id string) (*models.Section, error)
	CreateSection(ctx context.Context, section *models.Section) error
	UpdateSection(ctx context.Context, section *models.Section) error
}

// ClassRequest creates or renames a class.
type ClassRequest struct {
	Name string `json:"name" validate:"required,min=1"`
}

// SectionRequest creates or renames a section within a class.
type SectionRequest struct {
	ClassID string `json:"class_id" validate:"required"`
	Name    string `json:"name" validate:"required,min=1"`
}

// ClassService manages classes and their sections.
type ClassService struct {
	repo      classRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, validator: validate, logger: logger}
}

// ListClasses returns the school's classes.
func (s *ClassService) ListClasses(ctx context.Context, schoolID string) ([]models.Class, error) {
	classes, err := s.repo.ListClasses(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// FindClass returns one class.
func (s *ClassService) FindClass(ctx context.Context, schoolID, id string) (*models.Class, error) {
	class, err := s.repo.FindClassByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// CreateClass adds a class to the school.
func (s *ClassService) CreateClass(ctx context.Context, schoolID string, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.Class{SchoolID: schoolID, Name: req.Name, Active: true}
	if err := s.repo.CreateClass(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// UpdateClass renames or reorders a class.
func (s *ClassService) UpdateClass(ctx context.Context, schoolID, id string, req ClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.FindClass(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	class.Name = req.Name
	if err := s.repo.UpdateClass(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// ListSections returns sections, optionally constrained to a class.
func (s *ClassService) ListSections(ctx context.Context, schoolID, classID string) ([]models.Section, error) {
	sections, err := s.repo.ListSections(ctx, schoolID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, nil
}

// CreateSection adds a section under a class.
func (s *ClassService) CreateSection(ctx context.Context, schoolID string, req SectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	if _, err := s.FindClass(ctx, schoolID, req.ClassID); err != nil {
		return nil, err
	}
	section := &models.Section{SchoolID: schoolID, ClassID: req.ClassID, Name: req.Name, Active: true}
	if err := s.repo.CreateSection(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return section, nil
}

// UpdateSection renames a section.
func (s *ClassService) UpdateSection(ctx context.Context, schoolID, id string, req SectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	section, err := s.repo.FindSectionByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	section.Name = req.Name
	if err := s.repo.UpdateSection(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	return section, nil
}
