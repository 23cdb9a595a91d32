package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/brightclass/brightclass-api/internal/models"
	appErrors "github.com/brightclass/brightclass-api/pkg/errors"
)

type schoolRepository interface {
	List(ctx context.Context) ([]models.School, error)
	FindByID(ctx context.Context, id string) (*models.School, error)
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, school *models.School) error
	GetSettings(ctx context.Context, schoolID string) (*models.SchoolSettings, error)
	UpdateSettings(ctx context.Context, settings *models.SchoolSettings) error
}

// CreateSchoolRequest provisions a new tenant.
type CreateSchoolRequest struct {
	Name    string  `json:"name" validate:"required,min=2"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
}

// UpdateSchoolRequest mutates tenant metadata.
type UpdateSchoolRequest struct {
	Name    string  `json:"name" validate:"required,min=2"`
	Address *string `json:"address,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Active  bool    `json:"active"`
}

// UpdateSchoolSettingsRequest replaces the per-school fee and payment knobs.
type UpdateSchoolSettingsRequest struct {
	HostelFee      float64  `json:"hostel_fee" validate:"gte=0"`
	AdmissionFee   float64  `json:"admission_fee" validate:"gte=0"`
	DayboardingFee float64  `json:"dayboarding_fee" validate:"gte=0"`
	PaymentModes   []string `json:"payment_modes" validate:"required,min=1,dive,required"`
}

// SchoolService manages tenants and their settings.
type SchoolService struct {
	repo      schoolRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService constructs a SchoolService.
func NewSchoolService(repo schoolRepository, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SchoolService{repo: repo, validator: validate, logger: logger}
}

// List returns all schools.
func (s *SchoolService) List(ctx context.Context) ([]models.School, error) {
	schools, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	return schools, nil
}

// Find returns one school.
func (s *SchoolService) Find(ctx context.Context, id string) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school, nil
}

// Create provisions a school together with its default settings row.
func (s *SchoolService) Create(ctx context.Context, req CreateSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}
	school := &models.School{
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
		Active:  true,
	}
	if err := s.repo.Create(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}
	return school, nil
}

// Update mutates school metadata.
func (s *SchoolService) Update(ctx context.Context, id string, req UpdateSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}
	school, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	school.Name = req.Name
	school.Address = req.Address
	school.Phone = req.Phone
	school.Email = req.Email
	school.Active = req.Active
	if err := s.repo.Update(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school")
	}
	return school, nil
}

// Settings returns the per-school fee and payment configuration.
func (s *SchoolService) Settings(ctx context.Context, schoolID string) (*models.SchoolSettings, error) {
	settings, err := s.repo.GetSettings(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school settings not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school settings")
	}
	return settings, nil
}

// UpdateSettings replaces the per-school configuration.
func (s *SchoolService) UpdateSettings(ctx context.Context, schoolID string, req UpdateSchoolSettingsRequest) (*models.SchoolSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	settings := &models.SchoolSettings{
		SchoolID:       schoolID,
		HostelFee:      req.HostelFee,
		AdmissionFee:   req.AdmissionFee,
		DayboardingFee: req.DayboardingFee,
		PaymentModes:   pq.StringArray(req.PaymentModes),
	}
	if err := s.repo.UpdateSettings(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school settings")
	}
	return settings, nil
}
