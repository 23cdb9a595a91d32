package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/brightclass/brightclass-api/internal/models"
	appErrors "github.com/brightclass/brightclass-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, schoolID, id string) error
}

// StudentRequest creates or updates a student enrollment.
type StudentRequest struct {
	FullName             string  `json:"full_name" validate:"required,min=2"`
	ClassID              string  `json:"class_id" validate:"required"`
	SectionID            string  `json:"section_id" validate:"required"`
	RollNumber           *int    `json:"roll_number,omitempty" validate:"omitempty,gt=0"`
	GuardianName         *string `json:"guardian_name,omitempty"`
	GuardianPhone        *string `json:"guardian_phone,omitempty"`
	TransportationAreaID *string `json:"transportation_area_id,omitempty"`
	Hostel               bool    `json:"hostel"`
	Dayboarding          bool    `json:"dayboarding"`
	AdmissionDate        string  `json:"admission_date" validate:"required,datetime=2006-01-02"`
}

// StudentService manages student enrollment records.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students with class/section names and pagination metadata.
func (s *StudentService) List(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	students, total, err := s.repo.List(ctx, schoolID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Find returns one student.
func (s *StudentService) Find(ctx context.Context, schoolID, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create enrolls a student. Hostel and transportation cannot be combined;
// rejecting here keeps the fee resolver's invariant intact at intake time.
func (s *StudentService) Create(ctx context.Context, schoolID string, req StudentRequest) (*models.Student, error) {
	student, err := s.build(schoolID, req)
	if err != nil {
		return nil, err
	}
	student.Active = true
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update replaces a student's mutable fields.
func (s *StudentService) Update(ctx context.Context, schoolID, id string, req StudentRequest) (*models.Student, error) {
	existing, err := s.Find(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	student, err := s.build(schoolID, req)
	if err != nil {
		return nil, err
	}
	student.ID = existing.ID
	student.Active = existing.Active
	student.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Deactivate soft-deletes a student. Attendance and payment history survive.
func (s *StudentService) Deactivate(ctx context.Context, schoolID, id string) error {
	if _, err := s.Find(ctx, schoolID, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, schoolID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}

func (s *StudentService) build(schoolID string, req StudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if req.Hostel && req.TransportationAreaID != nil {
		return nil, appErrors.Clone(appErrors.ErrConflictingService, "")
	}
	admissionDate, err := time.Parse("2006-01-02", req.AdmissionDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "admission_date must be formatted YYYY-MM-DD")
	}
	return &models.Student{
		SchoolID:             schoolID,
		FullName:             req.FullName,
		ClassID:              req.ClassID,
		SectionID:            req.SectionID,
		RollNumber:           req.RollNumber,
		GuardianName:         req.GuardianName,
		GuardianPhone:        req.GuardianPhone,
		TransportationAreaID: req.TransportationAreaID,
		Hostel:               req.Hostel,
		Dayboarding:          req.Dayboarding,
		AdmissionDate:        admissionDate,
	}, nil
}
