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

type feeCategoryRepository interface {
	List(ctx context.Context, schoolID string, activeOnly bool) ([]models.FeeCategory, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.FeeCategory, error)
	Create(ctx context.Context, category *models.FeeCategory) error
	Update(ctx context.Context, category *models.FeeCategory) error
}

type pricingCatalogRepository interface {
	ListClassPricing(ctx context.Context, schoolID, classID, academicYear string) ([]models.ClassFeePricing, error)
	CountOverlappingClassPricing(ctx context.Context, p *models.ClassFeePricing) (int, error)
	CreateClassPricing(ctx context.Context, p *models.ClassFeePricing) error
	UpdateClassPricing(ctx context.Context, p *models.ClassFeePricing) error
	ListAreaPricing(ctx context.Context, schoolID, areaID, academicYear string) ([]models.TransportationAreaPricing, error)
	CountOverlappingAreaPricing(ctx context.Context, p *models.TransportationAreaPricing) (int, error)
	CreateAreaPricing(ctx context.Context, p *models.TransportationAreaPricing) error
	UpdateAreaPricing(ctx context.Context, p *models.TransportationAreaPricing) error
	ListAreas(ctx context.Context, schoolID string) ([]models.TransportationArea, error)
	CreateArea(ctx context.Context, area *models.TransportationArea) error
}

// FeeCategoryRequest creates or updates a catalog entry.
type FeeCategoryRequest struct {
	Name         string              `json:"name" validate:"required,min=2"`
	PricingType  models.PricingType  `json:"pricing_type" validate:"required"`
	FixedAmount  float64             `json:"fixed_amount" validate:"gte=0"`
	Frequency    models.FeeFrequency `json:"frequency" validate:"required"`
	IsMandatory  bool                `json:"is_mandatory"`
	IsRefundable bool                `json:"is_refundable"`
	DisplayOrder int                 `json:"display_order" validate:"gte=0"`
	Active       bool                `json:"active"`
}

// ClassPricingRequest prices a class-based category for an effective window.
type ClassPricingRequest struct {
	ClassID       string  `json:"class_id" validate:"required"`
	FeeCategoryID string  `json:"fee_category_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	AcademicYear  string  `json:"academic_year" validate:"required"`
	EffectiveFrom string  `json:"effective_from" validate:"required,datetime=2006-01-02"`
	EffectiveTo   string  `json:"effective_to" validate:"required,datetime=2006-01-02"`
	Active        bool    `json:"active"`
}

// AreaPricingRequest prices transportation for an area and window.
type AreaPricingRequest struct {
	AreaID        string  `json:"area_id" validate:"required"`
	FeeCategoryID string  `json:"fee_category_id" validate:"required"`
	Price         float64 `json:"price" validate:"required,gt=0"`
	AcademicYear  string  `json:"academic_year" validate:"required"`
	EffectiveFrom string  `json:"effective_from" validate:"required,datetime=2006-01-02"`
	EffectiveTo   string  `json:"effective_to" validate:"required,datetime=2006-01-02"`
	Active        bool    `json:"active"`
}

// AreaRequest names a transportation pickup zone.
type AreaRequest struct {
	Name string `json:"name" validate:"required,min=2"`
}

// FeeCatalogService manages the fee catalog: categories, class and area
// pricing windows, and transportation areas. Overlapping windows are rejected
// at write time, scoped exactly the way the resolver reads them back, so
// ambiguity can only arrive through out-of-band writes.
type FeeCatalogService struct {
	categories feeCategoryRepository
	pricing    pricingCatalogRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewFeeCatalogService constructs a FeeCatalogService.
func NewFeeCatalogService(categories feeCategoryRepository, pricing pricingCatalogRepository, validate *validator.Validate, logger *zap.Logger) *FeeCatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeeCatalogService{categories: categories, pricing: pricing, validator: validate, logger: logger}
}

// ListCategories returns catalog entries.
func (s *FeeCatalogService) ListCategories(ctx context.Context, schoolID string, activeOnly bool) ([]models.FeeCategory, error) {
	categories, err := s.categories.List(ctx, schoolID, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fee categories")
	}
	return categories, nil
}

// CreateCategory adds a catalog entry. The fixed amount only applies to FIXED
// pricing and is zeroed otherwise.
func (s *FeeCatalogService) CreateCategory(ctx context.Context, schoolID string, req FeeCategoryRequest) (*models.FeeCategory, error) {
	category, err := s.buildCategory(schoolID, req)
	if err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee category")
	}
	return category, nil
}

// UpdateCategory replaces a catalog entry's fields.
func (s *FeeCatalogService) UpdateCategory(ctx context.Context, schoolID, id string, req FeeCategoryRequest) (*models.FeeCategory, error) {
	existing, err := s.categories.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee category")
	}
	category, err := s.buildCategory(schoolID, req)
	if err != nil {
		return nil, err
	}
	category.ID = existing.ID
	category.CreatedAt = existing.CreatedAt
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update fee category")
	}
	return category, nil
}

// ListClassPricing returns class pricing rows, optionally filtered.
func (s *FeeCatalogService) ListClassPricing(ctx context.Context, schoolID, classID, academicYear string) ([]models.ClassFeePricing, error) {
	rows, err := s.pricing.ListClassPricing(ctx, schoolID, classID, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class pricing")
	}
	return rows, nil
}

// CreateClassPricing adds a pricing window, rejecting overlaps with any
// active window for the same class and year. Category does not narrow the
// check: the resolver looks tuition up by class and year alone, so a second
// active window there would make every resolution for the class ambiguous.
func (s *FeeCatalogService) CreateClassPricing(ctx context.Context, schoolID string, req ClassPricingRequest) (*models.ClassFeePricing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pricing payload")
	}
	from, to, err := parseWindow(req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return nil, err
	}
	row := &models.ClassFeePricing{
		SchoolID:      schoolID,
		ClassID:       req.ClassID,
		FeeCategoryID: req.FeeCategoryID,
		Amount:        req.Amount,
		AcademicYear:  req.AcademicYear,
		EffectiveFrom: from,
		EffectiveTo:   to,
		Active:        req.Active,
	}
	if row.Active {
		count, err := s.pricing.CountOverlappingClassPricing(ctx, row)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pricing overlap")
		}
		if count > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, "pricing window overlaps an existing active window")
		}
	}
	if err := s.pricing.CreateClassPricing(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class pricing")
	}
	return row, nil
}

// UpdateClassPricing replaces a window's mutable fields with the same overlap
// check as creation.
func (s *FeeCatalogService) UpdateClassPricing(ctx context.Context, schoolID, id string, req ClassPricingRequest) (*models.ClassFeePricing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pricing payload")
	}
	from, to, err := parseWindow(req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return nil, err
	}
	row := &models.ClassFeePricing{
		ID:            id,
		SchoolID:      schoolID,
		ClassID:       req.ClassID,
		FeeCategoryID: req.FeeCategoryID,
		Amount:        req.Amount,
		AcademicYear:  req.AcademicYear,
		EffectiveFrom: from,
		EffectiveTo:   to,
		Active:        req.Active,
	}
	if row.Active {
		count, err := s.pricing.CountOverlappingClassPricing(ctx, row)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pricing overlap")
		}
		if count > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, "pricing window overlaps an existing active window")
		}
	}
	if err := s.pricing.UpdateClassPricing(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class pricing")
	}
	return row, nil
}

// ListAreaPricing returns transportation pricing rows, optionally filtered.
func (s *FeeCatalogService) ListAreaPricing(ctx context.Context, schoolID, areaID, academicYear string) ([]models.TransportationAreaPricing, error) {
	rows, err := s.pricing.ListAreaPricing(ctx, schoolID, areaID, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list area pricing")
	}
	return rows, nil
}

// CreateAreaPricing adds a transportation pricing window with overlap checks.
func (s *FeeCatalogService) CreateAreaPricing(ctx context.Context, schoolID string, req AreaPricingRequest) (*models.TransportationAreaPricing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pricing payload")
	}
	from, to, err := parseWindow(req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return nil, err
	}
	row := &models.TransportationAreaPricing{
		SchoolID:      schoolID,
		AreaID:        req.AreaID,
		FeeCategoryID: req.FeeCategoryID,
		Price:         req.Price,
		AcademicYear:  req.AcademicYear,
		EffectiveFrom: from,
		EffectiveTo:   to,
		Active:        req.Active,
	}
	if row.Active {
		count, err := s.pricing.CountOverlappingAreaPricing(ctx, row)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pricing overlap")
		}
		if count > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, "pricing window overlaps an existing active window")
		}
	}
	if err := s.pricing.CreateAreaPricing(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create area pricing")
	}
	return row, nil
}

// UpdateAreaPricing replaces a transportation pricing window.
func (s *FeeCatalogService) UpdateAreaPricing(ctx context.Context, schoolID, id string, req AreaPricingRequest) (*models.TransportationAreaPricing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pricing payload")
	}
	from, to, err := parseWindow(req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return nil, err
	}
	row := &models.TransportationAreaPricing{
		ID:            id,
		SchoolID:      schoolID,
		AreaID:        req.AreaID,
		FeeCategoryID: req.FeeCategoryID,
		Price:         req.Price,
		AcademicYear:  req.AcademicYear,
		EffectiveFrom: from,
		EffectiveTo:   to,
		Active:        req.Active,
	}
	if row.Active {
		count, err := s.pricing.CountOverlappingAreaPricing(ctx, row)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pricing overlap")
		}
		if count > 0 {
			return nil, appErrors.Clone(appErrors.ErrConflict, "pricing window overlaps an existing active window")
		}
	}
	if err := s.pricing.UpdateAreaPricing(ctx, row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update area pricing")
	}
	return row, nil
}

// ListAreas returns the school's transportation areas.
func (s *FeeCatalogService) ListAreas(ctx context.Context, schoolID string) ([]models.TransportationArea, error) {
	areas, err := s.pricing.ListAreas(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list areas")
	}
	return areas, nil
}

// CreateArea adds a transportation area.
func (s *FeeCatalogService) CreateArea(ctx context.Context, schoolID string, req AreaRequest) (*models.TransportationArea, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid area payload")
	}
	area := &models.TransportationArea{SchoolID: schoolID, Name: req.Name, Active: true}
	if err := s.pricing.CreateArea(ctx, area); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create area")
	}
	return area, nil
}

func (s *FeeCatalogService) buildCategory(schoolID string, req FeeCategoryRequest) (*models.FeeCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee category payload")
	}
	if !req.PricingType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported pricing type")
	}
	if !req.Frequency.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported fee frequency")
	}
	fixedAmount := req.FixedAmount
	if req.PricingType != models.PricingTypeFixed {
		fixedAmount = 0
	}
	return &models.FeeCategory{
		SchoolID:     schoolID,
		Name:         req.Name,
		PricingType:  req.PricingType,
		FixedAmount:  fixedAmount,
		Frequency:    req.Frequency,
		IsMandatory:  req.IsMandatory,
		IsRefundable: req.IsRefundable,
		DisplayOrder: req.DisplayOrder,
		Active:       req.Active,
	}, nil
}

func parseWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "effective_from must be formatted YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "effective_to must be formatted YYYY-MM-DD")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "effective_to must not precede effective_from")
	}
	return from, to, nil
}
