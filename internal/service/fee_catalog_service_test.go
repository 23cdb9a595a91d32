package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brightclass/brightclass-api/internal/models"
	appErrors "github.com/brightclass/brightclass-api/pkg/errors"
)

type mockFeeCategoryRepo struct {
	created []models.FeeCategory
}

func (m *mockFeeCategoryRepo) List(ctx context.Context, schoolID string, activeOnly bool) ([]models.FeeCategory, error) {
	return nil, nil
}

func (m *mockFeeCategoryRepo) FindByID(ctx context.Context, schoolID, id string) (*models.FeeCategory, error) {
	return nil, sql.ErrNoRows
}

func (m *mockFeeCategoryRepo) Create(ctx context.Context, category *models.FeeCategory) error {
	m.created = append(m.created, *category)
	return nil
}

func (m *mockFeeCategoryRepo) Update(ctx context.Context, category *models.FeeCategory) error {
	return nil
}

type mockPricingCatalogRepo struct {
	classOverlap int
	areaOverlap  int
	classCreated []models.ClassFeePricing
	areaCreated  []models.TransportationAreaPricing
}

func (m *mockPricingCatalogRepo) ListClassPricing(ctx context.Context, schoolID, classID, academicYear string) ([]models.ClassFeePricing, error) {
	return nil, nil
}

func (m *mockPricingCatalogRepo) CountOverlappingClassPricing(ctx context.Context, p *models.ClassFeePricing) (int, error) {
	return m.classOverlap, nil
}

func (m *mockPricingCatalogRepo) CreateClassPricing(ctx context.Context, p *models.ClassFeePricing) error {
	m.classCreated = append(m.classCreated, *p)
	return nil
}

func (m *mockPricingCatalogRepo) UpdateClassPricing(ctx context.Context, p *models.ClassFeePricing) error {
	return nil
}

func (m *mockPricingCatalogRepo) ListAreaPricing(ctx context.Context, schoolID, areaID, academicYear string) ([]models.TransportationAreaPricing, error) {
	return nil, nil
}

func (m *mockPricingCatalogRepo) CountOverlappingAreaPricing(ctx context.Context, p *models.TransportationAreaPricing) (int, error) {
	return m.areaOverlap, nil
}

func (m *mockPricingCatalogRepo) CreateAreaPricing(ctx context.Context, p *models.TransportationAreaPricing) error {
	m.areaCreated = append(m.areaCreated, *p)
	return nil
}

func (m *mockPricingCatalogRepo) UpdateAreaPricing(ctx context.Context, p *models.TransportationAreaPricing) error {
	return nil
}

func (m *mockPricingCatalogRepo) ListAreas(ctx context.Context, schoolID string) ([]models.TransportationArea, error) {
	return nil, nil
}

func (m *mockPricingCatalogRepo) CreateArea(ctx context.Context, area *models.TransportationArea) error {
	return nil
}

func newCatalogServiceForTest(categories *mockFeeCategoryRepo, pricing *mockPricingCatalogRepo) *FeeCatalogService {
	return NewFeeCatalogService(categories, pricing, validator.New(), zap.NewNop())
}

func TestCreateCategoryZeroesFixedAmountForClassBased(t *testing.T) {
	categories := &mockFeeCategoryRepo{}
	svc := newCatalogServiceForTest(categories, &mockPricingCatalogRepo{})

	created, err := svc.CreateCategory(context.Background(), "school-1", FeeCategoryRequest{
		Name:        "Tuition",
		PricingType: models.PricingTypeClassBased,
		FixedAmount: 500,
		Frequency:   models.FeeFrequencyMonthly,
		Active:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, created.FixedAmount)
	require.Len(t, categories.created, 1)
	assert.Equal(t, 0.0, categories.created[0].FixedAmount)
}

func TestCreateCategoryKeepsFixedAmountForFixed(t *testing.T) {
	categories := &mockFeeCategoryRepo{}
	svc := newCatalogServiceForTest(categories, &mockPricingCatalogRepo{})

	created, err := svc.CreateCategory(context.Background(), "school-1", FeeCategoryRequest{
		Name:        "Admission",
		PricingType: models.PricingTypeFixed,
		FixedAmount: 500,
		Frequency:   models.FeeFrequencyOneTime,
		Active:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, 500.0, created.FixedAmount)
}

func TestCreateClassPricingRejectsOverlappingWindow(t *testing.T) {
	// An active tuition window already covers the year; pricing a second
	// class-based category for the same class and window must conflict, or
	// every later resolution for the class would be ambiguous.
	pricing := &mockPricingCatalogRepo{classOverlap: 1}
	svc := newCatalogServiceForTest(&mockFeeCategoryRepo{}, pricing)

	_, err := svc.CreateClassPricing(context.Background(), "school-1", ClassPricingRequest{
		ClassID:       "c1",
		FeeCategoryID: "lab-fee",
		Amount:        300,
		AcademicYear:  "2026-27",
		EffectiveFrom: "2026-04-01",
		EffectiveTo:   "2027-03-31",
		Active:        true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, pricing.classCreated)
}

func TestCreateClassPricingAllowsDisjointWindow(t *testing.T) {
	pricing := &mockPricingCatalogRepo{}
	svc := newCatalogServiceForTest(&mockFeeCategoryRepo{}, pricing)

	row, err := svc.CreateClassPricing(context.Background(), "school-1", ClassPricingRequest{
		ClassID:       "c1",
		FeeCategoryID: "tuition",
		Amount:        1500,
		AcademicYear:  "2026-27",
		EffectiveFrom: "2026-04-01",
		EffectiveTo:   "2027-03-31",
		Active:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), row.EffectiveFrom)
	assert.Equal(t, time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC), row.EffectiveTo)
	require.Len(t, pricing.classCreated, 1)
}

func TestCreateClassPricingRejectsInvertedWindow(t *testing.T) {
	pricing := &mockPricingCatalogRepo{}
	svc := newCatalogServiceForTest(&mockFeeCategoryRepo{}, pricing)

	_, err := svc.CreateClassPricing(context.Background(), "school-1", ClassPricingRequest{
		ClassID:       "c1",
		FeeCategoryID: "tuition",
		Amount:        1500,
		AcademicYear:  "2026-27",
		EffectiveFrom: "2027-03-31",
		EffectiveTo:   "2026-04-01",
		Active:        true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, pricing.classCreated)
}

func TestCreateAreaPricingRejectsOverlappingWindow(t *testing.T) {
	pricing := &mockPricingCatalogRepo{areaOverlap: 1}
	svc := newCatalogServiceForTest(&mockFeeCategoryRepo{}, pricing)

	_, err := svc.CreateAreaPricing(context.Background(), "school-1", AreaPricingRequest{
		AreaID:        "area-1",
		FeeCategoryID: "transport",
		Price:         400,
		AcademicYear:  "2026-27",
		EffectiveFrom: "2026-04-01",
		EffectiveTo:   "2027-03-31",
		Active:        true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, pricing.areaCreated)
}
