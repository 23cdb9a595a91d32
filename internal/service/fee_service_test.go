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

type mockFeePricingRepo struct {
	classRows []models.ClassFeePricing
	areaRows  []models.TransportationAreaPricing
	lastAt    time.Time
}

func (m *mockFeePricingRepo) ActiveClassPricingAt(ctx context.Context, schoolID, classID, academicYear string, at time.Time) ([]models.ClassFeePricing, error) {
	m.lastAt = at
	return m.classRows, nil
}

func (m *mockFeePricingRepo) ActiveAreaPricingAt(ctx context.Context, schoolID, areaID, academicYear string, at time.Time) ([]models.TransportationAreaPricing, error) {
	return m.areaRows, nil
}

type mockFeeSettingsRepo struct {
	settings models.SchoolSettings
}

func (m *mockFeeSettingsRepo) GetSettings(ctx context.Context, schoolID string) (*models.SchoolSettings, error) {
	cp := m.settings
	return &cp, nil
}

type mockFeeStudentRepo struct {
	byID   map[string]*models.Student
	roster []models.Student
}

func (m *mockFeeStudentRepo) FindByID(ctx context.Context, schoolID, id string) (*models.Student, error) {
	if st, ok := m.byID[id]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFeeStudentRepo) ListActiveByClassSection(ctx context.Context, schoolID, classID, sectionID string) ([]models.Student, error) {
	return m.roster, nil
}

type mockGeneratedFeeRepo struct {
	inserted  []models.GeneratedFee
	insertErr error
	byID      map[string]*models.GeneratedFee
}

func (m *mockGeneratedFeeRepo) Insert(ctx context.Context, fee *models.GeneratedFee) (*models.GeneratedFee, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	saved := *fee
	saved.ID = "fee-1"
	m.inserted = append(m.inserted, saved)
	return &saved, nil
}

func (m *mockGeneratedFeeRepo) FindByID(ctx context.Context, schoolID, id string) (*models.GeneratedFee, error) {
	if fee, ok := m.byID[id]; ok {
		cp := *fee
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGeneratedFeeRepo) List(ctx context.Context, schoolID string, filter models.GeneratedFeeFilter) ([]models.GeneratedFee, int, error) {
	return nil, 0, nil
}

type mockAuditRepo struct {
	logs []models.AuditLog
}

func (m *mockAuditRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func newFeeServiceForTest(pricing *mockFeePricingRepo, settings *mockFeeSettingsRepo, students *mockFeeStudentRepo, generated *mockGeneratedFeeRepo) *FeeService {
	return NewFeeService(pricing, settings, students, generated, &mockAuditRepo{}, validator.New(), zap.NewNop(), FeeQueueConfig{})
}

func TestAcademicYearFor(t *testing.T) {
	assert.Equal(t, "2025-26", AcademicYearFor(4, 2025))
	assert.Equal(t, "2025-26", AcademicYearFor(12, 2025))
	assert.Equal(t, "2024-25", AcademicYearFor(3, 2025))
	assert.Equal(t, "2024-25", AcademicYearFor(1, 2025))
	// Century rollover keeps the two-digit suffix.
	assert.Equal(t, "2099-00", AcademicYearFor(6, 2099))
}

func TestResolveFeeComponentsBasic(t *testing.T) {
	pricing := &mockFeePricingRepo{classRows: []models.ClassFeePricing{{Amount: 1500}}}
	students := &mockFeeStudentRepo{byID: map[string]*models.Student{
		"s1": {ID: "s1", ClassID: "c1", Active: true},
	}}
	svc := newFeeServiceForTest(pricing, &mockFeeSettingsRepo{}, students, &mockGeneratedFeeRepo{})

	breakdown, err := svc.ResolveFeeComponents(context.Background(), "school-1", models.GenerateFeeRequest{
		StudentID: "s1", Month: 7, CalendarYear: 2026,
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-27", breakdown.AcademicYear)
	require.Len(t, breakdown.Components, 1)
	assert.Equal(t, "tuition", breakdown.Components[0].Name)
	assert.Equal(t, 1500.0, breakdown.Subtotal)
	assert.Equal(t, 1500.0, breakdown.NetAmount)
	// Pricing is resolved against the first day of the period.
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), pricing.lastAt)
}

func TestResolveFeeComponentsAmbiguousPricing(t *testing.T) {
	pricing := &mockFeePricingRepo{classRows: []models.ClassFeePricing{{Amount: 1500}, {Amount: 1800}}}
	students := &mockFeeStudentRepo{byID: map[string]*models.Student{
		"s1": {ID: "s1", ClassID: "c1", Active: true},
	}}
	svc := newFeeServiceForTest(pricing, &mockFeeSettingsRepo{}, students, &mockGeneratedFeeRepo{})

	_, err := svc.ResolveFeeComponents(context.Background(), "school-1", models.GenerateFeeRequest{
		StudentID: "s1", Month: 7, CalendarYear: 2026,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAmbiguousPricing.Code, appErrors.FromError(err).Code)
}

func TestResolveFeeComponentsConflictingServices(t *testing.T) {
	area := "area-1"
	students := &mockFeeStudentRepo{byID: map[string]*models.Student{
		"s1": {ID: "s1", ClassID: "c1", Active: true, Hostel: true, TransportationAreaID: &area},
	}}
	svc := newFeeServiceForTest(&mockFeePricingRepo{}, &mockFeeSettingsRepo{}, students, &mockGeneratedFeeRepo{})

	_, err := svc.ResolveFeeComponents(context.Background(), "school-1", models.GenerateFeeRequest{
		StudentID: "s1", Month: 7, CalendarYear: 2026,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflictingService.Code, appErrors.FromError(err).Code)
}

func TestResolveFeeComponentsHostelAndAdmission(t *testing.T) {
	pricing := &mockFeePricingRepo{classRows: []models.ClassFeePricing{{Amount: 1000}}}
	settings := &mockFeeSettingsRepo{settings: models.SchoolSettings{HostelFee: 800, AdmissionFee: 500}}
	students := &mockFeeStudentRepo{byID: map[string]*models.Student{
		"s1": {ID: "s1", ClassID: "c1", Active: true, Hostel: true},
	}}
	svc := newFeeServiceForTest(pricing, settings, students, &mockGeneratedFeeRepo{})

	breakdown, err := svc.ResolveFeeComponents(context.Background(), "school-1", models.GenerateFeeRequest{
		StudentID: "s1", Month: 4, CalendarYear: 2026, NewAdmission: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2300.0, breakdown.Subtotal)
	assert.Len(t, breakdown.Components, 3)
}

func TestResolveFeeComponentsDiscountFloorsAtZero(t *testing.T) {
	pricing := &mockFeePricingRepo{classRows: []models.ClassFeePricing{{Amount: 300}}}
	students := &mockFeeStudentRepo{byID: map[string]*models.Student{
		"s1": {ID: "s1", ClassID: "c1", Active: true},
	}}
	svc := newFeeServiceForTest(pricing, &mockFeeSettingsRepo{}, students, &mockGeneratedFeeRepo{})

	reason := "scholarship"
	breakdown, err := svc.ResolveFeeComponents(context.Background(), "school-1", models.GenerateFeeRequest{
		StudentID: "s1", Month: 7, CalendarYear: 2026, Discount: 1000, DiscountReason: &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, breakdown.NetAmount)
	assert.Equal(t, 1000.0, breakdown.Discount)
	require.NotNil(t, breakdown.DiscountReason)
	assert.Equal(t, reason, *breakdown.DiscountReason)
}

func TestResolveFeeComponentsRejectsNegativeDiscount(t *testing.T) {
	pricing := &mockFeePricingRepo{classRows: []models.ClassFeePricing{{Amount: 1000}}}
	students := &mockFeeStudentRepo{byID: map[string]*models.Student{
		"s1": {ID: "s1", ClassID: "c1", Active: true},
	}}
	svc := newFeeServiceForTest(pricing, &mockFeeSettingsRepo{}, students, &mockGeneratedFeeRepo{})

	// A negative discount is a validation failure, never silently zeroed.
	_, err := svc.ResolveFeeComponents(context.Background(), "school-1", models.GenerateFeeRequest{
		StudentID: "s1", Month: 7, CalendarYear: 2026, Discount: -50,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Generate(context.Background(), "school-1", "user-1", models.GenerateFeeRequest{
		StudentID: "s1", Month: 7, CalendarYear: 2026, Discount: -50,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResolveFeeComponentsInactiveStudent(t *testing.T) {
	students := &mockFeeStudentRepo{byID: map[string]*models.Student{
		"s1": {ID: "s1", ClassID: "c1", Active: false},
	}}
	svc := newFeeServiceForTest(&mockFeePricingRepo{}, &mockFeeSettingsRepo{}, students, &mockGeneratedFeeRepo{})

	_, err := svc.ResolveFeeComponents(context.Background(), "school-1", models.GenerateFeeRequest{
		StudentID: "s1", Month: 7, CalendarYear: 2026,
	})
	require.Error(t, err)
}

func TestGenerateDuplicatePeriodConflicts(t *testing.T) {
	pricing := &mockFeePricingRepo{classRows: []models.ClassFeePricing{{Amount: 1000}}}
	students := &mockFeeStudentRepo{byID: map[string]*models.Student{
		"s1": {ID: "s1", ClassID: "c1", Active: true},
	}}
	generated := &mockGeneratedFeeRepo{insertErr: sql.ErrNoRows}
	svc := newFeeServiceForTest(pricing, &mockFeeSettingsRepo{}, students, generated)

	_, err := svc.Generate(context.Background(), "school-1", "user-1", models.GenerateFeeRequest{
		StudentID: "s1", Month: 7, CalendarYear: 2026,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestGeneratePersistsResolvedAmounts(t *testing.T) {
	pricing := &mockFeePricingRepo{
		classRows: []models.ClassFeePricing{{Amount: 1200}},
		areaRows:  []models.TransportationAreaPricing{{Price: 400}},
	}
	area := "area-1"
	students := &mockFeeStudentRepo{byID: map[string]*models.Student{
		"s1": {ID: "s1", ClassID: "c1", Active: true, TransportationAreaID: &area},
	}}
	generated := &mockGeneratedFeeRepo{}
	svc := newFeeServiceForTest(pricing, &mockFeeSettingsRepo{}, students, generated)

	fee, err := svc.Generate(context.Background(), "school-1", "user-1", models.GenerateFeeRequest{
		StudentID: "s1", Month: 2, CalendarYear: 2027, Discount: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-27", fee.AcademicYear)
	assert.Equal(t, 1200.0, fee.Tuition)
	assert.Equal(t, 400.0, fee.Transportation)
	assert.Equal(t, 1500.0, fee.NetAmount)
	assert.Equal(t, "user-1", fee.GeneratedBy)
	require.Len(t, generated.inserted, 1)
}
