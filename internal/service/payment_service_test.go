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

type mockPaymentRepo struct {
	created     []models.IncomingPayment
	byID        map[string]*models.IncomingPayment
	verifyErr   error
	verifyCalls int
	summary     models.PaymentSummary
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.IncomingPayment) error {
	payment.ID = "pay-1"
	m.created = append(m.created, *payment)
	return nil
}

func (m *mockPaymentRepo) FindByID(ctx context.Context, schoolID, id string) (*models.IncomingPayment, error) {
	if p, ok := m.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentRepo) Verify(ctx context.Context, schoolID, id, verifierID string, at time.Time) (*models.IncomingPayment, error) {
	m.verifyCalls++
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	p, ok := m.byID[id]
	if !ok || p.Verified {
		return nil, sql.ErrNoRows
	}
	p.Verified = true
	p.VerifiedBy = &verifierID
	p.VerifiedAt = &at
	cp := *p
	return &cp, nil
}

func (m *mockPaymentRepo) List(ctx context.Context, schoolID string, filter models.PaymentFilter) ([]models.PaymentDetail, int, float64, error) {
	return nil, 0, 0, nil
}

func (m *mockPaymentRepo) Summary(ctx context.Context, schoolID string, from, to *time.Time) (*models.PaymentSummary, error) {
	cp := m.summary
	return &cp, nil
}

type mockPaymentStudents struct {
	byID map[string]*models.Student
}

func (m *mockPaymentStudents) FindByID(ctx context.Context, schoolID, id string) (*models.Student, error) {
	if st, ok := m.byID[id]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockPaymentSchools struct {
	school   models.School
	settings models.SchoolSettings
}

func (m *mockPaymentSchools) FindByID(ctx context.Context, id string) (*models.School, error) {
	cp := m.school
	return &cp, nil
}

func (m *mockPaymentSchools) GetSettings(ctx context.Context, schoolID string) (*models.SchoolSettings, error) {
	cp := m.settings
	return &cp, nil
}

type mockPaymentClasses struct{}

func (m *mockPaymentClasses) FindClassByID(ctx context.Context, schoolID, id string) (*models.Class, error) {
	return &models.Class{ID: id, Name: "Grade 5"}, nil
}

type mockPaymentFees struct {
	byID map[string]*models.GeneratedFee
}

func (m *mockPaymentFees) FindByID(ctx context.Context, schoolID, id string) (*models.GeneratedFee, error) {
	if fee, ok := m.byID[id]; ok {
		cp := *fee
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newPaymentServiceForTest(repo *mockPaymentRepo, students *mockPaymentStudents, schools *mockPaymentSchools, fees *mockPaymentFees) *PaymentService {
	return NewPaymentService(repo, students, schools, &mockPaymentClasses{}, fees, &mockAuditRepo{}, nil, time.Minute, validator.New(), zap.NewNop())
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", SchoolID: "school-1", Role: models.RoleAdmin}
}

func TestRecordRejectsUnconfiguredPaymentMode(t *testing.T) {
	schools := &mockPaymentSchools{settings: models.SchoolSettings{PaymentModes: []string{"CASH", "UPI"}}}
	svc := newPaymentServiceForTest(&mockPaymentRepo{}, &mockPaymentStudents{}, schools, &mockPaymentFees{})

	_, err := svc.Record(context.Background(), "school-1", "cashier-1", models.CreatePaymentRequest{
		StudentID: "s1", AmountPaid: 100, PaymentDate: "2026-03-10", PaymentMode: "CHEQUE",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidPaymentMode.Code, appErrors.FromError(err).Code)
}

func TestRecordCreatesUnverifiedPayment(t *testing.T) {
	repo := &mockPaymentRepo{}
	schools := &mockPaymentSchools{settings: models.SchoolSettings{PaymentModes: []string{"CASH"}}}
	students := &mockPaymentStudents{byID: map[string]*models.Student{"s1": {ID: "s1", Active: true}}}
	feeID := "fee-1"
	fees := &mockPaymentFees{byID: map[string]*models.GeneratedFee{"fee-1": {ID: "fee-1"}}}
	svc := newPaymentServiceForTest(repo, students, schools, fees)

	payment, err := svc.Record(context.Background(), "school-1", "cashier-1", models.CreatePaymentRequest{
		StudentID: "s1", GeneratedFeeID: &feeID, AmountPaid: 250, PaymentDate: "2026-03-10", PaymentMode: "CASH",
	})
	require.NoError(t, err)
	assert.False(t, payment.Verified)
	assert.Equal(t, "cashier-1", payment.ReceivedBy)
	require.Len(t, repo.created, 1)
}

func TestRecordUnknownGeneratedFee(t *testing.T) {
	schools := &mockPaymentSchools{settings: models.SchoolSettings{PaymentModes: []string{"CASH"}}}
	students := &mockPaymentStudents{byID: map[string]*models.Student{"s1": {ID: "s1", Active: true}}}
	feeID := "ghost"
	svc := newPaymentServiceForTest(&mockPaymentRepo{}, students, schools, &mockPaymentFees{})

	_, err := svc.Record(context.Background(), "school-1", "cashier-1", models.CreatePaymentRequest{
		StudentID: "s1", GeneratedFeeID: &feeID, AmountPaid: 250, PaymentDate: "2026-03-10", PaymentMode: "CASH",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestVerifyRequiresAdminRole(t *testing.T) {
	svc := newPaymentServiceForTest(&mockPaymentRepo{}, &mockPaymentStudents{}, &mockPaymentSchools{}, &mockPaymentFees{})

	claims := &models.JWTClaims{UserID: "cashier-1", SchoolID: "school-1", Role: models.RoleCashier}
	_, err := svc.Verify(context.Background(), "school-1", "pay-1", claims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestVerifyTransitionsOnce(t *testing.T) {
	repo := &mockPaymentRepo{byID: map[string]*models.IncomingPayment{
		"pay-1": {ID: "pay-1", SchoolID: "school-1", StudentID: "s1", AmountPaid: 250},
	}}
	svc := newPaymentServiceForTest(repo, &mockPaymentStudents{}, &mockPaymentSchools{}, &mockPaymentFees{})

	payment, err := svc.Verify(context.Background(), "school-1", "pay-1", adminClaims())
	require.NoError(t, err)
	assert.True(t, payment.Verified)
	require.NotNil(t, payment.VerifiedBy)
	assert.Equal(t, "admin-1", *payment.VerifiedBy)
}

func TestVerifyIdempotentOnVerifiedPayment(t *testing.T) {
	verifiedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	verifier := "admin-0"
	repo := &mockPaymentRepo{byID: map[string]*models.IncomingPayment{
		"pay-1": {ID: "pay-1", SchoolID: "school-1", Verified: true, VerifiedBy: &verifier, VerifiedAt: &verifiedAt},
	}}
	svc := newPaymentServiceForTest(repo, &mockPaymentStudents{}, &mockPaymentSchools{}, &mockPaymentFees{})

	payment, err := svc.Verify(context.Background(), "school-1", "pay-1", adminClaims())
	require.NoError(t, err)
	assert.True(t, payment.Verified)
	// The original verifier is preserved; the second call changes nothing.
	require.NotNil(t, payment.VerifiedBy)
	assert.Equal(t, "admin-0", *payment.VerifiedBy)
}

func TestVerifyUnknownPayment(t *testing.T) {
	svc := newPaymentServiceForTest(&mockPaymentRepo{}, &mockPaymentStudents{}, &mockPaymentSchools{}, &mockPaymentFees{})

	_, err := svc.Verify(context.Background(), "school-1", "ghost", adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
