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

type mockExpenseRepo struct {
	byID    map[string]*models.Expense
	updated []models.Expense
	deleted []string
}

func (m *mockExpenseRepo) ListCategories(ctx context.Context, schoolID string) ([]models.ExpenseCategory, error) {
	return nil, nil
}

func (m *mockExpenseRepo) CreateCategory(ctx context.Context, category *models.ExpenseCategory) error {
	return nil
}

func (m *mockExpenseRepo) List(ctx context.Context, schoolID string, filter models.ExpenseFilter) ([]models.Expense, int, error) {
	return nil, 0, nil
}

func (m *mockExpenseRepo) FindByID(ctx context.Context, schoolID, id string) (*models.Expense, error) {
	if expense, ok := m.byID[id]; ok {
		cp := *expense
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExpenseRepo) Create(ctx context.Context, expense *models.Expense) error {
	return nil
}

func (m *mockExpenseRepo) Update(ctx context.Context, expense *models.Expense) error {
	m.updated = append(m.updated, *expense)
	return nil
}

func (m *mockExpenseRepo) Delete(ctx context.Context, schoolID, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func newExpenseServiceForTest(repo *mockExpenseRepo) *ExpenseService {
	return NewExpenseService(repo, validator.New(), zap.NewNop())
}

func validExpenseRequest() ExpenseRequest {
	return ExpenseRequest{
		CategoryID:  "cat-1",
		Amount:      1200,
		ExpenseDate: "2026-07-05",
	}
}

func TestUpdateExpenseRejectsVendorRow(t *testing.T) {
	repo := &mockExpenseRepo{byID: map[string]*models.Expense{
		"e1": {ID: "e1", SchoolID: "school-1", CategoryID: "cat-1", Amount: 900, IsVendorPayment: true},
	}}
	svc := newExpenseServiceForTest(repo)

	_, err := svc.Update(context.Background(), "school-1", "e1", validExpenseRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updated)
}

func TestDeleteExpenseRejectsPayslipRow(t *testing.T) {
	repo := &mockExpenseRepo{byID: map[string]*models.Expense{
		"e1": {ID: "e1", SchoolID: "school-1", CategoryID: "cat-1", Amount: 900, IsPayslipPayment: true},
	}}
	svc := newExpenseServiceForTest(repo)

	err := svc.Delete(context.Background(), "school-1", "e1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestUpdateExpenseReplacesManualRow(t *testing.T) {
	repo := &mockExpenseRepo{byID: map[string]*models.Expense{
		"e1": {ID: "e1", SchoolID: "school-1", CategoryID: "cat-old", Amount: 900},
	}}
	svc := newExpenseServiceForTest(repo)

	updated, err := svc.Update(context.Background(), "school-1", "e1", validExpenseRequest())
	require.NoError(t, err)
	assert.Equal(t, "cat-1", updated.CategoryID)
	assert.Equal(t, 1200.0, updated.Amount)
	assert.Equal(t, time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC), updated.ExpenseDate)
	require.Len(t, repo.updated, 1)
}

func TestDeleteExpenseManualRow(t *testing.T) {
	repo := &mockExpenseRepo{byID: map[string]*models.Expense{
		"e1": {ID: "e1", SchoolID: "school-1", CategoryID: "cat-1", Amount: 900},
	}}
	svc := newExpenseServiceForTest(repo)

	require.NoError(t, svc.Delete(context.Background(), "school-1", "e1"))
	assert.Equal(t, []string{"e1"}, repo.deleted)
}

func TestDeleteExpenseNotFound(t *testing.T) {
	svc := newExpenseServiceForTest(&mockExpenseRepo{})

	err := svc.Delete(context.Background(), "school-1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
