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

type expenseRepository interface {
	ListCategories(ctx context.Context, schoolID string) ([]models.ExpenseCategory, error)
	CreateCategory(ctx context.Context, category *models.ExpenseCategory) error
	List(ctx context.Context, schoolID string, filter models.ExpenseFilter) ([]models.Expense, int, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.Expense, error)
	Create(ctx context.Context, expense *models.Expense) error
	Update(ctx context.Context, expense *models.Expense) error
	Delete(ctx context.Context, schoolID, id string) error
}

// ExpenseCategoryRequest names an expense category.
type ExpenseCategoryRequest struct {
	Name string `json:"name" validate:"required,min=2"`
}

// ExpenseRequest creates or updates a manual expense row.
type ExpenseRequest struct {
	CategoryID  string  `json:"category_id" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	ExpenseDate string  `json:"expense_date" validate:"required,datetime=2006-01-02"`
	Description *string `json:"description,omitempty"`
}

// ExpenseService manages manual expenses. Rows produced by the vendor or
// payroll subsystems are visible here but immutable.
type ExpenseService struct {
	repo      expenseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExpenseService constructs an ExpenseService.
func NewExpenseService(repo expenseRepository, validate *validator.Validate, logger *zap.Logger) *ExpenseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ExpenseService{repo: repo, validator: validate, logger: logger}
}

// ListCategories returns the school's expense categories.
func (s *ExpenseService) ListCategories(ctx context.Context, schoolID string) ([]models.ExpenseCategory, error) {
	categories, err := s.repo.ListCategories(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expense categories")
	}
	return categories, nil
}

// CreateCategory adds an expense category.
func (s *ExpenseService) CreateCategory(ctx context.Context, schoolID string, req ExpenseCategoryRequest) (*models.ExpenseCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	category := &models.ExpenseCategory{SchoolID: schoolID, Name: req.Name, Active: true}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create expense category")
	}
	return category, nil
}

// List returns expenses with pagination metadata.
func (s *ExpenseService) List(ctx context.Context, schoolID string, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	expenses, total, err := s.repo.List(ctx, schoolID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expenses")
	}
	return expenses, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Create records a manual expense.
func (s *ExpenseService) Create(ctx context.Context, schoolID, createdBy string, req ExpenseRequest) (*models.Expense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid expense payload")
	}
	date, err := time.Parse("2006-01-02", req.ExpenseDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expense_date must be formatted YYYY-MM-DD")
	}
	expense := &models.Expense{
		SchoolID:    schoolID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		ExpenseDate: date,
		Description: req.Description,
		CreatedBy:   createdBy,
	}
	if err := s.repo.Create(ctx, expense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create expense")
	}
	return expense, nil
}

// Update replaces a manual expense. System-generated rows are immutable.
func (s *ExpenseService) Update(ctx context.Context, schoolID, id string, req ExpenseRequest) (*models.Expense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid expense payload")
	}
	existing, err := s.find(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if existing.ReadOnly() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "system-generated expenses cannot be modified")
	}
	date, err := time.Parse("2006-01-02", req.ExpenseDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expense_date must be formatted YYYY-MM-DD")
	}
	existing.CategoryID = req.CategoryID
	existing.Amount = req.Amount
	existing.ExpenseDate = date
	existing.Description = req.Description
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update expense")
	}
	return existing, nil
}

// Delete removes a manual expense. System-generated rows are immutable.
func (s *ExpenseService) Delete(ctx context.Context, schoolID, id string) error {
	existing, err := s.find(ctx, schoolID, id)
	if err != nil {
		return err
	}
	if existing.ReadOnly() {
		return appErrors.Clone(appErrors.ErrConflict, "system-generated expenses cannot be deleted")
	}
	if err := s.repo.Delete(ctx, schoolID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete expense")
	}
	return nil
}

func (s *ExpenseService) find(ctx context.Context, schoolID, id string) (*models.Expense, error) {
	expense, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "expense not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load expense")
	}
	return expense, nil
}
