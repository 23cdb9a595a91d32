package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brightclass/brightclass-api/internal/models"
)

const expenseColumns = `id, school_id, category_id, amount, expense_date, description, is_vendor_payment, is_payslip_payment, created_by, created_at, updated_at`

// ExpenseRepository handles expense categories and expense rows.
type ExpenseRepository struct {
	db *sqlx.DB
}

// NewExpenseRepository constructs the repository.
func NewExpenseRepository(db *sqlx.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// ListCategories returns a school's expense categories.
func (r *ExpenseRepository) ListCategories(ctx context.Context, schoolID string) ([]models.ExpenseCategory, error) {
	const query = `SELECT id, school_id, name, active, created_at, updated_at FROM expense_categories WHERE school_id = $1 ORDER BY name ASC`
	var categories []models.ExpenseCategory
	if err := r.db.SelectContext(ctx, &categories, query, schoolID); err != nil {
		return nil, fmt.Errorf("list expense categories: %w", err)
	}
	return categories, nil
}

// CreateCategory inserts an expense category.
func (r *ExpenseRepository) CreateCategory(ctx context.Context, category *models.ExpenseCategory) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now
	const query = `INSERT INTO expense_categories (id, school_id, name, active, created_at, updated_at) VALUES (:id, :school_id, :name, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create expense category: %w", err)
	}
	return nil
}

// List returns expenses matching the filter with total count.
func (r *ExpenseRepository) List(ctx context.Context, schoolID string, filter models.ExpenseFilter) ([]models.Expense, int, error) {
	base := `FROM expenses WHERE school_id = $1`
	args := []interface{}{schoolID}
	if filter.CategoryID != "" {
		base += fmt.Sprintf(" AND category_id = $%d", len(args)+1)
		args = append(args, filter.CategoryID)
	}
	if filter.DateFrom != nil {
		base += fmt.Sprintf(" AND expense_date >= $%d", len(args)+1)
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		base += fmt.Sprintf(" AND expense_date <= $%d", len(args)+1)
		args = append(args, *filter.DateTo)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY expense_date DESC LIMIT %d OFFSET %d", expenseColumns, base, size, offset)
	var expenses []models.Expense
	if err := r.db.SelectContext(ctx, &expenses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}
	return expenses, total, nil
}

// FindByID returns an expense scoped to a school.
func (r *ExpenseRepository) FindByID(ctx context.Context, schoolID, id string) (*models.Expense, error) {
	query := fmt.Sprintf(`SELECT %s FROM expenses WHERE id = $1 AND school_id = $2 LIMIT 1`, expenseColumns)
	var expense models.Expense
	if err := r.db.GetContext(ctx, &expense, query, id, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find expense: %w", err)
	}
	return &expense, nil
}

// Create inserts an expense row.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	expense.CreatedAt = now
	expense.UpdatedAt = now
	const query = `INSERT INTO expenses (id, school_id, category_id, amount, expense_date, description, is_vendor_payment, is_payslip_payment, created_by, created_at, updated_at)
VALUES (:id, :school_id, :category_id, :amount, :expense_date, :description, :is_vendor_payment, :is_payslip_payment, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, expense); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// Update updates a manually entered expense row.
func (r *ExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	expense.UpdatedAt = time.Now().UTC()
	const query = `UPDATE expenses SET category_id = :category_id, amount = :amount, expense_date = :expense_date, description = :description, updated_at = :updated_at
WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, expense); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

// Delete removes an expense row.
func (r *ExpenseRepository) Delete(ctx context.Context, schoolID, id string) error {
	const query = `DELETE FROM expenses WHERE id = $1 AND school_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, schoolID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}
