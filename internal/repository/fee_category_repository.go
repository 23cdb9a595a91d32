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

const feeCategoryColumns = `id, school_id, name, pricing_type, fixed_amount, frequency, is_mandatory, is_refundable, display_order, active, created_at, updated_at`

// FeeCategoryRepository handles persistence for the fee category catalog.
type FeeCategoryRepository struct {
	db *sqlx.DB
}

// NewFeeCategoryRepository constructs the repository.
func NewFeeCategoryRepository(db *sqlx.DB) *FeeCategoryRepository {
	return &FeeCategoryRepository{db: db}
}

// List returns fee categories of a school ordered for display.
func (r *FeeCategoryRepository) List(ctx context.Context, schoolID string, activeOnly bool) ([]models.FeeCategory, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_categories WHERE school_id = $1`, feeCategoryColumns)
	if activeOnly {
		query += " AND active = TRUE"
	}
	query += " ORDER BY display_order ASC, name ASC"
	var categories []models.FeeCategory
	if err := r.db.SelectContext(ctx, &categories, query, schoolID); err != nil {
		return nil, fmt.Errorf("list fee categories: %w", err)
	}
	return categories, nil
}

// FindByID returns a fee category scoped to a school.
func (r *FeeCategoryRepository) FindByID(ctx context.Context, schoolID, id string) (*models.FeeCategory, error) {
	query := fmt.Sprintf(`SELECT %s FROM fee_categories WHERE id = $1 AND school_id = $2 LIMIT 1`, feeCategoryColumns)
	var category models.FeeCategory
	if err := r.db.GetContext(ctx, &category, query, id, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find fee category: %w", err)
	}
	return &category, nil
}

// Create inserts a fee category.
func (r *FeeCategoryRepository) Create(ctx context.Context, category *models.FeeCategory) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now
	const query = `INSERT INTO fee_categories (id, school_id, name, pricing_type, fixed_amount, frequency, is_mandatory, is_refundable, display_order, active, created_at, updated_at)
VALUES (:id, :school_id, :name, :pricing_type, :fixed_amount, :frequency, :is_mandatory, :is_refundable, :display_order, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create fee category: %w", err)
	}
	return nil
}

// Update updates mutable fee category fields.
func (r *FeeCategoryRepository) Update(ctx context.Context, category *models.FeeCategory) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fee_categories SET name = :name, pricing_type = :pricing_type, fixed_amount = :fixed_amount, frequency = :frequency, is_mandatory = :is_mandatory, is_refundable = :is_refundable, display_order = :display_order, active = :active, updated_at = :updated_at
WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("update fee category: %w", err)
	}
	return nil
}
