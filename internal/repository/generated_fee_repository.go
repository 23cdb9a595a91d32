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

const generatedFeeColumns = `id, school_id, student_id, month, calendar_year, academic_year, tuition, transportation, hostel, dayboarding, admission, discount, discount_reason, net_amount, generated_by, created_at`

// GeneratedFeeRepository persists monthly fee periods.
type GeneratedFeeRepository struct {
	db *sqlx.DB
}

// NewGeneratedFeeRepository constructs the repository.
func NewGeneratedFeeRepository(db *sqlx.DB) *GeneratedFeeRepository {
	return &GeneratedFeeRepository{db: db}
}

// Insert persists a generated fee. The (school_id, student_id, month,
// calendar_year) unique constraint guards against duplicate generation; a
// conflicting insert returns sql.ErrNoRows which callers map to a conflict.
func (r *GeneratedFeeRepository) Insert(ctx context.Context, fee *models.GeneratedFee) (*models.GeneratedFee, error) {
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	if fee.CreatedAt.IsZero() {
		fee.CreatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`INSERT INTO generated_fees (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (school_id, student_id, month, calendar_year) DO NOTHING
RETURNING %s`, generatedFeeColumns, generatedFeeColumns)
	var stored models.GeneratedFee
	err := r.db.GetContext(ctx, &stored, query,
		fee.ID, fee.SchoolID, fee.StudentID, fee.Month, fee.CalendarYear, fee.AcademicYear,
		fee.Tuition, fee.Transportation, fee.Hostel, fee.Dayboarding, fee.Admission,
		fee.Discount, fee.DiscountReason, fee.NetAmount, fee.GeneratedBy, fee.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("insert generated fee: %w", err)
	}
	return &stored, nil
}

// FindByID returns a generated fee scoped to a school.
func (r *GeneratedFeeRepository) FindByID(ctx context.Context, schoolID, id string) (*models.GeneratedFee, error) {
	query := fmt.Sprintf(`SELECT %s FROM generated_fees WHERE id = $1 AND school_id = $2 LIMIT 1`, generatedFeeColumns)
	var fee models.GeneratedFee
	if err := r.db.GetContext(ctx, &fee, query, id, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find generated fee: %w", err)
	}
	return &fee, nil
}

// List returns generated fees matching the filter with total count.
func (r *GeneratedFeeRepository) List(ctx context.Context, schoolID string, filter models.GeneratedFeeFilter) ([]models.GeneratedFee, int, error) {
	base := `FROM generated_fees WHERE school_id = $1`
	args := []interface{}{schoolID}
	if filter.StudentID != "" {
		base += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.Month > 0 {
		base += fmt.Sprintf(" AND month = $%d", len(args)+1)
		args = append(args, filter.Month)
	}
	if filter.CalendarYear > 0 {
		base += fmt.Sprintf(" AND calendar_year = $%d", len(args)+1)
		args = append(args, filter.CalendarYear)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY calendar_year DESC, month DESC LIMIT %d OFFSET %d", generatedFeeColumns, base, size, offset)
	var fees []models.GeneratedFee
	if err := r.db.SelectContext(ctx, &fees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list generated fees: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count generated fees: %w", err)
	}
	return fees, total, nil
}
