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

const paymentColumns = `p.id, p.school_id, p.student_id, p.generated_fee_id, p.amount_paid, p.payment_date, p.payment_mode, p.reference_number, p.received_by, p.remarks, p.verified, p.verified_by, p.verified_at, p.created_at, p.updated_at`

// PaymentRepository handles persistence for incoming payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a new unverified payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.IncomingPayment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	payment.Verified = false
	const query = `INSERT INTO incoming_payments (id, school_id, student_id, generated_fee_id, amount_paid, payment_date, payment_mode, reference_number, received_by, remarks, verified, created_at, updated_at)
VALUES (:id, :school_id, :student_id, :generated_fee_id, :amount_paid, :payment_date, :payment_mode, :reference_number, :received_by, :remarks, :verified, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindByID returns a payment scoped to a school.
func (r *PaymentRepository) FindByID(ctx context.Context, schoolID, id string) (*models.IncomingPayment, error) {
	query := fmt.Sprintf(`SELECT %s FROM incoming_payments p WHERE p.id = $1 AND p.school_id = $2 LIMIT 1`, paymentColumns)
	var payment models.IncomingPayment
	if err := r.db.GetContext(ctx, &payment, query, id, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &payment, nil
}

// Verify flips an unverified payment to verified. The conditional UPDATE
// makes concurrent verifies race-free: only one caller performs the write,
// the rest observe sql.ErrNoRows and re-read the already-verified row.
func (r *PaymentRepository) Verify(ctx context.Context, schoolID, id, verifierID string, at time.Time) (*models.IncomingPayment, error) {
	const query = `UPDATE incoming_payments p SET verified = TRUE, verified_by = $3, verified_at = $4, updated_at = $4
WHERE p.id = $1 AND p.school_id = $2 AND p.verified = FALSE
RETURNING p.id, p.school_id, p.student_id, p.generated_fee_id, p.amount_paid, p.payment_date, p.payment_mode, p.reference_number, p.received_by, p.remarks, p.verified, p.verified_by, p.verified_at, p.created_at, p.updated_at`
	var payment models.IncomingPayment
	if err := r.db.GetContext(ctx, &payment, query, id, schoolID, verifierID, at); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("verify payment: %w", err)
	}
	return &payment, nil
}

// paymentFilterClause builds the shared FROM/WHERE clause for payment reads.
func paymentFilterClause(schoolID string, filter models.PaymentFilter) (string, []interface{}) {
	base := `FROM incoming_payments p
JOIN students s ON s.id = p.student_id
JOIN classes c ON c.id = s.class_id
WHERE p.school_id = $1`
	args := []interface{}{schoolID}

	if filter.StudentID != "" {
		base += fmt.Sprintf(" AND p.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.PaymentMode != "" {
		base += fmt.Sprintf(" AND p.payment_mode = $%d", len(args)+1)
		args = append(args, filter.PaymentMode)
	}
	if filter.Verified != nil {
		base += fmt.Sprintf(" AND p.verified = $%d", len(args)+1)
		args = append(args, *filter.Verified)
	}
	if filter.FromDate != nil {
		base += fmt.Sprintf(" AND p.payment_date >= $%d", len(args)+1)
		args = append(args, *filter.FromDate)
	}
	if filter.ToDate != nil {
		base += fmt.Sprintf(" AND p.payment_date <= $%d", len(args)+1)
		args = append(args, *filter.ToDate)
	}
	return base, args
}

// List returns payments matching the filter plus the row count and summed
// amount of the filtered set, never the whole table.
func (r *PaymentRepository) List(ctx context.Context, schoolID string, filter models.PaymentFilter) ([]models.PaymentDetail, int, float64, error) {
	base, args := paymentFilterClause(schoolID, filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name, c.name AS class_name %s ORDER BY p.payment_date DESC, p.created_at DESC LIMIT %d OFFSET %d`, paymentColumns, base, size, offset)
	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, 0, fmt.Errorf("list payments: %w", err)
	}

	totalsQuery := fmt.Sprintf("SELECT COUNT(*) AS total_count, COALESCE(SUM(p.amount_paid), 0) AS total_amount %s", base)
	var totals struct {
		TotalCount  int     `db:"total_count"`
		TotalAmount float64 `db:"total_amount"`
	}
	if err := r.db.GetContext(ctx, &totals, totalsQuery, args...); err != nil {
		return nil, 0, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, totals.TotalCount, totals.TotalAmount, nil
}

// ListAll returns every payment matching the filter without pagination.
// Report exports read through this; interactive listings use List.
func (r *PaymentRepository) ListAll(ctx context.Context, schoolID string, filter models.PaymentFilter) ([]models.PaymentDetail, error) {
	base, args := paymentFilterClause(schoolID, filter)
	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name, c.name AS class_name %s ORDER BY p.payment_date DESC, p.created_at DESC`, paymentColumns, base)
	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("export payments: %w", err)
	}
	return payments, nil
}

// Summary aggregates verified and unverified totals for a date range.
func (r *PaymentRepository) Summary(ctx context.Context, schoolID string, from, to *time.Time) (*models.PaymentSummary, error) {
	query := `SELECT
COALESCE(SUM(amount_paid) FILTER (WHERE verified), 0) AS verified_total,
COUNT(*) FILTER (WHERE verified) AS verified_count,
COALESCE(SUM(amount_paid) FILTER (WHERE NOT verified), 0) AS unverified_total,
COUNT(*) FILTER (WHERE NOT verified) AS unverified_count
FROM incoming_payments WHERE school_id = $1`
	args := []interface{}{schoolID}
	if from != nil {
		query += fmt.Sprintf(" AND payment_date >= $%d", len(args)+1)
		args = append(args, *from)
	}
	if to != nil {
		query += fmt.Sprintf(" AND payment_date <= $%d", len(args)+1)
		args = append(args, *to)
	}
	var summary models.PaymentSummary
	if err := r.db.GetContext(ctx, &summary, query, args...); err != nil {
		return nil, fmt.Errorf("payment summary: %w", err)
	}
	return &summary, nil
}
