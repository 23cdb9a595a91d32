package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brightclass/brightclass-api/internal/models"
)

const attendanceColumns = `a.id, a.school_id, a.student_id, a.date, a.status, a.remarks, a.marked_by, a.created_at, a.updated_at`

// AttendanceRepository handles persistence for the attendance ledger.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert inserts or replaces the decision for (student, date). The storage
// key is the (school_id, student_id, date) unique constraint, so concurrent
// writers resolve to last-write-wins without duplicate rows.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO attendance_records (id, school_id, student_id, date, status, remarks, marked_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (school_id, student_id, date)
DO UPDATE SET status = EXCLUDED.status, remarks = EXCLUDED.remarks, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at
RETURNING id, school_id, student_id, date, status, remarks, marked_by, created_at, updated_at`
	var stored models.AttendanceRecord
	if err := r.db.GetContext(ctx, &stored, query, record.ID, record.SchoolID, record.StudentID, record.Date, record.Status, record.Remarks, record.MarkedBy, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// attendanceFilterClause builds the shared FROM/WHERE clause for ledger reads.
func attendanceFilterClause(schoolID string, filter models.AttendanceFilter) (string, []interface{}) {
	base := `FROM attendance_records a JOIN students s ON s.id = a.student_id WHERE a.school_id = $1`
	args := []interface{}{schoolID}

	if filter.ClassID != "" {
		base += fmt.Sprintf(" AND s.class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.SectionID != "" {
		base += fmt.Sprintf(" AND s.section_id = $%d", len(args)+1)
		args = append(args, filter.SectionID)
	}
	if filter.StudentID != "" {
		base += fmt.Sprintf(" AND a.student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		base += fmt.Sprintf(" AND a.status = $%d", len(args)+1)
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		base += fmt.Sprintf(" AND a.date >= $%d", len(args)+1)
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		base += fmt.Sprintf(" AND a.date <= $%d", len(args)+1)
		args = append(args, *filter.DateTo)
	}
	return base, args
}

// List returns attendance rows matching the provided filter.
func (r *AttendanceRepository) List(ctx context.Context, schoolID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	base, args := attendanceFilterClause(schoolID, filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY a.date DESC LIMIT %d OFFSET %d", attendanceColumns, base, size, offset)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// ListAll returns every ledger row matching the filter without pagination.
// Report exports read through this; interactive listings use List.
func (r *AttendanceRepository) ListAll(ctx context.Context, schoolID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	base, args := attendanceFilterClause(schoolID, filter)
	query := fmt.Sprintf("SELECT %s %s ORDER BY a.date DESC", attendanceColumns, base)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("export attendance: %w", err)
	}
	return rows, nil
}

// ForStudentsOnDate returns the day's records for the given students, keyed
// by student id.
func (r *AttendanceRepository) ForStudentsOnDate(ctx context.Context, schoolID string, studentIDs []string, date time.Time) (map[string]models.AttendanceRecord, error) {
	if len(studentIDs) == 0 {
		return map[string]models.AttendanceRecord{}, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM attendance_records a WHERE a.school_id = ? AND a.date = ? AND a.student_id IN (?)`, attendanceColumns), schoolID, date, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("build attendance query: %w", err)
	}
	query = r.db.Rebind(query)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("attendance for date: %w", err)
	}
	result := make(map[string]models.AttendanceRecord, len(rows))
	for _, row := range rows {
		result[row.StudentID] = row
	}
	return result, nil
}

// HistoryBefore returns all ledger rows strictly before the given date for
// the given students, ordered per student from most recent to oldest. The
// consecutive-absence streak is derived from this, never stored.
func (r *AttendanceRepository) HistoryBefore(ctx context.Context, schoolID string, studentIDs []string, before time.Time) ([]models.AttendanceHistoryRow, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT a.student_id, a.date, a.status FROM attendance_records a
WHERE a.school_id = ? AND a.date < ? AND a.student_id IN (?)
ORDER BY a.student_id, a.date DESC`, schoolID, before, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}
	query = r.db.Rebind(query)
	var rows []models.AttendanceHistoryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("attendance history: %w", err)
	}
	return rows, nil
}
