package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brightclass/brightclass-api/internal/models"
)

const studentColumns = `s.id, s.school_id, s.full_name, s.class_id, s.section_id, s.roll_number, s.guardian_name, s.guardian_phone, s.transportation_area_id, s.hostel, s.dayboarding, s.admission_date, s.active, s.created_at, s.updated_at`

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the filter with a total count.
func (r *StudentRepository) List(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := `FROM students s
JOIN classes c ON c.id = s.class_id
JOIN sections sec ON sec.id = s.section_id
LEFT JOIN transportation_areas ta ON ta.id = s.transportation_area_id
WHERE s.school_id = $1`
	args := []interface{}{schoolID}

	if filter.ClassID != "" {
		base += fmt.Sprintf(" AND s.class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.SectionID != "" {
		base += fmt.Sprintf(" AND s.section_id = $%d", len(args)+1)
		args = append(args, filter.SectionID)
	}
	if filter.Active != nil {
		base += fmt.Sprintf(" AND s.active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		base += fmt.Sprintf(" AND LOWER(s.full_name) LIKE $%d", len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
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

	query := fmt.Sprintf(`SELECT %s, c.name AS class_name, sec.name AS section_name, ta.name AS area_name
%s ORDER BY s.roll_number ASC NULLS LAST, s.full_name ASC LIMIT %d OFFSET %d`, studentColumns, base, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student scoped to a school.
func (r *StudentRepository) FindByID(ctx context.Context, schoolID, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s WHERE s.id = $1 AND s.school_id = $2 LIMIT 1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// FindByIDs returns the subset of the given students belonging to the school,
// keyed by id. Used by bulk attendance to validate entries in one round trip.
func (r *StudentRepository) FindByIDs(ctx context.Context, schoolID string, ids []string) (map[string]models.Student, error) {
	if len(ids) == 0 {
		return map[string]models.Student{}, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM students s WHERE s.school_id = ? AND s.id IN (?)`, studentColumns), schoolID, ids)
	if err != nil {
		return nil, fmt.Errorf("build students query: %w", err)
	}
	query = r.db.Rebind(query)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("find students by ids: %w", err)
	}
	result := make(map[string]models.Student, len(students))
	for _, s := range students {
		result[s.ID] = s
	}
	return result, nil
}

// ListActiveByClassSection returns the active roster ordered by roll number
// ascending with missing roll numbers last. An empty sectionID spans the whole
// class.
func (r *StudentRepository) ListActiveByClassSection(ctx context.Context, schoolID, classID, sectionID string) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s
WHERE s.school_id = $1 AND s.class_id = $2 AND s.active = TRUE`, studentColumns)
	args := []interface{}{schoolID, classID}
	if sectionID != "" {
		query += " AND s.section_id = $3"
		args = append(args, sectionID)
	}
	query += " ORDER BY s.roll_number ASC NULLS LAST, s.full_name ASC"
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return students, nil
}

// Create inserts a student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, school_id, full_name, class_id, section_id, roll_number, guardian_name, guardian_phone, transportation_area_id, hostel, dayboarding, admission_date, active, created_at, updated_at)
VALUES (:id, :school_id, :full_name, :class_id, :section_id, :roll_number, :guardian_name, :guardian_phone, :transportation_area_id, :hostel, :dayboarding, :admission_date, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update updates mutable student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, class_id = :class_id, section_id = :section_id, roll_number = :roll_number, guardian_name = :guardian_name, guardian_phone = :guardian_phone, transportation_area_id = :transportation_area_id, hostel = :hostel, dayboarding = :dayboarding, updated_at = :updated_at
WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Deactivate soft-deactivates a student. Students are never hard-deleted.
func (r *StudentRepository) Deactivate(ctx context.Context, schoolID, id string) error {
	const query = `UPDATE students SET active = FALSE, updated_at = $3 WHERE id = $1 AND school_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, schoolID, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}
