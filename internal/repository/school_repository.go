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

// SchoolRepository handles persistence for schools and their settings.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// List returns all schools ordered by name.
func (r *SchoolRepository) List(ctx context.Context) ([]models.School, error) {
	const query = `SELECT id, name, address, phone, email, active, created_at, updated_at FROM schools ORDER BY name ASC`
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query); err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	return schools, nil
}

// FindByID returns a school by identifier.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	const query = `SELECT id, name, address, phone, email, active, created_at, updated_at FROM schools WHERE id = $1 LIMIT 1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find school: %w", err)
	}
	return &school, nil
}

// Create inserts a school together with default settings in one transaction.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	school.CreatedAt = now
	school.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create school: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	const insertSchool = `INSERT INTO schools (id, name, address, phone, email, active, created_at, updated_at) VALUES (:id, :name, :address, :phone, :email, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertSchool, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}

	const insertSettings = `INSERT INTO school_settings (school_id, hostel_fee, admission_fee, dayboarding_fee, payment_modes, updated_at) VALUES ($1, 0, 0, 0, '{}', $2)`
	if _, err := tx.ExecContext(ctx, insertSettings, school.ID, now); err != nil {
		return fmt.Errorf("create school settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create school: %w", err)
	}
	committed = true
	return nil
}

// Update updates mutable school fields.
func (r *SchoolRepository) Update(ctx context.Context, school *models.School) error {
	school.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schools SET name = :name, address = :address, phone = :phone, email = :email, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("update school: %w", err)
	}
	return nil
}

// GetSettings returns the settings row for a school.
func (r *SchoolRepository) GetSettings(ctx context.Context, schoolID string) (*models.SchoolSettings, error) {
	const query = `SELECT school_id, hostel_fee, admission_fee, dayboarding_fee, payment_modes, updated_at FROM school_settings WHERE school_id = $1 LIMIT 1`
	var settings models.SchoolSettings
	if err := r.db.GetContext(ctx, &settings, query, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get school settings: %w", err)
	}
	return &settings, nil
}

// UpdateSettings replaces the settings row for a school.
func (r *SchoolRepository) UpdateSettings(ctx context.Context, settings *models.SchoolSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	const query = `UPDATE school_settings SET hostel_fee = :hostel_fee, admission_fee = :admission_fee, dayboarding_fee = :dayboarding_fee, payment_modes = :payment_modes, updated_at = :updated_at WHERE school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("update school settings: %w", err)
	}
	return nil
}
