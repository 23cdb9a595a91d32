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

// ClassRepository handles persistence for classes and sections.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// ListClasses returns all classes of a school.
func (r *ClassRepository) ListClasses(ctx context.Context, schoolID string) ([]models.Class, error) {
	const query = `SELECT id, school_id, name, active, created_at, updated_at FROM classes WHERE school_id = $1 ORDER BY name ASC`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, schoolID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindClassByID returns a class scoped to a school.
func (r *ClassRepository) FindClassByID(ctx context.Context, schoolID, id string) (*models.Class, error) {
	const query = `SELECT id, school_id, name, active, created_at, updated_at FROM classes WHERE id = $1 AND school_id = $2 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// CreateClass inserts a class.
func (r *ClassRepository) CreateClass(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, school_id, name, active, created_at, updated_at) VALUES (:id, :school_id, :name, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// UpdateClass updates mutable class fields.
func (r *ClassRepository) UpdateClass(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, active = :active, updated_at = :updated_at WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// ListSections returns sections, optionally filtered by class.
func (r *ClassRepository) ListSections(ctx context.Context, schoolID, classID string) ([]models.Section, error) {
	query := `SELECT id, school_id, class_id, name, active, created_at, updated_at FROM sections WHERE school_id = $1`
	args := []interface{}{schoolID}
	if classID != "" {
		query += " AND class_id = $2"
		args = append(args, classID)
	}
	query += " ORDER BY name ASC"
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// FindSectionByID returns a section scoped to a school.
func (r *ClassRepository) FindSectionByID(ctx context.Context, schoolID, id string) (*models.Section, error) {
	const query = `SELECT id, school_id, class_id, name, active, created_at, updated_at FROM sections WHERE id = $1 AND school_id = $2 LIMIT 1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find section: %w", err)
	}
	return &section, nil
}

// CreateSection inserts a section.
func (r *ClassRepository) CreateSection(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	const query = `INSERT INTO sections (id, school_id, class_id, name, active, created_at, updated_at) VALUES (:id, :school_id, :class_id, :name, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// UpdateSection updates mutable section fields.
func (r *ClassRepository) UpdateSection(ctx context.Context, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET name = :name, active = :active, updated_at = :updated_at WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}
