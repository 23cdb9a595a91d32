package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brightclass/brightclass-api/internal/models"
)

const classPricingColumns = `id, school_id, class_id, fee_category_id, amount, academic_year, effective_from, effective_to, active, created_at, updated_at`
const areaPricingColumns = `id, school_id, area_id, fee_category_id, price, academic_year, effective_from, effective_to, active, created_at, updated_at`

// FeePricingRepository handles the class and transportation pricing catalogs.
type FeePricingRepository struct {
	db *sqlx.DB
}

// NewFeePricingRepository constructs the repository.
func NewFeePricingRepository(db *sqlx.DB) *FeePricingRepository {
	return &FeePricingRepository{db: db}
}

// ListClassPricing returns class pricing rows for a school, optionally
// narrowed by class and academic year.
func (r *FeePricingRepository) ListClassPricing(ctx context.Context, schoolID, classID, academicYear string) ([]models.ClassFeePricing, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_fee_pricing WHERE school_id = $1`, classPricingColumns)
	args := []interface{}{schoolID}
	if classID != "" {
		query += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, classID)
	}
	if academicYear != "" {
		query += fmt.Sprintf(" AND academic_year = $%d", len(args)+1)
		args = append(args, academicYear)
	}
	query += " ORDER BY effective_from DESC"
	var rows []models.ClassFeePricing
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list class pricing: %w", err)
	}
	return rows, nil
}

// ActiveClassPricingAt returns every active class pricing row whose window
// contains the reference date. The resolver treats more than one row as a
// data-integrity violation, so this deliberately does not LIMIT 1.
func (r *FeePricingRepository) ActiveClassPricingAt(ctx context.Context, schoolID, classID, academicYear string, at time.Time) ([]models.ClassFeePricing, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_fee_pricing
WHERE school_id = $1 AND class_id = $2 AND academic_year = $3 AND active = TRUE AND effective_from <= $4 AND effective_to >= $4`, classPricingColumns)
	var rows []models.ClassFeePricing
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, classID, academicYear, at); err != nil {
		return nil, fmt.Errorf("active class pricing: %w", err)
	}
	return rows, nil
}

// CountOverlappingClassPricing counts active rows whose window intersects the
// given one, excluding a row by id. The scope matches ActiveClassPricingAt:
// (class, academic year) regardless of category, so no state the resolver
// would treat as ambiguous can be written.
func (r *FeePricingRepository) CountOverlappingClassPricing(ctx context.Context, p *models.ClassFeePricing) (int, error) {
	const query = `SELECT COUNT(*) FROM class_fee_pricing
WHERE school_id = $1 AND class_id = $2 AND academic_year = $3 AND active = TRUE
AND effective_from <= $4 AND effective_to >= $5 AND id <> $6`
	var count int
	if err := r.db.GetContext(ctx, &count, query, p.SchoolID, p.ClassID, p.AcademicYear, p.EffectiveTo, p.EffectiveFrom, p.ID); err != nil {
		return 0, fmt.Errorf("count overlapping class pricing: %w", err)
	}
	return count, nil
}

// CreateClassPricing inserts a class pricing row.
func (r *FeePricingRepository) CreateClassPricing(ctx context.Context, p *models.ClassFeePricing) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	const query = `INSERT INTO class_fee_pricing (id, school_id, class_id, fee_category_id, amount, academic_year, effective_from, effective_to, active, created_at, updated_at)
VALUES (:id, :school_id, :class_id, :fee_category_id, :amount, :academic_year, :effective_from, :effective_to, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("create class pricing: %w", err)
	}
	return nil
}

// UpdateClassPricing updates mutable pricing fields.
func (r *FeePricingRepository) UpdateClassPricing(ctx context.Context, p *models.ClassFeePricing) error {
	p.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_fee_pricing SET amount = :amount, effective_from = :effective_from, effective_to = :effective_to, active = :active, updated_at = :updated_at
WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("update class pricing: %w", err)
	}
	return nil
}

// ListAreaPricing returns transportation pricing rows for a school.
func (r *FeePricingRepository) ListAreaPricing(ctx context.Context, schoolID, areaID, academicYear string) ([]models.TransportationAreaPricing, error) {
	query := fmt.Sprintf(`SELECT %s FROM transportation_area_pricing WHERE school_id = $1`, areaPricingColumns)
	args := []interface{}{schoolID}
	if areaID != "" {
		query += fmt.Sprintf(" AND area_id = $%d", len(args)+1)
		args = append(args, areaID)
	}
	if academicYear != "" {
		query += fmt.Sprintf(" AND academic_year = $%d", len(args)+1)
		args = append(args, academicYear)
	}
	query += " ORDER BY effective_from DESC"
	var rows []models.TransportationAreaPricing
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list area pricing: %w", err)
	}
	return rows, nil
}

// ActiveAreaPricingAt returns every active transportation pricing row whose
// window contains the reference date.
func (r *FeePricingRepository) ActiveAreaPricingAt(ctx context.Context, schoolID, areaID, academicYear string, at time.Time) ([]models.TransportationAreaPricing, error) {
	query := fmt.Sprintf(`SELECT %s FROM transportation_area_pricing
WHERE school_id = $1 AND area_id = $2 AND academic_year = $3 AND active = TRUE AND effective_from <= $4 AND effective_to >= $4`, areaPricingColumns)
	var rows []models.TransportationAreaPricing
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, areaID, academicYear, at); err != nil {
		return nil, fmt.Errorf("active area pricing: %w", err)
	}
	return rows, nil
}

// CountOverlappingAreaPricing counts active rows intersecting the given
// window, excluding a row by id. Scoped per (area, academic year) to mirror
// ActiveAreaPricingAt.
func (r *FeePricingRepository) CountOverlappingAreaPricing(ctx context.Context, p *models.TransportationAreaPricing) (int, error) {
	const query = `SELECT COUNT(*) FROM transportation_area_pricing
WHERE school_id = $1 AND area_id = $2 AND academic_year = $3 AND active = TRUE
AND effective_from <= $4 AND effective_to >= $5 AND id <> $6`
	var count int
	if err := r.db.GetContext(ctx, &count, query, p.SchoolID, p.AreaID, p.AcademicYear, p.EffectiveTo, p.EffectiveFrom, p.ID); err != nil {
		return 0, fmt.Errorf("count overlapping area pricing: %w", err)
	}
	return count, nil
}

// CreateAreaPricing inserts a transportation pricing row.
func (r *FeePricingRepository) CreateAreaPricing(ctx context.Context, p *models.TransportationAreaPricing) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	const query = `INSERT INTO transportation_area_pricing (id, school_id, area_id, fee_category_id, price, academic_year, effective_from, effective_to, active, created_at, updated_at)
VALUES (:id, :school_id, :area_id, :fee_category_id, :price, :academic_year, :effective_from, :effective_to, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("create area pricing: %w", err)
	}
	return nil
}

// UpdateAreaPricing updates mutable pricing fields.
func (r *FeePricingRepository) UpdateAreaPricing(ctx context.Context, p *models.TransportationAreaPricing) error {
	p.UpdatedAt = time.Now().UTC()
	const query = `UPDATE transportation_area_pricing SET price = :price, effective_from = :effective_from, effective_to = :effective_to, active = :active, updated_at = :updated_at
WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("update area pricing: %w", err)
	}
	return nil
}

// ListAreas returns transportation areas of a school.
func (r *FeePricingRepository) ListAreas(ctx context.Context, schoolID string) ([]models.TransportationArea, error) {
	const query = `SELECT id, school_id, name, active, created_at, updated_at FROM transportation_areas WHERE school_id = $1 ORDER BY name ASC`
	var areas []models.TransportationArea
	if err := r.db.SelectContext(ctx, &areas, query, schoolID); err != nil {
		return nil, fmt.Errorf("list transportation areas: %w", err)
	}
	return areas, nil
}

// CreateArea inserts a transportation area.
func (r *FeePricingRepository) CreateArea(ctx context.Context, area *models.TransportationArea) error {
	if area.ID == "" {
		area.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	area.CreatedAt = now
	area.UpdatedAt = now
	const query = `INSERT INTO transportation_areas (id, school_id, name, active, created_at, updated_at) VALUES (:id, :school_id, :name, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, area); err != nil {
		return fmt.Errorf("create transportation area: %w", err)
	}
	return nil
}
