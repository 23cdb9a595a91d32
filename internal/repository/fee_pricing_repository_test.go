package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightclass/brightclass-api/internal/models"
)

// The overlap check must scope exactly like the resolver's lookup: per class
// and academic year, never narrowed by category. Two class-based categories
// priced for the same window would otherwise pass creation and then fail
// every resolution for that class.
func TestCountOverlappingClassPricingIgnoresCategory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeePricingRepository(db)

	from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM class_fee_pricing`).
		WithArgs("school-1", "c1", "2026-27", to, from, "row-2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountOverlappingClassPricing(context.Background(), &models.ClassFeePricing{
		ID:            "row-2",
		SchoolID:      "school-1",
		ClassID:       "c1",
		FeeCategoryID: "lab-fee",
		AcademicYear:  "2026-27",
		EffectiveFrom: from,
		EffectiveTo:   to,
		Active:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountOverlappingAreaPricingIgnoresCategory(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeePricingRepository(db)

	from := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM transportation_area_pricing`).
		WithArgs("school-1", "area-1", "2026-27", to, from, "row-9").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	count, err := repo.CountOverlappingAreaPricing(context.Background(), &models.TransportationAreaPricing{
		ID:            "row-9",
		SchoolID:      "school-1",
		AreaID:        "area-1",
		FeeCategoryID: "transport",
		AcademicYear:  "2026-27",
		EffectiveFrom: from,
		EffectiveTo:   to,
		Active:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
