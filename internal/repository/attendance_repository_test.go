package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightclass/brightclass-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAttendanceRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "school_id", "student_id", "date", "status", "remarks", "marked_by", "created_at", "updated_at"}).
		AddRow("rec-1", "school-1", "s1", date, "PRESENT", nil, "user-1", time.Now(), time.Now())

	mock.ExpectQuery("INSERT INTO attendance_records").
		WithArgs(sqlmock.AnyArg(), "school-1", "s1", date, models.AttendanceStatusPresent, nil, "user-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(rows)

	record, err := repo.Upsert(context.Background(), &models.AttendanceRecord{
		SchoolID:  "school-1",
		StudentID: "s1",
		Date:      date,
		Status:    models.AttendanceStatusPresent,
		MarkedBy:  "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "rec-1", record.ID)
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryHistoryBefore(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	before := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"student_id", "date", "status"}).
		AddRow("s1", before.AddDate(0, 0, -1), "ABSENT").
		AddRow("s1", before.AddDate(0, 0, -2), "PRESENT")

	mock.ExpectQuery("SELECT a.student_id, a.date, a.status FROM attendance_records").
		WillReturnRows(rows)

	history, err := repo.HistoryBefore(context.Background(), "school-1", []string{"s1"}, before)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.AttendanceStatusAbsent, history[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryListAllIsUnpaginated(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "school_id", "student_id", "date", "status", "remarks", "marked_by", "created_at", "updated_at"})
	for i := 0; i < 3; i++ {
		rows.AddRow("rec-1", "school-1", "s1", date, "PRESENT", nil, "user-1", date, date)
	}

	// The query must end at the sort: no LIMIT, no OFFSET.
	mock.ExpectQuery(`(?s)SELECT a\.id, .+ FROM attendance_records a.+ORDER BY a\.date DESC$`).
		WithArgs("school-1", "c1").
		WillReturnRows(rows)

	records, err := repo.ListAll(context.Background(), "school-1", models.AttendanceFilter{ClassID: "c1"})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryHistoryBeforeEmptyInput(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	history, err := repo.HistoryBefore(context.Background(), "school-1", nil, time.Now())
	require.NoError(t, err)
	assert.Nil(t, history)
}
