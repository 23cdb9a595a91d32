package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brightclass/brightclass-api/internal/models"
	appErrors "github.com/brightclass/brightclass-api/pkg/errors"
)

type mockAttendanceRepo struct {
	upserted   []models.AttendanceRecord
	upsertErr  map[string]error
	listResult []models.AttendanceRecord
	listTotal  int
	onDate     map[string]models.AttendanceRecord
	history    []models.AttendanceHistoryRow
}

func (m *mockAttendanceRepo) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if err, ok := m.upsertErr[record.StudentID]; ok {
		return nil, err
	}
	saved := *record
	saved.ID = "rec-" + record.StudentID
	m.upserted = append(m.upserted, saved)
	return &saved, nil
}

func (m *mockAttendanceRepo) List(ctx context.Context, schoolID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockAttendanceRepo) ForStudentsOnDate(ctx context.Context, schoolID string, studentIDs []string, date time.Time) (map[string]models.AttendanceRecord, error) {
	return m.onDate, nil
}

func (m *mockAttendanceRepo) HistoryBefore(ctx context.Context, schoolID string, studentIDs []string, before time.Time) ([]models.AttendanceHistoryRow, error) {
	return m.history, nil
}

type mockAttendanceStudents struct {
	byID   map[string]models.Student
	roster []models.Student
}

func (m *mockAttendanceStudents) FindByIDs(ctx context.Context, schoolID string, ids []string) (map[string]models.Student, error) {
	found := make(map[string]models.Student)
	for _, id := range ids {
		if st, ok := m.byID[id]; ok {
			found[id] = st
		}
	}
	return found, nil
}

func (m *mockAttendanceStudents) ListActiveByClassSection(ctx context.Context, schoolID, classID, sectionID string) ([]models.Student, error) {
	return m.roster, nil
}

func newAttendanceServiceForTest(repo *mockAttendanceRepo, students *mockAttendanceStudents, now time.Time) *AttendanceService {
	svc := NewAttendanceService(repo, students, nil, time.Minute, validator.New(), zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestBulkMarkRejectsFutureDate(t *testing.T) {
	svc := newAttendanceServiceForTest(&mockAttendanceRepo{}, &mockAttendanceStudents{}, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))

	_, err := svc.BulkMark(context.Background(), "school-1", "user-1", models.BulkAttendanceRequest{
		Date:    "2026-03-11",
		Entries: []models.BulkAttendanceEntry{{StudentID: "s1", Status: models.AttendanceStatusPresent}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFutureDate.Code, appErrors.FromError(err).Code)
}

func TestBulkMarkPartialFailures(t *testing.T) {
	repo := &mockAttendanceRepo{}
	students := &mockAttendanceStudents{byID: map[string]models.Student{
		"s1": {ID: "s1", Active: true},
		"s2": {ID: "s2", Active: false},
	}}
	svc := newAttendanceServiceForTest(repo, students, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))

	result, err := svc.BulkMark(context.Background(), "school-1", "user-1", models.BulkAttendanceRequest{
		Date: "2026-03-10",
		Entries: []models.BulkAttendanceEntry{
			{StudentID: "s1", Status: models.AttendanceStatusPresent},
			{StudentID: "s2", Status: models.AttendanceStatusAbsent},
			{StudentID: "missing", Status: models.AttendanceStatusPresent},
			{StudentID: "s1", Status: "LATE"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 3, result.Failed)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "s1", result.Records[0].StudentID)
	assert.Equal(t, "user-1", result.Records[0].MarkedBy)
	assert.Len(t, result.Errors, 3)
}

func TestBulkMarkRemarkOnly(t *testing.T) {
	repo := &mockAttendanceRepo{}
	students := &mockAttendanceStudents{byID: map[string]models.Student{"s1": {ID: "s1", Active: true}}}
	svc := newAttendanceServiceForTest(repo, students, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))

	remarks := "doctor visit"
	result, err := svc.BulkMark(context.Background(), "school-1", "user-1", models.BulkAttendanceRequest{
		Date:    "2026-03-09",
		Entries: []models.BulkAttendanceEntry{{StudentID: "s1", Status: models.AttendanceStatusAbsent, Remarks: &remarks}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	require.NotNil(t, repo.upserted[0].Remarks)
	assert.Equal(t, remarks, *repo.upserted[0].Remarks)
}

func TestRosterComputesAbsenceStreaks(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	repo := &mockAttendanceRepo{
		onDate: map[string]models.AttendanceRecord{
			"s1": {ID: "rec-s1", StudentID: "s1", Status: models.AttendanceStatusAbsent},
		},
		history: []models.AttendanceHistoryRow{
			// s1: three consecutive absences then a present day.
			{StudentID: "s1", Date: date.AddDate(0, 0, -1), Status: models.AttendanceStatusAbsent},
			{StudentID: "s1", Date: date.AddDate(0, 0, -2), Status: models.AttendanceStatusAbsent},
			{StudentID: "s1", Date: date.AddDate(0, 0, -3), Status: models.AttendanceStatusAbsent},
			{StudentID: "s1", Date: date.AddDate(0, 0, -4), Status: models.AttendanceStatusPresent},
			{StudentID: "s1", Date: date.AddDate(0, 0, -5), Status: models.AttendanceStatusAbsent},
			// s2: present on the most recent marked day.
			{StudentID: "s2", Date: date.AddDate(0, 0, -1), Status: models.AttendanceStatusPresent},
		},
	}
	students := &mockAttendanceStudents{roster: []models.Student{
		{ID: "s1", Active: true},
		{ID: "s2", Active: true},
		{ID: "s3", Active: true},
	}}
	svc := newAttendanceServiceForTest(repo, students, date)

	rows, err := svc.Roster(context.Background(), "school-1", "class-1", "section-1", date)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NotNil(t, rows[0].Attendance)
	require.NotNil(t, rows[0].DaysAbsentSinceLastPresent)
	assert.Equal(t, 3, *rows[0].DaysAbsentSinceLastPresent)

	require.NotNil(t, rows[1].DaysAbsentSinceLastPresent)
	assert.Equal(t, 0, *rows[1].DaysAbsentSinceLastPresent)

	// No ledger history at all: the streak is unknown, not zero.
	assert.Nil(t, rows[2].Attendance)
	assert.Nil(t, rows[2].DaysAbsentSinceLastPresent)
}

func TestRosterEmptyForUnknownClass(t *testing.T) {
	svc := newAttendanceServiceForTest(&mockAttendanceRepo{}, &mockAttendanceStudents{}, time.Now().UTC())

	rows, err := svc.Roster(context.Background(), "school-1", "ghost", "ghost", time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAbsenceStreaksStopAtPresent(t *testing.T) {
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	streaks := absenceStreaks([]models.AttendanceHistoryRow{
		{StudentID: "a", Date: day, Status: models.AttendanceStatusAbsent},
		{StudentID: "a", Date: day.AddDate(0, 0, -1), Status: models.AttendanceStatusPresent},
		{StudentID: "a", Date: day.AddDate(0, 0, -2), Status: models.AttendanceStatusAbsent},
		{StudentID: "b", Date: day, Status: models.AttendanceStatusAbsent},
		{StudentID: "b", Date: day.AddDate(0, 0, -1), Status: models.AttendanceStatusAbsent},
	})

	assert.Equal(t, 1, streaks["a"])
	assert.Equal(t, 2, streaks["b"])
}
