package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/brightclass/brightclass-api/internal/models"
	appErrors "github.com/brightclass/brightclass-api/pkg/errors"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	List(ctx context.Context, schoolID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	ForStudentsOnDate(ctx context.Context, schoolID string, studentIDs []string, date time.Time) (map[string]models.AttendanceRecord, error)
	HistoryBefore(ctx context.Context, schoolID string, studentIDs []string, before time.Time) ([]models.AttendanceHistoryRow, error)
}

type attendanceStudentRepository interface {
	FindByIDs(ctx context.Context, schoolID string, ids []string) (map[string]models.Student, error)
	ListActiveByClassSection(ctx context.Context, schoolID, classID, sectionID string) ([]models.Student, error)
}

// AttendanceService owns the attendance ledger: bulk marking and the roster
// view with the consecutive-absence streak.
type AttendanceService struct {
	repo      attendanceRepository
	students  attendanceStudentRepository
	cache     *CacheService
	rosterTTL time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(repo attendanceRepository, students attendanceStudentRepository, cache *CacheService, rosterTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{
		repo:      repo,
		students:  students,
		cache:     cache,
		rosterTTL: rosterTTL,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// BulkMark upserts one record per entry for the given date. A future date
// rejects the whole batch; individual entry failures are collected into the
// result manifest and do not fail the request.
func (s *AttendanceService) BulkMark(ctx context.Context, schoolID, markedBy string, req models.BulkAttendanceRequest) (*models.BulkAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}
	today := s.now().Truncate(24 * time.Hour)
	if date.After(today) {
		return nil, appErrors.Clone(appErrors.ErrFutureDate, "attendance cannot be marked for a future date")
	}

	ids := make([]string, 0, len(req.Entries))
	for _, entry := range req.Entries {
		ids = append(ids, entry.StudentID)
	}
	known, err := s.students.FindByIDs(ctx, schoolID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	result := &models.BulkAttendanceResult{
		Records: make([]models.AttendanceRecord, 0, len(req.Entries)),
		Errors:  make([]models.AttendanceEntryError, 0),
	}

	for _, entry := range req.Entries {
		if !entry.Status.Valid() {
			result.Failed++
			result.Errors = append(result.Errors, models.AttendanceEntryError{StudentID: entry.StudentID, Reason: fmt.Sprintf("unsupported status %q", entry.Status)})
			continue
		}
		student, ok := known[entry.StudentID]
		if !ok {
			result.Failed++
			result.Errors = append(result.Errors, models.AttendanceEntryError{StudentID: entry.StudentID, Reason: "student not found"})
			continue
		}
		if !student.Active {
			result.Failed++
			result.Errors = append(result.Errors, models.AttendanceEntryError{StudentID: entry.StudentID, Reason: "student is inactive"})
			continue
		}

		record, err := s.repo.Upsert(ctx, &models.AttendanceRecord{
			SchoolID:  schoolID,
			StudentID: entry.StudentID,
			Date:      date,
			Status:    entry.Status,
			Remarks:   entry.Remarks,
			MarkedBy:  markedBy,
		})
		if err != nil {
			s.logger.Warn("attendance upsert failed", zap.String("student_id", entry.StudentID), zap.Error(err))
			result.Failed++
			result.Errors = append(result.Errors, models.AttendanceEntryError{StudentID: entry.StudentID, Reason: "failed to persist record"})
			continue
		}
		result.Success++
		result.Records = append(result.Records, *record)
	}

	if result.Success > 0 && s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, rosterCachePattern(schoolID)); err != nil {
			s.logger.Warn("roster cache invalidation failed", zap.Error(err))
		}
	}

	return result, nil
}

// Roster returns every active student of the class/section with the day's
// record attached and days_absent_since_last_present derived from the ledger.
// An unknown class or section yields an empty roster.
func (s *AttendanceService) Roster(ctx context.Context, schoolID, classID, sectionID string, date time.Time) ([]models.StudentAttendanceRow, error) {
	cacheKey := rosterCacheKey(schoolID, classID, sectionID, date)
	if s.cache.Enabled() {
		var cached []models.StudentAttendanceRow
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	students, err := s.students.ListActiveByClassSection(ctx, schoolID, classID, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	if len(students) == 0 {
		return []models.StudentAttendanceRow{}, nil
	}

	ids := make([]string, len(students))
	for i, st := range students {
		ids[i] = st.ID
	}

	todays, err := s.repo.ForStudentsOnDate(ctx, schoolID, ids, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	history, err := s.repo.HistoryBefore(ctx, schoolID, ids, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	streaks := absenceStreaks(history)

	rows := make([]models.StudentAttendanceRow, len(students))
	for i, st := range students {
		row := models.StudentAttendanceRow{Student: st}
		if record, ok := todays[st.ID]; ok {
			rec := record
			row.Attendance = &rec
		}
		if streak, ok := streaks[st.ID]; ok {
			v := streak
			row.DaysAbsentSinceLastPresent = &v
		}
		rows[i] = row
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, rows, s.rosterTTL); err != nil {
			s.logger.Warn("roster cache write failed", zap.Error(err))
		}
	}

	return rows, nil
}

// List returns filtered attendance records with pagination metadata.
func (s *AttendanceService) List(ctx context.Context, schoolID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	records, total, err := s.repo.List(ctx, schoolID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// absenceStreaks walks each student's ledger backward from the reference date
// and counts consecutive ABSENT records until the first PRESENT. Students with
// no prior records are absent from the map entirely. Rows must arrive ordered
// by student then date descending, which HistoryBefore guarantees.
func absenceStreaks(history []models.AttendanceHistoryRow) map[string]int {
	streaks := make(map[string]int)
	closed := make(map[string]bool)
	for _, row := range history {
		if closed[row.StudentID] {
			continue
		}
		if _, seen := streaks[row.StudentID]; !seen {
			streaks[row.StudentID] = 0
		}
		if row.Status == models.AttendanceStatusAbsent {
			streaks[row.StudentID]++
			continue
		}
		closed[row.StudentID] = true
	}
	return streaks
}

func rosterCacheKey(schoolID, classID, sectionID string, date time.Time) string {
	return fmt.Sprintf("attendance:roster:%s:%s:%s:%s", schoolID, classID, sectionID, date.Format("2006-01-02"))
}

func rosterCachePattern(schoolID string) string {
	return fmt.Sprintf("attendance:roster:%s:*", schoolID)
}
