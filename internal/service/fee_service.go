package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightclass/brightclass-api/internal/models"
	appErrors "github.com/brightclass/brightclass-api/pkg/errors"
	"github.com/brightclass/brightclass-api/pkg/jobs"
)

type feePricingRepository interface {
	ActiveClassPricingAt(ctx context.Context, schoolID, classID, academicYear string, at time.Time) ([]models.ClassFeePricing, error)
	ActiveAreaPricingAt(ctx context.Context, schoolID, areaID, academicYear string, at time.Time) ([]models.TransportationAreaPricing, error)
}

type feeSettingsRepository interface {
	GetSettings(ctx context.Context, schoolID string) (*models.SchoolSettings, error)
}

type feeStudentRepository interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Student, error)
	ListActiveByClassSection(ctx context.Context, schoolID, classID, sectionID string) ([]models.Student, error)
}

type generatedFeeRepository interface {
	Insert(ctx context.Context, fee *models.GeneratedFee) (*models.GeneratedFee, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.GeneratedFee, error)
	List(ctx context.Context, schoolID string, filter models.GeneratedFeeFilter) ([]models.GeneratedFee, int, error)
}

type feeAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// FeeService resolves fee components for a student and period and persists
// generated fee rows. Resolution never guesses: overlapping pricing windows
// surface as an error instead of an arbitrary pick.
type FeeService struct {
	pricing   feePricingRepository
	settings  feeSettingsRepository
	students  feeStudentRepository
	generated generatedFeeRepository
	audit     feeAuditRepository
	validator *validator.Validate
	logger    *zap.Logger

	queue *jobs.Queue
}

// FeeQueueConfig tunes the background class-generation queue.
type FeeQueueConfig struct {
	Workers    int
	MaxRetries int
}

// NewFeeService constructs a FeeService with its background queue.
func NewFeeService(pricing feePricingRepository, settings feeSettingsRepository, students feeStudentRepository, generated generatedFeeRepository, audit feeAuditRepository, validate *validator.Validate, logger *zap.Logger, queueCfg FeeQueueConfig) *FeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	s := &FeeService{
		pricing:   pricing,
		settings:  settings,
		students:  students,
		generated: generated,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
	s.queue = jobs.NewQueue("fee-generation", s.handleGenerationJob, jobs.QueueConfig{
		Workers:    queueCfg.Workers,
		MaxRetries: queueCfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the background generation workers.
func (s *FeeService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the background generation workers.
func (s *FeeService) Stop() {
	s.queue.Stop()
}

// AcademicYearFor derives the academic year label for a fee period using the
// April convention: April through December belong to "YYYY-YY+1", January
// through March to the year that began the previous April.
func AcademicYearFor(month, calendarYear int) string {
	if month >= 4 {
		return fmt.Sprintf("%d-%02d", calendarYear, (calendarYear+1)%100)
	}
	return fmt.Sprintf("%d-%02d", calendarYear-1, calendarYear%100)
}

type resolvedAmounts struct {
	academicYear   string
	tuition        float64
	transportation float64
	hostel         float64
	dayboarding    float64
	admission      float64
}

// ResolveFeeComponents computes the itemized fee breakdown for a student and
// period without persisting anything.
func (s *FeeService) ResolveFeeComponents(ctx context.Context, schoolID string, req models.GenerateFeeRequest) (*models.FeeBreakdown, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee request")
	}

	student, err := s.loadStudent(ctx, schoolID, req.StudentID)
	if err != nil {
		return nil, err
	}

	amounts, err := s.resolve(ctx, schoolID, student, req.Month, req.CalendarYear, req.NewAdmission)
	if err != nil {
		return nil, err
	}

	return buildBreakdown(amounts, req.Discount, req.DiscountReason), nil
}

// Generate resolves and persists a fee period for one student. At most one
// generated fee exists per (student, month, calendar year).
func (s *FeeService) Generate(ctx context.Context, schoolID, generatedBy string, req models.GenerateFeeRequest) (*models.GeneratedFee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee request")
	}

	student, err := s.loadStudent(ctx, schoolID, req.StudentID)
	if err != nil {
		return nil, err
	}

	amounts, err := s.resolve(ctx, schoolID, student, req.Month, req.CalendarYear, req.NewAdmission)
	if err != nil {
		return nil, err
	}

	breakdown := buildBreakdown(amounts, req.Discount, req.DiscountReason)

	fee := &models.GeneratedFee{
		SchoolID:       schoolID,
		StudentID:      student.ID,
		Month:          req.Month,
		CalendarYear:   req.CalendarYear,
		AcademicYear:   amounts.academicYear,
		Tuition:        amounts.tuition,
		Transportation: amounts.transportation,
		Hostel:         amounts.hostel,
		Dayboarding:    amounts.dayboarding,
		Admission:      amounts.admission,
		Discount:       breakdown.Discount,
		DiscountReason: breakdown.DiscountReason,
		NetAmount:      breakdown.NetAmount,
		GeneratedBy:    generatedBy,
	}

	inserted, err := s.generated.Insert(ctx, fee)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "fee already generated for this student and period")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist generated fee")
	}

	values, _ := json.Marshal(map[string]interface{}{"month": req.Month, "calendar_year": req.CalendarYear, "net_amount": inserted.NetAmount})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &generatedBy,
		Action:     models.AuditActionFeeGenerate,
		Resource:   "generated_fee",
		ResourceID: &inserted.ID,
		NewValues:  values,
	}); err != nil {
		s.logger.Warn("failed to record fee generation audit log", zap.Error(err))
	}

	return inserted, nil
}

type feeGenerationJob struct {
	SchoolID     string
	StudentID    string
	Month        int
	CalendarYear int
	GeneratedBy  string
}

// GenerateClass queues fee generation for every active student of the class.
// Returns the number of queued students.
func (s *FeeService) GenerateClass(ctx context.Context, schoolID, generatedBy string, req models.GenerateClassFeesRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class fee request")
	}

	students, err := s.students.ListActiveByClassSection(ctx, schoolID, req.ClassID, req.SectionID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}

	queued := 0
	for _, student := range students {
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: "fee.generate",
			Payload: feeGenerationJob{
				SchoolID:     schoolID,
				StudentID:    student.ID,
				Month:        req.Month,
				CalendarYear: req.CalendarYear,
				GeneratedBy:  generatedBy,
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue fee generation", zap.String("student_id", student.ID), zap.Error(err))
			continue
		}
		queued++
	}
	return queued, nil
}

// FindGenerated returns one generated fee row.
func (s *FeeService) FindGenerated(ctx context.Context, schoolID, id string) (*models.GeneratedFee, error) {
	fee, err := s.generated.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "generated fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load generated fee")
	}
	return fee, nil
}

// ListGenerated returns generated fee rows with pagination metadata.
func (s *FeeService) ListGenerated(ctx context.Context, schoolID string, filter models.GeneratedFeeFilter) ([]models.GeneratedFee, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	fees, total, err := s.generated.List(ctx, schoolID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list generated fees")
	}
	return fees, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *FeeService) handleGenerationJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(feeGenerationJob)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	_, err := s.Generate(ctx, payload.SchoolID, payload.GeneratedBy, models.GenerateFeeRequest{
		StudentID:    payload.StudentID,
		Month:        payload.Month,
		CalendarYear: payload.CalendarYear,
	})
	if err != nil {
		appErr := appErrors.FromError(err)
		// Already generated periods are a no-op, not a retryable failure.
		if appErr.Code == appErrors.ErrConflict.Code {
			return nil
		}
		return err
	}
	return nil
}

func (s *FeeService) loadStudent(ctx context.Context, schoolID, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, schoolID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is inactive")
	}
	return student, nil
}

// resolve computes each component amount for the period. Hostel and
// transportation are mutually exclusive services.
func (s *FeeService) resolve(ctx context.Context, schoolID string, student *models.Student, month, calendarYear int, newAdmission bool) (*resolvedAmounts, error) {
	if student.Hostel && student.TransportationAreaID != nil {
		return nil, appErrors.Clone(appErrors.ErrConflictingService, "")
	}

	academicYear := AcademicYearFor(month, calendarYear)
	referenceDate := time.Date(calendarYear, time.Month(month), 1, 0, 0, 0, 0, time.UTC)

	amounts := &resolvedAmounts{academicYear: academicYear}

	classRows, err := s.pricing.ActiveClassPricingAt(ctx, schoolID, student.ClassID, academicYear, referenceDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class pricing")
	}
	switch len(classRows) {
	case 0:
		// No active window: tuition component absent for this period.
	case 1:
		amounts.tuition = classRows[0].Amount
	default:
		return nil, appErrors.Clone(appErrors.ErrAmbiguousPricing, fmt.Sprintf("%d overlapping tuition pricing windows for class", len(classRows)))
	}

	if student.TransportationAreaID != nil {
		areaRows, err := s.pricing.ActiveAreaPricingAt(ctx, schoolID, *student.TransportationAreaID, academicYear, referenceDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transportation pricing")
		}
		switch len(areaRows) {
		case 0:
		case 1:
			amounts.transportation = areaRows[0].Price
		default:
			return nil, appErrors.Clone(appErrors.ErrAmbiguousPricing, fmt.Sprintf("%d overlapping transportation pricing windows for area", len(areaRows)))
		}
	}

	if student.Hostel || student.Dayboarding || newAdmission {
		settings, err := s.settings.GetSettings(ctx, schoolID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school settings")
		}
		if student.Hostel {
			amounts.hostel = settings.HostelFee
		}
		if student.Dayboarding {
			amounts.dayboarding = settings.DayboardingFee
		}
		if newAdmission {
			amounts.admission = settings.AdmissionFee
		}
	}

	return amounts, nil
}

func buildBreakdown(amounts *resolvedAmounts, discount float64, discountReason *string) *models.FeeBreakdown {
	components := make([]models.FeeComponent, 0, 5)
	appendComponent := func(name string, amount float64) {
		if amount > 0 {
			components = append(components, models.FeeComponent{Name: name, Amount: amount})
		}
	}
	appendComponent("tuition", amounts.tuition)
	appendComponent("transportation", amounts.transportation)
	appendComponent("hostel", amounts.hostel)
	appendComponent("dayboarding", amounts.dayboarding)
	appendComponent("admission", amounts.admission)

	subtotal := amounts.tuition + amounts.transportation + amounts.hostel + amounts.dayboarding + amounts.admission
	// Negative discounts never reach here: both entrypoints validate gte=0.
	net := subtotal - discount
	if net < 0 {
		net = 0
	}

	breakdown := &models.FeeBreakdown{
		AcademicYear: amounts.academicYear,
		Components:   components,
		Subtotal:     subtotal,
		Discount:     discount,
		NetAmount:    net,
	}
	if discount > 0 {
		breakdown.DiscountReason = discountReason
	}
	return breakdown
}
