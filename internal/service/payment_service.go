package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/brightclass/brightclass-api/internal/models"
	appErrors "github.com/brightclass/brightclass-api/pkg/errors"
	"github.com/brightclass/brightclass-api/pkg/export"
)

type paymentRepository interface {
	Create(ctx context.Context, payment *models.IncomingPayment) error
	FindByID(ctx context.Context, schoolID, id string) (*models.IncomingPayment, error)
	Verify(ctx context.Context, schoolID, id, verifierID string, at time.Time) (*models.IncomingPayment, error)
	List(ctx context.Context, schoolID string, filter models.PaymentFilter) ([]models.PaymentDetail, int, float64, error)
	Summary(ctx context.Context, schoolID string, from, to *time.Time) (*models.PaymentSummary, error)
}

type paymentStudentRepository interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Student, error)
}

type paymentSchoolRepository interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
	GetSettings(ctx context.Context, schoolID string) (*models.SchoolSettings, error)
}

type paymentClassRepository interface {
	FindClassByID(ctx context.Context, schoolID, id string) (*models.Class, error)
}

type paymentGeneratedFeeRepository interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.GeneratedFee, error)
}

type paymentAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// PaymentListResult bundles a payment page with its filtered totals.
type PaymentListResult struct {
	Payments    []models.PaymentDetail `json:"payments"`
	TotalAmount float64                `json:"total_amount"`
	Pagination  *models.Pagination     `json:"-"`
}

// PaymentService owns the payment workflow: recording, the monotonic verify
// transition, listings, summaries, and receipts.
type PaymentService struct {
	repo       paymentRepository
	students   paymentStudentRepository
	schools    paymentSchoolRepository
	classes    paymentClassRepository
	fees       paymentGeneratedFeeRepository
	audit      paymentAuditRepository
	cache      *CacheService
	summaryTTL time.Duration
	pdf        *export.PDFExporter
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(repo paymentRepository, students paymentStudentRepository, schools paymentSchoolRepository, classes paymentClassRepository, fees paymentGeneratedFeeRepository, audit paymentAuditRepository, cache *CacheService, summaryTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PaymentService{
		repo:       repo,
		students:   students,
		schools:    schools,
		classes:    classes,
		fees:       fees,
		audit:      audit,
		cache:      cache,
		summaryTTL: summaryTTL,
		pdf:        export.NewPDFExporter(),
		validator:  validate,
		logger:     logger,
	}
}

// Record creates an unverified payment. The mode must be one of the school's
// configured payment modes.
func (s *PaymentService) Record(ctx context.Context, schoolID, receivedBy string, req models.CreatePaymentRequest) (*models.IncomingPayment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	paymentDate, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment_date must be formatted YYYY-MM-DD")
	}

	settings, err := s.schools.GetSettings(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school settings")
	}
	if !settings.HasPaymentMode(req.PaymentMode) {
		return nil, appErrors.Clone(appErrors.ErrInvalidPaymentMode, fmt.Sprintf("payment mode %q is not configured for this school", req.PaymentMode))
	}

	student, err := s.students.FindByID(ctx, schoolID, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if req.GeneratedFeeID != nil {
		if _, err := s.fees.FindByID(ctx, schoolID, *req.GeneratedFeeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "generated fee not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load generated fee")
		}
	}

	payment := &models.IncomingPayment{
		SchoolID:        schoolID,
		StudentID:       student.ID,
		GeneratedFeeID:  req.GeneratedFeeID,
		AmountPaid:      req.AmountPaid,
		PaymentDate:     paymentDate,
		PaymentMode:     req.PaymentMode,
		ReferenceNumber: req.ReferenceNumber,
		ReceivedBy:      receivedBy,
		Remarks:         req.Remarks,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.invalidateSummary(ctx, schoolID)
	return payment, nil
}

// Verify transitions a payment from unverified to verified exactly once.
// Verifying an already verified payment returns the row unchanged.
func (s *PaymentService) Verify(ctx context.Context, schoolID, paymentID string, verifier *models.JWTClaims) (*models.IncomingPayment, error) {
	if verifier.Role != models.RoleAdmin && verifier.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may verify payments")
	}

	payment, err := s.repo.Verify(ctx, schoolID, paymentID, verifier.UserID, time.Now().UTC())
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify payment")
		}
		// Either the payment does not exist or someone verified it first.
		// Re-read to distinguish the idempotent case from a 404.
		existing, findErr := s.repo.FindByID(ctx, schoolID, paymentID)
		if findErr != nil {
			if errors.Is(findErr, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
			}
			return nil, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
		}
		return existing, nil
	}

	values, _ := json.Marshal(map[string]interface{}{"amount_paid": payment.AmountPaid, "verified_at": payment.VerifiedAt})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &verifier.UserID,
		Action:     models.AuditActionPaymentVerify,
		Resource:   "payment",
		ResourceID: &payment.ID,
		NewValues:  values,
	}); err != nil {
		s.logger.Warn("failed to record payment verification audit log", zap.Error(err))
	}

	s.invalidateSummary(ctx, schoolID)
	return payment, nil
}

// Find returns one payment.
func (s *PaymentService) Find(ctx context.Context, schoolID, id string) (*models.IncomingPayment, error) {
	payment, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return payment, nil
}

// List returns a payment page with totals computed from the filtered set.
func (s *PaymentService) List(ctx context.Context, schoolID string, filter models.PaymentFilter) (*PaymentListResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	payments, total, totalAmount, err := s.repo.List(ctx, schoolID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return &PaymentListResult{
		Payments:    payments,
		TotalAmount: totalAmount,
		Pagination:  models.NewPagination(filter.Page, filter.PageSize, total),
	}, nil
}

// Summary aggregates verified and unverified income for a date range.
func (s *PaymentService) Summary(ctx context.Context, schoolID string, from, to *time.Time) (*models.PaymentSummary, error) {
	cacheKey := summaryCacheKey(schoolID, from, to)
	if s.cache.Enabled() {
		var cached models.PaymentSummary
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	summary, err := s.repo.Summary(ctx, schoolID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute payment summary")
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, summary, s.summaryTTL); err != nil {
			s.logger.Warn("summary cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// Receipt renders the payment receipt PDF.
func (s *PaymentService) Receipt(ctx context.Context, schoolID, paymentID string) ([]byte, error) {
	payment, err := s.Find(ctx, schoolID, paymentID)
	if err != nil {
		return nil, err
	}

	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	student, err := s.students.FindByID(ctx, schoolID, payment.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	className := ""
	if class, err := s.classes.FindClassByID(ctx, schoolID, student.ClassID); err == nil {
		className = class.Name
	}

	periodLabel := ""
	if payment.GeneratedFeeID != nil {
		if fee, err := s.fees.FindByID(ctx, schoolID, *payment.GeneratedFeeID); err == nil {
			periodLabel = fmt.Sprintf("%s %d (%s)", time.Month(fee.Month), fee.CalendarYear, fee.AcademicYear)
		}
	}

	receipt := export.Receipt{
		SchoolName:    school.Name,
		ReceiptNumber: payment.ID,
		StudentName:   student.FullName,
		ClassName:     className,
		PeriodLabel:   periodLabel,
		PaymentDate:   payment.PaymentDate.Format("2006-01-02"),
		PaymentMode:   payment.PaymentMode,
		AmountPaid:    payment.AmountPaid,
		ReceivedBy:    payment.ReceivedBy,
		Verified:      payment.Verified,
	}
	if payment.ReferenceNumber != nil {
		receipt.ReferenceNumber = *payment.ReferenceNumber
	}

	data, err := s.pdf.RenderReceipt(receipt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return data, nil
}

func (s *PaymentService) invalidateSummary(ctx context.Context, schoolID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("payments:summary:%s:*", schoolID)); err != nil {
		s.logger.Warn("summary cache invalidation failed", zap.Error(err))
	}
}

func summaryCacheKey(schoolID string, from, to *time.Time) string {
	fromLabel, toLabel := "any", "any"
	if from != nil {
		fromLabel = from.Format("2006-01-02")
	}
	if to != nil {
		toLabel = to.Format("2006-01-02")
	}
	return fmt.Sprintf("payments:summary:%s:%s:%s", schoolID, fromLabel, toLabel)
}
