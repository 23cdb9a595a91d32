package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/brightclass/brightclass-api/internal/models"
	"github.com/brightclass/brightclass-api/internal/repository"
	appErrors "github.com/brightclass/brightclass-api/pkg/errors"
	"github.com/brightclass/brightclass-api/pkg/export"
	"github.com/brightclass/brightclass-api/pkg/jobs"
	"github.com/brightclass/brightclass-api/pkg/storage"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type reportPaymentSource interface {
	ListAll(ctx context.Context, schoolID string, filter models.PaymentFilter) ([]models.PaymentDetail, error)
}

type reportAttendanceSource interface {
	ListAll(ctx context.Context, schoolID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

// ReportRequest queues one export job.
type ReportRequest struct {
	Type        models.ReportType `json:"type" validate:"required"`
	FromDate    *string           `json:"from_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ToDate      *string           `json:"to_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentMode *string           `json:"payment_mode,omitempty"`
	ClassID     *string           `json:"class_id,omitempty"`
	SectionID   *string           `json:"section_id,omitempty"`
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	ExpiresAt time.Time
}

// ReportServiceConfig governs the queue, cleanup, and signed URLs.
type ReportServiceConfig struct {
	Workers         int
	MaxRetries      int
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportService queues CSV exports as background jobs, stores the rendered
// files locally, and serves them through HMAC-signed download tokens.
type ReportService struct {
	repo       reportJobStore
	payments   reportPaymentSource
	attendance reportAttendanceSource
	store      *storage.LocalStorage
	signer     *storage.SignedURLSigner
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ReportServiceConfig

	queue *jobs.Queue
}

// NewReportService constructs the report service with its worker queue.
func NewReportService(repo reportJobStore, payments reportPaymentSource, attendance reportAttendanceSource, store *storage.LocalStorage, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	s := &ReportService{
		repo:       repo,
		payments:   payments,
		attendance: attendance,
		store:      store,
		signer:     signer,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
	s.queue = jobs.NewQueue("report-export", s.handleJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers and replays any queued jobs.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	s.recoverPendingJobs(ctx)
	s.startCleanup(ctx)
}

// Stop drains the export workers.
func (s *ReportService) Stop() {
	s.queue.Stop()
}

// CreateJob persists an export job and enqueues processing.
func (s *ReportService) CreateJob(ctx context.Context, schoolID, createdBy string, req ReportRequest) (*models.ReportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report request")
	}
	if req.Type != models.ReportTypePayments && req.Type != models.ReportTypeAttendance {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report type")
	}

	job := &models.ReportJob{
		SchoolID: schoolID,
		Type:     req.Type,
		Params: models.ReportJobParams{
			FromDate:    req.FromDate,
			ToDate:      req.ToDate,
			PaymentMode: req.PaymentMode,
			ClassID:     req.ClassID,
			SectionID:   req.SectionID,
		},
		Status:    models.ReportStatusQueued,
		CreatedBy: createdBy,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		failed := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &failed,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// Status exposes job metadata, enforcing ownership for teachers.
func (s *ReportService) Status(ctx context.Context, schoolID, id string, actor *models.JWTClaims) (*models.ReportJob, error) {
	job, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if actor.Role == models.RoleTeacher && job.CreatedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return job, nil
}

// ResolveDownload validates a signed token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	if job.FilePath == nil || *job.FilePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		ExpiresAt: expiresAt,
	}, nil
}

func (s *ReportService) recoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued report jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("failed to requeue pending job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

func (s *ReportService) startCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	expired, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Warn("cleanup list failed", zap.Error(err))
		return
	}
	for _, job := range expired {
		if job.FilePath == nil {
			continue
		}
		if err := s.store.Delete(*job.FilePath); err != nil {
			s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if _, err := s.store.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
	}
}

func (s *ReportService) handleJob(ctx context.Context, job jobs.Job) error {
	record, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}

	processing := models.ReportStatusProcessing
	if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{Status: &processing}); err != nil {
		return err
	}

	data, err := s.generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= s.cfg.MaxRetries {
			failed := models.ReportStatusFailed
			now := time.Now().UTC()
			if updateErr := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &failed,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				s.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		} else {
			queued := models.ReportStatusQueued
			if updateErr := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &queued,
				ErrorMessage: &msg,
			}); updateErr != nil {
				s.logger.Warn("failed to mark job queued", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		}
		return err
	}

	relPath := filepath.Join(record.SchoolID, fmt.Sprintf("%s-%s.csv", record.Type, record.ID))
	if _, err := s.store.Save(relPath, data); err != nil {
		return err
	}
	token, _, err := s.signer.Generate(record.ID, relPath)
	if err != nil {
		return err
	}

	finished := models.ReportStatusFinished
	now := time.Now().UTC()
	resultURL := "/api/v1/reports/download/" + token
	clear := ""
	if err := s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &finished,
		FilePath:     &relPath,
		ResultURL:    &resultURL,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		s.logger.Warn("failed to mark job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	return nil
}

func (s *ReportService) generate(ctx context.Context, job *models.ReportJob) ([]byte, error) {
	switch job.Type {
	case models.ReportTypePayments:
		return s.generatePayments(ctx, job)
	case models.ReportTypeAttendance:
		return s.generateAttendance(ctx, job)
	default:
		return nil, fmt.Errorf("unsupported report type %q", job.Type)
	}
}

func (s *ReportService) generatePayments(ctx context.Context, job *models.ReportJob) ([]byte, error) {
	// Exports cover the full filtered set, not a listing page.
	var filter models.PaymentFilter
	if job.Params.PaymentMode != nil {
		filter.PaymentMode = *job.Params.PaymentMode
	}
	filter.FromDate = parseParamDate(job.Params.FromDate)
	filter.ToDate = parseParamDate(job.Params.ToDate)

	payments, err := s.payments.ListAll(ctx, job.SchoolID, filter)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}

	table := export.NewTable("payment_id", "student", "class", "amount", "date", "mode", "reference", "verified")
	for _, p := range payments {
		reference := ""
		if p.ReferenceNumber != nil {
			reference = *p.ReferenceNumber
		}
		table.AddRow(p.ID, p.StudentName, p.ClassName, fmt.Sprintf("%.2f", p.AmountPaid), p.PaymentDate.Format("2006-01-02"), p.PaymentMode, reference, fmt.Sprintf("%t", p.Verified))
	}
	return table.CSV()
}

func (s *ReportService) generateAttendance(ctx context.Context, job *models.ReportJob) ([]byte, error) {
	var filter models.AttendanceFilter
	if job.Params.ClassID != nil {
		filter.ClassID = *job.Params.ClassID
	}
	if job.Params.SectionID != nil {
		filter.SectionID = *job.Params.SectionID
	}
	filter.DateFrom = parseParamDate(job.Params.FromDate)
	filter.DateTo = parseParamDate(job.Params.ToDate)

	records, err := s.attendance.ListAll(ctx, job.SchoolID, filter)
	if err != nil {
		return nil, fmt.Errorf("load attendance: %w", err)
	}

	table := export.NewTable("student_id", "date", "status", "remarks", "marked_by")
	for _, r := range records {
		remarks := ""
		if r.Remarks != nil {
			remarks = *r.Remarks
		}
		table.AddRow(r.StudentID, r.Date.Format("2006-01-02"), string(r.Status), remarks, r.MarkedBy)
	}
	return table.CSV()
}

func parseParamDate(raw *string) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return nil
	}
	return &t
}
