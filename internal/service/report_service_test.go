package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brightclass/brightclass-api/internal/models"
	"github.com/brightclass/brightclass-api/internal/repository"
	"github.com/brightclass/brightclass-api/pkg/jobs"
	"github.com/brightclass/brightclass-api/pkg/storage"
)

type stubReportStore struct {
	jobs map[string]*models.ReportJob
}

func newStubReportStore() *stubReportStore {
	return &stubReportStore{jobs: map[string]*models.ReportJob{}}
}

func (s *stubReportStore) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = fmt.Sprintf("job-%d", len(s.jobs)+1)
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *stubReportStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	if job, ok := s.jobs[id]; ok {
		cp := *job
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubReportStore) FindByID(ctx context.Context, schoolID, id string) (*models.ReportJob, error) {
	job, err := s.GetByID(ctx, id)
	if err != nil || job.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (s *stubReportStore) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.FilePath != nil {
		job.FilePath = params.FilePath
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (s *stubReportStore) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

func (s *stubReportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type stubPaymentSource struct {
	rows []models.PaymentDetail
}

func (s *stubPaymentSource) ListAll(ctx context.Context, schoolID string, filter models.PaymentFilter) ([]models.PaymentDetail, error) {
	return s.rows, nil
}

type stubAttendanceSource struct {
	rows []models.AttendanceRecord
}

func (s *stubAttendanceSource) ListAll(ctx context.Context, schoolID string, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	return s.rows, nil
}

func newReportServiceForTest(t *testing.T, store *stubReportStore, payments *stubPaymentSource, attendance *stubAttendanceSource) *ReportService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("export-secret", time.Hour)
	return NewReportService(store, payments, attendance, files, signer, validator.New(), zap.NewNop(), ReportServiceConfig{Workers: 1})
}

func TestPaymentExportCoversFullFilteredSet(t *testing.T) {
	date := time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC)
	payments := &stubPaymentSource{}
	for i := 0; i < 250; i++ {
		payments.rows = append(payments.rows, models.PaymentDetail{
			IncomingPayment: models.IncomingPayment{
				ID:          fmt.Sprintf("pay-%d", i),
				AmountPaid:  100,
				PaymentDate: date,
				PaymentMode: "CASH",
			},
			StudentName: "Asha Verma",
			ClassName:   "Grade 5",
		})
	}
	svc := newReportServiceForTest(t, newStubReportStore(), payments, &stubAttendanceSource{})

	data, err := svc.generate(context.Background(), &models.ReportJob{
		ID: "job-1", SchoolID: "school-1", Type: models.ReportTypePayments,
	})
	require.NoError(t, err)

	// Every row of the filtered set lands in the file, not a listing page.
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 251)
	assert.Equal(t, "payment_id", records[0][0])
	assert.Equal(t, "pay-0", records[1][0])
	assert.Equal(t, "pay-249", records[250][0])
}

func TestAttendanceExportCoversFullFilteredSet(t *testing.T) {
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	attendance := &stubAttendanceSource{}
	for i := 0; i < 250; i++ {
		attendance.rows = append(attendance.rows, models.AttendanceRecord{
			StudentID: fmt.Sprintf("s-%d", i),
			Date:      date,
			Status:    models.AttendanceStatusPresent,
			MarkedBy:  "user-1",
		})
	}
	svc := newReportServiceForTest(t, newStubReportStore(), &stubPaymentSource{}, attendance)

	data, err := svc.generate(context.Background(), &models.ReportJob{
		ID: "job-1", SchoolID: "school-1", Type: models.ReportTypeAttendance,
	})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 251)
}

func TestReportJobLifecycle(t *testing.T) {
	store := newStubReportStore()
	payments := &stubPaymentSource{rows: []models.PaymentDetail{{
		IncomingPayment: models.IncomingPayment{
			ID:          "pay-1",
			AmountPaid:  2500,
			PaymentDate: time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC),
			PaymentMode: "UPI",
		},
		StudentName: "Asha Verma",
		ClassName:   "Grade 5",
	}}}
	svc := newReportServiceForTest(t, store, payments, &stubAttendanceSource{})

	require.NoError(t, store.Create(context.Background(), &models.ReportJob{
		ID:       "job-1",
		SchoolID: "school-1",
		Type:     models.ReportTypePayments,
		Status:   models.ReportStatusQueued,
	}))

	require.NoError(t, svc.handleJob(context.Background(), jobs.Job{ID: "job-1"}))

	job := store.jobs["job-1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	require.NotNil(t, job.ResultURL)
	require.NotNil(t, job.FinishedAt)

	token := strings.TrimPrefix(*job.ResultURL, "/api/v1/reports/download/")
	download, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()

	contents, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "pay-1")
	assert.Contains(t, string(contents), "Asha Verma")
}

func TestCreateJobRejectsUnsupportedType(t *testing.T) {
	svc := newReportServiceForTest(t, newStubReportStore(), &stubPaymentSource{}, &stubAttendanceSource{})

	_, err := svc.CreateJob(context.Background(), "school-1", "user-1", ReportRequest{Type: "grades"})
	require.Error(t, err)
}
