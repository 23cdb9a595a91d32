package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightclass/brightclass-api/internal/models"
)

func TestPaymentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO incoming_payments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	payment := &models.IncomingPayment{
		SchoolID:    "school-1",
		StudentID:   "s1",
		AmountPaid:  2500,
		PaymentDate: time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC),
		PaymentMode: "CASH",
		ReceivedBy:  "cashier-1",
	}
	err := repo.Create(context.Background(), payment)
	require.NoError(t, err)
	assert.NotEmpty(t, payment.ID)
	assert.False(t, payment.Verified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryVerify(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	at := time.Date(2026, 7, 6, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "school_id", "student_id", "generated_fee_id", "amount_paid", "payment_date", "payment_mode", "reference_number", "received_by", "remarks", "verified", "verified_by", "verified_at", "created_at", "updated_at"}).
		AddRow("pay-1", "school-1", "s1", nil, 2500.0, time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC), "CASH", nil, "cashier-1", nil, true, "admin-1", at, at, at)

	mock.ExpectQuery("UPDATE incoming_payments").
		WithArgs("pay-1", "school-1", "admin-1", at).
		WillReturnRows(rows)

	payment, err := repo.Verify(context.Background(), "school-1", "pay-1", "admin-1", at)
	require.NoError(t, err)
	assert.True(t, payment.Verified)
	require.NotNil(t, payment.VerifiedBy)
	assert.Equal(t, "admin-1", *payment.VerifiedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryVerifyAlreadyVerified(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery("UPDATE incoming_payments").
		WithArgs("pay-1", "school-1", "admin-1", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	payment, err := repo.Verify(context.Background(), "school-1", "pay-1", "admin-1", time.Now())
	assert.Nil(t, payment)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListFiltersAndTotals(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	verified := true
	date := time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC)
	listRows := sqlmock.NewRows([]string{"id", "school_id", "student_id", "generated_fee_id", "amount_paid", "payment_date", "payment_mode", "reference_number", "received_by", "remarks", "verified", "verified_by", "verified_at", "created_at", "updated_at", "student_name", "class_name"}).
		AddRow("pay-1", "school-1", "s1", nil, 2500.0, date, "UPI", nil, "cashier-1", nil, true, "admin-1", date, date, date, "Asha Verma", "Grade 5")

	mock.ExpectQuery("SELECT p.id, .+ FROM incoming_payments p").
		WithArgs("school-1", "UPI", verified).
		WillReturnRows(listRows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("school-1", "UPI", verified).
		WillReturnRows(sqlmock.NewRows([]string{"total_count", "total_amount"}).AddRow(1, 2500.0))

	payments, total, amount, err := repo.List(context.Background(), "school-1", models.PaymentFilter{PaymentMode: "UPI", Verified: &verified})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "Asha Verma", payments[0].StudentName)
	assert.Equal(t, 1, total)
	assert.Equal(t, 2500.0, amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListAllIsUnpaginated(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	date := time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "school_id", "student_id", "generated_fee_id", "amount_paid", "payment_date", "payment_mode", "reference_number", "received_by", "remarks", "verified", "verified_by", "verified_at", "created_at", "updated_at", "student_name", "class_name"})
	for i := 0; i < 3; i++ {
		rows.AddRow("pay-1", "school-1", "s1", nil, 2500.0, date, "CASH", nil, "cashier-1", nil, false, nil, nil, date, date, "Asha Verma", "Grade 5")
	}

	// The query must end at the sort: no LIMIT, no OFFSET.
	mock.ExpectQuery(`(?s)SELECT p\.id, .+ FROM incoming_payments p.+ORDER BY p\.payment_date DESC, p\.created_at DESC$`).
		WithArgs("school-1").
		WillReturnRows(rows)

	payments, err := repo.ListAll(context.Background(), "school-1", models.PaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, payments, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}
