package models

import "time"

// IncomingPayment is a cashier-recorded payment against a fee period. It is
// created unverified and transitions once, monotonically, to verified.
type IncomingPayment struct {
	ID              string     `db:"id" json:"id"`
	SchoolID        string     `db:"school_id" json:"school_id"`
	StudentID       string     `db:"student_id" json:"student_id"`
	GeneratedFeeID  *string    `db:"generated_fee_id" json:"generated_fee_id,omitempty"`
	AmountPaid      float64    `db:"amount_paid" json:"amount_paid"`
	PaymentDate     time.Time  `db:"payment_date" json:"payment_date"`
	PaymentMode     string     `db:"payment_mode" json:"payment_mode"`
	ReferenceNumber *string    `db:"reference_number" json:"reference_number,omitempty"`
	ReceivedBy      string     `db:"received_by" json:"received_by"`
	Remarks         *string    `db:"remarks" json:"remarks,omitempty"`
	Verified        bool       `db:"verified" json:"verified"`
	VerifiedBy      *string    `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt      *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// CreatePaymentRequest records a cashier-received payment.
type CreatePaymentRequest struct {
	StudentID       string  `json:"student_id" validate:"required"`
	GeneratedFeeID  *string `json:"generated_fee_id,omitempty"`
	AmountPaid      float64 `json:"amount_paid" validate:"required,gt=0"`
	PaymentDate     string  `json:"payment_date" validate:"required,datetime=2006-01-02"`
	PaymentMode     string  `json:"payment_mode" validate:"required"`
	ReferenceNumber *string `json:"reference_number,omitempty"`
	Remarks         *string `json:"remarks,omitempty"`
}

// PaymentDetail joins student metadata onto a payment for list views.
type PaymentDetail struct {
	IncomingPayment
	StudentName string `db:"student_name" json:"student_name"`
	ClassName   string `db:"class_name" json:"class_name"`
}

// PaymentFilter scopes payment listings. Totals are always computed from the
// filtered set.
type PaymentFilter struct {
	StudentID   string
	PaymentMode string
	Verified    *bool
	FromDate    *time.Time
	ToDate      *time.Time
	Page        int
	PageSize    int
}

// PaymentSummary aggregates verified vs unverified income.
type PaymentSummary struct {
	VerifiedTotal   float64 `db:"verified_total" json:"verified_total"`
	VerifiedCount   int     `db:"verified_count" json:"verified_count"`
	UnverifiedTotal float64 `db:"unverified_total" json:"unverified_total"`
	UnverifiedCount int     `db:"unverified_count" json:"unverified_count"`
}
