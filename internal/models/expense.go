package models

import "time"

// ExpenseCategory is a simple per-school expense catalog entry.
type ExpenseCategory struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Expense is a transactional expense row. Rows flagged as vendor or payslip
// payments were produced by other subsystems and are read-only here.
type Expense struct {
	ID               string    `db:"id" json:"id"`
	SchoolID         string    `db:"school_id" json:"school_id"`
	CategoryID       string    `db:"category_id" json:"category_id"`
	Amount           float64   `db:"amount" json:"amount"`
	ExpenseDate      time.Time `db:"expense_date" json:"expense_date"`
	Description      *string   `db:"description" json:"description,omitempty"`
	IsVendorPayment  bool      `db:"is_vendor_payment" json:"is_vendor_payment"`
	IsPayslipPayment bool      `db:"is_payslip_payment" json:"is_payslip_payment"`
	CreatedBy        string    `db:"created_by" json:"created_by"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// ReadOnly reports whether the expense was auto-generated elsewhere.
func (e *Expense) ReadOnly() bool {
	return e.IsVendorPayment || e.IsPayslipPayment
}

// ExpenseFilter scopes expense listings.
type ExpenseFilter struct {
	CategoryID string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}
