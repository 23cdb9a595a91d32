package models

import (
	"time"

	"github.com/lib/pq"
)

// School is the tenant root. Every other entity carries its id.
type School struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   *string   `db:"address" json:"address,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolSettings holds per-school knobs consumed by the fee resolver and the
// payment workflow: flat fee amounts and the accepted payment modes.
type SchoolSettings struct {
	SchoolID       string         `db:"school_id" json:"school_id"`
	HostelFee      float64        `db:"hostel_fee" json:"hostel_fee"`
	AdmissionFee   float64        `db:"admission_fee" json:"admission_fee"`
	DayboardingFee float64        `db:"dayboarding_fee" json:"dayboarding_fee"`
	PaymentModes   pq.StringArray `db:"payment_modes" json:"payment_modes"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// HasPaymentMode reports whether the mode is configured for the school.
func (s *SchoolSettings) HasPaymentMode(mode string) bool {
	for _, m := range s.PaymentModes {
		if m == mode {
			return true
		}
	}
	return false
}

// TransportationArea is a named pickup zone priced through the transportation
// pricing catalog.
type TransportationArea struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
