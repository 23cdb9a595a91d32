package models

import "time"

// PricingType controls how a fee category resolves its amount.
type PricingType string

const (
	PricingTypeFixed      PricingType = "FIXED"
	PricingTypeClassBased PricingType = "CLASS_BASED"
	PricingTypeAreaBased  PricingType = "AREA_BASED"
)

// Valid reports whether the pricing type is supported.
func (p PricingType) Valid() bool {
	switch p {
	case PricingTypeFixed, PricingTypeClassBased, PricingTypeAreaBased:
		return true
	default:
		return false
	}
}

// FeeFrequency describes how often a fee category recurs.
type FeeFrequency string

const (
	FeeFrequencyOneTime   FeeFrequency = "ONE_TIME"
	FeeFrequencyMonthly   FeeFrequency = "MONTHLY"
	FeeFrequencyQuarterly FeeFrequency = "QUARTERLY"
	FeeFrequencyAnnual    FeeFrequency = "ANNUAL"
)

// Valid reports whether the frequency is supported.
func (f FeeFrequency) Valid() bool {
	switch f {
	case FeeFrequencyOneTime, FeeFrequencyMonthly, FeeFrequencyQuarterly, FeeFrequencyAnnual:
		return true
	default:
		return false
	}
}

// FeeCategory is a priceable component in the catalog. FixedAmount only
// applies when PricingType is FIXED; it is zeroed otherwise.
type FeeCategory struct {
	ID           string       `db:"id" json:"id"`
	SchoolID     string       `db:"school_id" json:"school_id"`
	Name         string       `db:"name" json:"name"`
	PricingType  PricingType  `db:"pricing_type" json:"pricing_type"`
	FixedAmount  float64      `db:"fixed_amount" json:"fixed_amount"`
	Frequency    FeeFrequency `db:"frequency" json:"frequency"`
	IsMandatory  bool         `db:"is_mandatory" json:"is_mandatory"`
	IsRefundable bool         `db:"is_refundable" json:"is_refundable"`
	DisplayOrder int          `db:"display_order" json:"display_order"`
	Active       bool         `db:"active" json:"active"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// ClassFeePricing prices a class-based fee category for an academic year
// within an effective window.
type ClassFeePricing struct {
	ID            string    `db:"id" json:"id"`
	SchoolID      string    `db:"school_id" json:"school_id"`
	ClassID       string    `db:"class_id" json:"class_id"`
	FeeCategoryID string    `db:"fee_category_id" json:"fee_category_id"`
	Amount        float64   `db:"amount" json:"amount"`
	AcademicYear  string    `db:"academic_year" json:"academic_year"`
	EffectiveFrom time.Time `db:"effective_from" json:"effective_from"`
	EffectiveTo   time.Time `db:"effective_to" json:"effective_to"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// TransportationAreaPricing prices transportation for an area and year.
type TransportationAreaPricing struct {
	ID            string    `db:"id" json:"id"`
	SchoolID      string    `db:"school_id" json:"school_id"`
	AreaID        string    `db:"area_id" json:"area_id"`
	FeeCategoryID string    `db:"fee_category_id" json:"fee_category_id"`
	Price         float64   `db:"price" json:"price"`
	AcademicYear  string    `db:"academic_year" json:"academic_year"`
	EffectiveFrom time.Time `db:"effective_from" json:"effective_from"`
	EffectiveTo   time.Time `db:"effective_to" json:"effective_to"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// FeeComponent is one itemized line of a resolved fee breakdown.
type FeeComponent struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// FeeBreakdown is the resolver output: itemized components plus the net
// amount after discount. Net never goes below zero.
type FeeBreakdown struct {
	AcademicYear   string         `json:"academic_year"`
	Components     []FeeComponent `json:"components"`
	Subtotal       float64        `json:"subtotal"`
	Discount       float64        `json:"discount"`
	DiscountReason *string        `json:"discount_reason,omitempty"`
	NetAmount      float64        `json:"net_amount"`
}

// GeneratedFee is a persisted monthly fee period for a student. At most one
// exists per (school, student, month, calendar year).
type GeneratedFee struct {
	ID             string    `db:"id" json:"id"`
	SchoolID       string    `db:"school_id" json:"school_id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	Month          int       `db:"month" json:"month"`
	CalendarYear   int       `db:"calendar_year" json:"calendar_year"`
	AcademicYear   string    `db:"academic_year" json:"academic_year"`
	Tuition        float64   `db:"tuition" json:"tuition"`
	Transportation float64   `db:"transportation" json:"transportation"`
	Hostel         float64   `db:"hostel" json:"hostel"`
	Dayboarding    float64   `db:"dayboarding" json:"dayboarding"`
	Admission      float64   `db:"admission" json:"admission"`
	Discount       float64   `db:"discount" json:"discount"`
	DiscountReason *string   `db:"discount_reason" json:"discount_reason,omitempty"`
	NetAmount      float64   `db:"net_amount" json:"net_amount"`
	GeneratedBy    string    `db:"generated_by" json:"generated_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// GenerateFeeRequest asks for one student's fee period to be resolved and
// persisted.
type GenerateFeeRequest struct {
	StudentID      string  `json:"student_id" validate:"required"`
	Month          int     `json:"month" validate:"required,min=1,max=12"`
	CalendarYear   int     `json:"calendar_year" validate:"required,min=2000,max=2100"`
	NewAdmission   bool    `json:"new_admission"`
	Discount       float64 `json:"discount" validate:"gte=0"`
	DiscountReason *string `json:"discount_reason,omitempty"`
}

// GenerateClassFeesRequest queues fee generation for every active student of a
// class, optionally narrowed to one section.
type GenerateClassFeesRequest struct {
	ClassID      string `json:"class_id" validate:"required"`
	SectionID    string `json:"section_id,omitempty"`
	Month        int    `json:"month" validate:"required,min=1,max=12"`
	CalendarYear int    `json:"calendar_year" validate:"required,min=2000,max=2100"`
}

// GeneratedFeeFilter scopes fee period listings.
type GeneratedFeeFilter struct {
	StudentID    string
	Month        int
	CalendarYear int
	Page         int
	PageSize     int
}
