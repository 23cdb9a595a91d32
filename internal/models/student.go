package models

import "time"

// Student represents an enrolled student. Students are soft-deactivated,
// never hard-deleted.
type Student struct {
	ID                   string    `db:"id" json:"id"`
	SchoolID             string    `db:"school_id" json:"school_id"`
	FullName             string    `db:"full_name" json:"full_name"`
	ClassID              string    `db:"class_id" json:"class_id"`
	SectionID            string    `db:"section_id" json:"section_id"`
	RollNumber           *int      `db:"roll_number" json:"roll_number,omitempty"`
	GuardianName         *string   `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianPhone        *string   `db:"guardian_phone" json:"guardian_phone,omitempty"`
	TransportationAreaID *string   `db:"transportation_area_id" json:"transportation_area_id,omitempty"`
	Hostel               bool      `db:"hostel" json:"hostel"`
	Dayboarding          bool      `db:"dayboarding" json:"dayboarding"`
	AdmissionDate        time.Time `db:"admission_date" json:"admission_date"`
	Active               bool      `db:"active" json:"active"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail extends Student with class/section names for list views.
type StudentDetail struct {
	Student
	ClassName   string  `db:"class_name" json:"class_name"`
	SectionName string  `db:"section_name" json:"section_name"`
	AreaName    *string `db:"area_name" json:"area_name,omitempty"`
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	ClassID   string
	SectionID string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
}
