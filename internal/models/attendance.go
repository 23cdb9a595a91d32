package models

import "time"

// AttendanceStatus represents a single attendance decision.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// AttendanceRecord is one decision per (student, date). The key never
// changes; re-marking only replaces status, remarks, and marked_by.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	SchoolID  string           `db:"school_id" json:"school_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Remarks   *string          `db:"remarks" json:"remarks,omitempty"`
	MarkedBy  string           `db:"marked_by" json:"marked_by"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter defines listing criteria.
type AttendanceFilter struct {
	ClassID   string
	SectionID string
	StudentID string
	Status    *AttendanceStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// BulkAttendanceEntry is one student decision inside a bulk batch.
type BulkAttendanceEntry struct {
	StudentID string           `json:"student_id" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required"`
	Remarks   *string          `json:"remarks,omitempty"`
}

// BulkAttendanceRequest marks a whole class in one call.
type BulkAttendanceRequest struct {
	Date    string                `json:"date" validate:"required,datetime=2006-01-02"`
	Entries []BulkAttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// BulkAttendanceResult reports per-entry outcomes. A batch with failures is
// still a successful request; callers inspect the manifest.
type BulkAttendanceResult struct {
	Success int                    `json:"success"`
	Failed  int                    `json:"failed"`
	Records []AttendanceRecord     `json:"records"`
	Errors  []AttendanceEntryError `json:"errors"`
}

// AttendanceEntryError captures a per-entry failure inside a bulk batch.
type AttendanceEntryError struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// StudentAttendanceRow is one roster line: the student, the day's record when
// one exists, and the consecutive-absence streak computed at query time.
type StudentAttendanceRow struct {
	Student                    Student           `json:"student"`
	Attendance                 *AttendanceRecord `json:"attendance,omitempty"`
	DaysAbsentSinceLastPresent *int              `json:"days_absent_since_last_present,omitempty"`
}

// AttendanceHistoryRow is a dated status used for streak derivation.
type AttendanceHistoryRow struct {
	StudentID string           `db:"student_id"`
	Date      time.Time        `db:"date"`
	Status    AttendanceStatus `db:"status"`
}
