package models

import "time"

// AttendanceStatus is the daily presence state of a child.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceExcused AttendanceStatus = "EXCUSED"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

// Attendance is one child's presence record for one day. A single
// record exists per child and day.
type Attendance struct {
	ID         string           `db:"id" json:"id"`
	ChildID    string           `db:"child_id" json:"child_id"`
	ClassID    string           `db:"class_id" json:"class_id"`
	Date       time.Time        `db:"date" json:"date"`
	Status     AttendanceStatus `db:"status" json:"status"`
	ArrivedAt  *time.Time       `db:"arrived_at" json:"arrived_at,omitempty"`
	LeftAt     *time.Time       `db:"left_at" json:"left_at,omitempty"`
	Note       *string          `db:"note" json:"note,omitempty"`
	RecordedBy string           `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

type RecordAttendanceRequest struct {
	ChildID   string           `json:"child_id" validate:"required,uuid"`
	Status    AttendanceStatus `json:"status" validate:"required"`
	ArrivedAt *string          `json:"arrived_at" validate:"omitempty"`
	LeftAt    *string          `json:"left_at" validate:"omitempty"`
	Note      *string          `json:"note" validate:"omitempty,max=500"`
}

type UpsertAttendanceRequest struct {
	ChildID   string           `json:"child_id" validate:"required,uuid"`
	Date      string           `json:"date" validate:"required,datetime=2006-01-02"`
	Status    AttendanceStatus `json:"status" validate:"required"`
	ArrivedAt *string          `json:"arrived_at" validate:"omitempty"`
	LeftAt    *string          `json:"left_at" validate:"omitempty"`
	Note      *string          `json:"note" validate:"omitempty,max=500"`
}

type BulkAttendanceRequest struct {
	ClassID string                    `json:"class_id" validate:"required,uuid"`
	Date    string                    `json:"date" validate:"required,datetime=2006-01-02"`
	Records []RecordAttendanceRequest `json:"records" validate:"required,min=1,dive"`
}

// AttendanceFilter narrows the general attendance listing. Nil id
// slices mean unrestricted; empty non-nil slices match nothing and are
// short-circuited before the query.
type AttendanceFilter struct {
	From     time.Time
	To       time.Time
	Status   *AttendanceStatus
	ClassIDs []string
	ChildIDs []string
	Page     int
	PageSize int
}

// AttendanceSummary aggregates one class day for reporting.
type AttendanceSummary struct {
	ClassID string    `db:"class_id" json:"class_id"`
	Date    time.Time `db:"date" json:"date"`
	Present int       `db:"present" json:"present"`
	Absent  int       `db:"absent" json:"absent"`
	Late    int       `db:"late" json:"late"`
	Excused int       `db:"excused" json:"excused"`
}
