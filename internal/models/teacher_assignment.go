package models

import "time"

// TeacherAssignment links a teacher account to a class for a period.
// An assignment with a nil EndDate is current.
type TeacherAssignment struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	ClassID   string     `db:"class_id" json:"class_id"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

type AssignTeacherRequest struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
}
