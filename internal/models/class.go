package models

import "time"

// Class is a group of children supervised by one or more teachers.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	AgeMin    *int      `db:"age_min" json:"age_min,omitempty"`
	AgeMax    *int      `db:"age_max" json:"age_max,omitempty"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassStats reports class occupancy for admin listings.
type ClassStats struct {
	ClassID      string `db:"class_id" json:"class_id"`
	ChildCount   int    `db:"child_count" json:"child_count"`
	TeacherCount int    `db:"teacher_count" json:"teacher_count"`
}

type CreateClassRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	AgeMin   *int   `json:"age_min" validate:"omitempty,min=0,max=10"`
	AgeMax   *int   `json:"age_max" validate:"omitempty,min=0,max=10"`
	Capacity int    `json:"capacity" validate:"required,min=1,max=60"`
}

type UpdateClassRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	AgeMin   *int    `json:"age_min" validate:"omitempty,min=0,max=10"`
	AgeMax   *int    `json:"age_max" validate:"omitempty,min=0,max=10"`
	Capacity *int    `json:"capacity" validate:"omitempty,min=1,max=60"`
	Active   *bool   `json:"active"`
}
