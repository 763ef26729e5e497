package models

import "time"

// Event is a scheduled activity, either center-wide or scoped to one
// class when ClassID is set.
type Event struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	ClassID     *string    `db:"class_id" json:"class_id,omitempty"`
	StartsAt    time.Time  `db:"starts_at" json:"starts_at"`
	EndsAt      *time.Time `db:"ends_at" json:"ends_at,omitempty"`
	Location    *string    `db:"location" json:"location,omitempty"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

type CreateEventRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	ClassID     *string `json:"class_id" validate:"omitempty,uuid"`
	StartsAt    string  `json:"starts_at" validate:"required"`
	EndsAt      *string `json:"ends_at" validate:"omitempty"`
	Location    *string `json:"location" validate:"omitempty,max=200"`
}

type UpdateEventRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	StartsAt    *string `json:"starts_at" validate:"omitempty"`
	EndsAt      *string `json:"ends_at" validate:"omitempty"`
	Location    *string `json:"location" validate:"omitempty,max=200"`
}
