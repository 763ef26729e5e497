package models

import "time"

// DailySummary is the per-child daily report a teacher writes for the
// parents. One summary exists per child and day.
type DailySummary struct {
	ID        string    `db:"id" json:"id"`
	ChildID   string    `db:"child_id" json:"child_id"`
	Date      time.Time `db:"date" json:"date"`
	Mood      *string   `db:"mood" json:"mood,omitempty"`
	Meals     *string   `db:"meals" json:"meals,omitempty"`
	Nap       *string   `db:"nap" json:"nap,omitempty"`
	Hygiene   *string   `db:"hygiene" json:"hygiene,omitempty"`
	Activity  *string   `db:"activity" json:"activity,omitempty"`
	Comment   *string   `db:"comment" json:"comment,omitempty"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type UpsertDailySummaryRequest struct {
	ChildID  string  `json:"child_id" validate:"required,uuid"`
	Date     string  `json:"date" validate:"required,datetime=2006-01-02"`
	Mood     *string `json:"mood" validate:"omitempty,max=100"`
	Meals    *string `json:"meals" validate:"omitempty,max=500"`
	Nap      *string `json:"nap" validate:"omitempty,max=500"`
	Hygiene  *string `json:"hygiene" validate:"omitempty,max=500"`
	Activity *string `json:"activity" validate:"omitempty,max=1000"`
	Comment  *string `json:"comment" validate:"omitempty,max=2000"`
}
