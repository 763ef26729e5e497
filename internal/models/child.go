package models

import "time"

// Child is an enrolled or candidate child attached to a family.
type Child struct {
	ID        string     `db:"id" json:"id"`
	FamilyID  string     `db:"family_id" json:"family_id"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender    *string    `db:"gender" json:"gender,omitempty"`
	Allergies *string    `db:"allergies" json:"allergies,omitempty"`
	Notes     *string    `db:"notes" json:"notes,omitempty"`
	ClassID   *string    `db:"class_id" json:"class_id,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// ChildSummary is the trimmed child view used in dashboards and lists.
type ChildSummary struct {
	ID        string     `db:"id" json:"id"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	ClassID   *string    `db:"class_id" json:"class_id,omitempty"`
	ClassName *string    `db:"class_name" json:"class_name,omitempty"`
}
