package models

import "time"

// Family groups the guardians and children of one household. The
// principal email is globally unique and is what enrollment
// provisioning resolves the family by.
type Family struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	EmailPrincipal string    `db:"email_principal" json:"email_principal"`
	Language       string    `db:"language" json:"language"`
	Address        *string   `db:"address" json:"address,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// GuardianRelation is the relation of a guardian to a child.
type GuardianRelation string

const (
	RelationMere   GuardianRelation = "Mere"
	RelationPere   GuardianRelation = "Pere"
	RelationProche GuardianRelation = "Proche"
	RelationTuteur GuardianRelation = "Tuteur"
	RelationAutre  GuardianRelation = "Autre"
)

// Valid reports whether the relation is one of the known values.
func (r GuardianRelation) Valid() bool {
	switch r {
	case RelationMere, RelationPere, RelationProche, RelationTuteur, RelationAutre:
		return true
	}
	return false
}

// Guardian is an adult contact attached to a family. Guardians are
// matched by email during enrollment provisioning.
type Guardian struct {
	ID        string           `db:"id" json:"id"`
	FamilyID  string           `db:"family_id" json:"family_id"`
	Relation  GuardianRelation `db:"relation" json:"relation"`
	FirstName string           `db:"first_name" json:"first_name"`
	LastName  string           `db:"last_name" json:"last_name"`
	Email     *string          `db:"email" json:"email,omitempty"`
	Phone     *string          `db:"phone" json:"phone,omitempty"`
	Address   *string          `db:"address" json:"address,omitempty"`
	Principal bool             `db:"principal" json:"principal"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// FamilyDetail aggregates a family with its members.
type FamilyDetail struct {
	Family    Family     `json:"family"`
	Guardians []Guardian `json:"guardians"`
	Children  []Child    `json:"children"`
}

// FamilyFilter captures filtering criteria for listing families.
type FamilyFilter struct {
	Search   string
	Page     int
	PageSize int
}
