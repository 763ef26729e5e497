package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EnrollmentStatus is the lifecycle state of an enrollment application.
type EnrollmentStatus string

const (
	StatusCandidature EnrollmentStatus = "CANDIDATURE"
	StatusEnCours     EnrollmentStatus = "EN_COURS"
	StatusActif       EnrollmentStatus = "ACTIF"
	StatusRejetee     EnrollmentStatus = "REJETEE"
)

// Valid reports whether the status is a known lifecycle state.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case StatusCandidature, StatusEnCours, StatusActif, StatusRejetee:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s EnrollmentStatus) Terminal() bool {
	return s == StatusActif || s == StatusRejetee
}

var validTransitions = map[EnrollmentStatus][]EnrollmentStatus{
	StatusCandidature: {StatusEnCours, StatusActif, StatusRejetee},
	StatusEnCours:     {StatusActif, StatusRejetee},
	StatusActif:       {},
	StatusRejetee:     {},
}

// CanTransition reports whether the state machine permits moving from
// one status to another.
func CanTransition(from, to EnrollmentStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// JSONPayload stores the raw application document as jsonb.
type JSONPayload map[string]interface{}

func (p JSONPayload) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func (p *JSONPayload) Scan(src interface{}) error {
	if src == nil {
		*p = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported payload type %T", src)
	}
	return json.Unmarshal(raw, p)
}

// Enrollment is an application submitted by a family, carrying the raw
// submission payload until provisioning materializes family records.
type Enrollment struct {
	ID          string           `db:"id" json:"id"`
	Status      EnrollmentStatus `db:"status" json:"status"`
	Payload     JSONPayload      `db:"payload" json:"payload"`
	Notes       *string          `db:"notes" json:"notes,omitempty"`
	FamilyID    *string          `db:"family_id" json:"family_id,omitempty"`
	ChildID     *string          `db:"child_id" json:"child_id,omitempty"`
	SubmittedAt time.Time        `db:"submitted_at" json:"submitted_at"`
	DecidedAt   *time.Time       `db:"decided_at" json:"decided_at,omitempty"`
	DecidedBy   *string          `db:"decided_by" json:"decided_by,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentFilter captures listing criteria for admin views.
type EnrollmentFilter struct {
	Status   *EnrollmentStatus
	Query    string
	DateMin  *time.Time
	DateMax  *time.Time
	Page     int
	PageSize int
}

type UpdateEnrollmentStatusRequest struct {
	Status EnrollmentStatus `json:"status" validate:"required"`
	Notes  *string          `json:"notes"`
}

type RejectEnrollmentRequest struct {
	Reason *string `json:"reason"`
}

// GuardianInvite reports the per-guardian outcome of post-acceptance
// account provisioning.
type GuardianInvite struct {
	GuardianID       string  `json:"guardianId"`
	Email            string  `json:"email"`
	AccountCreated   bool    `json:"accountCreated"`
	NotificationSent bool    `json:"notificationSent"`
	Error            *string `json:"error,omitempty"`
}

// ProvisionResult is returned after an application is accepted.
type ProvisionResult struct {
	EnrollmentID     string           `json:"enrollmentId"`
	Status           EnrollmentStatus `json:"status"`
	FamilyID         string           `json:"familyId"`
	ChildID          string           `json:"childId"`
	Guardians        []Guardian       `json:"guardians"`
	InvitedGuardians []GuardianInvite `json:"invitedGuardians"`
}
