package models

import "time"

// ChildDashboardEntry is one child's slice of the parent dashboard.
type ChildDashboardEntry struct {
	Child      ChildSummary  `json:"child"`
	Attendance *Attendance   `json:"attendance,omitempty"`
	Summary    *DailySummary `json:"summary,omitempty"`
	Journal    *ClassJournal `json:"journal,omitempty"`
}

// ParentDashboard aggregates today's view for a parent account.
type ParentDashboard struct {
	Date     time.Time             `json:"date"`
	Children []ChildDashboardEntry `json:"children"`
	Menu     *Menu                 `json:"menu,omitempty"`
	Events   []Event               `json:"events"`
}

// ParentProfile is the account and family view of a parent user.
type ParentProfile struct {
	UserID     string         `json:"user_id"`
	Email      string         `json:"email"`
	FirstName  string         `json:"first_name"`
	LastName   string         `json:"last_name"`
	Phone      *string        `json:"phone,omitempty"`
	Address    *string        `json:"address,omitempty"`
	GuardianID string         `json:"guardian_id"`
	FamilyID   string         `json:"family_id"`
	Children   []ChildSummary `json:"children"`
}

type UpdateParentProfileRequest struct {
	Phone   *string `json:"phone" validate:"omitempty,max=30"`
	Address *string `json:"address" validate:"omitempty,max=300"`
}

// AccessScope is the data visibility granted to a request. A nil
// ClassIDs or ChildIDs slice means unrestricted for that dimension; an
// empty non-nil slice means no access.
type AccessScope struct {
	Role     Role
	UserID   string
	ClassIDs []string
	ChildIDs []string
}

// Unrestricted reports whether the scope imposes no narrowing.
func (s AccessScope) Unrestricted() bool {
	return s.ClassIDs == nil && s.ChildIDs == nil
}
