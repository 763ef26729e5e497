package models

import "time"

type AuditAction string

const (
	AuditActionLogin            AuditAction = "LOGIN"
	AuditActionLogout           AuditAction = "LOGOUT"
	AuditActionCreate           AuditAction = "CREATE"
	AuditActionUpdate           AuditAction = "UPDATE"
	AuditActionDelete           AuditAction = "DELETE"
	AuditActionStatusChange     AuditAction = "STATUS_CHANGE"
	AuditActionEnrollmentAccept AuditAction = "ENROLLMENT_ACCEPT"
	AuditActionEnrollmentReject AuditAction = "ENROLLMENT_REJECT"
	AuditActionJournalPublish   AuditAction = "JOURNAL_PUBLISH"
	AuditActionExport           AuditAction = "EXPORT"
)

// AuditLog records a mutating action for traceability.
type AuditLog struct {
	ID         string      `db:"id" json:"id"`
	UserID     *string     `db:"user_id" json:"user_id,omitempty"`
	Action     AuditAction `db:"action" json:"action"`
	Entity     string      `db:"entity" json:"entity"`
	EntityID   *string     `db:"entity_id" json:"entity_id,omitempty"`
	Detail     *string     `db:"detail" json:"detail,omitempty"`
	IPAddress  *string     `db:"ip_address" json:"ip_address,omitempty"`
	OccurredAt time.Time   `db:"occurred_at" json:"occurred_at"`
}
