package models

import "time"

// JournalStatus is the publication state of a class journal entry.
type JournalStatus string

const (
	JournalDraft     JournalStatus = "DRAFT"
	JournalPublished JournalStatus = "PUBLISHED"
)

// ClassJournal is the shared daily journal of a class. Publishing a
// journal fans out diffusions to the parents of the class.
type ClassJournal struct {
	ID          string        `db:"id" json:"id"`
	ClassID     string        `db:"class_id" json:"class_id"`
	Date        time.Time     `db:"date" json:"date"`
	Title       string        `db:"title" json:"title"`
	Body        string        `db:"body" json:"body"`
	Status      JournalStatus `db:"status" json:"status"`
	PublishedAt *time.Time    `db:"published_at" json:"published_at,omitempty"`
	AuthorID    string        `db:"author_id" json:"author_id"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// JournalDiffusion records the delivery of a published journal to one
// parent account.
type JournalDiffusion struct {
	ID         string     `db:"id" json:"id"`
	JournalID  string     `db:"journal_id" json:"journal_id"`
	UserID     string     `db:"user_id" json:"user_id"`
	NotifiedAt *time.Time `db:"notified_at" json:"notified_at,omitempty"`
	ReadAt     *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

type CreateJournalRequest struct {
	ClassID string `json:"class_id" validate:"required,uuid"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Title   string `json:"title" validate:"required,min=1,max=200"`
	Body    string `json:"body" validate:"required,min=1,max=10000"`
}

type UpdateJournalRequest struct {
	Title *string `json:"title" validate:"omitempty,min=1,max=200"`
	Body  *string `json:"body" validate:"omitempty,min=1,max=10000"`
}
