package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/wlwcreche/creche-api/internal/models"
)

// ClassJournalRepository provides persistence for class journals and
// their diffusions to parent accounts.
type ClassJournalRepository struct {
	db *sqlx.DB
}

// NewClassJournalRepository creates a new instance of ClassJournalRepository.
func NewClassJournalRepository(db *sqlx.DB) *ClassJournalRepository {
	return &ClassJournalRepository{db: db}
}

const journalColumns = `id, class_id, date, title, body, status, published_at, author_id, created_at, updated_at`

// Create inserts a new draft journal entry.
func (r *ClassJournalRepository) Create(ctx context.Context, journal *models.ClassJournal) error {
	if journal.ID == "" {
		journal.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	journal.CreatedAt = now
	journal.UpdatedAt = now
	if journal.Status == "" {
		journal.Status = models.JournalDraft
	}
	const query = `INSERT INTO class_journals (id, class_id, date, title, body, status, published_at, author_id, created_at, updated_at)
VALUES (:id, :class_id, :date, :title, :body, :status, :published_at, :author_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, journal); err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	return nil
}

// FindByID returns a journal entry by identifier.
func (r *ClassJournalRepository) FindByID(ctx context.Context, id string) (*models.ClassJournal, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_journals WHERE id = $1 LIMIT 1`, journalColumns)
	var journal models.ClassJournal
	if err := r.db.GetContext(ctx, &journal, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find journal by id: %w", err)
	}
	return &journal, nil
}

// ListByClass returns journal entries of a class over a period,
// optionally restricted to published entries.
func (r *ClassJournalRepository) ListByClass(ctx context.Context, classID string, from, to time.Time, publishedOnly bool) ([]models.ClassJournal, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_journals WHERE class_id = $1 AND date BETWEEN $2 AND $3`, journalColumns)
	if publishedOnly {
		query += ` AND status = 'PUBLISHED'`
	}
	query += ` ORDER BY date DESC`
	var journals []models.ClassJournal
	if err := r.db.SelectContext(ctx, &journals, query, classID, from, to); err != nil {
		return nil, fmt.Errorf("list journals: %w", err)
	}
	return journals, nil
}

// FindPublishedByClassAndDate returns the published journal of a class
// for a day.
func (r *ClassJournalRepository) FindPublishedByClassAndDate(ctx context.Context, classID string, date time.Time) (*models.ClassJournal, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_journals WHERE class_id = $1 AND date = $2 AND status = 'PUBLISHED' LIMIT 1`, journalColumns)
	var journal models.ClassJournal
	if err := r.db.GetContext(ctx, &journal, query, classID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find published journal: %w", err)
	}
	return &journal, nil
}

// Update updates the content of a draft journal entry.
func (r *ClassJournalRepository) Update(ctx context.Context, journal *models.ClassJournal) error {
	journal.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_journals SET title = :title, body = :body, updated_at = :updated_at WHERE id = :id AND status = 'DRAFT'`
	res, err := r.db.NamedExecContext(ctx, query, journal)
	if err != nil {
		return fmt.Errorf("update journal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update journal: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Publish flips a draft journal to published and records the diffusion
// rows for the given parent accounts in one transaction.
func (r *ClassJournalRepository) Publish(ctx context.Context, journalID string, publishedAt time.Time, recipientUserIDs []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal publish transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const publishQuery = `UPDATE class_journals SET status = $2, published_at = $3, updated_at = $3 WHERE id = $1 AND status = $4`
	res, execErr := tx.ExecContext(ctx, publishQuery, journalID, models.JournalPublished, publishedAt, models.JournalDraft)
	if execErr != nil {
		err = fmt.Errorf("publish journal: %w", execErr)
		return err
	}
	affected, raErr := res.RowsAffected()
	if raErr != nil {
		err = fmt.Errorf("publish journal: %w", raErr)
		return err
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	const diffusionQuery = `INSERT INTO journal_diffusions (id, journal_id, user_id, created_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (journal_id, user_id) DO NOTHING`
	for _, userID := range recipientUserIDs {
		if _, err = tx.ExecContext(ctx, diffusionQuery, uuid.NewString(), journalID, userID, publishedAt); err != nil {
			return fmt.Errorf("create journal diffusion: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit journal publish: %w", err)
	}
	return nil
}

// MarkNotified records that the diffusion email was sent.
func (r *ClassJournalRepository) MarkNotified(ctx context.Context, journalID, userID string, notifiedAt time.Time) error {
	const query = `UPDATE journal_diffusions SET notified_at = $3 WHERE journal_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, journalID, userID, notifiedAt); err != nil {
		return fmt.Errorf("mark diffusion notified: %w", err)
	}
	return nil
}

// MarkRead records that the parent opened the journal.
func (r *ClassJournalRepository) MarkRead(ctx context.Context, journalID, userID string, readAt time.Time) error {
	const query = `UPDATE journal_diffusions SET read_at = $3 WHERE journal_id = $1 AND user_id = $2 AND read_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, journalID, userID, readAt); err != nil {
		return fmt.Errorf("mark diffusion read: %w", err)
	}
	return nil
}

// ListDiffusions returns the diffusion records of a journal.
func (r *ClassJournalRepository) ListDiffusions(ctx context.Context, journalID string) ([]models.JournalDiffusion, error) {
	const query = `SELECT id, journal_id, user_id, notified_at, read_at, created_at FROM journal_diffusions WHERE journal_id = $1 ORDER BY created_at ASC`
	var diffusions []models.JournalDiffusion
	if err := r.db.SelectContext(ctx, &diffusions, query, journalID); err != nil {
		return nil, fmt.Errorf("list journal diffusions: %w", err)
	}
	return diffusions, nil
}

// ParentRecipients returns the distinct parent accounts linked to the
// children of a class, for diffusion fan out.
func (r *ClassJournalRepository) ParentRecipients(ctx context.Context, classID string) ([]models.User, error) {
	const query = `SELECT DISTINCT u.id, u.email, u.first_name, u.last_name, u.language, u.role, u.status
FROM users u
JOIN guardians g ON g.id = u.guardian_id
JOIN children ch ON ch.family_id = g.family_id
WHERE ch.class_id = $1 AND u.role = 'PARENT' AND u.status <> 'DISABLED'`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, classID); err != nil {
		return nil, fmt.Errorf("list journal recipients: %w", err)
	}
	return users, nil
}
