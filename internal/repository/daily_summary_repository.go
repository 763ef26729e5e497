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

// DailySummaryRepository provides persistence for per-child daily reports.
type DailySummaryRepository struct {
	db *sqlx.DB
}

// NewDailySummaryRepository creates a new instance of DailySummaryRepository.
func NewDailySummaryRepository(db *sqlx.DB) *DailySummaryRepository {
	return &DailySummaryRepository{db: db}
}

const summaryColumns = `id, child_id, date, mood, meals, nap, hygiene, activity, comment, author_id, created_at, updated_at`

// Upsert writes or overwrites the summary of a child for a day.
func (r *DailySummaryRepository) Upsert(ctx context.Context, summary *models.DailySummary) error {
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	summary.CreatedAt = now
	summary.UpdatedAt = now

	const query = `INSERT INTO daily_summaries (id, child_id, date, mood, meals, nap, hygiene, activity, comment, author_id, created_at, updated_at)
VALUES (:id, :child_id, :date, :mood, :meals, :nap, :hygiene, :activity, :comment, :author_id, :created_at, :updated_at)
ON CONFLICT (child_id, date) DO UPDATE SET
	mood = EXCLUDED.mood,
	meals = EXCLUDED.meals,
	nap = EXCLUDED.nap,
	hygiene = EXCLUDED.hygiene,
	activity = EXCLUDED.activity,
	comment = EXCLUDED.comment,
	author_id = EXCLUDED.author_id,
	updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, summary); err != nil {
		return fmt.Errorf("upsert daily summary: %w", err)
	}
	return nil
}

// FindByChildAndDate returns the summary of a child for a day.
func (r *DailySummaryRepository) FindByChildAndDate(ctx context.Context, childID string, date time.Time) (*models.DailySummary, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_summaries WHERE child_id = $1 AND date = $2 LIMIT 1`, summaryColumns)
	var summary models.DailySummary
	if err := r.db.GetContext(ctx, &summary, query, childID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find daily summary: %w", err)
	}
	return &summary, nil
}

// ListByChildAndRange returns a child's summaries over a period.
func (r *DailySummaryRepository) ListByChildAndRange(ctx context.Context, childID string, from, to time.Time) ([]models.DailySummary, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_summaries WHERE child_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date DESC`, summaryColumns)
	var summaries []models.DailySummary
	if err := r.db.SelectContext(ctx, &summaries, query, childID, from, to); err != nil {
		return nil, fmt.Errorf("list daily summaries: %w", err)
	}
	return summaries, nil
}

// ListByClassAndDate returns the summaries of all children of a class
// for a day.
func (r *DailySummaryRepository) ListByClassAndDate(ctx context.Context, classID string, date time.Time) ([]models.DailySummary, error) {
	const query = `SELECT ds.id, ds.child_id, ds.date, ds.mood, ds.meals, ds.nap, ds.hygiene, ds.activity, ds.comment, ds.author_id, ds.created_at, ds.updated_at
FROM daily_summaries ds
JOIN children ch ON ch.id = ds.child_id
WHERE ch.class_id = $1 AND ds.date = $2
ORDER BY ch.last_name ASC`
	var summaries []models.DailySummary
	if err := r.db.SelectContext(ctx, &summaries, query, classID, date); err != nil {
		return nil, fmt.Errorf("list class summaries: %w", err)
	}
	return summaries, nil
}
