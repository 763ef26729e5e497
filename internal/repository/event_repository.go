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

// EventRepository provides persistence for scheduled events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new instance of EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, description, class_id, starts_at, ends_at, location, created_by, created_at, updated_at`

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	const query = `INSERT INTO events (id, title, description, class_id, starts_at, ends_at, location, created_by, created_at, updated_at)
VALUES (:id, :title, :description, :class_id, :starts_at, :ends_at, :location, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// FindByID returns an event by identifier.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1 LIMIT 1`, eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	return &event, nil
}

// ListByRange returns events overlapping a period. Class scoped events
// are restricted to the given class ids; a nil slice means
// unrestricted, an empty slice keeps only center wide events.
func (r *EventRepository) ListByRange(ctx context.Context, from, to time.Time, classIDs []string) ([]models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE starts_at < ? AND (ends_at IS NULL OR ends_at >= ? OR starts_at >= ?)`, eventColumns)
	args := []interface{}{to, from, from}

	if classIDs != nil {
		if len(classIDs) == 0 {
			query += " AND class_id IS NULL"
		} else {
			in, inArgs, err := sqlx.In(" AND (class_id IS NULL OR class_id IN (?))", classIDs)
			if err != nil {
				return nil, fmt.Errorf("build event class filter: %w", err)
			}
			query += in
			args = append(args, inArgs...)
		}
	}
	query += " ORDER BY starts_at ASC"
	query = r.db.Rebind(query)

	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Update updates mutable fields of an event.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET title = :title, description = :description, starts_at = :starts_at, ends_at = :ends_at, location = :location, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Delete removes an event.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM events WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
