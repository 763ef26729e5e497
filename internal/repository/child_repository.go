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

// ChildRepository provides persistence for children.
type ChildRepository struct {
	db *sqlx.DB
}

// NewChildRepository creates a new instance of ChildRepository.
func NewChildRepository(db *sqlx.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

const childColumns = `id, family_id, first_name, last_name, birth_date, gender, allergies, notes, class_id, created_at, updated_at`

// FindByID returns a child by identifier.
func (r *ChildRepository) FindByID(ctx context.Context, id string) (*models.Child, error) {
	query := fmt.Sprintf(`SELECT %s FROM children WHERE id = $1 LIMIT 1`, childColumns)
	var child models.Child
	if err := r.db.GetContext(ctx, &child, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find child by id: %w", err)
	}
	return &child, nil
}

// ListByFamily returns the children of a family.
func (r *ChildRepository) ListByFamily(ctx context.Context, familyID string) ([]models.Child, error) {
	query := fmt.Sprintf(`SELECT %s FROM children WHERE family_id = $1 ORDER BY birth_date ASC NULLS LAST`, childColumns)
	var children []models.Child
	if err := r.db.SelectContext(ctx, &children, query, familyID); err != nil {
		return nil, fmt.Errorf("list children by family: %w", err)
	}
	return children, nil
}

// ListByClass returns the children assigned to a class.
func (r *ChildRepository) ListByClass(ctx context.Context, classID string) ([]models.Child, error) {
	query := fmt.Sprintf(`SELECT %s FROM children WHERE class_id = $1 ORDER BY last_name ASC, first_name ASC`, childColumns)
	var children []models.Child
	if err := r.db.SelectContext(ctx, &children, query, classID); err != nil {
		return nil, fmt.Errorf("list children by class: %w", err)
	}
	return children, nil
}

// ListSummariesByFamily returns trimmed child views with class names for
// parent scoping and dashboards.
func (r *ChildRepository) ListSummariesByFamily(ctx context.Context, familyID string) ([]models.ChildSummary, error) {
	const query = `SELECT ch.id, ch.first_name, ch.last_name, ch.birth_date, ch.class_id, cl.name AS class_name
FROM children ch
LEFT JOIN classes cl ON cl.id = ch.class_id
WHERE ch.family_id = $1
ORDER BY ch.birth_date ASC NULLS LAST`
	var summaries []models.ChildSummary
	if err := r.db.SelectContext(ctx, &summaries, query, familyID); err != nil {
		return nil, fmt.Errorf("list child summaries: %w", err)
	}
	return summaries, nil
}

func createChild(ctx context.Context, ext sqlx.ExtContext, child *models.Child) error {
	if child.ID == "" {
		child.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	child.CreatedAt = now
	child.UpdatedAt = now
	const query = `INSERT INTO children (id, family_id, first_name, last_name, birth_date, gender, allergies, notes, class_id, created_at, updated_at)
VALUES (:id, :family_id, :first_name, :last_name, :birth_date, :gender, :allergies, :notes, :class_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, child); err != nil {
		return fmt.Errorf("create child: %w", err)
	}
	return nil
}

// Create inserts a new child record.
func (r *ChildRepository) Create(ctx context.Context, child *models.Child) error {
	return createChild(ctx, r.db, child)
}

// Update updates mutable fields of a child record.
func (r *ChildRepository) Update(ctx context.Context, child *models.Child) error {
	child.UpdatedAt = time.Now().UTC()
	const query = `UPDATE children SET first_name = :first_name, last_name = :last_name, birth_date = :birth_date, gender = :gender, allergies = :allergies, notes = :notes, class_id = :class_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, child); err != nil {
		return fmt.Errorf("update child: %w", err)
	}
	return nil
}

// AssignClass moves a child into a class, or out of any class when
// classID is nil.
func (r *ChildRepository) AssignClass(ctx context.Context, childID string, classID *string) error {
	const query = `UPDATE children SET class_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, childID, classID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign child class: %w", err)
	}
	return nil
}
