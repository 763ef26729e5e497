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

// ClassRepository provides persistence for classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new instance of ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, name, age_min, age_max, capacity, active, created_at, updated_at`

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE id = $1 LIMIT 1`, classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}

// List returns classes, optionally restricted to a set of class ids.
// A nil ids slice means no restriction; an empty slice returns nothing.
func (r *ClassRepository) List(ctx context.Context, ids []string, activeOnly bool) ([]models.Class, error) {
	if ids != nil && len(ids) == 0 {
		return []models.Class{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM classes WHERE 1=1`, classColumns)
	var args []interface{}

	if activeOnly {
		query += " AND active = TRUE"
	}
	if ids != nil {
		in, inArgs, err := sqlx.In(" AND id IN (?)", ids)
		if err != nil {
			return nil, fmt.Errorf("build class id filter: %w", err)
		}
		query += in
		args = append(args, inArgs...)
	}
	query += " ORDER BY name ASC"
	query = r.db.Rebind(query)

	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// Stats returns occupancy counts for a class.
func (r *ClassRepository) Stats(ctx context.Context, classID string) (*models.ClassStats, error) {
	const query = `SELECT
	c.id AS class_id,
	(SELECT COUNT(*) FROM children ch WHERE ch.class_id = c.id) AS child_count,
	(SELECT COUNT(*) FROM teacher_assignments ta WHERE ta.class_id = c.id AND ta.end_date IS NULL) AS teacher_count
FROM classes c WHERE c.id = $1`
	var stats models.ClassStats
	if err := r.db.GetContext(ctx, &stats, query, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("class stats: %w", err)
	}
	return &stats, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, name, age_min, age_max, capacity, active, created_at, updated_at)
VALUES (:id, :name, :age_min, :age_max, :capacity, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update updates mutable fields of a class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, age_min = :age_min, age_max = :age_max, capacity = :capacity, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}
