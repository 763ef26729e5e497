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

// MenuRepository provides persistence for daily menus.
type MenuRepository struct {
	db *sqlx.DB
}

// NewMenuRepository creates a new instance of MenuRepository.
func NewMenuRepository(db *sqlx.DB) *MenuRepository {
	return &MenuRepository{db: db}
}

const menuColumns = `id, date, starter, main_course, dessert, snack, allergens, status, published_at, created_by, created_at, updated_at`

// Create inserts a new draft menu.
func (r *MenuRepository) Create(ctx context.Context, menu *models.Menu) error {
	if menu.ID == "" {
		menu.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	menu.CreatedAt = now
	menu.UpdatedAt = now
	if menu.Status == "" {
		menu.Status = models.MenuDraft
	}
	const query = `INSERT INTO menus (id, date, starter, main_course, dessert, snack, allergens, status, published_at, created_by, created_at, updated_at)
VALUES (:id, :date, :starter, :main_course, :dessert, :snack, :allergens, :status, :published_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, menu); err != nil {
		return fmt.Errorf("create menu: %w", err)
	}
	return nil
}

// FindByID returns a menu by identifier.
func (r *MenuRepository) FindByID(ctx context.Context, id string) (*models.Menu, error) {
	query := fmt.Sprintf(`SELECT %s FROM menus WHERE id = $1 LIMIT 1`, menuColumns)
	var menu models.Menu
	if err := r.db.GetContext(ctx, &menu, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find menu by id: %w", err)
	}
	return &menu, nil
}

// FindByDate returns the menu for a day, optionally restricted to
// published menus only.
func (r *MenuRepository) FindByDate(ctx context.Context, date time.Time, publishedOnly bool) (*models.Menu, error) {
	query := fmt.Sprintf(`SELECT %s FROM menus WHERE date = $1`, menuColumns)
	if publishedOnly {
		query += ` AND status = 'PUBLISHED'`
	}
	query += ` LIMIT 1`
	var menu models.Menu
	if err := r.db.GetContext(ctx, &menu, query, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find menu by date: %w", err)
	}
	return &menu, nil
}

// ListByRange returns menus over a period.
func (r *MenuRepository) ListByRange(ctx context.Context, from, to time.Time, publishedOnly bool) ([]models.Menu, error) {
	query := fmt.Sprintf(`SELECT %s FROM menus WHERE date BETWEEN $1 AND $2`, menuColumns)
	if publishedOnly {
		query += ` AND status = 'PUBLISHED'`
	}
	query += ` ORDER BY date ASC`
	var menus []models.Menu
	if err := r.db.SelectContext(ctx, &menus, query, from, to); err != nil {
		return nil, fmt.Errorf("list menus: %w", err)
	}
	return menus, nil
}

// Update updates mutable fields of a menu.
func (r *MenuRepository) Update(ctx context.Context, menu *models.Menu) error {
	menu.UpdatedAt = time.Now().UTC()
	const query = `UPDATE menus SET starter = :starter, main_course = :main_course, dessert = :dessert, snack = :snack, allergens = :allergens, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, menu); err != nil {
		return fmt.Errorf("update menu: %w", err)
	}
	return nil
}

// Publish flips a draft menu to published. Publishing an already
// published menu matches no row and returns sql.ErrNoRows.
func (r *MenuRepository) Publish(ctx context.Context, id string, publishedAt time.Time) error {
	const query = `UPDATE menus SET status = $2, published_at = $3, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, models.MenuPublished, publishedAt, models.MenuDraft)
	if err != nil {
		return fmt.Errorf("publish menu: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("publish menu: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a draft menu. Published menus are kept.
func (r *MenuRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM menus WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, models.MenuDraft)
	if err != nil {
		return fmt.Errorf("delete menu: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete menu: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
