package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/wlwcreche/creche-api/internal/models"
)

// FamilyRepository provides persistence for families and guardians.
type FamilyRepository struct {
	db *sqlx.DB
}

// NewFamilyRepository creates a new instance of FamilyRepository.
func NewFamilyRepository(db *sqlx.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

const familyColumns = `id, name, email_principal, language, address, created_at, updated_at`

// FindByID returns a family by identifier.
func (r *FamilyRepository) FindByID(ctx context.Context, id string) (*models.Family, error) {
	query := fmt.Sprintf(`SELECT %s FROM families WHERE id = $1 LIMIT 1`, familyColumns)
	var family models.Family
	if err := r.db.GetContext(ctx, &family, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find family by id: %w", err)
	}
	return &family, nil
}

// List returns families matching the filter with total count.
func (r *FamilyRepository) List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, int, error) {
	baseQuery := `FROM families f WHERE 1=1`
	var args []interface{}

	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		baseQuery += fmt.Sprintf(` AND (LOWER(f.name) LIKE $%d OR LOWER(f.email_principal) LIKE $%d OR EXISTS (
	SELECT 1 FROM guardians g WHERE g.family_id = f.id AND LOWER(g.first_name || ' ' || g.last_name) LIKE $%d))`, len(args), len(args), len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT f.id, f.name, f.email_principal, f.language, f.address, f.created_at, f.updated_at %s ORDER BY f.name ASC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var families []models.Family
	if err := r.db.SelectContext(ctx, &families, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list families: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count families: %w", err)
	}

	return families, total, nil
}

// ListGuardians returns all guardians of a family.
func (r *FamilyRepository) ListGuardians(ctx context.Context, familyID string) ([]models.Guardian, error) {
	const query = `SELECT id, family_id, relation, first_name, last_name, email, phone, address, principal, created_at, updated_at
FROM guardians WHERE family_id = $1 ORDER BY principal DESC, last_name ASC`
	var guardians []models.Guardian
	if err := r.db.SelectContext(ctx, &guardians, query, familyID); err != nil {
		return nil, fmt.Errorf("list guardians: %w", err)
	}
	return guardians, nil
}

// FindGuardianByEmail returns the guardian matching an email, if any.
// Matching is case insensitive.
func (r *FamilyRepository) FindGuardianByEmail(ctx context.Context, email string) (*models.Guardian, error) {
	return findGuardianByEmail(ctx, r.db, email)
}

func findGuardianByEmail(ctx context.Context, ext sqlx.ExtContext, email string) (*models.Guardian, error) {
	const query = `SELECT id, family_id, relation, first_name, last_name, email, phone, address, principal, created_at, updated_at
FROM guardians WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var guardian models.Guardian
	if err := sqlx.GetContext(ctx, ext, &guardian, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find guardian by email: %w", err)
	}
	return &guardian, nil
}

// upsertFamilyByEmail inserts the family or, when one already exists
// for the principal email, returns the existing row's id. The unique
// constraint on email_principal makes this safe under concurrent
// acceptances.
func upsertFamilyByEmail(ctx context.Context, ext sqlx.ExtContext, family *models.Family) error {
	if family.ID == "" {
		family.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	family.CreatedAt = now
	family.UpdatedAt = now
	const query = `INSERT INTO families (id, name, email_principal, language, address, created_at, updated_at)
VALUES ($1, $2, LOWER($3), $4, $5, $6, $6)
ON CONFLICT (email_principal) DO UPDATE SET updated_at = EXCLUDED.updated_at
RETURNING id`
	row := ext.QueryRowxContext(ctx, query, family.ID, family.Name, family.EmailPrincipal, family.Language, family.Address, now)
	if err := row.Scan(&family.ID); err != nil {
		return fmt.Errorf("upsert family: %w", err)
	}
	return nil
}

func createGuardian(ctx context.Context, ext sqlx.ExtContext, guardian *models.Guardian) error {
	if guardian.ID == "" {
		guardian.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	guardian.CreatedAt = now
	guardian.UpdatedAt = now
	const query = `INSERT INTO guardians (id, family_id, relation, first_name, last_name, email, phone, address, principal, created_at, updated_at)
VALUES (:id, :family_id, :relation, :first_name, :last_name, :email, :phone, :address, :principal, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, guardian); err != nil {
		return fmt.Errorf("create guardian: %w", err)
	}
	return nil
}

func updateGuardianContact(ctx context.Context, ext sqlx.ExtContext, guardian *models.Guardian) error {
	guardian.UpdatedAt = time.Now().UTC()
	const query = `UPDATE guardians SET relation = :relation, first_name = :first_name, last_name = :last_name, phone = :phone, address = :address, principal = :principal, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, guardian); err != nil {
		return fmt.Errorf("update guardian contact: %w", err)
	}
	return nil
}

// UpdateGuardian updates contact fields of an existing guardian.
func (r *FamilyRepository) UpdateGuardian(ctx context.Context, guardian *models.Guardian) error {
	return updateGuardianContact(ctx, r.db, guardian)
}

// FindGuardianByID returns a guardian by identifier.
func (r *FamilyRepository) FindGuardianByID(ctx context.Context, id string) (*models.Guardian, error) {
	const query = `SELECT id, family_id, relation, first_name, last_name, email, phone, address, principal, created_at, updated_at
FROM guardians WHERE id = $1 LIMIT 1`
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find guardian by id: %w", err)
	}
	return &guardian, nil
}
