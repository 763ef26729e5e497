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

// EnrollmentRepository provides persistence for enrollment applications.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new instance of EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, status, payload, notes, family_id, child_id, submitted_at, decided_at, decided_by, created_at, updated_at`

// Create inserts a new application in CANDIDATURE state.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.SubmittedAt.IsZero() {
		enrollment.SubmittedAt = now
	}
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.StatusCandidature
	}

	const query = `INSERT INTO enrollments (id, status, payload, notes, family_id, child_id, submitted_at, decided_at, decided_by, created_at, updated_at)
VALUES (:id, :status, :payload, :notes, :family_id, :child_id, :submitted_at, :decided_at, :decided_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by identifier.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1 LIMIT 1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment by id: %w", err)
	}
	return &enrollment, nil
}

// List returns enrollments matching the filter with total count. The
// free text query searches the stored payload and notes.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	baseQuery := `FROM enrollments WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(payload::text) LIKE $%d OR LOWER(COALESCE(notes, '')) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Query)+"%")
	}
	if filter.DateMin != nil {
		conditions = append(conditions, fmt.Sprintf("submitted_at >= $%d", len(args)+1))
		args = append(args, *filter.DateMin)
	}
	if filter.DateMax != nil {
		conditions = append(conditions, fmt.Sprintf("submitted_at <= $%d", len(args)+1))
		args = append(args, *filter.DateMax)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY submitted_at DESC LIMIT %d OFFSET %d", enrollmentColumns, baseQuery, pageSize, offset)

	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}

	return enrollments, total, nil
}

// UpdateStatus moves an enrollment to a new status, guarded by the
// expected current status. It returns sql.ErrNoRows when no row matched
// the guard, which signals a concurrent decision.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, from, to models.EnrollmentStatus, notes *string, decidedBy *string) error {
	now := time.Now().UTC()
	query := `UPDATE enrollments SET status = $3, notes = COALESCE($4, notes), updated_at = $5`
	args := []interface{}{id, from, to, notes, now}
	if to.Terminal() {
		query += fmt.Sprintf(", decided_at = $%d, decided_by = $%d", len(args)+1, len(args)+2)
		args = append(args, now, decidedBy)
	}
	query += ` WHERE id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus returns the number of enrollments per status.
func (r *EnrollmentRepository) CountByStatus(ctx context.Context) (map[models.EnrollmentStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM enrollments GROUP BY status`
	rows := []struct {
		Status models.EnrollmentStatus `db:"status"`
		Total  int                     `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count enrollments by status: %w", err)
	}
	counts := make(map[models.EnrollmentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
