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

// AttendanceRepository provides persistence for daily attendance.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new instance of AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, child_id, class_id, date, status, arrived_at, left_at, note, recorded_by, created_at, updated_at`

// Upsert records or overwrites the attendance of a child for a day.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	const query = `INSERT INTO attendance (id, child_id, class_id, date, status, arrived_at, left_at, note, recorded_by, created_at, updated_at)
VALUES (:id, :child_id, :class_id, :date, :status, :arrived_at, :left_at, :note, :recorded_by, :created_at, :updated_at)
ON CONFLICT (child_id, date) DO UPDATE SET
	status = EXCLUDED.status,
	class_id = EXCLUDED.class_id,
	arrived_at = EXCLUDED.arrived_at,
	left_at = EXCLUDED.left_at,
	note = EXCLUDED.note,
	recorded_by = EXCLUDED.recorded_by,
	updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// UpsertBulk records a batch of attendance rows in one transaction.
func (r *AttendanceRepository) UpsertBulk(ctx context.Context, records []*models.Attendance) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const query = `INSERT INTO attendance (id, child_id, class_id, date, status, arrived_at, left_at, note, recorded_by, created_at, updated_at)
VALUES (:id, :child_id, :class_id, :date, :status, :arrived_at, :left_at, :note, :recorded_by, :created_at, :updated_at)
ON CONFLICT (child_id, date) DO UPDATE SET
	status = EXCLUDED.status,
	class_id = EXCLUDED.class_id,
	arrived_at = EXCLUDED.arrived_at,
	left_at = EXCLUDED.left_at,
	note = EXCLUDED.note,
	recorded_by = EXCLUDED.recorded_by,
	updated_at = EXCLUDED.updated_at`
	for _, record := range records {
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		record.CreatedAt = now
		record.UpdatedAt = now
		if _, err = sqlx.NamedExecContext(ctx, tx, query, record); err != nil {
			return fmt.Errorf("upsert attendance batch: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance transaction: %w", err)
	}
	return nil
}

// List returns attendance rows matching the filter with total count.
// Class and child id slices follow the scope convention: nil is
// unrestricted, non-empty restricts the rows.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	baseQuery := `FROM attendance WHERE date BETWEEN ? AND ?`
	args := []interface{}{filter.From, filter.To}

	if filter.Status != nil {
		baseQuery += " AND status = ?"
		args = append(args, *filter.Status)
	}
	if len(filter.ClassIDs) > 0 {
		in, inArgs, err := sqlx.In(" AND class_id IN (?)", filter.ClassIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("build attendance class filter: %w", err)
		}
		baseQuery += in
		args = append(args, inArgs...)
	}
	if len(filter.ChildIDs) > 0 {
		in, inArgs, err := sqlx.In(" AND child_id IN (?)", filter.ChildIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("build attendance child filter: %w", err)
		}
		baseQuery += in
		args = append(args, inArgs...)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY date DESC, created_at ASC LIMIT %d OFFSET %d", attendanceColumns, baseQuery, pageSize, offset)
	listQuery = r.db.Rebind(listQuery)

	var records []models.Attendance
	if err := r.db.SelectContext(ctx, &records, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := r.db.Rebind(fmt.Sprintf("SELECT COUNT(*) %s", baseQuery))
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}

	return records, total, nil
}

// ListByClassAndDate returns all attendance rows for a class on a day.
func (r *AttendanceRepository) ListByClassAndDate(ctx context.Context, classID string, date time.Time) ([]models.Attendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance WHERE class_id = $1 AND date = $2 ORDER BY created_at ASC`, attendanceColumns)
	var records []models.Attendance
	if err := r.db.SelectContext(ctx, &records, query, classID, date); err != nil {
		return nil, fmt.Errorf("list attendance by class: %w", err)
	}
	return records, nil
}

// FindByChildAndDate returns the attendance row for a child on a day.
func (r *AttendanceRepository) FindByChildAndDate(ctx context.Context, childID string, date time.Time) (*models.Attendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance WHERE child_id = $1 AND date = $2 LIMIT 1`, attendanceColumns)
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, query, childID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &record, nil
}

// ListByChildAndRange returns a child's attendance over a period.
func (r *AttendanceRepository) ListByChildAndRange(ctx context.Context, childID string, from, to time.Time) ([]models.Attendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance WHERE child_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date ASC`, attendanceColumns)
	var records []models.Attendance
	if err := r.db.SelectContext(ctx, &records, query, childID, from, to); err != nil {
		return nil, fmt.Errorf("list attendance by child: %w", err)
	}
	return records, nil
}

// Summarize aggregates class attendance counts over a period.
func (r *AttendanceRepository) Summarize(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceSummary, error) {
	const query = `SELECT
	class_id,
	date,
	COUNT(*) FILTER (WHERE status = 'PRESENT') AS present,
	COUNT(*) FILTER (WHERE status = 'ABSENT') AS absent,
	COUNT(*) FILTER (WHERE status = 'LATE') AS late,
	COUNT(*) FILTER (WHERE status = 'EXCUSED') AS excused
FROM attendance
WHERE class_id = $1 AND date BETWEEN $2 AND $3
GROUP BY class_id, date
ORDER BY date ASC`
	var summaries []models.AttendanceSummary
	if err := r.db.SelectContext(ctx, &summaries, query, classID, from, to); err != nil {
		return nil, fmt.Errorf("summarize attendance: %w", err)
	}
	return summaries, nil
}
