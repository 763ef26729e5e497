package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/wlwcreche/creche-api/internal/models"
)

// TeacherAssignmentRepository manages teacher to class assignments.
type TeacherAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeacherAssignmentRepository creates a new instance of TeacherAssignmentRepository.
func NewTeacherAssignmentRepository(db *sqlx.DB) *TeacherAssignmentRepository {
	return &TeacherAssignmentRepository{db: db}
}

// CurrentClassIDs returns the ids of classes the teacher is currently
// assigned to. Assignments with a null end_date are current.
func (r *TeacherAssignmentRepository) CurrentClassIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT class_id FROM teacher_assignments WHERE user_id = $1 AND end_date IS NULL`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("current class ids: %w", err)
	}
	return ids, nil
}

// ListByClass returns current and past assignments for a class.
func (r *TeacherAssignmentRepository) ListByClass(ctx context.Context, classID string) ([]models.TeacherAssignment, error) {
	const query = `SELECT id, user_id, class_id, start_date, end_date, created_at
FROM teacher_assignments WHERE class_id = $1 ORDER BY start_date DESC`
	var assignments []models.TeacherAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, classID); err != nil {
		return nil, fmt.Errorf("list assignments by class: %w", err)
	}
	return assignments, nil
}

// Assign opens a new assignment after closing any current assignment of
// the same teacher to the same class.
func (r *TeacherAssignmentRepository) Assign(ctx context.Context, assignment *models.TeacherAssignment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const closeQuery = `UPDATE teacher_assignments SET end_date = $3 WHERE user_id = $1 AND class_id = $2 AND end_date IS NULL`
	if _, err = tx.ExecContext(ctx, closeQuery, assignment.UserID, assignment.ClassID, now); err != nil {
		return fmt.Errorf("close previous assignment: %w", err)
	}

	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.CreatedAt = now
	const insertQuery = `INSERT INTO teacher_assignments (id, user_id, class_id, start_date, end_date, created_at)
VALUES (:id, :user_id, :class_id, :start_date, :end_date, :created_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insertQuery, assignment); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment: %w", err)
	}
	return nil
}

// End closes an assignment as of the given date.
func (r *TeacherAssignmentRepository) End(ctx context.Context, id string, endDate time.Time) error {
	const query = `UPDATE teacher_assignments SET end_date = $2 WHERE id = $1 AND end_date IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, endDate); err != nil {
		return fmt.Errorf("end assignment: %w", err)
	}
	return nil
}
