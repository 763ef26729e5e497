package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlwcreche/creche-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func testTime(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
}

func TestEnrollmentRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{Payload: models.JSONPayload{"version": float64(2)}}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.StatusCandidature, enrollment.Status)
	assert.False(t, enrollment.SubmittedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatusNonTerminal(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status = $3, notes = COALESCE($4, notes), updated_at = $5 WHERE id = $1 AND status = $2")).
		WithArgs("enr-1", "CANDIDATURE", "EN_COURS", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "enr-1", models.StatusCandidature, models.StatusEnCours, nil, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatusTerminalSetsDecision(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	reason := "classe complète"
	decidedBy := "admin-1"
	mock.ExpectExec(regexp.QuoteMeta("decided_at = $6, decided_by = $7")).
		WithArgs("enr-1", "EN_COURS", "REJETEE", reason, sqlmock.AnyArg(), sqlmock.AnyArg(), decidedBy).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "enr-1", models.StatusEnCours, models.StatusRejetee, &reason, &decidedBy)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatusGuardMiss(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	// The status guard matched no row: someone decided concurrently.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "enr-1", models.StatusCandidature, models.StatusEnCours, nil, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListWithFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "status", "payload", "notes", "family_id", "child_id", "submitted_at", "decided_at", "decided_by", "created_at", "updated_at"}).
		AddRow("enr-1", "CANDIDATURE", []byte(`{"version":2}`), nil, nil, nil, testTime(t), nil, nil, testTime(t), testTime(t))

	mock.ExpectQuery(regexp.QuoteMeta("status = $1")).
		WithArgs("CANDIDATURE", "%diallo%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("CANDIDATURE", "%diallo%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status := models.StatusCandidature
	enrollments, total, err := repo.List(context.Background(), models.EnrollmentFilter{Status: &status, Query: "Diallo"})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.JSONPayload{"version": float64(2)}, enrollments[0].Payload)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEnrollmentRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"status", "total"}).
		AddRow("CANDIDATURE", 3).
		AddRow("ACTIF", 7)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status")).WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[models.StatusCandidature])
	assert.Equal(t, 7, counts[models.StatusActif])
}
