package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlwcreche/creche-api/internal/models"
)

func strPtr(s string) *string { return &s }

func guardianRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "family_id", "relation", "first_name", "last_name", "email", "phone", "address", "principal", "created_at", "updated_at"})
}

func familyIDRows(id string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"}).AddRow(id)
}

func sampleProvisionPayload() *models.ApplicationPayload {
	return &models.ApplicationPayload{
		Version: 2,
		Child:   models.ApplicationChild{FirstName: "Lina", LastName: "Diallo", BirthDate: strPtr("2023-04-12")},
		Guardians: []models.ApplicationGuardian{
			{Relation: models.RelationMere, FirstName: "Awa", LastName: "Diallo", Email: strPtr("awa@example.com"), Principal: true},
			{Relation: models.RelationPere, FirstName: "Omar", LastName: "Diallo"},
		},
	}
}

func TestProvisioningRepositoryProvisionNewFamily(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProvisioningRepository(db)

	mock.ExpectBegin()
	// Fresh principal email: the upsert inserts and returns the new id.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO families")).
		WillReturnRows(familyIDRows("family-new"))
	// First guardian carries an email, so it is matched before insert.
	mock.ExpectQuery(regexp.QuoteMeta("FROM guardians WHERE LOWER(email) = LOWER($1)")).
		WithArgs("awa@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO guardians")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Second guardian has no email and is inserted directly.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO guardians")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO children")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := repo.Provision(context.Background(), ProvisionParams{
		EnrollmentID: "enr-1",
		Payload:      sampleProvisionPayload(),
		DecidedBy:    "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "family-new", outcome.FamilyID)
	assert.NotEmpty(t, outcome.ChildID)
	require.Len(t, outcome.Guardians, 2)
	assert.Len(t, outcome.CreatedGuardianIDs, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisioningRepositoryProvisionReusesFamilyByPrincipalEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProvisioningRepository(db)

	payload := sampleProvisionPayload()
	payload.Guardians = payload.Guardians[:1]

	matched := guardianRows().
		AddRow("guardian-9", "family-9", "Mere", "Awa", "Diallo", "awa@example.com", nil, nil, true, testTime(t), testTime(t))

	mock.ExpectBegin()
	// The upsert hits the unique principal email and yields the
	// existing family's id.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO families")).
		WillReturnRows(familyIDRows("family-9"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM guardians WHERE LOWER(email) = LOWER($1)")).
		WithArgs("awa@example.com").
		WillReturnRows(matched)
	// The matched guardian is refreshed in place, not recreated.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE guardians SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO children")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := repo.Provision(context.Background(), ProvisionParams{
		EnrollmentID: "enr-1",
		Payload:      payload,
		DecidedBy:    "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "family-9", outcome.FamilyID)
	require.Len(t, outcome.Guardians, 1)
	assert.Equal(t, "guardian-9", outcome.Guardians[0].ID)
	assert.Empty(t, outcome.CreatedGuardianIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisioningRepositoryProvisionRequiresGuardianEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProvisioningRepository(db)

	payload := &models.ApplicationPayload{
		Version:   2,
		Child:     models.ApplicationChild{FirstName: "Tom", LastName: "Martin"},
		Guardians: []models.ApplicationGuardian{{Relation: models.RelationPere, FirstName: "Paul", LastName: "Martin"}},
	}

	// No transaction is even opened without an email to resolve the
	// family by.
	_, err := repo.Provision(context.Background(), ProvisionParams{
		EnrollmentID: "enr-1",
		Payload:      payload,
		DecidedBy:    "admin-1",
	})
	assert.ErrorIs(t, err, ErrNoGuardianEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisioningRepositoryProvisionAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProvisioningRepository(db)

	payload := sampleProvisionPayload()
	payload.Guardians = payload.Guardians[:1]

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO families")).
		WillReturnRows(familyIDRows("family-1"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM guardians WHERE LOWER(email) = LOWER($1)")).
		WithArgs("awa@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO guardians")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO children")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The status guard matches no row: everything rolls back.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Provision(context.Background(), ProvisionParams{
		EnrollmentID: "enr-1",
		Payload:      payload,
		DecidedBy:    "admin-1",
	})
	assert.ErrorIs(t, err, ErrAlreadyDecided)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisioningRepositoryProvisionRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProvisioningRepository(db)

	payload := sampleProvisionPayload()
	payload.Guardians = payload.Guardians[:1]

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO families")).
		WillReturnRows(familyIDRows("family-1"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM guardians WHERE LOWER(email) = LOWER($1)")).
		WithArgs("awa@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO guardians")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.Provision(context.Background(), ProvisionParams{
		EnrollmentID: "enr-1",
		Payload:      payload,
		DecidedBy:    "admin-1",
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
