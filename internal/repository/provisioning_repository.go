package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wlwcreche/creche-api/internal/models"
)

// ProvisioningRepository runs the acceptance transaction that turns an
// application payload into family, guardian and child records and
// activates the enrollment atomically.
type ProvisioningRepository struct {
	db *sqlx.DB
}

// NewProvisioningRepository creates a new instance of ProvisioningRepository.
func NewProvisioningRepository(db *sqlx.DB) *ProvisioningRepository {
	return &ProvisioningRepository{db: db}
}

// ProvisionParams carries the inputs of a provisioning run.
type ProvisionParams struct {
	EnrollmentID string
	Payload      *models.ApplicationPayload
	DecidedBy    string
	Notes        *string
}

// ProvisionOutcome reports the records materialized by the transaction.
type ProvisionOutcome struct {
	FamilyID  string
	ChildID   string
	Guardians []models.Guardian
	// CreatedGuardianIDs lists guardians inserted by this run, as
	// opposed to matched existing records.
	CreatedGuardianIDs map[string]bool
}

// ErrAlreadyDecided is returned when the enrollment was decided
// concurrently and the status guard matched no row.
var ErrAlreadyDecided = fmt.Errorf("enrollment already decided")

// ErrNoGuardianEmail is returned when the payload carries no guardian
// email, which leaves nothing to resolve the family by.
var ErrNoGuardianEmail = fmt.Errorf("application has no guardian email")

// Provision executes the acceptance transaction. The family is upserted
// by the principal guardian's email, which is unique across families,
// so a concurrent first acceptance lands on the same row. Guardians are
// matched by email within the transaction and their contact fields
// refreshed on match. The enrollment row is activated under a status
// guard so a concurrent decision rolls everything back.
func (r *ProvisioningRepository) Provision(ctx context.Context, params ProvisionParams) (outcome *ProvisionOutcome, err error) {
	payload := params.Payload
	principalEmail, hasEmail := payload.PrincipalEmail()
	if !hasEmail {
		return nil, ErrNoGuardianEmail
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin provisioning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	outcome = &ProvisionOutcome{CreatedGuardianIDs: map[string]bool{}}

	family := &models.Family{
		Name:           payload.FamilyName(),
		EmailPrincipal: principalEmail,
		Language:       payload.PreferredLanguage(),
		Address:        payload.BillingAddress,
	}
	if err = upsertFamilyByEmail(ctx, tx, family); err != nil {
		return nil, err
	}
	familyID := family.ID
	outcome.FamilyID = familyID

	for _, applicant := range payload.Guardians {
		guardian, upsertErr := upsertGuardian(ctx, tx, familyID, applicant, outcome.CreatedGuardianIDs)
		if upsertErr != nil {
			err = upsertErr
			return nil, err
		}
		outcome.Guardians = append(outcome.Guardians, *guardian)
	}

	child := &models.Child{
		FamilyID:  familyID,
		FirstName: payload.Child.FirstName,
		LastName:  payload.Child.LastName,
		BirthDate: payload.ChildBirthDate(),
		Gender:    payload.Child.Gender,
		Allergies: payload.Child.Allergies,
		Notes:     payload.Child.Notes,
	}
	if err = createChild(ctx, tx, child); err != nil {
		return nil, err
	}
	outcome.ChildID = child.ID

	now := time.Now().UTC()
	const activateQuery = `UPDATE enrollments
SET status = $2, family_id = $3, child_id = $4, notes = COALESCE($5, notes), decided_at = $6, decided_by = $7, updated_at = $6
WHERE id = $1 AND status IN ($8, $9)`
	res, execErr := tx.ExecContext(ctx, activateQuery,
		params.EnrollmentID, models.StatusActif, familyID, child.ID, params.Notes, now, params.DecidedBy,
		models.StatusCandidature, models.StatusEnCours)
	if execErr != nil {
		err = fmt.Errorf("activate enrollment: %w", execErr)
		return nil, err
	}
	affected, raErr := res.RowsAffected()
	if raErr != nil {
		err = fmt.Errorf("activate enrollment: %w", raErr)
		return nil, err
	}
	if affected == 0 {
		err = ErrAlreadyDecided
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit provisioning transaction: %w", err)
	}
	return outcome, nil
}

func upsertGuardian(ctx context.Context, tx *sqlx.Tx, familyID string, applicant models.ApplicationGuardian, created map[string]bool) (*models.Guardian, error) {
	if applicant.Email != nil {
		existing, err := findGuardianByEmail(ctx, tx, *applicant.Email)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		if existing != nil {
			existing.Relation = applicant.Relation
			existing.FirstName = applicant.FirstName
			existing.LastName = applicant.LastName
			existing.Phone = applicant.Phone
			existing.Address = applicant.Address
			existing.Principal = applicant.Principal
			if err := updateGuardianContact(ctx, tx, existing); err != nil {
				return nil, err
			}
			return existing, nil
		}
	}

	guardian := &models.Guardian{
		FamilyID:  familyID,
		Relation:  applicant.Relation,
		FirstName: applicant.FirstName,
		LastName:  applicant.LastName,
		Email:     applicant.Email,
		Phone:     applicant.Phone,
		Address:   applicant.Address,
		Principal: applicant.Principal,
	}
	if err := createGuardian(ctx, tx, guardian); err != nil {
		return nil, err
	}
	created[guardian.ID] = true
	return guardian, nil
}
