package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wlwcreche/creche-api/internal/models"
	"github.com/wlwcreche/creche-api/internal/repository"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
	"github.com/wlwcreche/creche-api/pkg/identity"
)

type enrollmentRepoStub struct {
	byID         map[string]*models.Enrollment
	updateCalls  int
	updateFrom   models.EnrollmentStatus
	updateTo     models.EnrollmentStatus
	updateErr    error
	createErr    error
	createdCount int
}

func (s *enrollmentRepoStub) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.createdCount++
	enrollment.ID = "enrollment-new"
	return nil
}

func (s *enrollmentRepoStub) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if enrollment, ok := s.byID[id]; ok {
		copied := *enrollment
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *enrollmentRepoStub) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error) {
	items := make([]models.Enrollment, 0, len(s.byID))
	for _, enrollment := range s.byID {
		items = append(items, *enrollment)
	}
	return items, len(items), nil
}

func (s *enrollmentRepoStub) UpdateStatus(ctx context.Context, id string, from, to models.EnrollmentStatus, notes *string, decidedBy *string) error {
	s.updateCalls++
	s.updateFrom = from
	s.updateTo = to
	if s.updateErr != nil {
		return s.updateErr
	}
	if enrollment, ok := s.byID[id]; ok {
		enrollment.Status = to
	}
	return nil
}

func (s *enrollmentRepoStub) CountByStatus(ctx context.Context) (map[models.EnrollmentStatus]int, error) {
	counts := map[models.EnrollmentStatus]int{}
	for _, enrollment := range s.byID {
		counts[enrollment.Status]++
	}
	return counts, nil
}

type provisioningStub struct {
	outcome *repository.ProvisionOutcome
	err     error
	params  []repository.ProvisionParams
}

func (s *provisioningStub) Provision(ctx context.Context, params repository.ProvisionParams) (*repository.ProvisionOutcome, error) {
	s.params = append(s.params, params)
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome, nil
}

type enrollmentUserStub struct {
	existing map[string]*models.User
	created  []*models.User
	logs     []*models.AuditLog
}

func (s *enrollmentUserStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.existing[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *enrollmentUserStub) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-created"
	s.created = append(s.created, user)
	return nil
}

func (s *enrollmentUserStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

type enrollmentClassStub struct {
	inactive bool
	missing  bool
}

func (s enrollmentClassStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if s.missing {
		return nil, sql.ErrNoRows
	}
	return &models.Class{ID: id, Name: "Les Lucioles", Active: !s.inactive}, nil
}

type identityStub struct {
	err     error
	invites []string
}

func (s *identityStub) CreateUserInvite(ctx context.Context, email string) (*identity.Invite, error) {
	s.invites = append(s.invites, email)
	if s.err != nil {
		return nil, s.err
	}
	return &identity.Invite{ExternalID: "ext-" + email, Email: email, Invited: true}, nil
}

type mailerStub struct {
	invitations   []string
	notifications []string
	fail          bool
}

func (s *mailerStub) SendInvitation(ctx context.Context, email, firstName, lastName, role, tempPassword string) bool {
	s.invitations = append(s.invitations, email)
	return !s.fail
}

func (s *mailerStub) SendNotification(ctx context.Context, email, subject, message string) bool {
	s.notifications = append(s.notifications, email)
	return !s.fail
}

func applicationPayload(t *testing.T, raw string) models.JSONPayload {
	t.Helper()
	var payload models.JSONPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

const sampleApplication = `{
	"version": 2,
	"enfant": {"prenom": "Lina", "nom": "Diallo", "dateNaissance": "2023-04-12"},
	"tuteurs": [
		{"lien": "Mere", "prenom": "Awa", "nom": "Diallo", "email": "awa@example.com", "principal": true},
		{"lien": "Pere", "prenom": "Omar", "nom": "Diallo"}
	],
	"classeIdSouhaitee": "3f2f4b9a-6f0e-4c6a-9a83-2f1d3c5e7b90"
}`

func TestEnrollmentServiceApplyStoresCandidature(t *testing.T) {
	repo := &enrollmentRepoStub{byID: map[string]*models.Enrollment{}}
	service := NewEnrollmentService(repo, &provisioningStub{}, &enrollmentUserStub{}, enrollmentClassStub{}, &identityStub{}, &mailerStub{}, nil, zap.NewNop())

	enrollment, err := service.Apply(context.Background(), json.RawMessage(sampleApplication))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCandidature, enrollment.Status)
	assert.Equal(t, 1, repo.createdCount)
	assert.NotNil(t, enrollment.Payload["tuteurs"])
}

func TestEnrollmentServiceApplyRejectsGuardianless(t *testing.T) {
	repo := &enrollmentRepoStub{byID: map[string]*models.Enrollment{}}
	service := NewEnrollmentService(repo, &provisioningStub{}, &enrollmentUserStub{}, enrollmentClassStub{}, &identityStub{}, &mailerStub{}, nil, zap.NewNop())

	_, err := service.Apply(context.Background(), json.RawMessage(`{"version": 2, "enfant": {"prenom": "Tom", "nom": "Martin"}, "tuteurs": []}`))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, repo.createdCount)
}

func TestEnrollmentServiceApplyRequiresDesiredClass(t *testing.T) {
	repo := &enrollmentRepoStub{byID: map[string]*models.Enrollment{}}
	service := NewEnrollmentService(repo, &provisioningStub{}, &enrollmentUserStub{}, enrollmentClassStub{}, &identityStub{}, &mailerStub{}, nil, zap.NewNop())

	raw := `{"version": 2, "enfant": {"prenom": "Tom", "nom": "Martin"}, "tuteurs": [{"lien": "Pere", "prenom": "Luc", "nom": "Martin", "email": "luc@example.com"}]}`
	_, err := service.Apply(context.Background(), json.RawMessage(raw))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, repo.createdCount)
}

func TestEnrollmentServiceApplyUnknownDesiredClass(t *testing.T) {
	repo := &enrollmentRepoStub{byID: map[string]*models.Enrollment{}}
	service := NewEnrollmentService(repo, &provisioningStub{}, &enrollmentUserStub{}, enrollmentClassStub{missing: true}, &identityStub{}, &mailerStub{}, nil, zap.NewNop())

	_, err := service.Apply(context.Background(), json.RawMessage(sampleApplication))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, repo.createdCount)
}

func TestEnrollmentServiceApplyInactiveDesiredClass(t *testing.T) {
	repo := &enrollmentRepoStub{byID: map[string]*models.Enrollment{}}
	service := NewEnrollmentService(repo, &provisioningStub{}, &enrollmentUserStub{}, enrollmentClassStub{inactive: true}, &identityStub{}, &mailerStub{}, nil, zap.NewNop())

	_, err := service.Apply(context.Background(), json.RawMessage(sampleApplication))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 0, repo.createdCount)
}

func TestEnrollmentServiceAcceptProvisionsAndInvites(t *testing.T) {
	email := "awa@example.com"
	repo := &enrollmentRepoStub{byID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", Status: models.StatusEnCours, Payload: applicationPayload(t, sampleApplication)},
	}}
	provisioning := &provisioningStub{outcome: &repository.ProvisionOutcome{
		FamilyID: "family-1",
		ChildID:  "child-1",
		Guardians: []models.Guardian{
			{ID: "guardian-1", FamilyID: "family-1", FirstName: "Awa", LastName: "Diallo", Email: &email, Principal: true},
			{ID: "guardian-2", FamilyID: "family-1", FirstName: "Omar", LastName: "Diallo"},
		},
		CreatedGuardianIDs: map[string]bool{"guardian-1": true, "guardian-2": true},
	}}
	users := &enrollmentUserStub{existing: map[string]*models.User{}}
	idp := &identityStub{}
	mail := &mailerStub{}
	service := NewEnrollmentService(repo, provisioning, users, enrollmentClassStub{}, idp, mail, nil, zap.NewNop())

	result, err := service.Accept(context.Background(), "enr-1", "admin-1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActif, result.Status)
	assert.Equal(t, "family-1", result.FamilyID)
	assert.Equal(t, "child-1", result.ChildID)

	// Only the guardian with an email is invited.
	require.Len(t, result.InvitedGuardians, 1)
	invite := result.InvitedGuardians[0]
	assert.Equal(t, "guardian-1", invite.GuardianID)
	assert.True(t, invite.AccountCreated)
	assert.True(t, invite.NotificationSent)
	require.Len(t, users.created, 1)
	assert.Equal(t, models.RoleParent, users.created[0].Role)
	assert.Equal(t, models.UserStatusInvited, users.created[0].Status)
	require.NotNil(t, users.created[0].GuardianID)
	assert.Equal(t, "guardian-1", *users.created[0].GuardianID)
	assert.Equal(t, []string{email}, mail.invitations)
}

func TestEnrollmentServiceAcceptExistingAccountNotRecreated(t *testing.T) {
	email := "awa@example.com"
	repo := &enrollmentRepoStub{byID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", Status: models.StatusCandidature, Payload: applicationPayload(t, sampleApplication)},
	}}
	provisioning := &provisioningStub{outcome: &repository.ProvisionOutcome{
		FamilyID:  "family-1",
		ChildID:   "child-1",
		Guardians: []models.Guardian{{ID: "guardian-1", Email: &email}},
	}}
	users := &enrollmentUserStub{existing: map[string]*models.User{email: {ID: "user-1", Email: email}}}
	idp := &identityStub{}
	service := NewEnrollmentService(repo, provisioning, users, enrollmentClassStub{}, idp, &mailerStub{}, nil, zap.NewNop())

	result, err := service.Accept(context.Background(), "enr-1", "admin-1", nil)
	require.NoError(t, err)
	require.Len(t, result.InvitedGuardians, 1)
	assert.False(t, result.InvitedGuardians[0].AccountCreated)
	assert.Nil(t, result.InvitedGuardians[0].Error)
	assert.Empty(t, idp.invites)
	assert.Empty(t, users.created)
}

func TestEnrollmentServiceAcceptConcurrentDecision(t *testing.T) {
	repo := &enrollmentRepoStub{byID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", Status: models.StatusEnCours, Payload: applicationPayload(t, sampleApplication)},
	}}
	provisioning := &provisioningStub{err: repository.ErrAlreadyDecided}
	service := NewEnrollmentService(repo, provisioning, &enrollmentUserStub{}, enrollmentClassStub{}, &identityStub{}, &mailerStub{}, nil, zap.NewNop())

	_, err := service.Accept(context.Background(), "enr-1", "admin-1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceAcceptTerminalStatus(t *testing.T) {
	repo := &enrollmentRepoStub{byID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", Status: models.StatusActif, Payload: applicationPayload(t, sampleApplication)},
	}}
	provisioning := &provisioningStub{}
	service := NewEnrollmentService(repo, provisioning, &enrollmentUserStub{}, enrollmentClassStub{}, &identityStub{}, &mailerStub{}, nil, zap.NewNop())

	_, err := service.Accept(context.Background(), "enr-1", "admin-1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, provisioning.params)
}

func TestEnrollmentServiceAcceptRequiresGuardianEmail(t *testing.T) {
	noEmailApplication := `{
		"version": 2,
		"enfant": {"prenom": "Tom", "nom": "Martin"},
		"tuteurs": [{"lien": "Pere", "prenom": "Paul", "nom": "Martin"}]
	}`
	repo := &enrollmentRepoStub{byID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", Status: models.StatusCandidature, Payload: applicationPayload(t, noEmailApplication)},
	}}
	provisioning := &provisioningStub{}
	service := NewEnrollmentService(repo, provisioning, &enrollmentUserStub{}, enrollmentClassStub{}, &identityStub{}, &mailerStub{}, nil, zap.NewNop())

	_, err := service.Accept(context.Background(), "enr-1", "admin-1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, provisioning.params)
}

func TestEnrollmentServiceUpdateStatusActivationDelegatesToAccept(t *testing.T) {
	repo := &enrollmentRepoStub{byID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", Status: models.StatusEnCours, Payload: applicationPayload(t, sampleApplication)},
	}}
	provisioning := &provisioningStub{outcome: &repository.ProvisionOutcome{FamilyID: "family-1", ChildID: "child-1"}}
	service := NewEnrollmentService(repo, provisioning, &enrollmentUserStub{}, enrollmentClassStub{}, &identityStub{}, &mailerStub{}, nil, zap.NewNop())

	enrollment, err := service.UpdateStatus(context.Background(), "enr-1", models.UpdateEnrollmentStatusRequest{Status: models.StatusActif}, "admin-1")
	require.NoError(t, err)
	assert.NotNil(t, enrollment)

	// Activation goes through the provisioning transaction, not the
	// plain status update.
	require.Len(t, provisioning.params, 1)
	assert.Equal(t, "enr-1", provisioning.params[0].EnrollmentID)
	assert.Equal(t, 0, repo.updateCalls)
}

func TestEnrollmentServiceUpdateStatusInvalidTransition(t *testing.T) {
	repo := &enrollmentRepoStub{byID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", Status: models.StatusRejetee},
	}}
	service := NewEnrollmentService(repo, &provisioningStub{}, &enrollmentUserStub{}, enrollmentClassStub{}, &identityStub{}, &mailerStub{}, nil, zap.NewNop())

	_, err := service.UpdateStatus(context.Background(), "enr-1", models.UpdateEnrollmentStatusRequest{Status: models.StatusEnCours}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceUpdateStatusConcurrentGuard(t *testing.T) {
	repo := &enrollmentRepoStub{
		byID: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", Status: models.StatusCandidature},
		},
		updateErr: sql.ErrNoRows,
	}
	service := NewEnrollmentService(repo, &provisioningStub{}, &enrollmentUserStub{}, enrollmentClassStub{}, &identityStub{}, &mailerStub{}, nil, zap.NewNop())

	_, err := service.UpdateStatus(context.Background(), "enr-1", models.UpdateEnrollmentStatusRequest{Status: models.StatusEnCours}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceReject(t *testing.T) {
	reason := "classe complète"
	users := &enrollmentUserStub{}
	repo := &enrollmentRepoStub{byID: map[string]*models.Enrollment{
		"enr-1": {ID: "enr-1", Status: models.StatusEnCours},
	}}
	service := NewEnrollmentService(repo, &provisioningStub{}, users, enrollmentClassStub{}, &identityStub{}, &mailerStub{}, nil, zap.NewNop())

	enrollment, err := service.Reject(context.Background(), "enr-1", "admin-1", &reason)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejetee, enrollment.Status)
	assert.Equal(t, models.StatusEnCours, repo.updateFrom)
	assert.Equal(t, models.StatusRejetee, repo.updateTo)
	require.Len(t, users.logs, 1)
	assert.Equal(t, models.AuditActionEnrollmentReject, users.logs[0].Action)
}

func TestEnrollmentServiceGetNotFound(t *testing.T) {
	service := NewEnrollmentService(&enrollmentRepoStub{byID: map[string]*models.Enrollment{}}, &provisioningStub{}, &enrollmentUserStub{}, enrollmentClassStub{}, &identityStub{}, &mailerStub{}, nil, zap.NewNop())

	_, err := service.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
