package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wlwcreche/creche-api/internal/models"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
)

type userRepoStub struct {
	byEmail   map[string]*models.User
	created   []*models.User
	auditLogs []*models.AuditLog
}

func (s *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range s.created {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	out := make([]models.User, 0, len(s.created))
	for _, u := range s.created {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-" + user.Email
	s.created = append(s.created, user)
	if s.byEmail == nil {
		s.byEmail = map[string]*models.User{}
	}
	s.byEmail[user.Email] = user
	return nil
}

func (s *userRepoStub) Update(ctx context.Context, user *models.User) error { return nil }

func (s *userRepoStub) Disable(ctx context.Context, id string) error { return nil }

func (s *userRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.auditLogs = append(s.auditLogs, log)
	return nil
}

func TestUserServiceCreate(t *testing.T) {
	repo := &userRepoStub{}
	service := NewUserService(repo, &identityStub{}, &mailerStub{}, nil, nil)

	user, err := service.Create(context.Background(), models.CreateUserRequest{
		Email:     "claire@example.test",
		Password:  "correct-horse",
		FirstName: "Claire",
		LastName:  "Petit",
		Role:      models.RoleTeacher,
	}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, models.UserStatusActive, user.Status)
	assert.NotNil(t, user.ActivatedAt)
	assert.Equal(t, "fr", user.Language)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")))
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionCreate, repo.auditLogs[0].Action)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := &userRepoStub{byEmail: map[string]*models.User{
		"claire@example.test": {Email: "claire@example.test"},
	}}
	service := NewUserService(repo, &identityStub{}, &mailerStub{}, nil, nil)

	_, err := service.Create(context.Background(), models.CreateUserRequest{
		Email:     "claire@example.test",
		Password:  "correct-horse",
		FirstName: "Claire",
		LastName:  "Petit",
		Role:      models.RoleTeacher,
	}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestUserServiceInvite(t *testing.T) {
	repo := &userRepoStub{}
	idp := &identityStub{}
	mail := &mailerStub{}
	service := NewUserService(repo, idp, mail, nil, nil)

	user, err := service.Invite(context.Background(), models.InviteUserRequest{
		Email:     "marc@example.test",
		FirstName: "Marc",
		LastName:  "Dubois",
		Role:      models.RoleTeacher,
	}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, models.UserStatusInvited, user.Status)
	assert.NotNil(t, user.InvitedAt)
	assert.Nil(t, user.ActivatedAt)
	require.NotNil(t, user.AuthUserID)
	assert.Equal(t, "ext-marc@example.test", *user.AuthUserID)
	assert.Equal(t, []string{"marc@example.test"}, idp.invites)
	assert.Equal(t, []string{"marc@example.test"}, mail.invitations)
}

func TestUserServiceInviteDuplicateEmail(t *testing.T) {
	repo := &userRepoStub{byEmail: map[string]*models.User{
		"marc@example.test": {Email: "marc@example.test"},
	}}
	idp := &identityStub{}
	service := NewUserService(repo, idp, &mailerStub{}, nil, nil)

	_, err := service.Invite(context.Background(), models.InviteUserRequest{
		Email:     "marc@example.test",
		FirstName: "Marc",
		LastName:  "Dubois",
		Role:      models.RoleTeacher,
	}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, idp.invites)
}

func TestUserServiceInviteIdentityFailure(t *testing.T) {
	repo := &userRepoStub{}
	idp := &identityStub{err: context.DeadlineExceeded}
	service := NewUserService(repo, idp, &mailerStub{}, nil, nil)

	_, err := service.Invite(context.Background(), models.InviteUserRequest{
		Email:     "marc@example.test",
		FirstName: "Marc",
		LastName:  "Dubois",
		Role:      models.RoleParent,
	}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestUserServiceInviteInvalidEmail(t *testing.T) {
	service := NewUserService(&userRepoStub{}, &identityStub{}, &mailerStub{}, nil, nil)

	_, err := service.Invite(context.Background(), models.InviteUserRequest{
		Email:     "not-an-email",
		FirstName: "Marc",
		LastName:  "Dubois",
		Role:      models.RoleTeacher,
	}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
