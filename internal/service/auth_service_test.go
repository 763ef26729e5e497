package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/wlwcreche/creche-api/internal/models"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
)

type authRepoStub struct {
	usersByEmail  map[string]*models.User
	usersByID     map[string]*models.User
	tokens        map[string]*models.RefreshToken
	createdTokens []*models.RefreshToken
	revokedIDs    []string
	revokedUsers  []string
	passwords     map[string]string
	logs          []*models.AuditLog
	lastLogin     map[string]time.Time
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		usersByEmail: map[string]*models.User{},
		usersByID:    map[string]*models.User{},
		tokens:       map[string]*models.RefreshToken{},
		passwords:    map[string]string{},
		lastLogin:    map[string]time.Time{},
	}
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.usersByID[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	s.lastLogin[id] = ts
	return nil
}

func (s *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	s.passwords[id] = passwordHash
	return nil
}

func (s *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	s.revokedUsers = append(s.revokedUsers, userID)
	return nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.tokens[token.TokenHash] = token
	s.createdTokens = append(s.createdTokens, token)
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	if token, ok := s.tokens[tokenHash]; ok {
		return token, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	s.revokedIDs = append(s.revokedIDs, id)
	return nil
}

func (s *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "creche-api",
	}
}

func seedUser(t *testing.T, repo *authRepoStub, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	guardianID := "guardian-1"
	user := &models.User{
		ID:           "user-1",
		Email:        "awa@example.com",
		PasswordHash: string(hash),
		FirstName:    "Awa",
		LastName:     "Diallo",
		Language:     "fr",
		Role:         models.RoleParent,
		Status:       models.UserStatusActive,
		GuardianID:   &guardianID,
	}
	repo.usersByEmail[user.Email] = user
	repo.usersByID[user.ID] = user
	return user
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newAuthRepoStub()
	user := seedUser(t, repo, "s3cret-pass")
	service := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	resp, err := service.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, user.ID, resp.User.ID)
	require.Len(t, repo.createdTokens, 1)
	assert.NotEqual(t, resp.RefreshToken, repo.createdTokens[0].TokenHash, "refresh token must be stored hashed")
	require.Len(t, repo.logs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.logs[0].Action)

	// The issued access token round-trips through validation with the
	// guardian claim intact.
	claims, err := service.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleParent, claims.Role)
	require.NotNil(t, claims.GuardianID)
	assert.Equal(t, "guardian-1", *claims.GuardianID)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newAuthRepoStub()
	user := seedUser(t, repo, "s3cret-pass")
	service := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	_, err := service.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "nope-nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	repo := newAuthRepoStub()
	service := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	_, err := service.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "whatever1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginDisabledAccount(t *testing.T) {
	repo := newAuthRepoStub()
	user := seedUser(t, repo, "s3cret-pass")
	user.Status = models.UserStatusDisabled
	service := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	_, err := service.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshToken(t *testing.T) {
	repo := newAuthRepoStub()
	user := seedUser(t, repo, "s3cret-pass")
	service := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	login, err := service.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	require.NoError(t, err)

	resp, err := service.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	claims, err := service.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestAuthServiceRefreshTokenRevoked(t *testing.T) {
	repo := newAuthRepoStub()
	user := seedUser(t, repo, "s3cret-pass")
	service := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	login, err := service.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	require.NoError(t, err)

	revokedAt := time.Now().UTC()
	repo.createdTokens[0].RevokedAt = &revokedAt

	_, err = service.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshTokenUnknown(t *testing.T) {
	repo := newAuthRepoStub()
	service := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	_, err := service.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "not-a-token"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutRevokesToken(t *testing.T) {
	repo := newAuthRepoStub()
	user := seedUser(t, repo, "s3cret-pass")
	service := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	login, err := service.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "s3cret-pass"})
	require.NoError(t, err)

	require.NoError(t, service.Logout(context.Background(), login.RefreshToken, user.ID))
	require.Len(t, repo.revokedIDs, 1)

	err = service.Logout(context.Background(), login.RefreshToken, "someone-else")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := newAuthRepoStub()
	user := seedUser(t, repo, "s3cret-pass")
	service := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	err := service.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		CurrentPassword: "s3cret-pass",
		NewPassword:     "brand-new-pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, repo.passwords[user.ID])
	assert.Equal(t, []string{user.ID}, repo.revokedUsers)
}

func TestAuthServiceChangePasswordWrongCurrent(t *testing.T) {
	repo := newAuthRepoStub()
	user := seedUser(t, repo, "s3cret-pass")
	service := NewAuthService(repo, nil, zap.NewNop(), testAuthConfig())

	err := service.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		CurrentPassword: "wrong-pass-1",
		NewPassword:     "brand-new-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	service := NewAuthService(newAuthRepoStub(), nil, zap.NewNop(), testAuthConfig())

	_, err := service.ValidateToken("not.a.jwt")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
