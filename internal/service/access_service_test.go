package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wlwcreche/creche-api/internal/models"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
)

type assignmentRepoStub struct {
	classIDs map[string][]string
	err      error
}

func (s assignmentRepoStub) CurrentClassIDs(ctx context.Context, userID string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.classIDs[userID], nil
}

type guardianRepoStub struct {
	guardians map[string]*models.Guardian
}

func (s guardianRepoStub) FindGuardianByID(ctx context.Context, id string) (*models.Guardian, error) {
	if guardian, ok := s.guardians[id]; ok {
		return guardian, nil
	}
	return nil, sql.ErrNoRows
}

func (s guardianRepoStub) UpdateGuardian(ctx context.Context, guardian *models.Guardian) error {
	if _, ok := s.guardians[guardian.ID]; !ok {
		return sql.ErrNoRows
	}
	s.guardians[guardian.ID] = guardian
	return nil
}

type childSummaryRepoStub struct {
	byFamily map[string][]models.ChildSummary
}

func (s childSummaryRepoStub) ListSummariesByFamily(ctx context.Context, familyID string) ([]models.ChildSummary, error) {
	return s.byFamily[familyID], nil
}

func newAccessService(assignments assignmentRepoStub, guardians guardianRepoStub, children childSummaryRepoStub) *AccessService {
	return NewAccessService(assignments, guardians, children, zap.NewNop())
}

func TestAccessServiceResolveAdminUnrestricted(t *testing.T) {
	service := newAccessService(assignmentRepoStub{}, guardianRepoStub{}, childSummaryRepoStub{})

	scope, err := service.Resolve(context.Background(), &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Nil(t, scope.ClassIDs)
	assert.Nil(t, scope.ChildIDs)
	assert.True(t, scope.Unrestricted())
}

func TestAccessServiceResolveTeacherClasses(t *testing.T) {
	service := newAccessService(
		assignmentRepoStub{classIDs: map[string][]string{"teacher-1": {"class-a", "class-b"}}},
		guardianRepoStub{}, childSummaryRepoStub{})

	scope, err := service.Resolve(context.Background(), &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	require.NoError(t, err)
	assert.Equal(t, []string{"class-a", "class-b"}, scope.ClassIDs)

	assert.NoError(t, service.AuthorizeClass(scope, "class-a"))
	err = service.AuthorizeClass(scope, "class-z")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAccessServiceResolveTeacherWithoutAssignments(t *testing.T) {
	service := newAccessService(assignmentRepoStub{}, guardianRepoStub{}, childSummaryRepoStub{})

	// The assignments lookup returns a nil slice for an unassigned
	// teacher; the scope must still read as empty, never unrestricted.
	scope, err := service.Resolve(context.Background(), &models.JWTClaims{UserID: "teacher-9", Role: models.RoleTeacher})
	require.NoError(t, err)
	require.NotNil(t, scope.ClassIDs)
	assert.Empty(t, scope.ClassIDs)
	assert.False(t, scope.Unrestricted())

	err = service.AuthorizeClass(scope, "class-a")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAccessServiceResolveParentChildren(t *testing.T) {
	guardianID := "guardian-1"
	classID := "class-a"
	service := newAccessService(
		assignmentRepoStub{},
		guardianRepoStub{guardians: map[string]*models.Guardian{
			guardianID: {ID: guardianID, FamilyID: "family-1"},
		}},
		childSummaryRepoStub{byFamily: map[string][]models.ChildSummary{
			"family-1": {
				{ID: "child-1", ClassID: &classID},
				{ID: "child-2"},
			},
		}})

	scope, err := service.Resolve(context.Background(), &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent, GuardianID: &guardianID})
	require.NoError(t, err)
	assert.Equal(t, []string{"child-1", "child-2"}, scope.ChildIDs)
	assert.Equal(t, []string{"class-a"}, scope.ClassIDs)

	assert.NoError(t, service.AuthorizeChild(scope, "child-1", &classID))
	err = service.AuthorizeChild(scope, "child-9", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAccessServiceResolveParentWithoutGuardianLink(t *testing.T) {
	service := newAccessService(assignmentRepoStub{}, guardianRepoStub{}, childSummaryRepoStub{})

	// No guardian link yields an empty scope, not an error. Empty
	// non-nil slices mean no access and translate into empty results.
	scope, err := service.Resolve(context.Background(), &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent})
	require.NoError(t, err)
	require.NotNil(t, scope.ChildIDs)
	require.NotNil(t, scope.ClassIDs)
	assert.Empty(t, scope.ChildIDs)
	assert.False(t, scope.Unrestricted())

	err = service.AuthorizeClass(scope, "class-a")
	require.Error(t, err)
}

func TestAccessServiceResolveParentGuardianMissing(t *testing.T) {
	guardianID := "guardian-gone"
	service := newAccessService(assignmentRepoStub{}, guardianRepoStub{}, childSummaryRepoStub{})

	scope, err := service.Resolve(context.Background(), &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent, GuardianID: &guardianID})
	require.NoError(t, err)
	assert.Empty(t, scope.ChildIDs)
}

func TestAccessServiceResolveUnknownRole(t *testing.T) {
	service := newAccessService(assignmentRepoStub{}, guardianRepoStub{}, childSummaryRepoStub{})

	_, err := service.Resolve(context.Background(), &models.JWTClaims{UserID: "x", Role: models.Role("AUDITOR")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAccessServiceAuthorizeChildTeacherByClass(t *testing.T) {
	service := newAccessService(assignmentRepoStub{}, guardianRepoStub{}, childSummaryRepoStub{})
	classID := "class-a"
	scope := &models.AccessScope{Role: models.RoleTeacher, UserID: "teacher-1", ClassIDs: []string{classID}}

	assert.NoError(t, service.AuthorizeChild(scope, "child-1", &classID))
	require.Error(t, service.AuthorizeChild(scope, "child-1", nil))
}
