package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/wlwcreche/creche-api/internal/models"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
)

type accessAssignmentRepository interface {
	CurrentClassIDs(ctx context.Context, userID string) ([]string, error)
}

type accessGuardianRepository interface {
	FindGuardianByID(ctx context.Context, id string) (*models.Guardian, error)
}

type accessChildRepository interface {
	ListSummariesByFamily(ctx context.Context, familyID string) ([]models.ChildSummary, error)
}

// AccessService resolves the data scope of a request from its claims.
// Administrators see everything. Teachers are narrowed to the classes
// they are currently assigned to, parents to the children of their
// family. An empty scope is a valid outcome and yields empty results
// downstream rather than an error.
type AccessService struct {
	assignments accessAssignmentRepository
	guardians   accessGuardianRepository
	children    accessChildRepository
	logger      *zap.Logger
}

// NewAccessService constructs an AccessService.
func NewAccessService(assignments accessAssignmentRepository, guardians accessGuardianRepository, children accessChildRepository, logger *zap.Logger) *AccessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessService{assignments: assignments, guardians: guardians, children: children, logger: logger}
}

// Resolve computes the access scope for the given claims.
func (s *AccessService) Resolve(ctx context.Context, claims *models.JWTClaims) (*models.AccessScope, error) {
	scope := &models.AccessScope{Role: claims.Role, UserID: claims.UserID}

	switch claims.Role {
	case models.RoleAdmin:
		return scope, nil

	case models.RoleTeacher:
		classIDs, err := s.assignments.CurrentClassIDs(ctx, claims.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher classes")
		}
		if classIDs == nil {
			// A nil slice would read as an unrestricted scope.
			classIDs = []string{}
		}
		scope.ClassIDs = classIDs
		return scope, nil

	case models.RoleParent:
		scope.ChildIDs = []string{}
		scope.ClassIDs = []string{}
		if claims.GuardianID == nil {
			return scope, nil
		}
		guardian, err := s.guardians.FindGuardianByID(ctx, *claims.GuardianID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return scope, nil
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve guardian")
		}
		children, err := s.children.ListSummariesByFamily(ctx, guardian.FamilyID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve family children")
		}
		for _, child := range children {
			scope.ChildIDs = append(scope.ChildIDs, child.ID)
			if child.ClassID != nil && !contains(scope.ClassIDs, *child.ClassID) {
				scope.ClassIDs = append(scope.ClassIDs, *child.ClassID)
			}
		}
		return scope, nil
	}

	return nil, appErrors.Clone(appErrors.ErrForbidden, "unknown role")
}

// AuthorizeClass checks that the scope covers the given class.
func (s *AccessService) AuthorizeClass(scope *models.AccessScope, classID string) error {
	if scope.ClassIDs == nil {
		return nil
	}
	if contains(scope.ClassIDs, classID) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "class outside of access scope")
}

// AuthorizeChild checks that the scope covers the given child. Teacher
// scopes are class based, so the child's class is consulted.
func (s *AccessService) AuthorizeChild(scope *models.AccessScope, childID string, childClassID *string) error {
	if scope.Role == models.RoleAdmin {
		return nil
	}
	if scope.ChildIDs != nil {
		if contains(scope.ChildIDs, childID) {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "child outside of access scope")
	}
	if scope.ClassIDs != nil {
		if childClassID != nil && contains(scope.ClassIDs, *childClassID) {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "child outside of access scope")
	}
	return nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
