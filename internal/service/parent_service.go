package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/wlwcreche/creche-api/internal/models"
	"github.com/wlwcreche/creche-api/internal/repository"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
)

type parentChildRepository interface {
	ListSummariesByFamily(ctx context.Context, familyID string) ([]models.ChildSummary, error)
}

type parentGuardianRepository interface {
	FindGuardianByID(ctx context.Context, id string) (*models.Guardian, error)
	UpdateGuardian(ctx context.Context, guardian *models.Guardian) error
}

type parentUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type parentAttendanceRepository interface {
	FindByChildAndDate(ctx context.Context, childID string, date time.Time) (*models.Attendance, error)
}

type parentSummaryRepository interface {
	FindByChildAndDate(ctx context.Context, childID string, date time.Time) (*models.DailySummary, error)
}

type parentJournalRepository interface {
	FindPublishedByClassAndDate(ctx context.Context, classID string, date time.Time) (*models.ClassJournal, error)
}

type parentMenuRepository interface {
	FindByDate(ctx context.Context, date time.Time, publishedOnly bool) (*models.Menu, error)
}

type parentEventRepository interface {
	ListByRange(ctx context.Context, from, to time.Time, classIDs []string) ([]models.Event, error)
}

// ParentService assembles the daily dashboard of a parent account. The
// assembled payload is cached per guardian and day.
type ParentService struct {
	guardians  parentGuardianRepository
	users      parentUserRepository
	children   parentChildRepository
	attendance parentAttendanceRepository
	summaries  parentSummaryRepository
	journals   parentJournalRepository
	menus      parentMenuRepository
	events     parentEventRepository
	cache      *repository.CacheRepository
	cacheTTL   time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewParentService constructs a ParentService.
func NewParentService(
	guardians parentGuardianRepository,
	users parentUserRepository,
	children parentChildRepository,
	attendance parentAttendanceRepository,
	summaries parentSummaryRepository,
	journals parentJournalRepository,
	menus parentMenuRepository,
	events parentEventRepository,
	cache *repository.CacheRepository,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *ParentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	return &ParentService{
		guardians:  guardians,
		users:      users,
		children:   children,
		attendance: attendance,
		summaries:  summaries,
		journals:   journals,
		menus:      menus,
		events:     events,
		cache:      cache,
		cacheTTL:   cacheTTL,
		validator:  validate,
		logger:     logger,
	}
}

// Profile returns the account, guardian and children of the caller.
func (s *ParentService) Profile(ctx context.Context, claims *models.JWTClaims) (*models.ParentProfile, error) {
	if claims.Role != models.RoleParent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "profile is for parent accounts")
	}
	if claims.GuardianID == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no guardian linked to this account")
	}

	guardian, err := s.guardians.FindGuardianByID(ctx, *claims.GuardianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "guardian not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve guardian")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}

	children, err := s.children.ListSummariesByFamily(ctx, guardian.FamilyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list children")
	}

	return &models.ParentProfile{
		UserID:     user.ID,
		Email:      user.Email,
		FirstName:  guardian.FirstName,
		LastName:   guardian.LastName,
		Phone:      guardian.Phone,
		Address:    guardian.Address,
		GuardianID: guardian.ID,
		FamilyID:   guardian.FamilyID,
		Children:   children,
	}, nil
}

// UpdateProfile changes the contact fields of the caller's guardian.
func (s *ParentService) UpdateProfile(ctx context.Context, claims *models.JWTClaims, req models.UpdateParentProfileRequest) (*models.ParentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if claims.Role != models.RoleParent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "profile is for parent accounts")
	}
	if claims.GuardianID == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no guardian linked to this account")
	}

	guardian, err := s.guardians.FindGuardianByID(ctx, *claims.GuardianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "guardian not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve guardian")
	}

	if req.Phone != nil {
		guardian.Phone = req.Phone
	}
	if req.Address != nil {
		guardian.Address = req.Address
	}
	if err := s.guardians.UpdateGuardian(ctx, guardian); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update guardian")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "dashboard:"+guardian.ID+":*"); err != nil {
			s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
		}
	}
	return s.Profile(ctx, claims)
}

// Dashboard assembles today's view for the guardian behind the claims.
// A parent without a linked guardian gets an empty dashboard.
func (s *ParentService) Dashboard(ctx context.Context, claims *models.JWTClaims, day time.Time) (*models.ParentDashboard, error) {
	if claims.Role != models.RoleParent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "dashboard is for parent accounts")
	}

	dashboard := &models.ParentDashboard{Date: day, Children: []models.ChildDashboardEntry{}, Events: []models.Event{}}
	if claims.GuardianID == nil {
		return dashboard, nil
	}

	cacheKey := dashboardCacheKey(*claims.GuardianID, day)
	if s.cache != nil {
		var cached models.ParentDashboard
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	guardian, err := s.guardians.FindGuardianByID(ctx, *claims.GuardianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dashboard, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve guardian")
	}

	children, err := s.children.ListSummariesByFamily(ctx, guardian.FamilyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list children")
	}

	classIDs := []string{}
	for _, child := range children {
		entry := models.ChildDashboardEntry{Child: child}

		if attendance, err := s.attendance.FindByChildAndDate(ctx, child.ID, day); err == nil {
			entry.Attendance = attendance
		} else if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("dashboard attendance lookup failed", zap.String("child_id", child.ID), zap.Error(err))
		}

		if summary, err := s.summaries.FindByChildAndDate(ctx, child.ID, day); err == nil {
			entry.Summary = summary
		} else if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("dashboard summary lookup failed", zap.String("child_id", child.ID), zap.Error(err))
		}

		if child.ClassID != nil {
			if journal, err := s.journals.FindPublishedByClassAndDate(ctx, *child.ClassID, day); err == nil {
				entry.Journal = journal
			} else if !errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("dashboard journal lookup failed", zap.String("class_id", *child.ClassID), zap.Error(err))
			}
			if !contains(classIDs, *child.ClassID) {
				classIDs = append(classIDs, *child.ClassID)
			}
		}

		dashboard.Children = append(dashboard.Children, entry)
	}

	if menu, err := s.menus.FindByDate(ctx, day, true); err == nil {
		dashboard.Menu = menu
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("dashboard menu lookup failed", zap.Error(err))
	}

	weekEnd := day.AddDate(0, 0, 7)
	if events, err := s.events.ListByRange(ctx, day, weekEnd, classIDs); err == nil {
		dashboard.Events = events
	} else {
		s.logger.Warn("dashboard events lookup failed", zap.Error(err))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, dashboard, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return dashboard, nil
}

func dashboardCacheKey(guardianID string, day time.Time) string {
	return fmt.Sprintf("dashboard:%s:%s", guardianID, day.Format("2006-01-02"))
}
