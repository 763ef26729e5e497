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

type menuRepository interface {
	Create(ctx context.Context, menu *models.Menu) error
	FindByID(ctx context.Context, id string) (*models.Menu, error)
	FindByDate(ctx context.Context, date time.Time, publishedOnly bool) (*models.Menu, error)
	ListByRange(ctx context.Context, from, to time.Time, publishedOnly bool) ([]models.Menu, error)
	Update(ctx context.Context, menu *models.Menu) error
	Publish(ctx context.Context, id string, publishedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// MenuService manages daily menus. Published menu reads for parents are
// cached; any write invalidates the menu cache.
type MenuService struct {
	repo      menuRepository
	cache     *repository.CacheRepository
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMenuService constructs a MenuService.
func NewMenuService(repo menuRepository, cache *repository.CacheRepository, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *MenuService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &MenuService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Create registers a new draft menu. One menu exists per day.
func (s *MenuService) Create(ctx context.Context, req models.CreateMenuRequest, actorID string) (*models.Menu, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid menu payload")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}

	if _, err := s.repo.FindByDate(ctx, date, false); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a menu already exists for this date")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing menu")
	}

	menu := &models.Menu{
		Date:       date,
		Starter:    req.Starter,
		MainCourse: req.MainCourse,
		Dessert:    req.Dessert,
		Snack:      req.Snack,
		Allergens:  req.Allergens,
		Status:     models.MenuDraft,
		CreatedBy:  actorID,
	}
	if err := s.repo.Create(ctx, menu); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create menu")
	}
	return menu, nil
}

// Get returns one menu.
func (s *MenuService) Get(ctx context.Context, id string) (*models.Menu, error) {
	menu, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "menu not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load menu")
	}
	return menu, nil
}

// ListWeek returns the menus of a period. Non admin callers only see
// published menus, read through the cache.
func (s *MenuService) ListWeek(ctx context.Context, from, to time.Time, publishedOnly bool) ([]models.Menu, error) {
	if publishedOnly && s.cache != nil {
		key := menuCacheKey(from, to)
		var cached []models.Menu
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("menu cache read failed", zap.Error(err))
		}

		menus, err := s.repo.ListByRange(ctx, from, to, true)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list menus")
		}
		if err := s.cache.Set(ctx, key, menus, s.cacheTTL); err != nil {
			s.logger.Warn("menu cache write failed", zap.Error(err))
		}
		return menus, nil
	}

	menus, err := s.repo.ListByRange(ctx, from, to, publishedOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list menus")
	}
	return menus, nil
}

// Update changes the content of a menu.
func (s *MenuService) Update(ctx context.Context, id string, req models.UpdateMenuRequest) (*models.Menu, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid menu payload")
	}

	menu, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Starter != nil {
		menu.Starter = req.Starter
	}
	if req.MainCourse != nil {
		menu.MainCourse = *req.MainCourse
	}
	if req.Dessert != nil {
		menu.Dessert = req.Dessert
	}
	if req.Snack != nil {
		menu.Snack = req.Snack
	}
	if req.Allergens != nil {
		menu.Allergens = req.Allergens
	}

	if err := s.repo.Update(ctx, menu); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update menu")
	}
	s.invalidate(ctx)
	return menu, nil
}

// Publish makes a draft menu visible to parents.
func (s *MenuService) Publish(ctx context.Context, id string) (*models.Menu, error) {
	if err := s.repo.Publish(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "menu is not a draft")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish menu")
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete removes a draft menu.
func (s *MenuService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "only draft menus can be deleted")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete menu")
	}
	s.invalidate(ctx)
	return nil
}

func (s *MenuService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "menus:*"); err != nil {
		s.logger.Warn("menu cache invalidation failed", zap.Error(err))
	}
}

func menuCacheKey(from, to time.Time) string {
	return fmt.Sprintf("menus:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
}
