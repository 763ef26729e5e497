package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/wlwcreche/creche-api/internal/models"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
)

type familyRepository interface {
	FindByID(ctx context.Context, id string) (*models.Family, error)
	List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, int, error)
	ListGuardians(ctx context.Context, familyID string) ([]models.Guardian, error)
}

type familyChildRepository interface {
	ListByFamily(ctx context.Context, familyID string) ([]models.Child, error)
}

// FamilyService exposes read access to families and their members.
// Families are created through enrollment provisioning, not directly.
type FamilyService struct {
	repo     familyRepository
	children familyChildRepository
	logger   *zap.Logger
}

// NewFamilyService constructs a FamilyService.
func NewFamilyService(repo familyRepository, children familyChildRepository, logger *zap.Logger) *FamilyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FamilyService{repo: repo, children: children, logger: logger}
}

// List returns families matching the filter.
func (s *FamilyService) List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, *models.Pagination, error) {
	families, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list families")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return families, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns one family with its guardians and children.
func (s *FamilyService) Get(ctx context.Context, id string) (*models.FamilyDetail, error) {
	family, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load family")
	}

	guardians, err := s.repo.ListGuardians(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardians")
	}
	children, err := s.children.ListByFamily(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load children")
	}

	return &models.FamilyDetail{Family: *family, Guardians: guardians, Children: children}, nil
}
