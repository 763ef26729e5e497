package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/wlwcreche/creche-api/internal/models"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
)

type dailySummaryRepository interface {
	Upsert(ctx context.Context, summary *models.DailySummary) error
	FindByChildAndDate(ctx context.Context, childID string, date time.Time) (*models.DailySummary, error)
	ListByChildAndRange(ctx context.Context, childID string, from, to time.Time) ([]models.DailySummary, error)
	ListByClassAndDate(ctx context.Context, classID string, date time.Time) ([]models.DailySummary, error)
}

// DailySummaryService manages per-child daily reports.
type DailySummaryService struct {
	repo      dailySummaryRepository
	children  attendanceChildRepository
	access    *AccessService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDailySummaryService constructs a DailySummaryService.
func NewDailySummaryService(repo dailySummaryRepository, children attendanceChildRepository, access *AccessService, validate *validator.Validate, logger *zap.Logger) *DailySummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DailySummaryService{repo: repo, children: children, access: access, validator: validate, logger: logger}
}

// Upsert writes or overwrites a child's summary for a day.
func (s *DailySummaryService) Upsert(ctx context.Context, scope *models.AccessScope, req models.UpsertDailySummaryRequest, actorID string) (*models.DailySummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid summary payload")
	}

	child, err := s.children.FindByID(ctx, req.ChildID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	if child.ClassID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "child is not assigned to a class")
	}
	if err := s.access.AuthorizeClass(scope, *child.ClassID); err != nil {
		return nil, err
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}

	summary := &models.DailySummary{
		ChildID:  req.ChildID,
		Date:     date,
		Mood:     req.Mood,
		Meals:    req.Meals,
		Nap:      req.Nap,
		Hygiene:  req.Hygiene,
		Activity: req.Activity,
		Comment:  req.Comment,
		AuthorID: actorID,
	}
	if err := s.repo.Upsert(ctx, summary); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store summary")
	}
	return summary, nil
}

// GetForChild returns a child's summary for a day.
func (s *DailySummaryService) GetForChild(ctx context.Context, scope *models.AccessScope, childID string, date time.Time) (*models.DailySummary, error) {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	if err := s.access.AuthorizeChild(scope, childID, child.ClassID); err != nil {
		return nil, err
	}

	summary, err := s.repo.FindByChildAndDate(ctx, childID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no summary for this day")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load summary")
	}
	return summary, nil
}

// History returns a child's summaries over a period.
func (s *DailySummaryService) History(ctx context.Context, scope *models.AccessScope, childID string, from, to time.Time) ([]models.DailySummary, error) {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	if err := s.access.AuthorizeChild(scope, childID, child.ClassID); err != nil {
		return nil, err
	}

	summaries, err := s.repo.ListByChildAndRange(ctx, childID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list summaries")
	}
	return summaries, nil
}

// ListByClass returns the summaries of a class for a day.
func (s *DailySummaryService) ListByClass(ctx context.Context, scope *models.AccessScope, classID string, date time.Time) ([]models.DailySummary, error) {
	if err := s.access.AuthorizeClass(scope, classID); err != nil {
		return nil, err
	}
	summaries, err := s.repo.ListByClassAndDate(ctx, classID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class summaries")
	}
	return summaries, nil
}
