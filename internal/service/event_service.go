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

type eventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id string) (*models.Event, error)
	ListByRange(ctx context.Context, from, to time.Time, classIDs []string) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
}

// EventService manages the activity calendar.
type EventService struct {
	repo      eventRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs an EventService.
func NewEventService(repo eventRepository, validate *validator.Validate, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EventService{repo: repo, validator: validate, logger: logger}
}

// Create registers a new event.
func (s *EventService) Create(ctx context.Context, scope *models.AccessScope, req models.CreateEventRequest, actorID string) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if req.ClassID != nil {
		if err := s.accessClass(scope, *req.ClassID); err != nil {
			return nil, err
		}
	} else if scope.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can create center wide events")
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time")
	}
	var endsAt *time.Time
	if req.EndsAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.EndsAt)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time")
		}
		if parsed.Before(startsAt) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "event ends before it starts")
		}
		endsAt = &parsed
	}

	event := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		ClassID:     req.ClassID,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Location:    req.Location,
		CreatedBy:   actorID,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	return event, nil
}

// List returns events overlapping a period, narrowed to the scope.
func (s *EventService) List(ctx context.Context, scope *models.AccessScope, from, to time.Time) ([]models.Event, error) {
	events, err := s.repo.ListByRange(ctx, from, to, scope.ClassIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

// Update changes mutable fields of an event.
func (s *EventService) Update(ctx context.Context, scope *models.AccessScope, id string, req models.UpdateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.ClassID != nil {
		if err := s.accessClass(scope, *event.ClassID); err != nil {
			return nil, err
		}
	} else if scope.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can edit center wide events")
	}

	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = req.Description
	}
	if req.Location != nil {
		event.Location = req.Location
	}
	if req.StartsAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.StartsAt)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time")
		}
		event.StartsAt = parsed
	}
	if req.EndsAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.EndsAt)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time")
		}
		event.EndsAt = &parsed
	}
	if event.EndsAt != nil && event.EndsAt.Before(event.StartsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event ends before it starts")
	}

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	return event, nil
}

// Delete removes an event.
func (s *EventService) Delete(ctx context.Context, scope *models.AccessScope, id string) error {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event.ClassID != nil {
		if err := s.accessClass(scope, *event.ClassID); err != nil {
			return err
		}
	} else if scope.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins can delete center wide events")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	return nil
}

func (s *EventService) accessClass(scope *models.AccessScope, classID string) error {
	if scope.ClassIDs == nil {
		return nil
	}
	if contains(scope.ClassIDs, classID) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "class outside of access scope")
}
