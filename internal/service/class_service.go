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

type classRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	List(ctx context.Context, ids []string, activeOnly bool) ([]models.Class, error)
	Stats(ctx context.Context, classID string) (*models.ClassStats, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
}

type classChildRepository interface {
	FindByID(ctx context.Context, id string) (*models.Child, error)
	ListByClass(ctx context.Context, classID string) ([]models.Child, error)
	AssignClass(ctx context.Context, childID string, classID *string) error
}

type classAssignmentRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.TeacherAssignment, error)
	Assign(ctx context.Context, assignment *models.TeacherAssignment) error
	End(ctx context.Context, id string, endDate time.Time) error
}

// ClassService manages classes, their rosters and teacher assignments.
type ClassService struct {
	repo        classRepository
	children    classChildRepository
	assignments classAssignmentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, children classChildRepository, assignments classAssignmentRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ClassService{repo: repo, children: children, assignments: assignments, validator: validate, logger: logger}
}

// List returns the classes visible to the scope.
func (s *ClassService) List(ctx context.Context, scope *models.AccessScope, activeOnly bool) ([]models.Class, error) {
	classes, err := s.repo.List(ctx, scope.ClassIDs, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get returns a class with its occupancy stats.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, *models.ClassStats, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	stats, err := s.repo.Stats(ctx, id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class stats")
	}
	return class, stats, nil
}

// Create registers a new class.
func (s *ClassService) Create(ctx context.Context, req models.CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if req.AgeMin != nil && req.AgeMax != nil && *req.AgeMin > *req.AgeMax {
		return nil, appErrors.Clone(appErrors.ErrValidation, "age_min exceeds age_max")
	}

	class := &models.Class{
		Name:     req.Name,
		AgeMin:   req.AgeMin,
		AgeMax:   req.AgeMax,
		Capacity: req.Capacity,
		Active:   true,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update changes mutable fields of a class.
func (s *ClassService) Update(ctx context.Context, id string, req models.UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class, _, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		class.Name = *req.Name
	}
	if req.AgeMin != nil {
		class.AgeMin = req.AgeMin
	}
	if req.AgeMax != nil {
		class.AgeMax = req.AgeMax
	}
	if req.Capacity != nil {
		class.Capacity = *req.Capacity
	}
	if req.Active != nil {
		class.Active = *req.Active
	}
	if class.AgeMin != nil && class.AgeMax != nil && *class.AgeMin > *class.AgeMax {
		return nil, appErrors.Clone(appErrors.ErrValidation, "age_min exceeds age_max")
	}

	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Roster returns the children of a class.
func (s *ClassService) Roster(ctx context.Context, scope *models.AccessScope, classID string) ([]models.Child, error) {
	if scope.ClassIDs != nil && !contains(scope.ClassIDs, classID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class outside of access scope")
	}
	children, err := s.children.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class children")
	}
	return children, nil
}

// AssignChild moves a child into the class, respecting capacity.
func (s *ClassService) AssignChild(ctx context.Context, classID, childID string) error {
	class, stats, err := s.Get(ctx, classID)
	if err != nil {
		return err
	}
	if stats != nil && stats.ChildCount >= class.Capacity {
		return appErrors.Clone(appErrors.ErrConflict, "class is at capacity")
	}
	if _, err := s.children.FindByID(ctx, childID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	if err := s.children.AssignClass(ctx, childID, &classID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign child")
	}
	return nil
}

// RemoveChild moves a child out of any class.
func (s *ClassService) RemoveChild(ctx context.Context, childID string) error {
	if err := s.children.AssignClass(ctx, childID, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign child")
	}
	return nil
}

// AssignTeacher opens a new teacher assignment on the class.
func (s *ClassService) AssignTeacher(ctx context.Context, classID string, req models.AssignTeacherRequest) (*models.TeacherAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if _, _, err := s.Get(ctx, classID); err != nil {
		return nil, err
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date")
	}

	assignment := &models.TeacherAssignment{
		UserID:    req.UserID,
		ClassID:   classID,
		StartDate: startDate,
	}
	if err := s.assignments.Assign(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign teacher")
	}
	return assignment, nil
}

// EndTeacherAssignment closes a teacher assignment as of today.
func (s *ClassService) EndTeacherAssignment(ctx context.Context, assignmentID string) error {
	if err := s.assignments.End(ctx, assignmentID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end assignment")
	}
	return nil
}

// Assignments returns the assignment history of a class.
func (s *ClassService) Assignments(ctx context.Context, classID string) ([]models.TeacherAssignment, error) {
	assignments, err := s.assignments.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}
