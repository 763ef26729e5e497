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

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.Attendance) error
	UpsertBulk(ctx context.Context, records []*models.Attendance) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error)
	ListByClassAndDate(ctx context.Context, classID string, date time.Time) ([]models.Attendance, error)
	ListByChildAndRange(ctx context.Context, childID string, from, to time.Time) ([]models.Attendance, error)
	Summarize(ctx context.Context, classID string, from, to time.Time) ([]models.AttendanceSummary, error)
}

type attendanceChildRepository interface {
	FindByID(ctx context.Context, id string) (*models.Child, error)
}

// AttendanceService records and reads daily presence.
type AttendanceService struct {
	repo      attendanceRepository
	children  attendanceChildRepository
	access    *AccessService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(repo attendanceRepository, children attendanceChildRepository, access *AccessService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttendanceService{repo: repo, children: children, access: access, validator: validate, logger: logger}
}

// RecordOne upserts a single attendance row. The class is the child's
// current class.
func (s *AttendanceService) RecordOne(ctx context.Context, scope *models.AccessScope, req models.UpsertAttendanceRequest, actorID string) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
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

	record := &models.Attendance{
		ChildID:    req.ChildID,
		ClassID:    *child.ClassID,
		Date:       date,
		Status:     req.Status,
		Note:       req.Note,
		RecordedBy: actorID,
	}
	record.ArrivedAt = parseClockTime(date, req.ArrivedAt)
	record.LeftAt = parseClockTime(date, req.LeftAt)

	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	return record, nil
}

// Record writes a batch of attendance rows for a class day.
func (s *AttendanceService) Record(ctx context.Context, scope *models.AccessScope, req models.BulkAttendanceRequest, actorID string) ([]models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if err := s.access.AuthorizeClass(scope, req.ClassID); err != nil {
		return nil, err
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}

	records := make([]*models.Attendance, 0, len(req.Records))
	for _, entry := range req.Records {
		if !entry.Status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
		}
		child, err := s.children.FindByID(ctx, entry.ChildID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
		}
		if child.ClassID == nil || *child.ClassID != req.ClassID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "child does not belong to the class")
		}

		record := &models.Attendance{
			ChildID:    entry.ChildID,
			ClassID:    req.ClassID,
			Date:       date,
			Status:     entry.Status,
			Note:       entry.Note,
			RecordedBy: actorID,
		}
		record.ArrivedAt = parseClockTime(date, entry.ArrivedAt)
		record.LeftAt = parseClockTime(date, entry.LeftAt)
		records = append(records, record)
	}

	if err := s.repo.UpsertBulk(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}

	out := make([]models.Attendance, 0, len(records))
	for _, record := range records {
		out = append(out, *record)
	}
	return out, nil
}

// List returns attendance across the caller's scope. A teacher with no
// current class or a parent with no children gets an empty page, not an
// error.
func (s *AttendanceService) List(ctx context.Context, scope *models.AccessScope, filter models.AttendanceFilter) ([]models.Attendance, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	switch {
	case scope.ChildIDs != nil:
		if len(scope.ChildIDs) == 0 {
			return []models.Attendance{}, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: 0}, nil
		}
		filter.ChildIDs = scope.ChildIDs
	case scope.ClassIDs != nil:
		if len(scope.ClassIDs) == 0 {
			return []models.Attendance{}, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: 0}, nil
		}
		filter.ClassIDs = scope.ClassIDs
	}

	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ListByClass returns the attendance of a class for one day.
func (s *AttendanceService) ListByClass(ctx context.Context, scope *models.AccessScope, classID string, date time.Time) ([]models.Attendance, error) {
	if err := s.access.AuthorizeClass(scope, classID); err != nil {
		return nil, err
	}
	records, err := s.repo.ListByClassAndDate(ctx, classID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// ListByChild returns a child's attendance over a period.
func (s *AttendanceService) ListByChild(ctx context.Context, scope *models.AccessScope, childID string, from, to time.Time) ([]models.Attendance, error) {
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
	records, err := s.repo.ListByChildAndRange(ctx, childID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// Summary aggregates class counts over a period.
func (s *AttendanceService) Summary(ctx context.Context, scope *models.AccessScope, classID string, from, to time.Time) ([]models.AttendanceSummary, error) {
	if err := s.access.AuthorizeClass(scope, classID); err != nil {
		return nil, err
	}
	summaries, err := s.repo.Summarize(ctx, classID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize attendance")
	}
	return summaries, nil
}

// parseClockTime combines a day with an HH:MM clock value. Malformed
// values are dropped rather than rejected.
func parseClockTime(day time.Time, value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	clock, err := time.Parse("15:04", *value)
	if err != nil {
		return nil
	}
	combined := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
	return &combined
}
