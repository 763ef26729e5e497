package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wlwcreche/creche-api/internal/models"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
	"github.com/wlwcreche/creche-api/pkg/jobs"
	"github.com/wlwcreche/creche-api/pkg/mailer"
)

type classJournalRepository interface {
	Create(ctx context.Context, journal *models.ClassJournal) error
	FindByID(ctx context.Context, id string) (*models.ClassJournal, error)
	ListByClass(ctx context.Context, classID string, from, to time.Time, publishedOnly bool) ([]models.ClassJournal, error)
	Update(ctx context.Context, journal *models.ClassJournal) error
	Publish(ctx context.Context, journalID string, publishedAt time.Time, recipientUserIDs []string) error
	MarkNotified(ctx context.Context, journalID, userID string, notifiedAt time.Time) error
	MarkRead(ctx context.Context, journalID, userID string, readAt time.Time) error
	ListDiffusions(ctx context.Context, journalID string) ([]models.JournalDiffusion, error)
	ParentRecipients(ctx context.Context, classID string) ([]models.User, error)
}

// journalNotification is the queued payload of a diffusion email.
type journalNotification struct {
	JournalID string
	UserID    string
	Email     string
	Title     string
	ClassName string
}

// ClassJournalService manages class journals. Publication records the
// diffusion rows synchronously and fans out notification emails through
// the background queue.
type ClassJournalService struct {
	repo      classJournalRepository
	classes   classRepository
	access    *AccessService
	mail      mailer.Mailer
	queue     *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassJournalService constructs a ClassJournalService. Call
// StartQueue before publishing journals.
func NewClassJournalService(repo classJournalRepository, classes classRepository, access *AccessService, mail mailer.Mailer, queueCfg jobs.QueueConfig, validate *validator.Validate, logger *zap.Logger) *ClassJournalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	s := &ClassJournalService{
		repo:      repo,
		classes:   classes,
		access:    access,
		mail:      mail,
		validator: validate,
		logger:    logger,
	}
	if queueCfg.Logger == nil {
		queueCfg.Logger = logger
	}
	s.queue = jobs.NewQueue("journal-notifications", s.handleNotification, queueCfg)
	return s
}

// StartQueue starts the notification workers.
func (s *ClassJournalService) StartQueue(ctx context.Context) {
	s.queue.Start(ctx)
}

// StopQueue drains and stops the notification workers.
func (s *ClassJournalService) StopQueue() {
	s.queue.Stop()
}

// Create registers a new draft journal entry.
func (s *ClassJournalService) Create(ctx context.Context, scope *models.AccessScope, req models.CreateJournalRequest, actorID string) (*models.ClassJournal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid journal payload")
	}
	if err := s.access.AuthorizeClass(scope, req.ClassID); err != nil {
		return nil, err
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}

	journal := &models.ClassJournal{
		ClassID:  req.ClassID,
		Date:     date,
		Title:    req.Title,
		Body:     req.Body,
		Status:   models.JournalDraft,
		AuthorID: actorID,
	}
	if err := s.repo.Create(ctx, journal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create journal")
	}
	return journal, nil
}

// Get returns one journal entry. Parents only see published entries and
// their read access is recorded on the diffusion.
func (s *ClassJournalService) Get(ctx context.Context, scope *models.AccessScope, id string) (*models.ClassJournal, error) {
	journal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "journal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal")
	}
	if err := s.access.AuthorizeClass(scope, journal.ClassID); err != nil {
		return nil, err
	}
	if scope.Role == models.RoleParent {
		if journal.Status != models.JournalPublished {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "journal not found")
		}
		if err := s.repo.MarkRead(ctx, journal.ID, scope.UserID, time.Now().UTC()); err != nil {
			s.logger.Warn("failed to mark journal read", zap.Error(err))
		}
	}
	return journal, nil
}

// List returns the journals of a class over a period. Parents only see
// published entries.
func (s *ClassJournalService) List(ctx context.Context, scope *models.AccessScope, classID string, from, to time.Time) ([]models.ClassJournal, error) {
	if err := s.access.AuthorizeClass(scope, classID); err != nil {
		return nil, err
	}
	publishedOnly := scope.Role == models.RoleParent
	journals, err := s.repo.ListByClass(ctx, classID, from, to, publishedOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list journals")
	}
	return journals, nil
}

// Update changes the content of a draft entry.
func (s *ClassJournalService) Update(ctx context.Context, scope *models.AccessScope, id string, req models.UpdateJournalRequest) (*models.ClassJournal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid journal payload")
	}

	journal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "journal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal")
	}
	if err := s.access.AuthorizeClass(scope, journal.ClassID); err != nil {
		return nil, err
	}

	if req.Title != nil {
		journal.Title = *req.Title
	}
	if req.Body != nil {
		journal.Body = *req.Body
	}

	if err := s.repo.Update(ctx, journal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "published journals cannot be edited")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update journal")
	}
	return journal, nil
}

// Publish flips a draft journal to published, records one diffusion per
// parent of the class and enqueues the notification emails.
func (s *ClassJournalService) Publish(ctx context.Context, scope *models.AccessScope, id string, actorID string) (*models.ClassJournal, error) {
	journal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "journal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal")
	}
	if err := s.access.AuthorizeClass(scope, journal.ClassID); err != nil {
		return nil, err
	}

	recipients, err := s.repo.ParentRecipients(ctx, journal.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve recipients")
	}

	recipientIDs := make([]string, 0, len(recipients))
	for _, user := range recipients {
		recipientIDs = append(recipientIDs, user.ID)
	}

	publishedAt := time.Now().UTC()
	if err := s.repo.Publish(ctx, id, publishedAt, recipientIDs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "journal is not a draft")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish journal")
	}

	className := journal.ClassID
	if class, err := s.classes.FindByID(ctx, journal.ClassID); err == nil {
		className = class.Name
	}
	for _, user := range recipients {
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: "journal-notification",
			Payload: journalNotification{
				JournalID: id,
				UserID:    user.ID,
				Email:     user.Email,
				Title:     journal.Title,
				ClassName: className,
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue journal notification", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	s.logger.Info("journal published",
		zap.String("journal_id", id),
		zap.String("class_id", journal.ClassID),
		zap.Int("recipients", len(recipients)))
	return s.repo.FindByID(ctx, id)
}

// Diffusions returns the delivery records of a journal.
func (s *ClassJournalService) Diffusions(ctx context.Context, journalID string) ([]models.JournalDiffusion, error) {
	diffusions, err := s.repo.ListDiffusions(ctx, journalID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list diffusions")
	}
	return diffusions, nil
}

func (s *ClassJournalService) handleNotification(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(journalNotification)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	subject := "Journal de classe: " + notification.Title
	message := fmt.Sprintf("Le journal de la classe %s a été publié. Connectez-vous pour le consulter.", notification.ClassName)
	if !s.mail.SendNotification(ctx, notification.Email, subject, message) {
		return fmt.Errorf("notification email to %s not sent", notification.Email)
	}

	if err := s.repo.MarkNotified(ctx, notification.JournalID, notification.UserID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to mark diffusion notified", zap.Error(err))
	}
	return nil
}
