package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/wlwcreche/creche-api/internal/models"
	"github.com/wlwcreche/creche-api/internal/repository"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
	"github.com/wlwcreche/creche-api/pkg/identity"
	"github.com/wlwcreche/creche-api/pkg/mailer"
)

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, int, error)
	UpdateStatus(ctx context.Context, id string, from, to models.EnrollmentStatus, notes *string, decidedBy *string) error
	CountByStatus(ctx context.Context) (map[models.EnrollmentStatus]int, error)
}

type provisioningRepository interface {
	Provision(ctx context.Context, params repository.ProvisionParams) (*repository.ProvisionOutcome, error)
}

type enrollmentUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type enrollmentClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// EnrollmentService manages the application lifecycle from submission
// to acceptance or rejection.
type EnrollmentService struct {
	repo         enrollmentRepository
	provisioning provisioningRepository
	users        enrollmentUserRepository
	classes      enrollmentClassRepository
	identity     identity.Provider
	mail         mailer.Mailer
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, provisioning provisioningRepository, users enrollmentUserRepository, classes enrollmentClassRepository, idp identity.Provider, mail mailer.Mailer, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{
		repo:         repo,
		provisioning: provisioning,
		users:        users,
		classes:      classes,
		identity:     idp,
		mail:         mail,
		validator:    validate,
		logger:       logger,
	}
}

// Apply registers a new application from the public form. The raw
// document is normalized and validated before it is stored.
func (s *EnrollmentService) Apply(ctx context.Context, raw json.RawMessage) (*models.Enrollment, error) {
	payload, err := models.ParseApplicationPayload(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed application payload")
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}

	if payload.DesiredClassID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "desired class is required")
	}
	class, err := s.classes.FindByID(ctx, *payload.DesiredClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "desired class does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check desired class")
	}
	if !class.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "desired class is not open for enrollment")
	}

	var stored models.JSONPayload
	normalized, err := json.Marshal(payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to normalize payload")
	}
	if err := json.Unmarshal(normalized, &stored); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to normalize payload")
	}

	enrollment := &models.Enrollment{
		Status:  models.StatusCandidature,
		Payload: stored,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store application")
	}

	s.logger.Info("application received",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("child", payload.Child.LastName))
	return enrollment, nil
}

// List returns enrollments matching the filter.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns one enrollment.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

// UpdateStatus moves an enrollment along the state machine. Moving to
// ACTIF runs the full acceptance, provisioning included.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id string, req models.UpdateEnrollmentStatusRequest, actorID string) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status")
	}
	if req.Status == models.StatusActif {
		if _, err := s.Accept(ctx, id, actorID, req.Notes); err != nil {
			return nil, err
		}
		return s.Get(ctx, id)
	}

	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(enrollment.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot move enrollment from %s to %s", enrollment.Status, req.Status))
	}

	if err := s.repo.UpdateStatus(ctx, id, enrollment.Status, req.Status, req.Notes, &actorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment was decided concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}

	s.audit(ctx, actorID, models.AuditActionStatusChange, id, string(enrollment.Status)+" -> "+string(req.Status))
	return s.Get(ctx, id)
}

// Accept runs the provisioning transaction for an application and, once
// it commits, invites every guardian with an email to create a parent
// account. Invitation failures never undo the acceptance; they are
// reported per guardian in the result.
func (s *EnrollmentService) Accept(ctx context.Context, id string, actorID string, notes *string) (*models.ProvisionResult, error) {
	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(enrollment.Status, models.StatusActif) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot accept enrollment in status %s", enrollment.Status))
	}

	raw, err := json.Marshal(enrollment.Payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read stored payload")
	}
	payload, err := models.ParseApplicationPayload(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "stored payload is malformed")
	}
	if len(payload.Guardians) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "application has no guardian")
	}
	if _, ok := payload.PrincipalEmail(); !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no guardian email in application")
	}

	outcome, err := s.provisioning.Provision(ctx, repository.ProvisionParams{
		EnrollmentID: id,
		Payload:      payload,
		DecidedBy:    actorID,
		Notes:        notes,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyDecided) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment was decided concurrently")
		}
		if errors.Is(err, repository.ErrNoGuardianEmail) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "no guardian email in application")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "provisioning failed")
	}

	result := &models.ProvisionResult{
		EnrollmentID: id,
		Status:       models.StatusActif,
		FamilyID:     outcome.FamilyID,
		ChildID:      outcome.ChildID,
		Guardians:    outcome.Guardians,
	}
	for _, guardian := range outcome.Guardians {
		if guardian.Email == nil {
			continue
		}
		result.InvitedGuardians = append(result.InvitedGuardians, s.inviteGuardian(ctx, guardian))
	}

	s.audit(ctx, actorID, models.AuditActionEnrollmentAccept, id, "family "+outcome.FamilyID)
	s.logger.Info("enrollment accepted",
		zap.String("enrollment_id", id),
		zap.String("family_id", outcome.FamilyID),
		zap.String("child_id", outcome.ChildID),
		zap.Int("guardians", len(outcome.Guardians)))
	return result, nil
}

// Reject declines an application.
func (s *EnrollmentService) Reject(ctx context.Context, id string, actorID string, reason *string) (*models.Enrollment, error) {
	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(enrollment.Status, models.StatusRejetee) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot reject enrollment in status %s", enrollment.Status))
	}

	if err := s.repo.UpdateStatus(ctx, id, enrollment.Status, models.StatusRejetee, reason, &actorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment was decided concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject enrollment")
	}

	s.audit(ctx, actorID, models.AuditActionEnrollmentReject, id, "")
	return s.Get(ctx, id)
}

// Stats returns the number of applications per status.
func (s *EnrollmentService) Stats(ctx context.Context) (map[models.EnrollmentStatus]int, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
	}
	return counts, nil
}

// inviteGuardian creates the parent account for one guardian. Existing
// accounts are left untouched and reported as not created.
func (s *EnrollmentService) inviteGuardian(ctx context.Context, guardian models.Guardian) models.GuardianInvite {
	invite := models.GuardianInvite{GuardianID: guardian.ID, Email: *guardian.Email}

	if _, err := s.users.FindByEmail(ctx, invite.Email); err == nil {
		return invite
	} else if !errors.Is(err, sql.ErrNoRows) {
		msg := "failed to check existing account"
		invite.Error = &msg
		s.logger.Warn("guardian invite lookup failed", zap.String("email", invite.Email), zap.Error(err))
		return invite
	}

	externalInvite, err := s.identity.CreateUserInvite(ctx, invite.Email)
	if err != nil {
		msg := "identity provider invite failed"
		invite.Error = &msg
		s.logger.Warn("identity invite failed", zap.String("email", invite.Email), zap.Error(err))
		return invite
	}

	tempPassword := uuid.NewString()[:12]
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		msg := "failed to prepare account credentials"
		invite.Error = &msg
		return invite
	}

	now := time.Now().UTC()
	user := &models.User{
		Email:        invite.Email,
		PasswordHash: string(hash),
		FirstName:    guardian.FirstName,
		LastName:     guardian.LastName,
		Phone:        guardian.Phone,
		Language:     "fr",
		Role:         models.RoleParent,
		Status:       models.UserStatusInvited,
		AuthUserID:   &externalInvite.ExternalID,
		GuardianID:   &guardian.ID,
		InvitedAt:    &now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		msg := "failed to create parent account"
		invite.Error = &msg
		s.logger.Warn("parent account creation failed", zap.String("email", invite.Email), zap.Error(err))
		return invite
	}
	invite.AccountCreated = true

	invite.NotificationSent = s.mail.SendInvitation(ctx, invite.Email, guardian.FirstName, guardian.LastName, string(models.RoleParent), tempPassword)
	return invite
}

func (s *EnrollmentService) audit(ctx context.Context, actorID string, action models.AuditAction, entityID, detail string) {
	log := &models.AuditLog{
		UserID:   &actorID,
		Action:   action,
		Entity:   "enrollment",
		EntityID: &entityID,
	}
	if detail != "" {
		log.Detail = &detail
	}
	if err := s.users.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record enrollment audit log", zap.Error(err))
	}
}
