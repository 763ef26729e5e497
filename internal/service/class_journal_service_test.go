package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wlwcreche/creche-api/internal/models"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
	"github.com/wlwcreche/creche-api/pkg/jobs"
)

const journalClassID = "3f2f4b9a-6f0e-4c6a-9a83-2f1d3c5e7b90"

type journalRepoStub struct {
	mu sync.Mutex

	byID       map[string]*models.ClassJournal
	recipients []models.User

	created       []*models.ClassJournal
	updateErr     error
	publishErr    error
	publishedIDs  []string
	markedRead    []string
	markNotified  []string
	notifiedCh    chan string
	listPublished *bool
}

func (s *journalRepoStub) Create(ctx context.Context, journal *models.ClassJournal) error {
	journal.ID = "journal-1"
	s.created = append(s.created, journal)
	return nil
}

func (s *journalRepoStub) FindByID(ctx context.Context, id string) (*models.ClassJournal, error) {
	if journal, ok := s.byID[id]; ok {
		copied := *journal
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *journalRepoStub) ListByClass(ctx context.Context, classID string, from, to time.Time, publishedOnly bool) ([]models.ClassJournal, error) {
	s.listPublished = &publishedOnly
	return nil, nil
}

func (s *journalRepoStub) Update(ctx context.Context, journal *models.ClassJournal) error {
	return s.updateErr
}

func (s *journalRepoStub) Publish(ctx context.Context, journalID string, publishedAt time.Time, recipientUserIDs []string) error {
	if s.publishErr != nil {
		return s.publishErr
	}
	s.publishedIDs = recipientUserIDs
	if journal, ok := s.byID[journalID]; ok {
		journal.Status = models.JournalPublished
		journal.PublishedAt = &publishedAt
	}
	return nil
}

func (s *journalRepoStub) MarkNotified(ctx context.Context, journalID, userID string, notifiedAt time.Time) error {
	s.mu.Lock()
	s.markNotified = append(s.markNotified, userID)
	s.mu.Unlock()
	if s.notifiedCh != nil {
		s.notifiedCh <- userID
	}
	return nil
}

func (s *journalRepoStub) MarkRead(ctx context.Context, journalID, userID string, readAt time.Time) error {
	s.markedRead = append(s.markedRead, userID)
	return nil
}

func (s *journalRepoStub) ListDiffusions(ctx context.Context, journalID string) ([]models.JournalDiffusion, error) {
	return []models.JournalDiffusion{{JournalID: journalID}}, nil
}

func (s *journalRepoStub) ParentRecipients(ctx context.Context, classID string) ([]models.User, error) {
	return s.recipients, nil
}

type journalClassStub struct{}

func (journalClassStub) FindByID(ctx context.Context, id string) (*models.Class, error) {
	return &models.Class{ID: id, Name: "Les Lucioles"}, nil
}

func (journalClassStub) List(ctx context.Context, ids []string, activeOnly bool) ([]models.Class, error) {
	return nil, nil
}

func (journalClassStub) Stats(ctx context.Context, classID string) (*models.ClassStats, error) {
	return nil, sql.ErrNoRows
}

func (journalClassStub) Create(ctx context.Context, class *models.Class) error { return nil }
func (journalClassStub) Update(ctx context.Context, class *models.Class) error { return nil }

func newJournalService(repo *journalRepoStub, mail *mailerStub) *ClassJournalService {
	access := newAccessService(assignmentRepoStub{}, guardianRepoStub{}, childSummaryRepoStub{})
	return NewClassJournalService(repo, journalClassStub{}, access, mail,
		jobs.QueueConfig{Workers: 1, RetryDelay: time.Millisecond}, nil, zap.NewNop())
}

func adminScope() *models.AccessScope {
	return &models.AccessScope{Role: models.RoleAdmin, UserID: "admin-1"}
}

func TestClassJournalServiceCreateDraft(t *testing.T) {
	repo := &journalRepoStub{byID: map[string]*models.ClassJournal{}}
	service := newJournalService(repo, &mailerStub{})

	journal, err := service.Create(context.Background(), adminScope(), models.CreateJournalRequest{
		ClassID: journalClassID,
		Date:    "2026-03-02",
		Title:   "Sortie au parc",
		Body:    "Nous sommes allés au parc ce matin.",
	}, "teacher-1")
	require.NoError(t, err)

	assert.Equal(t, models.JournalDraft, journal.Status)
	assert.Equal(t, "teacher-1", journal.AuthorID)
	require.Len(t, repo.created, 1)
}

func TestClassJournalServiceCreateOutOfScope(t *testing.T) {
	repo := &journalRepoStub{byID: map[string]*models.ClassJournal{}}
	service := newJournalService(repo, &mailerStub{})

	scope := &models.AccessScope{Role: models.RoleTeacher, UserID: "teacher-1", ClassIDs: []string{"f5d8f7a2-1234-4c6a-9a83-2f1d3c5e7b90"}}
	_, err := service.Create(context.Background(), scope, models.CreateJournalRequest{
		ClassID: journalClassID,
		Date:    "2026-03-02",
		Title:   "Sortie au parc",
		Body:    "Nous sommes allés au parc ce matin.",
	}, "teacher-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestClassJournalServiceGetParentHidesDraft(t *testing.T) {
	repo := &journalRepoStub{byID: map[string]*models.ClassJournal{
		"journal-1": {ID: "journal-1", ClassID: journalClassID, Status: models.JournalDraft},
	}}
	service := newJournalService(repo, &mailerStub{})

	scope := &models.AccessScope{Role: models.RoleParent, UserID: "parent-1", ClassIDs: []string{journalClassID}, ChildIDs: []string{"child-1"}}
	_, err := service.Get(context.Background(), scope, "journal-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.markedRead)
}

func TestClassJournalServiceGetParentMarksRead(t *testing.T) {
	repo := &journalRepoStub{byID: map[string]*models.ClassJournal{
		"journal-1": {ID: "journal-1", ClassID: journalClassID, Status: models.JournalPublished},
	}}
	service := newJournalService(repo, &mailerStub{})

	scope := &models.AccessScope{Role: models.RoleParent, UserID: "parent-1", ClassIDs: []string{journalClassID}, ChildIDs: []string{"child-1"}}
	journal, err := service.Get(context.Background(), scope, "journal-1")
	require.NoError(t, err)

	assert.Equal(t, models.JournalPublished, journal.Status)
	assert.Equal(t, []string{"parent-1"}, repo.markedRead)
}

func TestClassJournalServiceListParentPublishedOnly(t *testing.T) {
	repo := &journalRepoStub{byID: map[string]*models.ClassJournal{}}
	service := newJournalService(repo, &mailerStub{})

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 6)

	parent := &models.AccessScope{Role: models.RoleParent, UserID: "parent-1", ClassIDs: []string{journalClassID}}
	_, err := service.List(context.Background(), parent, journalClassID, from, to)
	require.NoError(t, err)
	require.NotNil(t, repo.listPublished)
	assert.True(t, *repo.listPublished)

	_, err = service.List(context.Background(), adminScope(), journalClassID, from, to)
	require.NoError(t, err)
	assert.False(t, *repo.listPublished)
}

func TestClassJournalServiceUpdatePublishedConflict(t *testing.T) {
	repo := &journalRepoStub{
		byID: map[string]*models.ClassJournal{
			"journal-1": {ID: "journal-1", ClassID: journalClassID, Status: models.JournalPublished},
		},
		updateErr: sql.ErrNoRows,
	}
	service := newJournalService(repo, &mailerStub{})

	title := "Nouveau titre"
	_, err := service.Update(context.Background(), adminScope(), "journal-1", models.UpdateJournalRequest{Title: &title})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestClassJournalServicePublishNotifiesParents(t *testing.T) {
	repo := &journalRepoStub{
		byID: map[string]*models.ClassJournal{
			"journal-1": {ID: "journal-1", ClassID: journalClassID, Title: "Sortie au parc", Status: models.JournalDraft},
		},
		recipients: []models.User{
			{ID: "parent-1", Email: "parent1@example.com"},
			{ID: "parent-2", Email: "parent2@example.com"},
		},
		notifiedCh: make(chan string, 2),
	}
	mail := &mailerStub{}
	service := newJournalService(repo, mail)
	service.StartQueue(context.Background())
	defer service.StopQueue()

	journal, err := service.Publish(context.Background(), adminScope(), "journal-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.JournalPublished, journal.Status)
	assert.ElementsMatch(t, []string{"parent-1", "parent-2"}, repo.publishedIDs)

	notified := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case userID := <-repo.notifiedCh:
			notified[userID] = true
		case <-time.After(2 * time.Second):
			t.Fatal("notification was not delivered in time")
		}
	}
	assert.True(t, notified["parent-1"])
	assert.True(t, notified["parent-2"])
	assert.ElementsMatch(t, []string{"parent1@example.com", "parent2@example.com"}, mail.notifications)
}

func TestClassJournalServicePublishNonDraftConflict(t *testing.T) {
	repo := &journalRepoStub{
		byID: map[string]*models.ClassJournal{
			"journal-1": {ID: "journal-1", ClassID: journalClassID, Status: models.JournalPublished},
		},
		recipients: []models.User{{ID: "parent-1", Email: "parent1@example.com"}},
		publishErr: sql.ErrNoRows,
	}
	mail := &mailerStub{}
	service := newJournalService(repo, mail)

	_, err := service.Publish(context.Background(), adminScope(), "journal-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, mail.notifications)
}
