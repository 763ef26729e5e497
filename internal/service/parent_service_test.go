package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wlwcreche/creche-api/internal/models"
	appErrors "github.com/wlwcreche/creche-api/pkg/errors"
)

type parentAttendanceStub struct {
	byChild map[string]*models.Attendance
}

func (s parentAttendanceStub) FindByChildAndDate(ctx context.Context, childID string, date time.Time) (*models.Attendance, error) {
	if record, ok := s.byChild[childID]; ok {
		return record, nil
	}
	return nil, sql.ErrNoRows
}

type parentSummaryStub struct {
	byChild map[string]*models.DailySummary
}

func (s parentSummaryStub) FindByChildAndDate(ctx context.Context, childID string, date time.Time) (*models.DailySummary, error) {
	if summary, ok := s.byChild[childID]; ok {
		return summary, nil
	}
	return nil, sql.ErrNoRows
}

type parentJournalStub struct {
	byClass map[string]*models.ClassJournal
}

func (s parentJournalStub) FindPublishedByClassAndDate(ctx context.Context, classID string, date time.Time) (*models.ClassJournal, error) {
	if journal, ok := s.byClass[classID]; ok {
		return journal, nil
	}
	return nil, sql.ErrNoRows
}

type parentMenuStub struct {
	menu *models.Menu
}

func (s parentMenuStub) FindByDate(ctx context.Context, date time.Time, publishedOnly bool) (*models.Menu, error) {
	if s.menu != nil {
		return s.menu, nil
	}
	return nil, sql.ErrNoRows
}

type parentEventStub struct {
	events   []models.Event
	classIDs []string
}

func (s *parentEventStub) ListByRange(ctx context.Context, from, to time.Time, classIDs []string) ([]models.Event, error) {
	s.classIDs = classIDs
	return s.events, nil
}

type parentUserStub struct {
	users map[string]*models.User
}

func (s parentUserStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func dashboardDay() time.Time {
	return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
}

func TestParentServiceDashboard(t *testing.T) {
	guardianID := "guardian-1"
	classID := "class-a"
	guardians := guardianRepoStub{guardians: map[string]*models.Guardian{
		guardianID: {ID: guardianID, FamilyID: "family-1"},
	}}
	children := childSummaryRepoStub{byFamily: map[string][]models.ChildSummary{
		"family-1": {
			{ID: "child-1", FirstName: "Lina", ClassID: &classID},
			{ID: "child-2", FirstName: "Noah"},
		},
	}}
	attendance := parentAttendanceStub{byChild: map[string]*models.Attendance{
		"child-1": {ChildID: "child-1", Status: models.AttendancePresent},
	}}
	summaries := parentSummaryStub{byChild: map[string]*models.DailySummary{
		"child-1": {ChildID: "child-1"},
	}}
	journals := parentJournalStub{byClass: map[string]*models.ClassJournal{
		classID: {ClassID: classID, Status: models.JournalPublished},
	}}
	menu := parentMenuStub{menu: &models.Menu{ID: "menu-1", Status: models.MenuPublished}}
	events := &parentEventStub{events: []models.Event{{ID: "event-1"}}}

	service := NewParentService(guardians, parentUserStub{}, children, attendance, summaries, journals, menu, events, nil, 0, nil, zap.NewNop())

	claims := &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent, GuardianID: &guardianID}
	dashboard, err := service.Dashboard(context.Background(), claims, dashboardDay())
	require.NoError(t, err)

	require.Len(t, dashboard.Children, 2)
	first := dashboard.Children[0]
	assert.Equal(t, "child-1", first.Child.ID)
	require.NotNil(t, first.Attendance)
	assert.Equal(t, models.AttendancePresent, first.Attendance.Status)
	require.NotNil(t, first.Summary)
	require.NotNil(t, first.Journal)

	second := dashboard.Children[1]
	assert.Nil(t, second.Attendance)
	assert.Nil(t, second.Journal)

	require.NotNil(t, dashboard.Menu)
	assert.Len(t, dashboard.Events, 1)
	assert.Equal(t, []string{classID}, events.classIDs)
}

func TestParentServiceDashboardWithoutGuardianLink(t *testing.T) {
	events := &parentEventStub{}
	service := NewParentService(guardianRepoStub{}, parentUserStub{}, childSummaryRepoStub{}, parentAttendanceStub{}, parentSummaryStub{}, parentJournalStub{}, parentMenuStub{}, events, nil, 0, nil, zap.NewNop())

	claims := &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent}
	dashboard, err := service.Dashboard(context.Background(), claims, dashboardDay())
	require.NoError(t, err)

	assert.Empty(t, dashboard.Children)
	assert.Nil(t, dashboard.Menu)
	assert.Empty(t, dashboard.Events)
}

func TestParentServiceDashboardUnknownGuardian(t *testing.T) {
	guardianID := "guardian-missing"
	events := &parentEventStub{}
	service := NewParentService(guardianRepoStub{}, parentUserStub{}, childSummaryRepoStub{}, parentAttendanceStub{}, parentSummaryStub{}, parentJournalStub{}, parentMenuStub{}, events, nil, 0, nil, zap.NewNop())

	claims := &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent, GuardianID: &guardianID}
	dashboard, err := service.Dashboard(context.Background(), claims, dashboardDay())
	require.NoError(t, err)
	assert.Empty(t, dashboard.Children)
}

func TestParentServiceProfile(t *testing.T) {
	guardianID := "guardian-1"
	phone := "+33600000000"
	guardians := guardianRepoStub{guardians: map[string]*models.Guardian{
		guardianID: {ID: guardianID, FamilyID: "family-1", FirstName: "Awa", LastName: "Diallo", Phone: &phone},
	}}
	users := parentUserStub{users: map[string]*models.User{
		"parent-1": {ID: "parent-1", Email: "awa@example.com"},
	}}
	children := childSummaryRepoStub{byFamily: map[string][]models.ChildSummary{
		"family-1": {{ID: "child-1", FirstName: "Lina"}},
	}}
	service := NewParentService(guardians, users, children, parentAttendanceStub{}, parentSummaryStub{}, parentJournalStub{}, parentMenuStub{}, &parentEventStub{}, nil, 0, nil, zap.NewNop())

	claims := &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent, GuardianID: &guardianID}
	profile, err := service.Profile(context.Background(), claims)
	require.NoError(t, err)

	assert.Equal(t, "awa@example.com", profile.Email)
	assert.Equal(t, "Diallo", profile.LastName)
	assert.Equal(t, "family-1", profile.FamilyID)
	require.Len(t, profile.Children, 1)
}

func TestParentServiceProfileWithoutGuardianLink(t *testing.T) {
	service := NewParentService(guardianRepoStub{}, parentUserStub{}, childSummaryRepoStub{}, parentAttendanceStub{}, parentSummaryStub{}, parentJournalStub{}, parentMenuStub{}, &parentEventStub{}, nil, 0, nil, zap.NewNop())

	claims := &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent}
	_, err := service.Profile(context.Background(), claims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestParentServiceUpdateProfile(t *testing.T) {
	guardianID := "guardian-1"
	guardians := guardianRepoStub{guardians: map[string]*models.Guardian{
		guardianID: {ID: guardianID, FamilyID: "family-1", FirstName: "Awa", LastName: "Diallo"},
	}}
	users := parentUserStub{users: map[string]*models.User{
		"parent-1": {ID: "parent-1", Email: "awa@example.com"},
	}}
	service := NewParentService(guardians, users, childSummaryRepoStub{byFamily: map[string][]models.ChildSummary{}}, parentAttendanceStub{}, parentSummaryStub{}, parentJournalStub{}, parentMenuStub{}, &parentEventStub{}, nil, 0, nil, zap.NewNop())

	phone := "+33611111111"
	claims := &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent, GuardianID: &guardianID}
	profile, err := service.UpdateProfile(context.Background(), claims, models.UpdateParentProfileRequest{Phone: &phone})
	require.NoError(t, err)

	require.NotNil(t, profile.Phone)
	assert.Equal(t, phone, *profile.Phone)
	assert.Equal(t, "Awa", profile.FirstName)
}

func TestParentServiceDashboardRejectsOtherRoles(t *testing.T) {
	events := &parentEventStub{}
	service := NewParentService(guardianRepoStub{}, parentUserStub{}, childSummaryRepoStub{}, parentAttendanceStub{}, parentSummaryStub{}, parentJournalStub{}, parentMenuStub{}, events, nil, 0, nil, zap.NewNop())

	claims := &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher}
	_, err := service.Dashboard(context.Background(), claims, dashboardDay())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
