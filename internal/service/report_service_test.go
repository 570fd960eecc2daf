package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/participation-api/internal/dto"
	"github.com/campuspulse/participation-api/internal/models"
	appErrors "github.com/campuspulse/participation-api/pkg/errors"
)

type stubReports struct {
	popularity  []dto.EventPopularityRow
	counts      map[string]dto.EventCountsRow
	topStudents []dto.TopStudentRow
	typeStats   []dto.EventTypeStats
	gotLimit    int
	calls       int
}

func (s *stubReports) EventPopularity(ctx context.Context, collegeID string) ([]dto.EventPopularityRow, error) {
	s.calls++
	return s.popularity, nil
}

func (s *stubReports) EventCounts(ctx context.Context, eventID string) (*dto.EventCountsRow, error) {
	counts, ok := s.counts[eventID]
	if !ok {
		counts = dto.EventCountsRow{}
	}
	return &counts, nil
}

func (s *stubReports) TopActiveStudents(ctx context.Context, collegeID string, limit int) ([]dto.TopStudentRow, error) {
	s.gotLimit = limit
	return s.topStudents, nil
}

func (s *stubReports) EventTypeStats(ctx context.Context, collegeID string) ([]dto.EventTypeStats, error) {
	return s.typeStats, nil
}

type stubEvents struct {
	events map[string]*models.Event
}

func (s *stubEvents) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if event, ok := s.events[id]; ok {
		return event, nil
	}
	return nil, sql.ErrNoRows
}

type stubStudents struct {
	students map[string]*models.Student
}

func (s *stubStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := s.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

type stubEventLister struct {
	events []models.Event
}

func (s *stubEventLister) ListEventsByStudent(ctx context.Context, studentID string) ([]models.Event, error) {
	return s.events, nil
}

type stubFeedbackLister struct {
	entries []dto.FeedbackEntry
}

func (s *stubFeedbackLister) ListByStudent(ctx context.Context, studentID string) ([]dto.FeedbackEntry, error) {
	return s.entries, nil
}

// memCacheBackend is a map-backed stand-in for Redis.
type memCacheBackend struct {
	values map[string][]byte
}

func newMemCacheBackend() *memCacheBackend {
	return &memCacheBackend{values: make(map[string][]byte)}
}

func (m *memCacheBackend) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCacheBackend) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.values[key] = raw
	return nil
}

func (m *memCacheBackend) DeleteByPattern(ctx context.Context, pattern string) error {
	m.values = make(map[string][]byte)
	return nil
}

func newTestReportService(reports *stubReports, events *stubEvents, students *stubStudents, registered, attended *stubEventLister, feedbacks *stubFeedbackLister, cache *CacheService) *ReportService {
	if events == nil {
		events = &stubEvents{events: map[string]*models.Event{}}
	}
	if students == nil {
		students = &stubStudents{students: map[string]*models.Student{}}
	}
	if registered == nil {
		registered = &stubEventLister{}
	}
	if attended == nil {
		attended = &stubEventLister{}
	}
	if feedbacks == nil {
		feedbacks = &stubFeedbackLister{}
	}
	if cache == nil {
		cache = NewCacheService(nil, nil, 0, nil)
	}
	return NewReportService(ReportServiceParams{
		Reports:       reports,
		Events:        events,
		Students:      students,
		Registrations: registered,
		Attendances:   attended,
		Feedbacks:     feedbacks,
		Cache:         cache,
	})
}

func TestEventAttendancePercentage(t *testing.T) {
	avg := 4.3333
	reports := &stubReports{counts: map[string]dto.EventCountsRow{
		"evt-1": {RegistrationCount: 10, AttendanceCount: 7, FeedbackCount: 3, AverageRating: &avg},
	}}
	events := &stubEvents{events: map[string]*models.Event{
		"evt-1": {ID: "evt-1", Title: "AI Summit"},
	}}
	svc := newTestReportService(reports, events, nil, nil, nil, nil, nil)

	report, err := svc.EventAttendance(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 70.0, report.AttendancePercentage)
	require.NotNil(t, report.AverageRating)
	assert.Equal(t, 4.33, *report.AverageRating)
}

func TestEventAttendanceNoRegistrations(t *testing.T) {
	reports := &stubReports{counts: map[string]dto.EventCountsRow{}}
	events := &stubEvents{events: map[string]*models.Event{
		"evt-1": {ID: "evt-1"},
	}}
	svc := newTestReportService(reports, events, nil, nil, nil, nil, nil)

	report, err := svc.EventAttendance(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Zero(t, report.AttendancePercentage)
	assert.Nil(t, report.AverageRating)
}

func TestEventAttendanceUnknownEvent(t *testing.T) {
	svc := newTestReportService(&stubReports{}, nil, nil, nil, nil, nil, nil)

	_, err := svc.EventAttendance(context.Background(), "evt-x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentParticipationComposition(t *testing.T) {
	students := &stubStudents{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", Name: "Ana"},
	}}
	registered := &stubEventLister{events: []models.Event{{ID: "e1"}, {ID: "e2"}, {ID: "e3"}}}
	attended := &stubEventLister{events: []models.Event{{ID: "e1"}, {ID: "e2"}}}
	feedbacks := &stubFeedbackLister{entries: []dto.FeedbackEntry{{EventID: "e1", Rating: 5}}}
	svc := newTestReportService(&stubReports{}, nil, students, registered, attended, feedbacks, nil)

	report, err := svc.StudentParticipation(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 3, report.EventsRegistered)
	assert.Equal(t, 2, report.EventsAttended)
	assert.Equal(t, 1, report.FeedbacksGiven)
	assert.Equal(t, 66.67, report.AttendanceRate)
}

func TestStudentParticipationUnknownStudent(t *testing.T) {
	svc := newTestReportService(&stubReports{}, nil, nil, nil, nil, nil, nil)

	_, err := svc.StudentParticipation(context.Background(), "stu-x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTopActiveStudentsDefaultLimit(t *testing.T) {
	reports := &stubReports{topStudents: []dto.TopStudentRow{{StudentID: "stu-1"}}}
	svc := newTestReportService(reports, nil, nil, nil, nil, nil, nil)

	_, err := svc.TopActiveStudents(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, reports.gotLimit)
}

func TestTopActiveStudentsNegativeLimit(t *testing.T) {
	svc := newTestReportService(&stubReports{}, nil, nil, nil, nil, nil, nil)

	_, err := svc.TopActiveStudents(context.Background(), "", -1)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventPopularityCached(t *testing.T) {
	reports := &stubReports{popularity: []dto.EventPopularityRow{{EventID: "evt-1", RegistrationCount: 9}}}
	cache := NewCacheService(newMemCacheBackend(), nil, time.Minute, nil)
	svc := newTestReportService(reports, nil, nil, nil, nil, nil, cache)

	first, err := svc.EventPopularity(context.Background(), "col-1")
	require.NoError(t, err)
	second, err := svc.EventPopularity(context.Background(), "col-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, reports.calls)
}

func TestDashboardRoundsTypeStats(t *testing.T) {
	avg := 3.666666
	reports := &stubReports{
		typeStats: []dto.EventTypeStats{{EventType: "seminar", AverageRating: &avg}},
	}
	svc := newTestReportService(reports, nil, nil, nil, nil, nil, nil)

	report, cached, err := svc.Dashboard(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, cached)
	require.NotNil(t, report.EventTypeStats[0].AverageRating)
	assert.Equal(t, 3.67, *report.EventTypeStats[0].AverageRating)
	assert.False(t, report.GeneratedAt.IsZero())
}
