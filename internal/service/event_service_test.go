package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/participation-api/internal/models"
	appErrors "github.com/campuspulse/participation-api/pkg/errors"
)

type stubEventStore struct {
	events    map[string]*models.Event
	created   *models.Event
	cancelled map[string]bool
}

func newStubEventStore() *stubEventStore {
	return &stubEventStore{events: make(map[string]*models.Event), cancelled: make(map[string]bool)}
}

func (s *stubEventStore) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = "evt-new"
	}
	s.events[event.ID] = event
	s.created = event
	return nil
}

func (s *stubEventStore) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	var list []models.Event
	for _, e := range s.events {
		list = append(list, *e)
	}
	return list, len(list), nil
}

func (s *stubEventStore) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if e, ok := s.events[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubEventStore) Cancel(ctx context.Context, id string) (bool, error) {
	e, ok := s.events[id]
	if !ok || e.Status == models.EventStatusCancelled {
		return false, nil
	}
	e.Status = models.EventStatusCancelled
	s.cancelled[id] = true
	return true, nil
}

func (s *stubEventStore) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := s.events[id]
	return ok, nil
}

type stubColleges struct {
	colleges map[string]*models.College
}

func (s *stubColleges) FindByID(ctx context.Context, id string) (*models.College, error) {
	if c, ok := s.colleges[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func newTestEventService(store *stubEventStore) *EventService {
	colleges := &stubColleges{colleges: map[string]*models.College{
		"col-1": {ID: "col-1", Name: "Engineering"},
	}}
	return NewEventService(store, colleges, nil, nil, nil)
}

func validEventRequest() CreateEventRequest {
	start := time.Now().Add(24 * time.Hour)
	return CreateEventRequest{
		CollegeID: "col-1",
		Title:     "AI Summit",
		EventType: "seminar",
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Capacity:  100,
	}
}

func TestEventCreate(t *testing.T) {
	store := newStubEventStore()
	svc := newTestEventService(store)

	event, err := svc.Create(context.Background(), validEventRequest())
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusActive, event.Status)
	assert.NotNil(t, store.created)
}

func TestEventListPagination(t *testing.T) {
	store := newStubEventStore()
	store.events["evt-1"] = &models.Event{ID: "evt-1", Title: "AI Summit"}
	store.events["evt-2"] = &models.Event{ID: "evt-2", Title: "Hack Night"}
	store.events["evt-3"] = &models.Event{ID: "evt-3", Title: "Tech Talk"}
	svc := newTestEventService(store)

	events, pagination, err := svc.List(context.Background(), models.EventFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.NotNil(t, pagination)
	assert.Len(t, events, 3)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 2, pagination.PageSize)
	assert.Equal(t, 3, pagination.Total)
	assert.Equal(t, 2, pagination.TotalPages)
}

func TestEventCreateInvalidWindow(t *testing.T) {
	svc := newTestEventService(newStubEventStore())

	req := validEventRequest()
	req.EndTime = req.StartTime.Add(-time.Hour)
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventCreateZeroCapacity(t *testing.T) {
	svc := newTestEventService(newStubEventStore())

	req := validEventRequest()
	req.Capacity = 0
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventCreateUnknownCollege(t *testing.T) {
	svc := newTestEventService(newStubEventStore())

	req := validEventRequest()
	req.CollegeID = "col-x"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEventCancel(t *testing.T) {
	store := newStubEventStore()
	store.events["evt-1"] = &models.Event{ID: "evt-1", Status: models.EventStatusActive}
	svc := newTestEventService(store)

	event, err := svc.Cancel(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCancelled, event.Status)
}

func TestEventCancelTwice(t *testing.T) {
	store := newStubEventStore()
	store.events["evt-1"] = &models.Event{ID: "evt-1", Status: models.EventStatusCancelled}
	svc := newTestEventService(store)

	_, err := svc.Cancel(context.Background(), "evt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEventCancelUnknown(t *testing.T) {
	svc := newTestEventService(newStubEventStore())

	_, err := svc.Cancel(context.Background(), "evt-x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentCreateDuplicateEmail(t *testing.T) {
	students := &dupEmailStudentStore{}
	colleges := &stubColleges{colleges: map[string]*models.College{"col-1": {ID: "col-1"}}}
	svc := NewStudentService(students, colleges, nil, nil)

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		CollegeID: "col-1",
		Name:      "Ana",
		Email:     "ana@uni.edu",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentListPagination(t *testing.T) {
	students := &fixedStudentStore{students: []models.Student{
		{ID: "stu-1", Name: "Ana"},
		{ID: "stu-2", Name: "Ben"},
	}, total: 5}
	svc := NewStudentService(students, &stubColleges{}, nil, nil)

	list, pagination, err := svc.List(context.Background(), models.StudentFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.NotNil(t, pagination)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 5, pagination.Total)
	assert.Equal(t, 3, pagination.TotalPages)
}

type fixedStudentStore struct {
	students []models.Student
	total    int
}

func (s *fixedStudentStore) Create(ctx context.Context, student *models.Student) error {
	return nil
}

func (s *fixedStudentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	return s.students, s.total, nil
}

func (s *fixedStudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return nil, sql.ErrNoRows
}

type dupEmailStudentStore struct{}

func (dupEmailStudentStore) Create(ctx context.Context, student *models.Student) error {
	return sql.ErrNoRows
}

func (dupEmailStudentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	return nil, 0, nil
}

func (dupEmailStudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return nil, sql.ErrNoRows
}
