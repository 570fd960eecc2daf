package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuspulse/participation-api/internal/models"
	appErrors "github.com/campuspulse/participation-api/pkg/errors"
)

type eventStore interface {
	Create(ctx context.Context, event *models.Event) error
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Cancel(ctx context.Context, id string) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// CreateEventRequest is the payload for scheduling an event.
type CreateEventRequest struct {
	CollegeID   string    `json:"college_id" validate:"required"`
	Title       string    `json:"title" validate:"required,min=2,max=200"`
	Description string    `json:"description"`
	EventType   string    `json:"event_type" validate:"required"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	Capacity    int       `json:"capacity" validate:"required,min=1"`
}

// EventService manages the event directory and the cancel transition.
type EventService struct {
	events    eventStore
	colleges  collegeChecker
	reports   *ReportService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs the event service.
func NewEventService(events eventStore, colleges collegeChecker, reports *ReportService, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{events: events, colleges: colleges, reports: reports, validator: validate, logger: logger}
}

// Create schedules a new event. The time window must be well formed and the
// capacity at least one seat.
func (s *EventService) Create(ctx context.Context, req CreateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !req.StartTime.Before(req.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	if _, err := s.colleges.FindByID(ctx, req.CollegeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "college not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load college")
	}

	event := &models.Event{
		CollegeID:   req.CollegeID,
		Title:       req.Title,
		Description: req.Description,
		EventType:   req.EventType,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Capacity:    req.Capacity,
		Status:      models.EventStatusActive,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.logger.Info("event created",
		zap.String("event_id", event.ID),
		zap.String("college_id", event.CollegeID),
		zap.Int("capacity", event.Capacity),
	)
	return event, nil
}

// List returns events matching the filter with pagination metadata.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	events, total, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one event.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// Cancel flips an active event to cancelled. Cancelling twice is a conflict,
// not an error the caller can recover from by retrying.
func (s *EventService) Cancel(ctx context.Context, id string) (*models.Event, error) {
	cancelled, err := s.events.Cancel(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel event")
	}
	if !cancelled {
		exists, err := s.events.Exists(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check event")
		}
		if !exists {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "event is already cancelled")
	}

	if s.reports != nil {
		s.reports.InvalidateCaches(ctx)
	}
	s.logger.Info("event cancelled", zap.String("event_id", id))
	return s.Get(ctx, id)
}
