package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuspulse/participation-api/internal/models"
	"github.com/campuspulse/participation-api/internal/repository"
	appErrors "github.com/campuspulse/participation-api/pkg/errors"
)

type participationLedger interface {
	Find(ctx context.Context, studentID, eventID string) (*models.ParticipationState, error)
}

type registrationStore interface {
	CreateAdmitting(ctx context.Context, registration *models.Registration) error
}

type attendanceStore interface {
	Create(ctx context.Context, attendance *models.Attendance) error
}

type feedbackStore interface {
	Create(ctx context.Context, feedback *models.Feedback) error
}

type studentChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type eventResolver interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type reportInvalidator interface {
	InvalidateCaches(ctx context.Context)
}

// RegisterRequest is the payload for registering a student to an event.
type RegisterRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	EventID   string `json:"event_id" validate:"required"`
}

// MarkAttendanceRequest is the payload for checking a student in.
type MarkAttendanceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	EventID   string `json:"event_id" validate:"required"`
	Method    string `json:"method"`
}

// SubmitFeedbackRequest is the payload for post-event feedback.
type SubmitFeedbackRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	EventID   string `json:"event_id" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment"`
}

// ParticipationService enforces the per-pair lifecycle: a student registers,
// then attends, then gives feedback, in that order with no skipped steps.
// The service resolves the current pair state, checks the transition
// precondition and delegates the write; the write itself re-checks
// uniqueness (and capacity, for registrations) atomically in the store, so
// concurrent duplicates lose there rather than here.
type ParticipationService struct {
	ledger        participationLedger
	registrations registrationStore
	attendances   attendanceStore
	feedbacks     feedbackStore
	students      studentChecker
	events        eventResolver
	reports       reportInvalidator
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewParticipationService constructs the participation service.
func NewParticipationService(
	ledger participationLedger,
	registrations registrationStore,
	attendances attendanceStore,
	feedbacks feedbackStore,
	students studentChecker,
	events eventResolver,
	reports reportInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ParticipationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParticipationService{
		ledger:        ledger,
		registrations: registrations,
		attendances:   attendances,
		feedbacks:     feedbacks,
		students:      students,
		events:        events,
		reports:       reports,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
	}
}

// Register admits a student to an event while a seat is free. Callers
// retrying after a Conflict should treat it as already-done.
func (s *ParticipationService) Register(ctx context.Context, req RegisterRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	event, err := s.resolveEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event.Status != models.EventStatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event is cancelled")
	}
	if err := s.checkStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}

	state, err := s.ledger.Find(ctx, req.StudentID, req.EventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve participation state")
	}
	if state.Registered {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already registered for this event")
	}

	registration := &models.Registration{StudentID: req.StudentID, EventID: req.EventID}
	if err := s.registrations.CreateAdmitting(ctx, registration); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		case errors.Is(err, repository.ErrPairExists):
			// Lost a race with a concurrent duplicate; same outcome as the
			// precondition check above.
			s.metrics.RecordRegistration("duplicate")
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already registered for this event")
		case errors.Is(err, repository.ErrEventFull):
			s.metrics.RecordRegistration("capacity_exceeded")
			return nil, appErrors.ErrCapacityExceeded
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
		}
	}

	s.metrics.RecordRegistration("admitted")
	s.invalidateReports(ctx)
	s.logger.Info("registration created",
		zap.String("student_id", registration.StudentID),
		zap.String("event_id", registration.EventID),
	)
	return registration, nil
}

// MarkAttendance checks a registered student in. The pair must be exactly in
// the Registered state.
func (s *ParticipationService) MarkAttendance(ctx context.Context, req MarkAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}

	if _, err := s.resolveEvent(ctx, req.EventID); err != nil {
		return nil, err
	}
	if err := s.checkStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}

	state, err := s.ledger.Find(ctx, req.StudentID, req.EventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve participation state")
	}
	if !state.Registered {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student must be registered to mark attendance")
	}
	if state.Attended {
		return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already marked for this event")
	}

	attendance := &models.Attendance{StudentID: req.StudentID, EventID: req.EventID, Method: req.Method}
	if err := s.attendances.Create(ctx, attendance); err != nil {
		if errors.Is(err, repository.ErrPairExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already marked for this event")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attendance")
	}

	s.invalidateReports(ctx)
	s.logger.Info("attendance marked",
		zap.String("student_id", attendance.StudentID),
		zap.String("event_id", attendance.EventID),
		zap.String("method", attendance.Method),
	)
	return attendance, nil
}

// SubmitFeedback records a rating for an attended event. The pair must be
// exactly in the Attended state and the rating within 1..5.
func (s *ParticipationService) SubmitFeedback(ctx context.Context, req SubmitFeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rating must be between 1 and 5")
	}

	if _, err := s.resolveEvent(ctx, req.EventID); err != nil {
		return nil, err
	}
	if err := s.checkStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}

	state, err := s.ledger.Find(ctx, req.StudentID, req.EventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve participation state")
	}
	if !state.Attended {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student must have attended to submit feedback")
	}
	if state.FeedbackGiven {
		return nil, appErrors.Clone(appErrors.ErrConflict, "feedback already submitted for this event")
	}

	feedback := &models.Feedback{
		StudentID: req.StudentID,
		EventID:   req.EventID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := s.feedbacks.Create(ctx, feedback); err != nil {
		if errors.Is(err, repository.ErrPairExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "feedback already submitted for this event")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create feedback")
	}

	s.invalidateReports(ctx)
	s.logger.Info("feedback submitted",
		zap.String("student_id", feedback.StudentID),
		zap.String("event_id", feedback.EventID),
		zap.Int("rating", feedback.Rating),
	)
	return feedback, nil
}

// State exposes the derived pair state.
func (s *ParticipationService) State(ctx context.Context, studentID, eventID string) (*models.ParticipationState, error) {
	if studentID == "" || eventID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id and event_id are required")
	}
	state, err := s.ledger.Find(ctx, studentID, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve participation state")
	}
	return state, nil
}

func (s *ParticipationService) resolveEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

func (s *ParticipationService) invalidateReports(ctx context.Context) {
	if s.reports != nil {
		s.reports.InvalidateCaches(ctx)
	}
}

func (s *ParticipationService) checkStudent(ctx context.Context, studentID string) error {
	exists, err := s.students.Exists(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return nil
}
