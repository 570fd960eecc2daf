package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/campuspulse/participation-api/internal/dto"
	"github.com/campuspulse/participation-api/internal/models"
	appErrors "github.com/campuspulse/participation-api/pkg/errors"
)

type reportAggregator interface {
	EventPopularity(ctx context.Context, collegeID string) ([]dto.EventPopularityRow, error)
	EventCounts(ctx context.Context, eventID string) (*dto.EventCountsRow, error)
	TopActiveStudents(ctx context.Context, collegeID string, limit int) ([]dto.TopStudentRow, error)
	EventTypeStats(ctx context.Context, collegeID string) ([]dto.EventTypeStats, error)
}

type studentResolver interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type registeredEventsLister interface {
	ListEventsByStudent(ctx context.Context, studentID string) ([]models.Event, error)
}

type studentFeedbackLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]dto.FeedbackEntry, error)
}

// DefaultTopStudentsLimit applies when the caller omits the limit.
const DefaultTopStudentsLimit = 3

// ReportServiceConfig tunes report behaviour.
type ReportServiceConfig struct {
	CacheTTL         time.Duration
	TopStudentsLimit int
}

// ReportService computes read-only aggregations over the participation
// ledger. Results are cached briefly; dashboards tolerate slightly stale
// counts.
type ReportService struct {
	reports       reportAggregator
	events        eventResolver
	students      studentResolver
	registrations registeredEventsLister
	attendances   registeredEventsLister
	feedbacks     studentFeedbackLister
	cache         *CacheService
	logger        *zap.Logger
	now           func() time.Time
	cfg           ReportServiceConfig
}

// ReportServiceParams groups constructor dependencies.
type ReportServiceParams struct {
	Reports       reportAggregator
	Events        eventResolver
	Students      studentResolver
	Registrations registeredEventsLister
	Attendances   registeredEventsLister
	Feedbacks     studentFeedbackLister
	Cache         *CacheService
	Logger        *zap.Logger
	Config        ReportServiceConfig
}

// NewReportService constructs a ReportService with sane defaults.
func NewReportService(params ReportServiceParams) *ReportService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.TopStudentsLimit <= 0 {
		cfg.TopStudentsLimit = DefaultTopStudentsLimit
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		reports:       params.Reports,
		events:        params.Events,
		students:      params.Students,
		registrations: params.Registrations,
		attendances:   params.Attendances,
		feedbacks:     params.Feedbacks,
		cache:         params.Cache,
		logger:        logger,
		now:           time.Now,
		cfg:           cfg,
	}
}

// EventPopularity ranks events by registration count.
func (s *ReportService) EventPopularity(ctx context.Context, collegeID string) ([]dto.EventPopularityRow, error) {
	cacheKey := fmt.Sprintf("reports:popularity:%s", cacheScope(collegeID))
	var cached []dto.EventPopularityRow
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	rows, err := s.reports.EventPopularity(ctx, collegeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute event popularity")
	}
	if rows == nil {
		rows = []dto.EventPopularityRow{}
	}
	_ = s.cache.Set(ctx, cacheKey, rows, s.cfg.CacheTTL)
	return rows, nil
}

// EventAttendance aggregates attendance for one event. The percentage is 0
// when nobody registered, and the average rating is nil when no feedback
// exists so callers can tell "no data" from "rated zero".
func (s *ReportService) EventAttendance(ctx context.Context, eventID string) (*dto.EventAttendanceReport, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	counts, err := s.reports.EventCounts(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute event attendance")
	}

	report := &dto.EventAttendanceReport{
		Event:             *event,
		RegistrationCount: counts.RegistrationCount,
		AttendanceCount:   counts.AttendanceCount,
		FeedbackCount:     counts.FeedbackCount,
	}
	if counts.RegistrationCount > 0 {
		report.AttendancePercentage = round2(float64(counts.AttendanceCount) / float64(counts.RegistrationCount) * 100)
	}
	if counts.AverageRating != nil {
		avg := round2(*counts.AverageRating)
		report.AverageRating = &avg
	}
	return report, nil
}

// StudentParticipation summarises one student's activity with the literal
// event and feedback lists.
func (s *ReportService) StudentParticipation(ctx context.Context, studentID string) (*dto.StudentParticipationReport, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	registered, err := s.registrations.ListEventsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registered events")
	}
	attended, err := s.attendances.ListEventsByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attended events")
	}
	feedbacks, err := s.feedbacks.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feedbacks")
	}

	if registered == nil {
		registered = []models.Event{}
	}
	if attended == nil {
		attended = []models.Event{}
	}
	if feedbacks == nil {
		feedbacks = []dto.FeedbackEntry{}
	}

	report := &dto.StudentParticipationReport{
		Student:          *student,
		EventsRegistered: len(registered),
		EventsAttended:   len(attended),
		FeedbacksGiven:   len(feedbacks),
		RegisteredEvents: registered,
		AttendedEvents:   attended,
		Feedbacks:        feedbacks,
	}
	if len(registered) > 0 {
		report.AttendanceRate = round2(float64(len(attended)) / float64(len(registered)) * 100)
	}
	return report, nil
}

// TopActiveStudents ranks students by attendance count. The limit defaults
// when zero and rejects negative values.
func (s *ReportService) TopActiveStudents(ctx context.Context, collegeID string, limit int) ([]dto.TopStudentRow, error) {
	if limit == 0 {
		limit = s.cfg.TopStudentsLimit
	}
	if limit < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "limit must be at least 1")
	}

	cacheKey := fmt.Sprintf("reports:top_students:%s:%d", cacheScope(collegeID), limit)
	var cached []dto.TopStudentRow
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	rows, err := s.reports.TopActiveStudents(ctx, collegeID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute top active students")
	}
	if rows == nil {
		rows = []dto.TopStudentRow{}
	}
	_ = s.cache.Set(ctx, cacheKey, rows, s.cfg.CacheTTL)
	return rows, nil
}

// Dashboard composes the admin dashboard payload.
func (s *ReportService) Dashboard(ctx context.Context, collegeID string) (*dto.DashboardReport, bool, error) {
	cacheKey := fmt.Sprintf("reports:dashboard:%s", cacheScope(collegeID))
	var cached dto.DashboardReport
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	popularity, err := s.reports.EventPopularity(ctx, collegeID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute event popularity")
	}
	topStudents, err := s.reports.TopActiveStudents(ctx, collegeID, s.cfg.TopStudentsLimit)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute top active students")
	}
	typeStats, err := s.reports.EventTypeStats(ctx, collegeID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute event type stats")
	}

	for i := range typeStats {
		if typeStats[i].AverageRating != nil {
			avg := round2(*typeStats[i].AverageRating)
			typeStats[i].AverageRating = &avg
		}
	}

	report := &dto.DashboardReport{
		Popularity:     popularity,
		TopStudents:    topStudents,
		EventTypeStats: typeStats,
		GeneratedAt:    s.now().UTC(),
	}
	_ = s.cache.Set(ctx, cacheKey, report, s.cfg.CacheTTL)
	return report, false, nil
}

// InvalidateCaches drops cached report payloads after ledger writes.
func (s *ReportService) InvalidateCaches(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "reports:*"); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.Error(err))
	}
}

func cacheScope(collegeID string) string {
	if collegeID == "" {
		return "all"
	}
	return collegeID
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
