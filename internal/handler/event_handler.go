package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuspulse/participation-api/internal/models"
	"github.com/campuspulse/participation-api/internal/service"
	appErrors "github.com/campuspulse/participation-api/pkg/errors"
	"github.com/campuspulse/participation-api/pkg/response"
)

// EventHandler exposes event directory and participation endpoints.
type EventHandler struct {
	events        *service.EventService
	participation *service.ParticipationService
	reports       *service.ReportService
}

// NewEventHandler constructs EventHandler.
func NewEventHandler(events *service.EventService, participation *service.ParticipationService, reports *service.ReportService) *EventHandler {
	return &EventHandler{events: events, participation: participation, reports: reports}
}

// Create godoc
// @Summary Create event
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body service.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	event, err := h.events.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param collegeId query string false "Filter by college"
// @Param type query string false "Filter by event type"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	var filter models.EventFilter
	filter.CollegeID = c.Query("collegeId")
	filter.EventType = c.Query("type")
	filter.Status = c.Query("status")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	events, pagination, err := h.events.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

// Get godoc
// @Summary Get event by ID
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Cancel godoc
// @Summary Cancel event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/cancel [post]
func (h *EventHandler) Cancel(c *gin.Context) {
	event, err := h.events.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Register godoc
// @Summary Register student for event
// @Tags Participation
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body registerPayload true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /events/{id}/register [post]
func (h *EventHandler) Register(c *gin.Context) {
	var payload registerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	registration, err := h.participation.Register(c.Request.Context(), service.RegisterRequest{
		StudentID: payload.StudentID,
		EventID:   c.Param("id"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, registration)
}

// MarkAttendance godoc
// @Summary Mark attendance for event
// @Tags Participation
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body attendancePayload true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Router /events/{id}/attendance [post]
func (h *EventHandler) MarkAttendance(c *gin.Context) {
	var payload attendancePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	attendance, err := h.participation.MarkAttendance(c.Request.Context(), service.MarkAttendanceRequest{
		StudentID: payload.StudentID,
		EventID:   c.Param("id"),
		Method:    payload.Method,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, attendance)
}

// SubmitFeedback godoc
// @Summary Submit feedback for event
// @Tags Participation
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body feedbackPayload true "Feedback payload"
// @Success 201 {object} response.Envelope
// @Router /events/{id}/feedback [post]
func (h *EventHandler) SubmitFeedback(c *gin.Context) {
	var payload feedbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	feedback, err := h.participation.SubmitFeedback(c.Request.Context(), service.SubmitFeedbackRequest{
		StudentID: payload.StudentID,
		EventID:   c.Param("id"),
		Rating:    payload.Rating,
		Comment:   payload.Comment,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, feedback)
}

// ParticipationState godoc
// @Summary Derived participation state for a student/event pair
// @Tags Participation
// @Produce json
// @Param id path string true "Event ID"
// @Param studentId query string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/participation [get]
func (h *EventHandler) ParticipationState(c *gin.Context) {
	state, err := h.participation.State(c.Request.Context(), c.Query("studentId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// AttendanceReport godoc
// @Summary Event attendance report
// @Tags Reports
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/report [get]
func (h *EventHandler) AttendanceReport(c *gin.Context) {
	report, err := h.reports.EventAttendance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

type registerPayload struct {
	StudentID string `json:"student_id" binding:"required"`
}

type attendancePayload struct {
	StudentID string `json:"student_id" binding:"required"`
	Method    string `json:"method"`
}

type feedbackPayload struct {
	StudentID string `json:"student_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required"`
	Comment   string `json:"comment"`
}
