package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuspulse/participation-api/internal/models"
	appErrors "github.com/campuspulse/participation-api/pkg/errors"
)

type collegeStore interface {
	Create(ctx context.Context, college *models.College) error
	List(ctx context.Context) ([]models.College, error)
	FindByID(ctx context.Context, id string) (*models.College, error)
}

// CreateCollegeRequest is the payload for creating a college.
type CreateCollegeRequest struct {
	Name string `json:"name" validate:"required,min=2,max=200"`
}

// CollegeService manages the college directory.
type CollegeService struct {
	colleges  collegeStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCollegeService constructs the college service.
func NewCollegeService(colleges collegeStore, validate *validator.Validate, logger *zap.Logger) *CollegeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollegeService{colleges: colleges, validator: validate, logger: logger}
}

// Create registers a new college.
func (s *CollegeService) Create(ctx context.Context, req CreateCollegeRequest) (*models.College, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid college payload")
	}
	college := &models.College{Name: req.Name}
	if err := s.colleges.Create(ctx, college); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create college")
	}
	s.logger.Info("college created", zap.String("college_id", college.ID), zap.String("name", college.Name))
	return college, nil
}

// List returns all colleges.
func (s *CollegeService) List(ctx context.Context) ([]models.College, error) {
	colleges, err := s.colleges.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list colleges")
	}
	if colleges == nil {
		colleges = []models.College{}
	}
	return colleges, nil
}

// Get returns one college.
func (s *CollegeService) Get(ctx context.Context, id string) (*models.College, error) {
	college, err := s.colleges.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "college not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load college")
	}
	return college, nil
}
