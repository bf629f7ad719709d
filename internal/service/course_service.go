package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trainhub/enroll-api/internal/domain"
	"github.com/trainhub/enroll-api/internal/models"
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Delete(ctx context.Context, id int64, force bool) (int, error)
}

// CourseService provides course management use cases.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService instance.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// Create validates and persists a new course. New courses always start
// active.
func (s *CourseService) Create(ctx context.Context, actor domain.Actor, req models.CreateCourseRequest) (*models.Course, error) {
	if err := domain.Decide(actor, domain.OpCreateCourse, 0).Err(domain.OpCreateCourse, actor.Role); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	validated, err := domain.NewCourse(0, req.Title, req.Description, domain.CourseStatusActive, 0)
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		Title:       validated.Title,
		Description: validated.Description,
		Status:      validated.Status,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, err
	}

	s.logger.Info("course created", zap.Int64("course_id", course.ID))
	return course, nil
}

// Get returns a course by ID. Open to every authenticated role.
func (s *CourseService) Get(ctx context.Context, actor domain.Actor, id int64) (*models.Course, error) {
	if err := domain.Decide(actor, domain.OpViewCourse, 0).Err(domain.OpViewCourse, actor.Role); err != nil {
		return nil, err
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("course", id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// List returns courses matching the filter.
func (s *CourseService) List(ctx context.Context, actor domain.Actor, filter models.CourseFilter) ([]models.Course, int, error) {
	if err := domain.Decide(actor, domain.OpViewCourse, 0).Err(domain.OpViewCourse, actor.Role); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filter)
}

// Update applies a partial course update. Status changes go through the
// domain transition rules, so a finished course cannot be reopened.
func (s *CourseService) Update(ctx context.Context, actor domain.Actor, id int64, req models.UpdateCourseRequest) (*models.Course, error) {
	if err := domain.Decide(actor, domain.OpUpdateCourse, 0).Err(domain.OpUpdateCourse, actor.Role); err != nil {
		return nil, err
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("course", id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	current, err := course.Domain()
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if current, err = current.WithTitle(*req.Title); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		if current, err = current.WithDescription(*req.Description); err != nil {
			return nil, err
		}
	}
	if req.Status != nil {
		if current, err = current.WithStatus(*req.Status); err != nil {
			return nil, err
		}
	}

	course.Title = current.Title
	course.Description = current.Description
	course.Status = current.Status
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, err
	}

	s.logger.Info("course updated", zap.Int64("course_id", id))
	return course, nil
}

// Delete removes a course. Deleting a course with active enrollments
// requires force, which hard-deletes the enrollment rows; the check and
// the cascade run in the repository transaction. Force is an admin call.
func (s *CourseService) Delete(ctx context.Context, actor domain.Actor, id int64, force bool) (*models.CourseDeletionResult, error) {
	if err := domain.Decide(actor, domain.OpDeleteCourse, 0).Err(domain.OpDeleteCourse, actor.Role); err != nil {
		return nil, err
	}
	if force {
		if err := domain.Decide(actor, domain.OpForceDeleteCourse, 0).Err(domain.OpForceDeleteCourse, actor.Role); err != nil {
			return nil, err
		}
	}

	deleted, err := s.repo.Delete(ctx, id, force)
	if err != nil {
		return nil, err
	}

	s.logger.Info("course deleted",
		zap.Int64("course_id", id),
		zap.Bool("force", force),
		zap.Int("enrollments_deleted", deleted))
	return &models.CourseDeletionResult{Deleted: true, EnrollmentsDeleted: deleted}, nil
}
