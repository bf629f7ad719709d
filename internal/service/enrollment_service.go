package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trainhub/enroll-api/internal/domain"
	"github.com/trainhub/enroll-api/internal/models"
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

type enrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id int64) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id int64) (*models.EnrollmentDetail, error)
	ExistsActive(ctx context.Context, userID, courseID int64) (bool, error)
	Cancel(ctx context.Context, id int64, cancelledAt time.Time) (bool, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	ListCoursesByUser(ctx context.Context, userID int64) ([]models.EnrolledCourse, error)
	CancelAllByCourse(ctx context.Context, courseID int64) (int, error)
}

type enrollmentUserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type enrollmentCourseRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

// EnrollmentService drives the enrollment lifecycle. Enrollment
// preconditions are checked in a fixed order: participant, course
// existence, duplicate enrollment, course status. Callers can rely on
// that order when interpreting errors.
type EnrollmentService struct {
	repo      enrollmentRepository
	users     enrollmentUserRepository
	courses   enrollmentCourseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService instance.
func NewEnrollmentService(repo enrollmentRepository, users enrollmentUserRepository, courses enrollmentCourseRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{repo: repo, users: users, courses: courses, validator: validate, logger: logger}
}

// Enroll creates an active enrollment for the acting participant.
func (s *EnrollmentService) Enroll(ctx context.Context, actor domain.Actor, req models.EnrollRequest) (*models.Enrollment, error) {
	if err := domain.Decide(actor, domain.OpEnroll, 0).Err(domain.OpEnroll, actor.Role); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	// 1. The participant must exist.
	if _, err := s.users.FindByID(ctx, actor.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("user", actor.ID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	// 2. The course must exist.
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("course", req.CourseID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	// 3. No second active enrollment for the same pair.
	exists, err := s.repo.ExistsActive(ctx, actor.ID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.WithDetails(appErrors.ErrConflict,
			"user is already enrolled in this course",
			appErrors.Details{"userId": actor.ID, "courseId": req.CourseID})
	}

	// 4. The course must still accept enrollments.
	validated, err := course.Domain()
	if err != nil {
		return nil, err
	}
	if !validated.CanAcceptEnrollments() {
		return nil, appErrors.WithDetails(appErrors.ErrValidation,
			"cannot enroll in a course that is not active",
			appErrors.Details{"courseId": course.ID, "status": string(course.Status)})
	}

	enrollment := &models.Enrollment{
		UserID:   actor.ID,
		CourseID: req.CourseID,
		Status:   domain.EnrollmentStatusActive,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, err
	}

	s.logger.Info("enrollment created",
		zap.Int64("enrollment_id", enrollment.ID),
		zap.Int64("user_id", actor.ID),
		zap.Int64("course_id", req.CourseID))
	return enrollment, nil
}

// Cancel cancels the actor's own enrollment. Cancelling is not
// idempotent: a second cancel is a conflict, not a no-op.
func (s *EnrollmentService) Cancel(ctx context.Context, actor domain.Actor, enrollmentID int64) (*models.Enrollment, error) {
	if err := domain.Decide(actor, domain.OpCancelEnrollment, 0).Err(domain.OpCancelEnrollment, actor.Role); err != nil {
		return nil, err
	}

	enrollment, err := s.loadForCancel(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.UserID != actor.ID {
		return nil, appErrors.Forbidden("cancel own enrollment", []string{string(domain.RoleParticipant)}, string(actor.Role))
	}

	return s.cancel(ctx, enrollment)
}

// CancelForUser cancels any user's enrollment on their behalf.
func (s *EnrollmentService) CancelForUser(ctx context.Context, actor domain.Actor, enrollmentID int64) (*models.Enrollment, error) {
	if err := domain.Decide(actor, domain.OpCancelUserEnrollment, 0).Err(domain.OpCancelUserEnrollment, actor.Role); err != nil {
		return nil, err
	}

	enrollment, err := s.loadForCancel(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, enrollment)
}

func (s *EnrollmentService) loadForCancel(ctx context.Context, enrollmentID int64) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("enrollment", enrollmentID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment, nil
}

func (s *EnrollmentService) cancel(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, error) {
	current, err := domain.NewEnrollment(enrollment.ID, enrollment.UserID, enrollment.CourseID, enrollment.Status, nil)
	if err != nil {
		return nil, err
	}
	if _, err := current.Cancel(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	done, err := s.repo.Cancel(ctx, enrollment.ID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel enrollment")
	}
	if !done {
		// Lost the race to another cancel.
		return nil, appErrors.WithDetails(appErrors.ErrConflict,
			"enrollment is already cancelled",
			appErrors.Details{"enrollmentId": enrollment.ID})
	}

	enrollment.Status = domain.EnrollmentStatusCancelled
	enrollment.CancelledAt = &now
	s.logger.Info("enrollment cancelled", zap.Int64("enrollment_id", enrollment.ID))
	return enrollment, nil
}

// MyCourses returns the actor's active enrollments grouped by the
// status of the underlying course.
func (s *EnrollmentService) MyCourses(ctx context.Context, actor domain.Actor) (*models.UserCourses, error) {
	if err := domain.Decide(actor, domain.OpViewOwnEnrollments, 0).Err(domain.OpViewOwnEnrollments, actor.Role); err != nil {
		return nil, err
	}

	courses, err := s.repo.ListCoursesByUser(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	grouped := &models.UserCourses{
		Active:   []models.EnrolledCourse{},
		Finished: []models.EnrolledCourse{},
	}
	for _, course := range courses {
		if course.CourseStatus == domain.CourseStatusFinished {
			grouped.Finished = append(grouped.Finished, course)
		} else {
			grouped.Active = append(grouped.Active, course)
		}
	}
	return grouped, nil
}

// List returns enrollments matching the filter, with course and user
// context for each row. Admin and trainer only.
func (s *EnrollmentService) List(ctx context.Context, actor domain.Actor, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	op := domain.OpViewAllEnrollments
	switch {
	case filter.UserID != 0:
		op = domain.OpViewUserEnrollments
	case filter.CourseID != 0:
		op = domain.OpViewCourseEnrollments
	}
	if err := domain.Decide(actor, op, 0).Err(op, actor.Role); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filter)
}

// Get returns one enrollment with its context. Participants may only
// fetch their own rows.
func (s *EnrollmentService) Get(ctx context.Context, actor domain.Actor, enrollmentID int64) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("enrollment", enrollmentID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if detail.UserID != actor.ID {
		if err := domain.Decide(actor, domain.OpViewAllEnrollments, 0).Err(domain.OpViewAllEnrollments, actor.Role); err != nil {
			return nil, err
		}
	}
	return detail, nil
}

// CancelAllByCourse cancels every active enrollment of a course, used
// when a course wraps up without deleting it.
func (s *EnrollmentService) CancelAllByCourse(ctx context.Context, actor domain.Actor, courseID int64) (*models.BulkCancelResult, error) {
	if err := domain.Decide(actor, domain.OpCancelUserEnrollment, 0).Err(domain.OpCancelUserEnrollment, actor.Role); err != nil {
		return nil, err
	}

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("course", courseID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	cancelled, err := s.repo.CancelAllByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel enrollments")
	}

	s.logger.Info("course enrollments cancelled",
		zap.Int64("course_id", courseID),
		zap.Int("cancelled", cancelled))
	return &models.BulkCancelResult{Cancelled: cancelled}, nil
}
