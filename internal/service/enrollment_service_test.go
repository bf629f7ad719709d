package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainhub/enroll-api/internal/domain"
	"github.com/trainhub/enroll-api/internal/models"
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[int64]models.Enrollment
	active      map[[2]int64]bool
	created     *models.Enrollment
	cancelled   []int64
	courses     []models.EnrolledCourse
	nextID      int64
	cancelRaces bool
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = make(map[int64]models.Enrollment)
	}
	m.nextID++
	enrollment.ID = m.nextID
	enrollment.EnrolledAt = time.Now().UTC()
	m.enrollments[enrollment.ID] = *enrollment
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id int64) (*models.EnrollmentDetail, error) {
	if e, ok := m.enrollments[id]; ok {
		return &models.EnrollmentDetail{Enrollment: e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ExistsActive(ctx context.Context, userID, courseID int64) (bool, error) {
	return m.active[[2]int64{userID, courseID}], nil
}

func (m *mockEnrollmentRepo) Cancel(ctx context.Context, id int64, cancelledAt time.Time) (bool, error) {
	if m.cancelRaces {
		return false, nil
	}
	e, ok := m.enrollments[id]
	if !ok || e.Status != domain.EnrollmentStatusActive {
		return false, nil
	}
	e.Status = domain.EnrollmentStatusCancelled
	e.CancelledAt = &cancelledAt
	m.enrollments[id] = e
	m.cancelled = append(m.cancelled, id)
	return true, nil
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var list []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if filter.UserID != 0 && e.UserID != filter.UserID {
			continue
		}
		if filter.CourseID != 0 && e.CourseID != filter.CourseID {
			continue
		}
		list = append(list, models.EnrollmentDetail{Enrollment: e})
	}
	return list, len(list), nil
}

func (m *mockEnrollmentRepo) ListCoursesByUser(ctx context.Context, userID int64) ([]models.EnrolledCourse, error) {
	return m.courses, nil
}

func (m *mockEnrollmentRepo) CancelAllByCourse(ctx context.Context, courseID int64) (int, error) {
	count := 0
	for id, e := range m.enrollments {
		if e.CourseID == courseID && e.Status == domain.EnrollmentStatusActive {
			e.Status = domain.EnrollmentStatusCancelled
			m.enrollments[id] = e
			count++
		}
	}
	return count, nil
}

type mockUserReader struct {
	users map[int64]*models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type mockCourseReader struct {
	courses map[int64]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func participantActor() domain.Actor { return domain.Actor{ID: 7, Role: domain.RoleParticipant} }

func newEnrollmentService(repo *mockEnrollmentRepo, users *mockUserReader, courses *mockCourseReader) *EnrollmentService {
	if users == nil {
		users = &mockUserReader{users: map[int64]*models.User{
			7: {ID: 7, Email: "user@example.com", Role: domain.RoleParticipant},
		}}
	}
	if courses == nil {
		courses = &mockCourseReader{courses: map[int64]*models.Course{
			3: {ID: 3, Title: "Go basics", Description: "an introductory course", Status: domain.CourseStatusActive},
		}}
	}
	return NewEnrollmentService(repo, users, courses, nil, nil)
}

func TestEnrollSuccess(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, nil, nil)

	enrollment, err := svc.Enroll(context.Background(), participantActor(), models.EnrollRequest{CourseID: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(7), enrollment.UserID)
	assert.Equal(t, domain.EnrollmentStatusActive, enrollment.Status)
	require.NotNil(t, repo.created)
}

func TestEnrollRoleRestricted(t *testing.T) {
	svc := newEnrollmentService(&mockEnrollmentRepo{}, nil, nil)

	for _, role := range []domain.UserRole{domain.RoleAdmin, domain.RoleTrainer} {
		_, err := svc.Enroll(context.Background(), domain.Actor{ID: 1, Role: role}, models.EnrollRequest{CourseID: 3})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	}
}

func TestEnrollCourseNotFound(t *testing.T) {
	svc := newEnrollmentService(&mockEnrollmentRepo{}, nil, nil)

	_, err := svc.Enroll(context.Background(), participantActor(), models.EnrollRequest{CourseID: 99})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "course", appErr.Details["resource"])
}

func TestEnrollDuplicate(t *testing.T) {
	repo := &mockEnrollmentRepo{active: map[[2]int64]bool{{7, 3}: true}}
	svc := newEnrollmentService(repo, nil, nil)

	_, err := svc.Enroll(context.Background(), participantActor(), models.EnrollRequest{CourseID: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollFinishedCourse(t *testing.T) {
	courses := &mockCourseReader{courses: map[int64]*models.Course{
		3: {ID: 3, Title: "Go basics", Description: "an introductory course", Status: domain.CourseStatusFinished},
	}}
	svc := newEnrollmentService(&mockEnrollmentRepo{}, nil, courses)

	_, err := svc.Enroll(context.Background(), participantActor(), models.EnrollRequest{CourseID: 3})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "finished", appErr.Details["status"])
}

func TestEnrollPreconditionOrder(t *testing.T) {
	// A missing course must surface before a would-be duplicate check.
	repo := &mockEnrollmentRepo{active: map[[2]int64]bool{{7, 99}: true}}
	svc := newEnrollmentService(repo, nil, nil)

	_, err := svc.Enroll(context.Background(), participantActor(), models.EnrollRequest{CourseID: 99})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCancelOwnEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[int64]models.Enrollment{
		21: {ID: 21, UserID: 7, CourseID: 3, Status: domain.EnrollmentStatusActive},
	}}
	svc := newEnrollmentService(repo, nil, nil)

	enrollment, err := svc.Cancel(context.Background(), participantActor(), 21)
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentStatusCancelled, enrollment.Status)
	require.NotNil(t, enrollment.CancelledAt)
}

func TestCancelSomeoneElsesEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[int64]models.Enrollment{
		21: {ID: 21, UserID: 8, CourseID: 3, Status: domain.EnrollmentStatusActive},
	}}
	svc := newEnrollmentService(repo, nil, nil)

	_, err := svc.Cancel(context.Background(), participantActor(), 21)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCancelTwiceIsRejected(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[int64]models.Enrollment{
		21: {ID: 21, UserID: 7, CourseID: 3, Status: domain.EnrollmentStatusActive},
	}}
	svc := newEnrollmentService(repo, nil, nil)

	_, err := svc.Cancel(context.Background(), participantActor(), 21)
	require.NoError(t, err)

	// The enrollment is visibly cancelled by now: an invalid transition,
	// not a conflict.
	_, err = svc.Cancel(context.Background(), participantActor(), 21)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCancelLostRaceIsConflict(t *testing.T) {
	repo := &mockEnrollmentRepo{
		enrollments: map[int64]models.Enrollment{
			21: {ID: 21, UserID: 7, CourseID: 3, Status: domain.EnrollmentStatusActive},
		},
		cancelRaces: true,
	}
	svc := newEnrollmentService(repo, nil, nil)

	_, err := svc.Cancel(context.Background(), participantActor(), 21)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCancelForUserRequiresStaffRole(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[int64]models.Enrollment{
		21: {ID: 21, UserID: 7, CourseID: 3, Status: domain.EnrollmentStatusActive},
	}}
	svc := newEnrollmentService(repo, nil, nil)

	_, err := svc.CancelForUser(context.Background(), participantActor(), 21)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	enrollment, err := svc.CancelForUser(context.Background(), domain.Actor{ID: 2, Role: domain.RoleTrainer}, 21)
	require.NoError(t, err)
	assert.Equal(t, domain.EnrollmentStatusCancelled, enrollment.Status)
}

func TestMyCoursesGroupsByCourseStatus(t *testing.T) {
	repo := &mockEnrollmentRepo{courses: []models.EnrolledCourse{
		{EnrollmentID: 21, CourseID: 3, Title: "Go basics", CourseStatus: domain.CourseStatusActive},
		{EnrollmentID: 22, CourseID: 4, Title: "Advanced Go", CourseStatus: domain.CourseStatusFinished},
	}}
	svc := newEnrollmentService(repo, nil, nil)

	grouped, err := svc.MyCourses(context.Background(), participantActor())
	require.NoError(t, err)
	require.Len(t, grouped.Active, 1)
	require.Len(t, grouped.Finished, 1)
	assert.Equal(t, "Go basics", grouped.Active[0].Title)
	assert.Equal(t, "Advanced Go", grouped.Finished[0].Title)
}

func TestListEnrollmentsRequiresStaffRole(t *testing.T) {
	svc := newEnrollmentService(&mockEnrollmentRepo{}, nil, nil)

	_, _, err := svc.List(context.Background(), participantActor(), models.EnrollmentFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = svc.List(context.Background(), domain.Actor{ID: 2, Role: domain.RoleTrainer}, models.EnrollmentFilter{})
	require.NoError(t, err)
}

func TestCancelAllByCourse(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[int64]models.Enrollment{
		21: {ID: 21, UserID: 7, CourseID: 3, Status: domain.EnrollmentStatusActive},
		22: {ID: 22, UserID: 8, CourseID: 3, Status: domain.EnrollmentStatusActive},
		23: {ID: 23, UserID: 9, CourseID: 4, Status: domain.EnrollmentStatusActive},
	}}
	svc := newEnrollmentService(repo, nil, nil)

	result, err := svc.CancelAllByCourse(context.Background(), domain.Actor{ID: 1, Role: domain.RoleAdmin}, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Cancelled)
}
