package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainhub/enroll-api/internal/models"
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

func TestEnrollmentCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("INSERT INTO enrollments").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(21)))

	enrollment := &models.Enrollment{UserID: 7, CourseID: 3}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.Equal(t, int64(21), enrollment.ID)
	assert.False(t, enrollment.EnrolledAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := repo.Create(context.Background(), &models.Enrollment{UserID: 7, CourseID: 3})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, int64(7), appErr.Details["userId"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentExistsActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM enrollments WHERE user_id = \$1 AND course_id = \$2 AND status = 'active' LIMIT 1`).
		WithArgs(int64(7), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsActive(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(`SELECT 1 FROM enrollments WHERE user_id = \$1 AND course_id = \$2 AND status = 'active' LIMIT 1`).
		WithArgs(int64(7), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsActive(context.Background(), 7, 4)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentCancel(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE enrollments SET status = 'cancelled', cancelled_at = \$2 WHERE id = \$1 AND status = 'active'`).
		WithArgs(int64(21), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	done, err := repo.Cancel(context.Background(), 21, now)
	require.NoError(t, err)
	assert.True(t, done)

	mock.ExpectExec(`UPDATE enrollments SET status = 'cancelled', cancelled_at = \$2 WHERE id = \$1 AND status = 'active'`).
		WithArgs(int64(21), now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	done, err = repo.Cancel(context.Background(), 21, now)
	require.NoError(t, err)
	assert.False(t, done)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "course_id", "status", "enrolled_at", "cancelled_at", "course_title", "course_status", "user_email"}).
		AddRow(int64(21), int64(7), int64(3), "active", now, nil, "Go basics", "active", "user@example.com")
	mock.ExpectQuery(`SELECT e.id, .+ FROM enrollments e`).
		WithArgs(int64(3)).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments e`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.List(context.Background(), models.EnrollmentFilter{CourseID: 3})
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Go basics", enrollments[0].CourseTitle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentListCoursesByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"enrollment_id", "course_id", "title", "description", "course_status", "enrolled_at"}).
		AddRow(int64(21), int64(3), "Go basics", "an introductory course", "active", now).
		AddRow(int64(22), int64(4), "Advanced Go", "a deep dive course", "finished", now)
	mock.ExpectQuery(`SELECT e.id AS enrollment_id, .+ FROM enrollments e`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	courses, err := repo.ListCoursesByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "Go basics", courses[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentCancelAllByCourse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(`UPDATE enrollments SET status = 'cancelled', cancelled_at = \$2 WHERE course_id = \$1 AND status = 'active'`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	cancelled, err := repo.CancelAllByCourse(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 4, cancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentCountByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"total", "active", "cancelled"}).AddRow(12, 8, 4)
	mock.ExpectQuery(`SELECT COUNT\(\*\) AS total`).WillReturnRows(rows)

	stats, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, stats.Active)
	assert.Equal(t, 4, stats.Cancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}
