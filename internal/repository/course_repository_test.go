package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trainhub/enroll-api/internal/domain"
	"github.com/trainhub/enroll-api/internal/models"
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

func courseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "description", "status", "created_at", "updated_at", "enrollment_count"})
}

func TestCourseFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM courses c WHERE c.id = \$1 LIMIT 1`).
		WithArgs(int64(3)).
		WillReturnRows(courseRows().AddRow(int64(3), "Go basics", "an introductory course", "active", now, now, 5))

	course, err := repo.FindByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Go basics", course.Title)
	assert.Equal(t, 5, course.EnrollmentCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM courses c WHERE c.id = \$1 LIMIT 1`).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 99)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("INSERT INTO courses").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	course := &models.Course{Title: "Go basics", Description: "an introductory course"}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.Equal(t, int64(11), course.ID)
	assert.Equal(t, domain.CourseStatusActive, course.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseDeleteForce(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM courses WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments WHERE course_id = \$1 AND status = 'active'`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(`DELETE FROM enrollments WHERE course_id = \$1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM courses WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := repo.Delete(context.Background(), 3, true)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseDeleteWithoutForceKeepsCancelledHistory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	// Only cancelled enrollments remain; the course goes but their rows
	// stay. No DELETE FROM enrollments is expected on this path.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM courses WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments WHERE course_id = \$1 AND status = 'active'`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`DELETE FROM courses WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := repo.Delete(context.Background(), 3, false)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseDeleteBlockedWithoutForce(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM courses WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments WHERE course_id = \$1 AND status = 'active'`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.Delete(context.Background(), 3, false)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, int64(3), appErr.Details["courseId"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM courses c WHERE 1=1 AND c.status = \$1 ORDER BY c.created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs(domain.CourseStatusActive).
		WillReturnRows(courseRows().AddRow(int64(1), "Go basics", "an introductory course", "active", now, now, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM courses c WHERE 1=1 AND c.status = \$1`).
		WithArgs(domain.CourseStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status := domain.CourseStatusActive
	courses, total, err := repo.List(context.Background(), models.CourseFilter{Status: &status})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
