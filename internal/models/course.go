package models

import (
	"time"

	"github.com/trainhub/enroll-api/internal/domain"
)

// Course represents a course stored in the courses table. The
// enrollment count is the number of active enrollments, filled by a
// subquery on read.
type Course struct {
	ID              int64               `db:"id" json:"id"`
	Title           string              `db:"title" json:"title"`
	Description     string              `db:"description" json:"description"`
	Status          domain.CourseStatus `db:"status" json:"status"`
	EnrollmentCount int                 `db:"enrollment_count" json:"enrollmentCount"`
	CreatedAt       time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updatedAt"`
}

// Domain converts the row into its validated domain form.
func (c Course) Domain() (domain.Course, error) {
	return domain.NewCourse(c.ID, c.Title, c.Description, c.Status, c.EnrollmentCount)
}

// CreateCourseRequest payload for creating a course.
type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// UpdateCourseRequest payload for partial course updates.
type UpdateCourseRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *domain.CourseStatus `json:"status"`
}

// CourseFilter captures filtering criteria for listing courses.
type CourseFilter struct {
	Status         *domain.CourseStatus
	EnrolledUserID int64
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// CourseDeletionResult reports the outcome of a course deletion.
type CourseDeletionResult struct {
	Deleted            bool `json:"deleted"`
	EnrollmentsDeleted int  `json:"enrollmentsDeleted"`
}
