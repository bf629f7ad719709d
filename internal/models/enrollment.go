package models

import (
	"time"

	"github.com/trainhub/enroll-api/internal/domain"
)

// Enrollment captures a participant's registration to a course.
type Enrollment struct {
	ID          int64                   `db:"id" json:"id"`
	UserID      int64                   `db:"user_id" json:"userId"`
	CourseID    int64                   `db:"course_id" json:"courseId"`
	Status      domain.EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt  time.Time               `db:"enrolled_at" json:"enrolledAt"`
	CancelledAt *time.Time              `db:"cancelled_at" json:"cancelledAt,omitempty"`
}

// EnrollmentDetail enriches Enrollment with course and user info.
type EnrollmentDetail struct {
	Enrollment
	CourseTitle  string              `db:"course_title" json:"courseTitle"`
	CourseStatus domain.CourseStatus `db:"course_status" json:"courseStatus"`
	UserEmail    string              `db:"user_email" json:"userEmail"`
}

// Domain converts the detail row into its validated domain form,
// carrying the course snapshot along.
func (e EnrollmentDetail) Domain() (domain.Enrollment, error) {
	return domain.NewEnrollment(e.ID, e.UserID, e.CourseID, e.Status, &domain.CourseRef{
		ID:     e.CourseID,
		Title:  e.CourseTitle,
		Status: e.CourseStatus,
	})
}

// EnrollRequest payload for enrolling in a course.
type EnrollRequest struct {
	CourseID int64 `json:"courseId" validate:"required,gt=0"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	UserID    int64
	CourseID  int64
	Status    *domain.EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// EnrolledCourse is one entry of a participant's course list.
type EnrolledCourse struct {
	EnrollmentID int64               `db:"enrollment_id" json:"enrollmentId"`
	CourseID     int64               `db:"course_id" json:"courseId"`
	Title        string              `db:"title" json:"title"`
	Description  string              `db:"description" json:"description"`
	CourseStatus domain.CourseStatus `db:"course_status" json:"courseStatus"`
	EnrolledAt   time.Time           `db:"enrolled_at" json:"enrolledAt"`
}

// UserCourses groups a participant's active enrollments by the status
// of the underlying course.
type UserCourses struct {
	Active   []EnrolledCourse `json:"active"`
	Finished []EnrolledCourse `json:"finished"`
}

// BulkCancelResult reports how many enrollments a bulk operation closed.
type BulkCancelResult struct {
	Cancelled int `json:"cancelled"`
}
