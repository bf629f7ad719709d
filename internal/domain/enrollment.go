package domain

import (
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

// EnrollmentStatus is the lifecycle state of an enrollment. Cancelled is
// terminal.
type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCancelled EnrollmentStatus = "cancelled"
)

// Valid reports whether the status is a known variant.
func (s EnrollmentStatus) Valid() bool {
	return s == EnrollmentStatusActive || s == EnrollmentStatusCancelled
}

// CourseRef is a denormalized course snapshot attached to an enrollment
// for display purposes.
type CourseRef struct {
	ID     int64        `json:"id"`
	Title  string       `json:"title"`
	Status CourseStatus `json:"status"`
}

// Enrollment is an immutable, validated view of the user↔course bridge
// row.
type Enrollment struct {
	ID       int64            `json:"id"`
	UserID   int64            `json:"userId"`
	CourseID int64            `json:"courseId"`
	Status   EnrollmentStatus `json:"status"`
	Course   *CourseRef       `json:"course,omitempty"`
}

// NewEnrollment validates raw attributes and returns an Enrollment value.
func NewEnrollment(id, userID, courseID int64, status EnrollmentStatus, course *CourseRef) (Enrollment, error) {
	if userID <= 0 {
		return Enrollment{}, appErrors.Validation("userId", "must be a positive integer")
	}
	if courseID <= 0 {
		return Enrollment{}, appErrors.Validation("courseId", "must be a positive integer")
	}
	if !status.Valid() {
		return Enrollment{}, appErrors.Validation("status", "must be one of active, cancelled")
	}
	if course != nil && course.ID != courseID {
		return Enrollment{}, appErrors.Validation("course", "course snapshot ID mismatch")
	}
	return Enrollment{ID: id, UserID: userID, CourseID: courseID, Status: status, Course: course}, nil
}

func (e Enrollment) IsActive() bool    { return e.Status == EnrollmentStatusActive }
func (e Enrollment) IsCancelled() bool { return e.Status == EnrollmentStatusCancelled }

// CanBeCancelled reports whether the enrollment may transition to
// cancelled.
func (e Enrollment) CanBeCancelled() bool {
	return e.Status == EnrollmentStatusActive
}

// IsCourseActive reports whether the attached course snapshot is active.
func (e Enrollment) IsCourseActive() bool {
	return e.Course != nil && e.Course.Status == CourseStatusActive
}

// Cancel returns a cancelled copy, rejecting a second cancellation.
func (e Enrollment) Cancel() (Enrollment, error) {
	if !e.CanBeCancelled() {
		return Enrollment{}, appErrors.WithDetails(appErrors.ErrValidation,
			"cannot cancel enrollment that is not active",
			appErrors.Details{"enrollmentId": e.ID, "status": e.Status})
	}
	return NewEnrollment(e.ID, e.UserID, e.CourseID, EnrollmentStatusCancelled, e.Course)
}

// WithCourse returns a copy carrying the given course snapshot.
func (e Enrollment) WithCourse(course CourseRef) (Enrollment, error) {
	return NewEnrollment(e.ID, e.UserID, e.CourseID, e.Status, &course)
}

// CanUserEnroll reports whether a user may enroll given the course state
// and any existing enrollment for the same pair. The caller is expected
// to have already verified the actor's role.
func CanUserEnroll(courseStatus CourseStatus, existing *Enrollment) bool {
	if existing != nil && existing.IsActive() {
		return false
	}
	return courseStatus == CourseStatusActive
}
