package domain

import (
	"strings"

	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

// CourseStatus is the lifecycle state of a course.
type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "active"
	CourseStatusFinished CourseStatus = "finished"
)

// Valid reports whether the status is a known variant.
func (s CourseStatus) Valid() bool {
	return s == CourseStatusActive || s == CourseStatusFinished
}

// Title and description length bounds, counted in bytes on the raw value.
const (
	courseTitleMin       = 3
	courseTitleMax       = 100
	courseDescriptionMin = 10
	courseDescriptionMax = 1000
)

// Course is an immutable, validated view of a course. EnrollmentCount is
// the number of active enrollments referencing it, recomputed by the
// storage layer on every load.
type Course struct {
	ID              int64        `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Status          CourseStatus `json:"status"`
	EnrollmentCount int          `json:"enrollmentCount"`
}

// NewCourse validates raw attributes and returns a Course value.
func NewCourse(id int64, title, description string, status CourseStatus, enrollmentCount int) (Course, error) {
	if err := validateTitle(title); err != nil {
		return Course{}, err
	}
	if err := validateDescription(description); err != nil {
		return Course{}, err
	}
	if !status.Valid() {
		return Course{}, appErrors.Validation("status", "must be one of active, finished")
	}
	if enrollmentCount < 0 {
		return Course{}, appErrors.Validation("enrollmentCount", "cannot be negative")
	}
	return Course{ID: id, Title: title, Description: description, Status: status, EnrollmentCount: enrollmentCount}, nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return appErrors.Validation("title", "cannot be empty")
	}
	if len(title) < courseTitleMin {
		return appErrors.Validation("title", "must be at least 3 characters long")
	}
	if len(title) > courseTitleMax {
		return appErrors.Validation("title", "cannot exceed 100 characters")
	}
	return nil
}

func validateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return appErrors.Validation("description", "cannot be empty")
	}
	if len(description) < courseDescriptionMin {
		return appErrors.Validation("description", "must be at least 10 characters long")
	}
	if len(description) > courseDescriptionMax {
		return appErrors.Validation("description", "cannot exceed 1000 characters")
	}
	return nil
}

// CanAcceptEnrollments reports whether new enrollments may target the
// course.
func (c Course) CanAcceptEnrollments() bool {
	return c.Status == CourseStatusActive
}

// CanBeDeleted reports whether the course can be removed without a cascade.
func (c Course) CanBeDeleted() bool {
	return c.EnrollmentCount == 0
}

// CanBeFinished reports whether the course may transition to finished.
func (c Course) CanBeFinished() bool {
	return c.Status == CourseStatusActive
}

// HasActiveEnrollments reports whether any active enrollments reference
// the course.
func (c Course) HasActiveEnrollments() bool {
	return c.EnrollmentCount > 0
}

// WithStatus returns a copy in the new status. Finished is terminal: a
// finished course cannot be reactivated, and only an active course can
// be finished.
func (c Course) WithStatus(status CourseStatus) (Course, error) {
	if !status.Valid() {
		return Course{}, appErrors.Validation("status", "must be one of active, finished")
	}
	if status == c.Status {
		return c, nil
	}
	if status == CourseStatusFinished && !c.CanBeFinished() {
		return Course{}, appErrors.WithDetails(appErrors.ErrValidation,
			"cannot finish course that is not active",
			appErrors.Details{"from": c.Status, "to": status, "resource": "course"})
	}
	if c.Status == CourseStatusFinished {
		return Course{}, appErrors.WithDetails(appErrors.ErrValidation,
			"cannot reactivate a finished course",
			appErrors.Details{"from": c.Status, "to": status, "resource": "course"})
	}
	return NewCourse(c.ID, c.Title, c.Description, status, c.EnrollmentCount)
}

// WithTitle returns a copy with the title replaced, re-validated.
func (c Course) WithTitle(title string) (Course, error) {
	return NewCourse(c.ID, title, c.Description, c.Status, c.EnrollmentCount)
}

// WithDescription returns a copy with the description replaced.
func (c Course) WithDescription(description string) (Course, error) {
	return NewCourse(c.ID, c.Title, description, c.Status, c.EnrollmentCount)
}

// WithEnrollmentCount returns a copy with the derived count replaced.
func (c Course) WithEnrollmentCount(count int) (Course, error) {
	return NewCourse(c.ID, c.Title, c.Description, c.Status, count)
}
