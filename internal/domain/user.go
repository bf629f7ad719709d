package domain

import (
	"regexp"
	"strings"

	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User is an immutable, validated view of an application user. Every
// construction path re-runs validation, so a User value always satisfies
// its invariants regardless of where its raw attributes came from.
type User struct {
	ID                    int64    `json:"id"`
	Email                 string   `json:"email"`
	Role                  UserRole `json:"role"`
	ActiveEnrollmentCount int      `json:"enrollmentCount"`
}

// NewUser validates raw attributes and returns a User value.
func NewUser(id int64, email string, role UserRole, activeEnrollmentCount int) (User, error) {
	if err := validateEmail(email); err != nil {
		return User{}, err
	}
	if !role.Valid() {
		return User{}, appErrors.Validation("role", "must be one of ADMIN, TRAINER, PARTICIPANT")
	}
	if activeEnrollmentCount < 0 {
		return User{}, appErrors.Validation("enrollmentCount", "cannot be negative")
	}
	return User{ID: id, Email: email, Role: role, ActiveEnrollmentCount: activeEnrollmentCount}, nil
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return appErrors.Validation("email", "cannot be empty")
	}
	if !emailPattern.MatchString(email) {
		return appErrors.Validation("email", "invalid email format")
	}
	if len(email) > 255 {
		return appErrors.Validation("email", "cannot exceed 255 characters")
	}
	return nil
}

func (u User) IsAdmin() bool       { return u.Role == RoleAdmin }
func (u User) IsTrainer() bool     { return u.Role == RoleTrainer }
func (u User) IsParticipant() bool { return u.Role == RoleParticipant }

// CanManageCourses reports whether the user may create, update or delete
// courses.
func (u User) CanManageCourses() bool {
	return u.IsAdmin() || u.IsTrainer()
}

// CanEnrollInCourses reports whether the user may enroll as a participant.
func (u User) CanEnrollInCourses() bool {
	return u.IsParticipant()
}

// CanBeDeleted reports whether the user can be removed without a cascade.
func (u User) CanBeDeleted() bool {
	return u.ActiveEnrollmentCount == 0
}

// HasActiveEnrollments reports whether any active enrollments reference
// the user.
func (u User) HasActiveEnrollments() bool {
	return u.ActiveEnrollmentCount > 0
}

// WithEmail returns a copy with the email replaced, re-validated.
func (u User) WithEmail(email string) (User, error) {
	return NewUser(u.ID, email, u.Role, u.ActiveEnrollmentCount)
}

// WithRole returns a copy with the role replaced, re-validated.
func (u User) WithRole(role UserRole) (User, error) {
	return NewUser(u.ID, u.Email, role, u.ActiveEnrollmentCount)
}

// WithActiveEnrollmentCount returns a copy with the derived count replaced.
func (u User) WithActiveEnrollmentCount(count int) (User, error) {
	return NewUser(u.ID, u.Email, u.Role, count)
}
