package domain

import (
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

// Operation names a guarded action. Every operation/role pair has a
// defined outcome in Decide; anything unknown is denied.
type Operation string

const (
	OpCreateCourse          Operation = "create course"
	OpUpdateCourse          Operation = "update course"
	OpDeleteCourse          Operation = "delete course"
	OpForceDeleteCourse     Operation = "force delete course"
	OpViewCourse            Operation = "view course"
	OpListUsers             Operation = "list users"
	OpViewUser              Operation = "view user profile"
	OpUpdateUser            Operation = "update user profile"
	OpDeleteUser            Operation = "delete user"
	OpForceDeleteUser       Operation = "force delete user"
	OpChangeRole            Operation = "change user role"
	OpChangePassword        Operation = "change own password"
	OpEnroll                Operation = "enroll in course"
	OpCancelEnrollment      Operation = "cancel own enrollment"
	OpViewOwnEnrollments    Operation = "view own enrollments"
	OpViewAllEnrollments    Operation = "view all enrollments"
	OpViewUserEnrollments   Operation = "view user enrollments"
	OpViewCourseEnrollments Operation = "view course enrollments"
	OpCancelUserEnrollment  Operation = "cancel user enrollment"
	OpViewStatistics        Operation = "view statistics"
)

// Actor is the authenticated identity evaluated against the matrix.
type Actor struct {
	ID   int64
	Role UserRole
}

// Decision is the outcome of a permission check. Required always lists
// the roles that would have been sufficient, so a denial can report both
// sides of the mismatch.
type Decision struct {
	Allowed  bool
	Required []UserRole
}

// Err converts a denial into the Forbidden error for the operation. It
// returns nil when the decision allows the operation.
func (d Decision) Err(op Operation, actual UserRole) error {
	if d.Allowed {
		return nil
	}
	required := make([]string, len(d.Required))
	for i, r := range d.Required {
		required[i] = string(r)
	}
	return appErrors.Forbidden(string(op), required, string(actual))
}

// Decide evaluates the role matrix for an actor, an operation, and the
// user the operation targets (zero when the target is not a user). The
// function is total: every operation resolves to an explicit rule and
// unknown operations are denied for all roles.
func Decide(actor Actor, op Operation, targetUserID int64) Decision {
	self := targetUserID != 0 && actor.ID == targetUserID

	switch op {
	case OpViewCourse, OpChangePassword, OpViewOwnEnrollments:
		return Decision{Allowed: true, Required: Roles}

	case OpCreateCourse, OpUpdateCourse, OpDeleteCourse:
		return allowRoles(actor.Role, RoleAdmin, RoleTrainer)

	case OpViewAllEnrollments, OpViewUserEnrollments, OpViewCourseEnrollments, OpCancelUserEnrollment:
		return allowRoles(actor.Role, RoleAdmin, RoleTrainer)

	case OpViewUser, OpUpdateUser, OpDeleteUser:
		// Non-admins may operate on their own record only.
		if self {
			return Decision{Allowed: true, Required: []UserRole{RoleAdmin}}
		}
		return allowRoles(actor.Role, RoleAdmin)

	case OpListUsers, OpChangeRole, OpForceDeleteUser, OpForceDeleteCourse, OpViewStatistics:
		return allowRoles(actor.Role, RoleAdmin)

	case OpEnroll, OpCancelEnrollment:
		return allowRoles(actor.Role, RoleParticipant)
	}

	return Decision{Allowed: false}
}

func allowRoles(actual UserRole, required ...UserRole) Decision {
	for _, r := range required {
		if actual == r {
			return Decision{Allowed: true, Required: required}
		}
	}
	return Decision{Allowed: false, Required: required}
}
