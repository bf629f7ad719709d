package domain

// UserRole is the closed set of roles understood by the permission rules.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleTrainer     UserRole = "TRAINER"
	RoleParticipant UserRole = "PARTICIPANT"
)

// Roles lists every valid role, in permission-matrix order.
var Roles = []UserRole{RoleAdmin, RoleTrainer, RoleParticipant}

// Valid reports whether the role is one of the three known variants.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTrainer, RoleParticipant:
		return true
	}
	return false
}

// IsValidRoleTransition reports whether a role change from one role to
// another is permitted. Every transition is currently allowed; the hook
// exists so rules such as protecting the last remaining admin can be
// added without touching callers.
func IsValidRoleTransition(from, to UserRole) bool {
	return from.Valid() && to.Valid()
}
