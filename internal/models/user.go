package models

import (
	"time"

	"github.com/trainhub/enroll-api/internal/domain"
)

// User represents an application user stored in the users table.
type User struct {
	ID                    int64           `db:"id" json:"id"`
	Email                 string          `db:"email" json:"email"`
	PasswordHash          string          `db:"password_hash" json:"-"`
	Role                  domain.UserRole `db:"role" json:"role"`
	ActiveEnrollmentCount int             `db:"active_enrollment_count" json:"enrollmentCount"`
	CreatedAt             time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updatedAt"`
}

// Domain converts the row into its validated domain form.
func (u User) Domain() (domain.User, error) {
	return domain.NewUser(u.ID, u.Email, u.Role, u.ActiveEnrollmentCount)
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *domain.UserRole
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// UpdateUserRequest payload for profile updates.
type UpdateUserRequest struct {
	Email *string `json:"email" validate:"omitempty,email,max=255"`
}

// ChangeRoleRequest payload for role assignment.
type ChangeRoleRequest struct {
	Role domain.UserRole `json:"role" validate:"required"`
}

// DeleteUserRequest carries the password confirmation required for
// self-deletion. Admins deleting other accounts leave it empty.
type DeleteUserRequest struct {
	Password string `json:"password"`
}

// UserDeletionResult reports the outcome of a user deletion cascade.
type UserDeletionResult struct {
	Deleted              bool `json:"deleted"`
	EnrollmentsCancelled int  `json:"enrollmentsCancelled"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}
