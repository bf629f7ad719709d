package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserEmailValidation(t *testing.T) {
	cases := []struct {
		name  string
		email string
		ok    bool
	}{
		{"valid", "user@example.com", true},
		{"empty", "", false},
		{"blank", "   ", false},
		{"missing at", "user.example.com", false},
		{"missing domain dot", "user@example", false},
		{"contains spaces", "us er@example.com", false},
		{"too long", strings.Repeat("a", 250) + "@ex.com", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewUser(1, tc.email, RoleParticipant, 0)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
		})
	}
}

func TestNewUserRoleValidation(t *testing.T) {
	for _, role := range Roles {
		_, err := NewUser(1, "user@example.com", role, 0)
		require.NoError(t, err)
	}

	_, err := NewUser(1, "user@example.com", UserRole("MODERATOR"), 0)
	require.Error(t, err)

	_, err = NewUser(1, "user@example.com", RoleParticipant, -1)
	require.Error(t, err)
}

func TestUserPredicates(t *testing.T) {
	admin, err := NewUser(1, "admin@example.com", RoleAdmin, 0)
	require.NoError(t, err)
	trainer, err := NewUser(2, "trainer@example.com", RoleTrainer, 0)
	require.NoError(t, err)
	participant, err := NewUser(3, "user@example.com", RoleParticipant, 2)
	require.NoError(t, err)

	assert.True(t, admin.CanManageCourses())
	assert.True(t, trainer.CanManageCourses())
	assert.False(t, participant.CanManageCourses())

	assert.False(t, admin.CanEnrollInCourses())
	assert.False(t, trainer.CanEnrollInCourses())
	assert.True(t, participant.CanEnrollInCourses())

	assert.True(t, admin.CanBeDeleted())
	assert.False(t, participant.CanBeDeleted())
	assert.True(t, participant.HasActiveEnrollments())
}

func TestUserTransitions(t *testing.T) {
	user, err := NewUser(7, "user@example.com", RoleParticipant, 1)
	require.NoError(t, err)

	promoted, err := user.WithRole(RoleTrainer)
	require.NoError(t, err)
	assert.Equal(t, RoleTrainer, promoted.Role)
	assert.Equal(t, RoleParticipant, user.Role)

	renamed, err := user.WithEmail("new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", renamed.Email)

	_, err = user.WithEmail("broken")
	require.Error(t, err)

	cleared, err := user.WithActiveEnrollmentCount(0)
	require.NoError(t, err)
	assert.True(t, cleared.CanBeDeleted())
}
