package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

func TestDecideRoleMatrix(t *testing.T) {
	cases := []struct {
		op          Operation
		admin       bool
		trainer     bool
		participant bool
	}{
		{OpCreateCourse, true, true, false},
		{OpUpdateCourse, true, true, false},
		{OpDeleteCourse, true, true, false},
		{OpViewCourse, true, true, true},
		{OpChangePassword, true, true, true},
		{OpViewOwnEnrollments, true, true, true},
		{OpListUsers, true, false, false},
		{OpChangeRole, true, false, false},
		{OpForceDeleteUser, true, false, false},
		{OpForceDeleteCourse, true, false, false},
		{OpViewStatistics, true, false, false},
		{OpEnroll, false, false, true},
		{OpCancelEnrollment, false, false, true},
		{OpViewAllEnrollments, true, true, false},
		{OpViewUserEnrollments, true, true, false},
		{OpViewCourseEnrollments, true, true, false},
		{OpCancelUserEnrollment, true, true, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.op), func(t *testing.T) {
			assert.Equal(t, tc.admin, Decide(Actor{ID: 1, Role: RoleAdmin}, tc.op, 0).Allowed, "admin")
			assert.Equal(t, tc.trainer, Decide(Actor{ID: 2, Role: RoleTrainer}, tc.op, 0).Allowed, "trainer")
			assert.Equal(t, tc.participant, Decide(Actor{ID: 3, Role: RoleParticipant}, tc.op, 0).Allowed, "participant")
		})
	}
}

func TestDecideSelfOperations(t *testing.T) {
	participant := Actor{ID: 3, Role: RoleParticipant}
	trainer := Actor{ID: 2, Role: RoleTrainer}

	// Own record: view/update/delete allowed regardless of role.
	for _, op := range []Operation{OpViewUser, OpUpdateUser, OpDeleteUser} {
		assert.True(t, Decide(participant, op, 3).Allowed, string(op))
		assert.True(t, Decide(trainer, op, 2).Allowed, string(op))
		assert.False(t, Decide(participant, op, 4).Allowed, string(op))
		assert.False(t, Decide(trainer, op, 4).Allowed, string(op))
		assert.True(t, Decide(Actor{ID: 1, Role: RoleAdmin}, op, 4).Allowed, string(op))
	}

	// Role changes are never a self operation for non-admins.
	assert.False(t, Decide(participant, OpChangeRole, 3).Allowed)
	assert.False(t, Decide(trainer, OpChangeRole, 2).Allowed)
	assert.True(t, Decide(Actor{ID: 1, Role: RoleAdmin}, OpChangeRole, 1).Allowed)
}

func TestDecisionErrCarriesRoles(t *testing.T) {
	decision := Decide(Actor{ID: 3, Role: RoleParticipant}, OpCreateCourse, 0)
	require.False(t, decision.Allowed)

	err := decision.Err(OpCreateCourse, RoleParticipant)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Equal(t, string(RoleParticipant), appErr.Details["currentRole"])
	assert.ElementsMatch(t, []string{"ADMIN", "TRAINER"}, appErr.Details["requiredRoles"])

	allowed := Decide(Actor{ID: 1, Role: RoleAdmin}, OpCreateCourse, 0)
	assert.NoError(t, allowed.Err(OpCreateCourse, RoleAdmin))
}
