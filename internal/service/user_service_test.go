package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trainhub/enroll-api/internal/domain"
	"github.com/trainhub/enroll-api/internal/models"
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

type mockUserRepo struct {
	users        map[int64]*models.User
	deleted      []int64
	deleteResult int
	deleteErr    error
	roleChanges  map[int64]domain.UserRole
	emailChanges map[int64]string
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var list []models.User
	for _, u := range m.users {
		list = append(list, *u)
	}
	return list, len(list), nil
}

func (m *mockUserRepo) UpdateEmail(ctx context.Context, id int64, email string) error {
	if m.emailChanges == nil {
		m.emailChanges = make(map[int64]string)
	}
	m.emailChanges[id] = email
	return nil
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id int64, role domain.UserRole) error {
	if m.roleChanges == nil {
		m.roleChanges = make(map[int64]domain.UserRole)
	}
	m.roleChanges[id] = role
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64, force bool) (int, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return m.deleteResult, nil
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestUserGetSelfAndOthers(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{
		7: {ID: 7, Email: "user@example.com", Role: domain.RoleParticipant},
		8: {ID: 8, Email: "other@example.com", Role: domain.RoleParticipant},
	}}
	svc := NewUserService(repo, nil, nil)

	participant := domain.Actor{ID: 7, Role: domain.RoleParticipant}
	user, err := svc.Get(context.Background(), participant, 7)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)

	_, err = svc.Get(context.Background(), participant, 8)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(context.Background(), domain.Actor{ID: 1, Role: domain.RoleAdmin}, 8)
	require.NoError(t, err)
}

func TestUserListAdminOnly(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{}}
	svc := NewUserService(repo, nil, nil)

	_, _, err := svc.List(context.Background(), domain.Actor{ID: 2, Role: domain.RoleTrainer}, models.UserFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = svc.List(context.Background(), domain.Actor{ID: 1, Role: domain.RoleAdmin}, models.UserFilter{})
	require.NoError(t, err)
}

func TestUserUpdateEmailValidated(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{
		7: {ID: 7, Email: "user@example.com", Role: domain.RoleParticipant},
	}}
	svc := NewUserService(repo, nil, nil)
	actor := domain.Actor{ID: 7, Role: domain.RoleParticipant}

	bad := "not-an-email"
	_, err := svc.Update(context.Background(), actor, 7, models.UpdateUserRequest{Email: &bad})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	good := "new@example.com"
	user, err := svc.Update(context.Background(), actor, 7, models.UpdateUserRequest{Email: &good})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, "new@example.com", repo.emailChanges[7])
}

func TestUserChangeRoleAdminOnly(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{
		7: {ID: 7, Email: "user@example.com", Role: domain.RoleParticipant},
	}}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.ChangeRole(context.Background(), domain.Actor{ID: 7, Role: domain.RoleParticipant}, 7, models.ChangeRoleRequest{Role: domain.RoleAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	user, err := svc.ChangeRole(context.Background(), domain.Actor{ID: 1, Role: domain.RoleAdmin}, 7, models.ChangeRoleRequest{Role: domain.RoleTrainer})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTrainer, user.Role)
	assert.Equal(t, domain.RoleTrainer, repo.roleChanges[7])
}

func TestUserChangeRoleRejectsUnknownRole(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{
		7: {ID: 7, Email: "user@example.com", Role: domain.RoleParticipant},
	}}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.ChangeRole(context.Background(), domain.Actor{ID: 1, Role: domain.RoleAdmin}, 7, models.ChangeRoleRequest{Role: domain.UserRole("MODERATOR")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserSelfDeleteRequiresPassword(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{
		7: {ID: 7, Email: "user@example.com", Role: domain.RoleParticipant, PasswordHash: hashOf(t, "secret")},
	}}
	svc := NewUserService(repo, nil, nil)
	actor := domain.Actor{ID: 7, Role: domain.RoleParticipant}

	_, err := svc.Delete(context.Background(), actor, 7, false, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)

	_, err = svc.Delete(context.Background(), actor, 7, false, "wrong")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
	assert.Equal(t, "password", appErrors.FromError(err).Details["field"])
	assert.Empty(t, repo.deleted)

	result, err := svc.Delete(context.Background(), actor, 7, false, "secret")
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.Equal(t, []int64{7}, repo.deleted)
}

func TestUserDeleteOthersNeedsAdmin(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{
		8: {ID: 8, Email: "other@example.com", Role: domain.RoleParticipant},
	}}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Delete(context.Background(), domain.Actor{ID: 2, Role: domain.RoleTrainer}, 8, false, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	repo.deleteResult = 2
	result, err := svc.Delete(context.Background(), domain.Actor{ID: 1, Role: domain.RoleAdmin}, 8, true, "")
	require.NoError(t, err)
	assert.Equal(t, 2, result.EnrollmentsCancelled)
}

func TestUserForceDeleteIsAdminOnly(t *testing.T) {
	repo := &mockUserRepo{users: map[int64]*models.User{
		7: {ID: 7, Email: "user@example.com", Role: domain.RoleParticipant, PasswordHash: hashOf(t, "secret")},
	}}
	svc := NewUserService(repo, nil, nil)

	// Even the account owner cannot force the cascade.
	_, err := svc.Delete(context.Background(), domain.Actor{ID: 7, Role: domain.RoleParticipant}, 7, true, "secret")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
