package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/trainhub/enroll-api/internal/domain"
	"github.com/trainhub/enroll-api/internal/models"
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateEmail(ctx context.Context, id int64, email string) error
	UpdateRole(ctx context.Context, id int64, role domain.UserRole) error
	Delete(ctx context.Context, id int64, force bool) (int, error)
}

// UserService provides user management use cases. Every operation
// evaluates the permission matrix before touching storage.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// Get returns a user profile. Non-admins may only fetch their own.
func (s *UserService) Get(ctx context.Context, actor domain.Actor, id int64) (*models.User, error) {
	if err := domain.Decide(actor, domain.OpViewUser, id).Err(domain.OpViewUser, actor.Role); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("user", id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns users matching the filter. Admin only.
func (s *UserService) List(ctx context.Context, actor domain.Actor, filter models.UserFilter) ([]models.User, int, error) {
	if err := domain.Decide(actor, domain.OpListUsers, 0).Err(domain.OpListUsers, actor.Role); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filter)
}

// Update applies a profile update. The new email goes through the
// domain rules before the row is touched.
func (s *UserService) Update(ctx context.Context, actor domain.Actor, id int64, req models.UpdateUserRequest) (*models.User, error) {
	if err := domain.Decide(actor, domain.OpUpdateUser, id).Err(domain.OpUpdateUser, actor.Role); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("user", id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if req.Email == nil || *req.Email == user.Email {
		return user, nil
	}

	current, err := user.Domain()
	if err != nil {
		return nil, err
	}
	updated, err := current.WithEmail(*req.Email)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateEmail(ctx, id, updated.Email); err != nil {
		return nil, err
	}
	user.Email = updated.Email
	return user, nil
}

// ChangeRole assigns a new role to a user. Admin only.
func (s *UserService) ChangeRole(ctx context.Context, actor domain.Actor, id int64, req models.ChangeRoleRequest) (*models.User, error) {
	if err := domain.Decide(actor, domain.OpChangeRole, id).Err(domain.OpChangeRole, actor.Role); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NotFound("user", id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if !domain.IsValidRoleTransition(user.Role, req.Role) {
		return nil, appErrors.Validation("role", "must be one of ADMIN, TRAINER, PARTICIPANT")
	}
	if user.Role == req.Role {
		return user, nil
	}

	if err := s.repo.UpdateRole(ctx, id, req.Role); err != nil {
		return nil, err
	}
	user.Role = req.Role
	s.logger.Info("user role changed", zap.Int64("user_id", id), zap.String("role", string(req.Role)))
	return user, nil
}

// Delete removes a user account. Self-deletion requires the account
// password; force-deletion of active enrollments is an admin call. The
// enrollment cascade itself runs inside the repository transaction.
func (s *UserService) Delete(ctx context.Context, actor domain.Actor, id int64, force bool, password string) (*models.UserDeletionResult, error) {
	if err := domain.Decide(actor, domain.OpDeleteUser, id).Err(domain.OpDeleteUser, actor.Role); err != nil {
		return nil, err
	}
	if force {
		if err := domain.Decide(actor, domain.OpForceDeleteUser, id).Err(domain.OpForceDeleteUser, actor.Role); err != nil {
			return nil, err
		}
	}

	if actor.ID == id {
		user, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.NotFound("user", id)
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
		}
		if password == "" {
			return nil, appErrors.Validation("password", "required to delete your own account")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			return nil, appErrors.Validation("password", "does not match the account password")
		}
	}

	cancelled, err := s.repo.Delete(ctx, id, force)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user deleted",
		zap.Int64("user_id", id),
		zap.Bool("force", force),
		zap.Int("enrollments_cancelled", cancelled))
	return &models.UserDeletionResult{Deleted: true, EnrollmentsCancelled: cancelled}, nil
}
