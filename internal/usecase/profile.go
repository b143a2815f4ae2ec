package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/repository"
)

const workflowPasswordChange = "password_change"

// ChangePasswordInput carries the self-service password change form.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// ProfileService lets residents read and edit their own account.
type ProfileService struct {
	workflowBase
	users  port.UserRepository
	hasher port.PasswordHasher
	policy port.PasswordPolicy
}

// NewProfileService constructs a ProfileService.
func NewProfileService(
	users port.UserRepository,
	hasher port.PasswordHasher,
	policy port.PasswordPolicy,
	activity port.ActivityRepository,
	deps Dependencies,
) *ProfileService {
	return &ProfileService{
		workflowBase: newWorkflowBase(deps, activity),
		users:        users,
		hasher:       hasher,
		policy:       policy,
	}
}

// Get returns the caller's account without the password hash.
func (s *ProfileService) Get(ctx context.Context, caller *domain.Session) (domain.User, error) {
	if err := requireSession(caller); err != nil {
		return domain.User{}, err
	}
	user, err := s.self(ctx, caller)
	if err != nil {
		return domain.User{}, err
	}
	return user.Sanitized(), nil
}

// Update edits the caller's name, phone and directory opt-in.
func (s *ProfileService) Update(ctx context.Context, caller *domain.Session, update domain.ProfileUpdate) (domain.User, error) {
	if err := requireSession(caller); err != nil {
		return domain.User{}, err
	}
	update.Name = strings.TrimSpace(update.Name)
	update.Phone = strings.TrimSpace(update.Phone)

	fields := fieldErrors{}
	if update.Name == "" {
		fields.add("name", "name is required")
	}
	if update.Phone == "" {
		fields.add("phone", "phone is required")
	}
	if err := fields.err(); err != nil {
		return domain.User{}, err
	}

	if err := s.users.UpdateProfile(ctx, caller.UserID, update); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}
	s.audit(ctx, caller.UserID, domain.ActivityUserProfileSaved, domain.EntityUser, caller.UserID, map[string]any{
		"is_profile_public": update.IsProfilePublic,
	})

	user, err := s.self(ctx, caller)
	if err != nil {
		return domain.User{}, err
	}
	return user.Sanitized(), nil
}

// ChangePassword replaces the caller's password after verifying the current one.
func (s *ProfileService) ChangePassword(ctx context.Context, caller *domain.Session, input ChangePasswordInput) (err error) {
	defer func() { s.record(workflowPasswordChange, err) }()

	if err := requireSession(caller); err != nil {
		return err
	}
	user, err := s.self(ctx, caller)
	if err != nil {
		return err
	}

	fields := fieldErrors{}
	if input.CurrentPassword == "" {
		fields.add("currentPassword", "current password is required")
	} else {
		ok, err := s.hasher.Verify(input.CurrentPassword, user.PasswordHash)
		if err != nil {
			return fmt.Errorf("verify password: %w", err)
		}
		if !ok {
			fields.add("currentPassword", "current password is incorrect")
		}
	}
	if input.NewPassword == "" {
		fields.add("newPassword", "new password is required")
	} else if err := s.policy.Validate(input.NewPassword, user.Name, user.Email, user.Phone); err != nil {
		fields.add("newPassword", err.Error())
	} else if input.NewPassword == input.CurrentPassword {
		fields.add("newPassword", "new password must differ from the current one")
	}
	if input.NewPassword != input.ConfirmPassword {
		fields.add("confirmPassword", "passwords do not match")
	}
	if err := fields.err(); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	s.audit(ctx, caller.UserID, domain.ActivityUserPasswordSet, domain.EntityUser, user.ID, nil)
	return nil
}

func (s *ProfileService) self(ctx context.Context, caller *domain.Session) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}
