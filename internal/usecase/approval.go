package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/infra/logger"
	"github.com/greenvalley/society-portal/internal/repository"
)

const (
	workflowApproval      = "approval"
	workflowRoleChange    = "role_change"
	workflowPasswordReset = "password_reset"
)

var statusActivity = map[domain.StatusAction]string{
	domain.ActionApprove:    domain.ActivityUserApproved,
	domain.ActionReject:     domain.ActivityUserRejected,
	domain.ActionSuspend:    domain.ActivityUserSuspended,
	domain.ActionReactivate: domain.ActivityUserReactivated,
}

// ApprovalService performs admin-only account state changes.
type ApprovalService struct {
	workflowBase
	users     port.UserRepository
	flats     port.FlatRepository
	states    port.UserStateCache
	hasher    port.PasswordHasher
	passwords port.TemporaryPasswordGenerator
}

// NewApprovalService constructs an ApprovalService. states may be nil.
func NewApprovalService(
	users port.UserRepository,
	flats port.FlatRepository,
	states port.UserStateCache,
	hasher port.PasswordHasher,
	passwords port.TemporaryPasswordGenerator,
	activity port.ActivityRepository,
	deps Dependencies,
) *ApprovalService {
	return &ApprovalService{
		workflowBase: newWorkflowBase(deps, activity),
		users:        users,
		flats:        flats,
		states:       states,
		hasher:       hasher,
		passwords:    passwords,
	}
}

// Approve moves a PENDING user to APPROVED, grants the resident role matching the
// user type and links the user to their flat.
func (s *ApprovalService) Approve(ctx context.Context, caller *domain.Session, userID string) (domain.User, error) {
	return s.transition(ctx, caller, userID, domain.ActionApprove)
}

// Reject moves a PENDING user to REJECTED.
func (s *ApprovalService) Reject(ctx context.Context, caller *domain.Session, userID string) (domain.User, error) {
	return s.transition(ctx, caller, userID, domain.ActionReject)
}

// Suspend moves an APPROVED user to SUSPENDED.
func (s *ApprovalService) Suspend(ctx context.Context, caller *domain.Session, userID string) (domain.User, error) {
	return s.transition(ctx, caller, userID, domain.ActionSuspend)
}

// Reactivate moves a SUSPENDED user back to APPROVED.
func (s *ApprovalService) Reactivate(ctx context.Context, caller *domain.Session, userID string) (domain.User, error) {
	return s.transition(ctx, caller, userID, domain.ActionReactivate)
}

func (s *ApprovalService) transition(ctx context.Context, caller *domain.Session, userID string, action domain.StatusAction) (updated domain.User, err error) {
	defer func() { s.record(workflowApproval, err) }()

	if err := requireAdmin(caller); err != nil {
		return domain.User{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == caller.UserID && (action == domain.ActionReject || action == domain.ActionSuspend) {
		return domain.User{}, ErrSelfModification
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	next, ok := domain.NextStatus(user.Status, action)
	if !ok {
		return domain.User{}, fmt.Errorf("%w: cannot %s a %s user", ErrInvalidTransition, action, strings.ToLower(string(user.Status)))
	}

	change := domain.UserStateChange{Status: next, Role: user.Role}
	if action == domain.ActionApprove {
		now := s.clock()
		approver := caller.UserID
		change.ApprovedAt = &now
		change.ApprovedBy = &approver
		if user.Role != domain.RoleAdmin {
			change.Role = user.UserType.ResidentRole()
		}
	}

	updated, err = s.apply(ctx, *user, change)
	if err != nil {
		return domain.User{}, err
	}

	if action == domain.ActionApprove {
		s.linkFlat(ctx, updated)
	}

	s.audit(ctx, caller.UserID, statusActivity[action], domain.EntityUser, user.ID, map[string]any{
		"from_status": string(user.Status),
		"to_status":   string(next),
	})
	s.publish(ctx, "user.status_changed", func(p port.EventPublisher) error {
		return p.PublishUserStatusChanged(ctx, domain.UserStatusChangedEvent{
			EventID:    uuid.NewString(),
			UserID:     user.ID,
			Action:     action,
			FromStatus: user.Status,
			ToStatus:   next,
			ChangedBy:  caller.UserID,
			ChangedAt:  s.clock(),
		})
	})

	return updated.Sanitized(), nil
}

// MakeAdmin grants the ADMIN role to an APPROVED user.
func (s *ApprovalService) MakeAdmin(ctx context.Context, caller *domain.Session, userID string) (domain.User, error) {
	return s.changeRole(ctx, caller, userID, true)
}

// RemoveAdmin restores the resident role matching the user's type.
func (s *ApprovalService) RemoveAdmin(ctx context.Context, caller *domain.Session, userID string) (domain.User, error) {
	return s.changeRole(ctx, caller, userID, false)
}

func (s *ApprovalService) changeRole(ctx context.Context, caller *domain.Session, userID string, grant bool) (updated domain.User, err error) {
	defer func() { s.record(workflowRoleChange, err) }()

	if err := requireAdmin(caller); err != nil {
		return domain.User{}, err
	}
	userID = strings.TrimSpace(userID)
	if !grant && userID == caller.UserID {
		return domain.User{}, ErrSelfModification
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.Status != domain.UserStatusApproved {
		return domain.User{}, fmt.Errorf("%w: only approved users can change role", ErrInvalidTransition)
	}

	target := user.UserType.ResidentRole()
	action := domain.ActivityUserAdminRemoved
	if grant {
		target = domain.RoleAdmin
		action = domain.ActivityUserMadeAdmin
	}
	if grant == (user.Role == domain.RoleAdmin) {
		return domain.User{}, fmt.Errorf("%w: user role is already %s", ErrInvalidTransition, user.Role)
	}

	updated, err = s.apply(ctx, *user, domain.UserStateChange{Status: user.Status, Role: target})
	if err != nil {
		return domain.User{}, err
	}

	s.audit(ctx, caller.UserID, action, domain.EntityUser, user.ID, map[string]any{
		"from_role": string(user.Role),
		"to_role":   string(target),
	})
	s.publish(ctx, "user.role_changed", func(p port.EventPublisher) error {
		return p.PublishUserRoleChanged(ctx, domain.UserRoleChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID,
			FromRole:  user.Role,
			ToRole:    target,
			ChangedBy: caller.UserID,
			ChangedAt: s.clock(),
		})
	})

	return updated.Sanitized(), nil
}

// ResetPassword replaces the user's password with a generated one and returns the
// plaintext. It is never stored or returned again.
func (s *ApprovalService) ResetPassword(ctx context.Context, caller *domain.Session, userID string) (password string, err error) {
	defer func() { s.record(workflowPasswordReset, err) }()

	if err := requireAdmin(caller); err != nil {
		return "", err
	}

	user, err := s.loadUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		return "", err
	}

	password, err = s.passwords.Generate()
	if err != nil {
		return "", fmt.Errorf("generate temporary password: %w", err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hash temporary password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("update password: %w", err)
	}

	s.audit(ctx, caller.UserID, domain.ActivityUserPasswordReset, domain.EntityUser, user.ID, nil)
	s.publish(ctx, "user.password_reset", func(p port.EventPublisher) error {
		return p.PublishPasswordReset(ctx, domain.PasswordResetEvent{
			EventID: uuid.NewString(),
			UserID:  user.ID,
			ResetBy: caller.UserID,
			ResetAt: s.clock(),
		})
	})

	return password, nil
}

// ListUsers returns users for the admin back office.
func (s *ApprovalService) ListUsers(ctx context.Context, caller *domain.Session, filter port.UserFilter) ([]domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)
	filter.Search = strings.TrimSpace(filter.Search)

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

// GetUser returns a single user for the admin back office.
func (s *ApprovalService) GetUser(ctx context.Context, caller *domain.Session, userID string) (domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.User{}, err
	}
	user, err := s.loadUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		return domain.User{}, err
	}
	return user.Sanitized(), nil
}

func (s *ApprovalService) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// apply persists change guarded by the version read with user and drops the
// cached state so the next request sees it.
func (s *ApprovalService) apply(ctx context.Context, user domain.User, change domain.UserStateChange) (domain.User, error) {
	if err := s.users.UpdateState(ctx, user.ID, user.Version, change); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleVersion):
			return domain.User{}, ErrConcurrentUpdate
		case errors.Is(err, repository.ErrNotFound):
			return domain.User{}, ErrUserNotFound
		default:
			return domain.User{}, fmt.Errorf("update user state: %w", err)
		}
	}

	if s.states != nil {
		if err := s.states.InvalidateUserState(ctx, user.ID, user.Version+1); err != nil {
			logger.Scoped(ctx, s.logger).Warn("invalidate user state failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	user.Status = change.Status
	user.Role = change.Role
	if change.ApprovedBy != nil {
		user.ApprovedBy = change.ApprovedBy
	}
	if change.ApprovedAt != nil {
		user.ApprovedAt = change.ApprovedAt
	}
	user.Version++
	user.UpdatedAt = s.clock()
	return user, nil
}

// linkFlat records the approved user as owner or tenant of their flat. The
// approval already committed, so a failure here is logged for follow-up.
func (s *ApprovalService) linkFlat(ctx context.Context, user domain.User) {
	if user.FlatID == nil || *user.FlatID == "" {
		return
	}
	if err := s.flats.AssignResident(ctx, *user.FlatID, user.UserType, user.ID); err != nil {
		logger.Scoped(ctx, s.logger).Error("link approved user to flat failed",
			zap.String("user_id", user.ID),
			zap.String("flat_id", *user.FlatID),
			zap.Error(err),
		)
	}
}
