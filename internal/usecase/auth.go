package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/infra/logger"
	"github.com/greenvalley/society-portal/internal/repository"
)

const (
	workflowLogin   = "login"
	workflowSession = "session_refresh"

	defaultUserStateTTL = time.Minute
)

// LoginResult is returned by a successful Authenticate call.
type LoginResult struct {
	Session   domain.Session
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// AuthService verifies credentials and issues and refreshes sessions.
type AuthService struct {
	workflowBase
	users    port.UserRepository
	states   port.UserStateCache
	tokens   port.SessionTokenManager
	hasher   port.PasswordHasher
	stateTTL time.Duration
}

// NewAuthService constructs an AuthService. states may be nil, in which case
// every refresh reads the user from the repository.
func NewAuthService(
	users port.UserRepository,
	states port.UserStateCache,
	tokens port.SessionTokenManager,
	hasher port.PasswordHasher,
	activity port.ActivityRepository,
	stateTTL time.Duration,
	deps Dependencies,
) *AuthService {
	if stateTTL <= 0 {
		stateTTL = defaultUserStateTTL
	}
	return &AuthService{
		workflowBase: newWorkflowBase(deps, activity),
		users:        users,
		states:       states,
		tokens:       tokens,
		hasher:       hasher,
		stateTTL:     stateTTL,
	}
}

// Authenticate checks email and password and issues a session for approved
// accounts. A correct password on a non-approved account yields a status
// specific error instead of ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password, ip string) (result LoginResult, err error) {
	defer func() { s.record(workflowLogin, err) }()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return LoginResult{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := statusError(user.Status); err != nil {
		logger.Scoped(ctx, s.logger).Info("login refused for account state",
			zap.String("user_id", user.ID),
			zap.String("status", string(user.Status)),
		)
		return LoginResult{}, err
	}

	state := user.State()
	session := domain.Session{UserID: user.ID}.WithState(state)

	token, expiresAt, err := s.tokens.Issue(session)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue session token: %w", err)
	}
	session.IssuedAt = s.clock()
	session.ExpiresAt = expiresAt

	s.cacheState(ctx, user.ID, state)
	s.audit(ctx, user.ID, domain.ActivityUserLogin, domain.EntityUser, user.ID, nil)

	loggedIn := domain.UserLoggedInEvent{
		EventID:    uuid.NewString(),
		UserID:     user.ID,
		Role:       user.Role,
		LoggedInAt: s.clock(),
	}
	if trimmed := strings.TrimSpace(ip); trimmed != "" {
		loggedIn.IPAddress = &trimmed
	}
	s.publish(ctx, "user.logged_in", func(p port.EventPublisher) error {
		return p.PublishUserLoggedIn(ctx, loggedIn)
	})

	return LoginResult{
		Session:   session,
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Sanitized(),
	}, nil
}

func statusError(status domain.UserStatus) error {
	switch status {
	case domain.UserStatusApproved:
		return nil
	case domain.UserStatusPending:
		return ErrAccountPending
	case domain.UserStatusSuspended:
		return ErrAccountSuspended
	case domain.UserStatusRejected:
		return ErrAccountRejected
	default:
		return ErrInvalidCredentials
	}
}

// ParseSession verifies a session token.
func (s *AuthService) ParseSession(_ context.Context, token string) (domain.Session, error) {
	session, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	return session, nil
}

// Refresh re-reads the user's authoritative status and role. A session whose
// user is no longer approved is rejected, and the returned session carries the
// current role and placement rather than those captured at login.
func (s *AuthService) Refresh(ctx context.Context, session domain.Session) (refreshed domain.Session, err error) {
	defer func() {
		if err != nil {
			s.record(workflowSession, err)
		}
	}()

	if session.UserID == "" {
		return domain.Session{}, ErrSessionInvalid
	}

	state, err := s.currentState(ctx, session.UserID)
	if err != nil {
		return domain.Session{}, err
	}
	if state.Status != domain.UserStatusApproved {
		return domain.Session{}, fmt.Errorf("%w: account is %s", ErrSessionInvalid, strings.ToLower(string(state.Status)))
	}

	return session.WithState(state), nil
}

// Resolve parses a token and refreshes the resulting session.
func (s *AuthService) Resolve(ctx context.Context, token string) (domain.Session, error) {
	session, err := s.ParseSession(ctx, token)
	if err != nil {
		return domain.Session{}, err
	}
	return s.Refresh(ctx, session)
}

func (s *AuthService) currentState(ctx context.Context, userID string) (domain.UserState, error) {
	if s.states != nil {
		state, err := s.states.GetUserState(ctx, userID)
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Scoped(ctx, s.logger).Warn("read user state cache failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.UserState{}, ErrSessionInvalid
		}
		return domain.UserState{}, fmt.Errorf("lookup user: %w", err)
	}

	state := user.State()
	s.cacheState(ctx, userID, state)
	return state, nil
}

func (s *AuthService) cacheState(ctx context.Context, userID string, state domain.UserState) {
	if s.states == nil {
		return
	}
	if err := s.states.SetUserState(ctx, userID, state, s.stateTTL); err != nil {
		logger.Scoped(ctx, s.logger).Warn("cache user state failed", zap.String("user_id", userID), zap.Error(err))
	}
}
