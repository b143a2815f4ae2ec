package port

import (
	"context"
	"time"

	"github.com/greenvalley/society-portal/internal/core/domain"
)

// UserStateCache keeps the authoritative status and role of users close to the
// request path. Get returns repository.ErrNotFound on a miss.
//
// Entries are versioned: Set ignores a state older than the cached one, and
// Invalidate drops the entry while refusing later writes below version.
type UserStateCache interface {
	GetUserState(ctx context.Context, userID string) (domain.UserState, error)
	SetUserState(ctx context.Context, userID string, state domain.UserState, ttl time.Duration) error
	InvalidateUserState(ctx context.Context, userID string, version int64) error
}
