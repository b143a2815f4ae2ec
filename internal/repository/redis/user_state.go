package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/repository"
)

const defaultUserStatePrefix = "society:user_state"

// invalidationTTL bounds how long an invalidated entry keeps refusing writes
// older than the version it was invalidated at.
const invalidationTTL = 10 * time.Minute

const (
	fieldStatus     = "status"
	fieldRole       = "role"
	fieldBuildingID = "building_id"
	fieldFlatID     = "flat_id"
	fieldVersion    = "version"
)

// UserStateRepository caches each user's status and role in a Redis hash.
type UserStateRepository struct {
	client *red.Client
	prefix string
}

// NewUserStateRepository constructs the cache. An empty prefix uses society:user_state.
func NewUserStateRepository(client *red.Client, keyPrefix string) *UserStateRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultUserStatePrefix
	}
	return &UserStateRepository{client: client, prefix: prefix}
}

// GetUserState returns the cached state or repository.ErrNotFound on a miss.
func (r *UserStateRepository) GetUserState(ctx context.Context, userID string) (domain.UserState, error) {
	key := r.key(userID)
	if key == "" {
		return domain.UserState{}, fmt.Errorf("user id is required")
	}

	values, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.UserState{}, fmt.Errorf("redis hgetall user state: %w", err)
	}
	if len(values) == 0 || values[fieldStatus] == "" {
		return domain.UserState{}, repository.ErrNotFound
	}

	version, err := parseVersion(values[fieldVersion])
	if err != nil {
		return domain.UserState{}, err
	}

	return domain.UserState{
		Status:     domain.UserStatus(values[fieldStatus]),
		Role:       domain.Role(values[fieldRole]),
		BuildingID: values[fieldBuildingID],
		FlatID:     values[fieldFlatID],
		Version:    version,
	}, nil
}

// SetUserState stores state with the provided TTL. A state older than the
// cached entry, or than the version of a pending invalidation, is dropped.
func (r *UserStateRepository) SetUserState(ctx context.Context, userID string, state domain.UserState, ttl time.Duration) error {
	key := r.key(userID)
	if key == "" {
		return fmt.Errorf("user id is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	err := r.client.Watch(ctx, func(tx *red.Tx) error {
		raw, err := tx.HGet(ctx, key, fieldVersion).Result()
		if err != nil && !errors.Is(err, red.Nil) {
			return fmt.Errorf("redis read user state version: %w", err)
		}
		cached, err := parseVersion(raw)
		if err != nil {
			return err
		}
		if cached > state.Version {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe red.Pipeliner) error {
			pipe.HSet(ctx, key,
				fieldStatus, string(state.Status),
				fieldRole, string(state.Role),
				fieldBuildingID, state.BuildingID,
				fieldFlatID, state.FlatID,
				fieldVersion, state.Version,
			)
			pipe.Expire(ctx, key, ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, red.TxFailedErr) {
		// A concurrent write or invalidation landed first and wins.
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set user state: %w", err)
	}
	return nil
}

// InvalidateUserState evicts the cached entry so the next request reloads it,
// leaving only a version marker so in-flight readers of an older row cannot
// write it back.
func (r *UserStateRepository) InvalidateUserState(ctx context.Context, userID string, version int64) error {
	key := r.key(userID)
	if key == "" {
		return fmt.Errorf("user id is required")
	}

	_, err := r.client.TxPipelined(ctx, func(pipe red.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldVersion, version)
		pipe.Expire(ctx, key, invalidationTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate user state: %w", err)
	}
	return nil
}

func (r *UserStateRepository) key(userID string) string {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return ""
	}
	return r.prefix + ":" + trimmed
}

func parseVersion(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse user state version %q: %w", raw, err)
	}
	return version, nil
}

var _ port.UserStateCache = (*UserStateRepository)(nil)
