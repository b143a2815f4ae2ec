package port

import (
	"context"

	"github.com/greenvalley/society-portal/internal/core/domain"
)

// UserFilter narrows admin user listings.
type UserFilter struct {
	Status     domain.UserStatus
	Role       domain.Role
	BuildingID string
	Search     string
	Limit      int
	Offset     int
}

// DirectoryFilter narrows the neighbor directory.
type DirectoryFilter struct {
	BuildingID string
	Search     string
	Limit      int
	Offset     int
}

// UserRepository exposes persistence behavior for users.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// UpdateState applies an approval workflow change only if the stored version
	// equals expectedVersion, and bumps the version.
	UpdateState(ctx context.Context, id string, expectedVersion int64, change domain.UserStateChange) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateProfile(ctx context.Context, id string, profile domain.ProfileUpdate) error
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	ListDirectory(ctx context.Context, filter DirectoryFilter) ([]domain.User, error)
}
