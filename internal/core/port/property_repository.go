package port

import (
	"context"

	"github.com/greenvalley/society-portal/internal/core/domain"
)

// BuildingRepository exposes persistence behavior for buildings.
type BuildingRepository interface {
	Create(ctx context.Context, building domain.Building) error
	Update(ctx context.Context, building domain.Building) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Building, error)
	List(ctx context.Context, visibleOnly bool) ([]domain.Building, error)
	CountFlats(ctx context.Context, buildingID string) (int, error)
}

// FlatRepository exposes persistence behavior for flats.
type FlatRepository interface {
	Create(ctx context.Context, flat domain.Flat) error
	// GetOrCreate returns the flat identified by (BuildingID, FlatNumber), inserting
	// flat when none exists. Concurrent callers observe the same row.
	GetOrCreate(ctx context.Context, flat domain.Flat) (*domain.Flat, error)
	Update(ctx context.Context, flat domain.Flat) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Flat, error)
	ListByBuilding(ctx context.Context, buildingID string) ([]domain.Flat, error)
	// AssignResident links userID as the flat's owner or current tenant.
	AssignResident(ctx context.Context, flatID string, userType domain.UserType, userID string) error
}
