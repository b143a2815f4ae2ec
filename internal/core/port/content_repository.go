package port

import (
	"context"

	"github.com/greenvalley/society-portal/internal/core/domain"
)

// NoticeFilter narrows notice listings. An empty Visibilities slice means any.
type NoticeFilter struct {
	PublishedOnly bool
	Visibilities  []domain.Visibility
	Search        string
	Limit         int
	Offset        int
}

// NoticeRepository exposes persistence behavior for notices.
type NoticeRepository interface {
	Create(ctx context.Context, notice domain.Notice) error
	Update(ctx context.Context, notice domain.Notice) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Notice, error)
	List(ctx context.Context, filter NoticeFilter) ([]domain.Notice, error)
}

// EventFilter narrows event listings.
type EventFilter struct {
	PublishedOnly bool
	Search        string
	Limit         int
	Offset        int
}

// EventRepository exposes persistence behavior for events.
type EventRepository interface {
	Create(ctx context.Context, event domain.Event) error
	Update(ctx context.Context, event domain.Event) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, filter EventFilter) ([]domain.Event, error)
}

// RegistrationRepository exposes persistence behavior for event registrations.
type RegistrationRepository interface {
	// Create inserts reg after re-checking capacity and uniqueness while holding a
	// lock on the event row. It returns repository.ErrCapacityReached when
	// maxParticipants registrations already exist and repository.ErrDuplicate when
	// the user is already registered.
	Create(ctx context.Context, reg domain.EventRegistration, maxParticipants *int) error
	Count(ctx context.Context, eventID string) (int, error)
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.EventRegistration, error)
	DeleteByEventAndUser(ctx context.Context, eventID, userID string) error
	ListByEvent(ctx context.Context, eventID string) ([]domain.RegistrationDetail, error)
	ListByUser(ctx context.Context, userID string) ([]domain.EventRegistration, error)
}

// VehicleRepository exposes persistence behavior for vehicles.
type VehicleRepository interface {
	Create(ctx context.Context, vehicle domain.Vehicle) error
	Update(ctx context.Context, vehicle domain.Vehicle) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Vehicle, error)
	List(ctx context.Context, search string, limit, offset int) ([]domain.Vehicle, error)
}

// ActivityRepository appends and reads the audit trail.
type ActivityRepository interface {
	Append(ctx context.Context, entry domain.ActivityLog) error
	List(ctx context.Context, limit, offset int) ([]domain.ActivityLog, error)
}
