package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	uuid "github.com/google/uuid"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/repository"
)

// VehicleInput carries the editable fields of a vehicle.
type VehicleInput struct {
	Number      string
	Type        domain.VehicleType
	Brand       *string
	Model       *string
	Color       *string
	ParkingSlot *string
}

// VehicleService manages residents' registered vehicles.
type VehicleService struct {
	workflowBase
	vehicles port.VehicleRepository
}

// NewVehicleService constructs a VehicleService.
func NewVehicleService(vehicles port.VehicleRepository, deps Dependencies) *VehicleService {
	return &VehicleService{workflowBase: newWorkflowBase(deps, nil), vehicles: vehicles}
}

// Add registers a vehicle owned by the caller.
func (s *VehicleService) Add(ctx context.Context, caller *domain.Session, input VehicleInput) (domain.Vehicle, error) {
	if err := requireSession(caller); err != nil {
		return domain.Vehicle{}, err
	}
	input, err := validateVehicle(input)
	if err != nil {
		return domain.Vehicle{}, err
	}

	now := s.clock()
	vehicle := domain.Vehicle{ID: uuid.NewString(), OwnerID: caller.UserID, CreatedAt: now}
	applyVehicleInput(&vehicle, input)
	vehicle.UpdatedAt = now

	if err := s.vehicles.Create(ctx, vehicle); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Vehicle{}, ErrDuplicateVehicle
		}
		return domain.Vehicle{}, fmt.Errorf("create vehicle: %w", err)
	}
	return vehicle, nil
}

// Update replaces the fields of one of the caller's vehicles.
func (s *VehicleService) Update(ctx context.Context, caller *domain.Session, id string, input VehicleInput) (domain.Vehicle, error) {
	if err := requireSession(caller); err != nil {
		return domain.Vehicle{}, err
	}
	input, err := validateVehicle(input)
	if err != nil {
		return domain.Vehicle{}, err
	}

	vehicle, err := s.owned(ctx, caller, id)
	if err != nil {
		return domain.Vehicle{}, err
	}
	applyVehicleInput(vehicle, input)
	vehicle.UpdatedAt = s.clock()

	if err := s.vehicles.Update(ctx, *vehicle); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return domain.Vehicle{}, ErrDuplicateVehicle
		case errors.Is(err, repository.ErrNotFound):
			return domain.Vehicle{}, ErrVehicleNotFound
		default:
			return domain.Vehicle{}, fmt.Errorf("update vehicle: %w", err)
		}
	}
	return *vehicle, nil
}

// Delete removes one of the caller's vehicles.
func (s *VehicleService) Delete(ctx context.Context, caller *domain.Session, id string) error {
	if err := requireSession(caller); err != nil {
		return err
	}
	vehicle, err := s.owned(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.vehicles.Delete(ctx, vehicle.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrVehicleNotFound
		}
		return fmt.Errorf("delete vehicle: %w", err)
	}
	return nil
}

// ListMine returns the caller's vehicles.
func (s *VehicleService) ListMine(ctx context.Context, caller *domain.Session) ([]domain.Vehicle, error) {
	if err := requireSession(caller); err != nil {
		return nil, err
	}
	vehicles, err := s.vehicles.ListByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return vehicles, nil
}

// ListAll returns every vehicle, optionally filtered by number.
func (s *VehicleService) ListAll(ctx context.Context, caller *domain.Session, search string, limit, offset int) ([]domain.Vehicle, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	vehicles, err := s.vehicles.List(ctx, domain.NormalizeVehicleNumber(search), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return vehicles, nil
}

// owned loads a vehicle and hides it unless the caller owns it.
func (s *VehicleService) owned(ctx context.Context, caller *domain.Session, id string) (*domain.Vehicle, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrVehicleNotFound
	}
	vehicle, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, fmt.Errorf("lookup vehicle: %w", err)
	}
	if vehicle.OwnerID != caller.UserID {
		return nil, ErrVehicleNotFound
	}
	return vehicle, nil
}

func applyVehicleInput(vehicle *domain.Vehicle, input VehicleInput) {
	vehicle.Number = input.Number
	vehicle.Type = input.Type
	vehicle.Brand = input.Brand
	vehicle.Model = input.Model
	vehicle.Color = input.Color
	vehicle.ParkingSlot = input.ParkingSlot
}

func validateVehicle(input VehicleInput) (VehicleInput, error) {
	input.Number = domain.NormalizeVehicleNumber(input.Number)
	input.Type = domain.VehicleType(strings.ToUpper(strings.TrimSpace(string(input.Type))))
	input.Brand = trimmedPtr(input.Brand)
	input.Model = trimmedPtr(input.Model)
	input.Color = trimmedPtr(input.Color)
	input.ParkingSlot = trimmedPtr(input.ParkingSlot)

	fields := fieldErrors{}
	if input.Number == "" {
		fields.add("vehicleNumber", "vehicle number is required")
	}
	if !input.Type.Valid() {
		fields.add("vehicleType", "vehicle type must be CAR, BIKE, SCOOTER or OTHER")
	}
	return input, fields.err()
}
