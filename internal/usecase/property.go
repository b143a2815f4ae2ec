package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	uuid "github.com/google/uuid"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/repository"
)

// BuildingInput carries the editable fields of a building.
type BuildingInput struct {
	Name                   string
	Code                   string
	TotalFloors            int
	VisibleForRegistration bool
}

// BuildingService manages buildings.
type BuildingService struct {
	workflowBase
	buildings port.BuildingRepository
}

// NewBuildingService constructs a BuildingService.
func NewBuildingService(buildings port.BuildingRepository, activity port.ActivityRepository, deps Dependencies) *BuildingService {
	return &BuildingService{workflowBase: newWorkflowBase(deps, activity), buildings: buildings}
}

// Create stores a building. Codes are unique and upper-cased.
func (s *BuildingService) Create(ctx context.Context, caller *domain.Session, input BuildingInput) (domain.Building, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Building{}, err
	}
	input, err := validateBuilding(input)
	if err != nil {
		return domain.Building{}, err
	}

	now := s.clock()
	building := domain.Building{
		ID:                     uuid.NewString(),
		Name:                   input.Name,
		Code:                   input.Code,
		TotalFloors:            input.TotalFloors,
		VisibleForRegistration: input.VisibleForRegistration,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.buildings.Create(ctx, building); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Building{}, ErrDuplicateBuildingCode
		}
		return domain.Building{}, fmt.Errorf("create building: %w", err)
	}
	s.audit(ctx, caller.UserID, "building.created", domain.EntityBuilding, building.ID, map[string]any{"code": building.Code})
	return building, nil
}

// Update replaces a building's fields.
func (s *BuildingService) Update(ctx context.Context, caller *domain.Session, id string, input BuildingInput) (domain.Building, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Building{}, err
	}
	input, err := validateBuilding(input)
	if err != nil {
		return domain.Building{}, err
	}

	building, err := s.load(ctx, id)
	if err != nil {
		return domain.Building{}, err
	}
	building.Name = input.Name
	building.Code = input.Code
	building.TotalFloors = input.TotalFloors
	building.VisibleForRegistration = input.VisibleForRegistration
	building.UpdatedAt = s.clock()

	if err := s.buildings.Update(ctx, *building); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return domain.Building{}, ErrDuplicateBuildingCode
		case errors.Is(err, repository.ErrNotFound):
			return domain.Building{}, ErrBuildingNotFound
		default:
			return domain.Building{}, fmt.Errorf("update building: %w", err)
		}
	}
	return *building, nil
}

// Delete removes a building that owns no flats.
func (s *BuildingService) Delete(ctx context.Context, caller *domain.Session, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	building, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	flats, err := s.buildings.CountFlats(ctx, building.ID)
	if err != nil {
		return fmt.Errorf("count flats: %w", err)
	}
	if flats > 0 {
		return ErrBuildingInUse
	}

	if err := s.buildings.Delete(ctx, building.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrReferenced):
			return ErrBuildingInUse
		case errors.Is(err, repository.ErrNotFound):
			return ErrBuildingNotFound
		default:
			return fmt.Errorf("delete building: %w", err)
		}
	}
	s.audit(ctx, caller.UserID, "building.deleted", domain.EntityBuilding, building.ID, map[string]any{"code": building.Code})
	return nil
}

// List returns every building for admins.
func (s *BuildingService) List(ctx context.Context, caller *domain.Session) ([]domain.Building, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.list(ctx, false)
}

// ListForRegistration returns buildings open for self-registration.
func (s *BuildingService) ListForRegistration(ctx context.Context) ([]domain.Building, error) {
	return s.list(ctx, true)
}

func (s *BuildingService) list(ctx context.Context, visibleOnly bool) ([]domain.Building, error) {
	buildings, err := s.buildings.List(ctx, visibleOnly)
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	return buildings, nil
}

func (s *BuildingService) load(ctx context.Context, id string) (*domain.Building, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrBuildingNotFound
	}
	building, err := s.buildings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBuildingNotFound
		}
		return nil, fmt.Errorf("lookup building: %w", err)
	}
	return building, nil
}

func validateBuilding(input BuildingInput) (BuildingInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Code = domain.NormalizeBuildingCode(input.Code)

	fields := fieldErrors{}
	if input.Name == "" {
		fields.add("name", "name is required")
	}
	if input.Code == "" {
		fields.add("code", "code is required")
	}
	if input.TotalFloors <= 0 {
		fields.add("totalFloors", "total floors must be positive")
	}
	return input, fields.err()
}

// FlatInput carries the editable fields of a flat. Floor is derived from the
// flat number when nil.
type FlatInput struct {
	BuildingID string
	FlatNumber string
	Floor      *int
	BHKType    string
}

// FlatService manages flats explicitly created by admins.
type FlatService struct {
	workflowBase
	flats     port.FlatRepository
	buildings port.BuildingRepository
}

// NewFlatService constructs a FlatService.
func NewFlatService(flats port.FlatRepository, buildings port.BuildingRepository, deps Dependencies) *FlatService {
	return &FlatService{workflowBase: newWorkflowBase(deps, nil), flats: flats, buildings: buildings}
}

// Create stores a flat in an existing building.
func (s *FlatService) Create(ctx context.Context, caller *domain.Session, input FlatInput) (domain.Flat, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Flat{}, err
	}
	input, floor, err := s.validate(ctx, input)
	if err != nil {
		return domain.Flat{}, err
	}

	now := s.clock()
	flat := domain.Flat{
		ID:         uuid.NewString(),
		BuildingID: input.BuildingID,
		FlatNumber: input.FlatNumber,
		Floor:      floor,
		BHKType:    input.BHKType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.flats.Create(ctx, flat); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Flat{}, ErrDuplicateFlat
		}
		return domain.Flat{}, fmt.Errorf("create flat: %w", err)
	}
	return flat, nil
}

// Update replaces a flat's number, floor and BHK type. The building is fixed.
func (s *FlatService) Update(ctx context.Context, caller *domain.Session, id string, input FlatInput) (domain.Flat, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Flat{}, err
	}
	flat, err := s.load(ctx, id)
	if err != nil {
		return domain.Flat{}, err
	}
	input.BuildingID = flat.BuildingID
	input, floor, err := s.validate(ctx, input)
	if err != nil {
		return domain.Flat{}, err
	}

	flat.FlatNumber = input.FlatNumber
	flat.Floor = floor
	flat.BHKType = input.BHKType
	flat.UpdatedAt = s.clock()
	if err := s.flats.Update(ctx, *flat); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return domain.Flat{}, ErrDuplicateFlat
		case errors.Is(err, repository.ErrNotFound):
			return domain.Flat{}, ErrFlatNotFound
		default:
			return domain.Flat{}, fmt.Errorf("update flat: %w", err)
		}
	}
	return *flat, nil
}

// Delete removes a flat. Residents pointing at it keep their account with no flat.
func (s *FlatService) Delete(ctx context.Context, caller *domain.Session, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.flats.Delete(ctx, strings.TrimSpace(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFlatNotFound
		}
		return fmt.Errorf("delete flat: %w", err)
	}
	return nil
}

// ListByBuilding returns the flats of a building ordered by number.
func (s *FlatService) ListByBuilding(ctx context.Context, caller *domain.Session, buildingID string) ([]domain.Flat, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	flats, err := s.flats.ListByBuilding(ctx, strings.TrimSpace(buildingID))
	if err != nil {
		return nil, fmt.Errorf("list flats: %w", err)
	}
	return flats, nil
}

func (s *FlatService) load(ctx context.Context, id string) (*domain.Flat, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrFlatNotFound
	}
	flat, err := s.flats.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFlatNotFound
		}
		return nil, fmt.Errorf("lookup flat: %w", err)
	}
	return flat, nil
}

func (s *FlatService) validate(ctx context.Context, input FlatInput) (FlatInput, int, error) {
	input.BuildingID = strings.TrimSpace(input.BuildingID)
	input.FlatNumber = strings.ToUpper(strings.TrimSpace(input.FlatNumber))
	input.BHKType = strings.TrimSpace(input.BHKType)

	fields := fieldErrors{}
	floor := 0
	switch {
	case utf8.RuneCountInString(input.FlatNumber) != domain.FlatNumberLength:
		fields.add("flatNumber", fmt.Sprintf("flat number must be exactly %d characters", domain.FlatNumberLength))
	case input.Floor != nil:
		floor = *input.Floor
		if floor < 0 {
			fields.add("floor", "floor cannot be negative")
		}
	default:
		derived, err := domain.FloorFromFlatNumber(input.FlatNumber)
		if err != nil {
			fields.add("flatNumber", err.Error())
		}
		floor = derived
	}

	if input.BuildingID == "" {
		fields.add("buildingId", "building is required")
	} else if _, err := s.buildings.GetByID(ctx, input.BuildingID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return input, 0, fmt.Errorf("lookup building: %w", err)
		}
		fields.add("buildingId", "building does not exist")
	}

	return input, floor, fields.err()
}
