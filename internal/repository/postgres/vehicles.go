package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/repository"
)

var vehicleColumns = []string{
	"id", "owner_id", "number", "type", "brand", "model", "color", "parking_slot", "created_at", "updated_at",
}

// VehicleRepository implements port.VehicleRepository.
type VehicleRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewVehicleRepository constructs a vehicle repository.
func NewVehicleRepository(exec pgExecutor) *VehicleRepository {
	return &VehicleRepository{exec: exec, builder: newBuilder()}
}

// Create inserts a vehicle. A duplicate registration number yields a DuplicateError.
func (r *VehicleRepository) Create(ctx context.Context, vehicle domain.Vehicle) error {
	stmt, args, err := r.builder.Insert(tableVehicles).
		Columns(vehicleColumns...).
		Values(
			vehicle.ID,
			vehicle.OwnerID,
			domain.NormalizeVehicleNumber(vehicle.Number),
			string(vehicle.Type),
			optionalString(vehicle.Brand),
			optionalString(vehicle.Model),
			optionalString(vehicle.Color),
			optionalString(vehicle.ParkingSlot),
			vehicle.CreatedAt,
			vehicle.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert vehicle sql: %w", err)
	}
	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert vehicle: %w", translateWriteError(err))
	}
	return nil
}

// Update rewrites the mutable vehicle columns.
func (r *VehicleRepository) Update(ctx context.Context, vehicle domain.Vehicle) error {
	stmt, args, err := r.builder.Update(tableVehicles).
		Set("number", domain.NormalizeVehicleNumber(vehicle.Number)).
		Set("type", string(vehicle.Type)).
		Set("brand", optionalString(vehicle.Brand)).
		Set("model", optionalString(vehicle.Model)).
		Set("color", optionalString(vehicle.Color)).
		Set("parking_slot", optionalString(vehicle.ParkingSlot)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": vehicle.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update vehicle sql: %w", err)
	}
	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update vehicle: %w", translateWriteError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a vehicle.
func (r *VehicleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.exec.Exec(ctx, "DELETE FROM "+tableVehicles+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetByID fetches a vehicle.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	stmt, args, err := r.builder.Select(vehicleColumns...).
		From(tableVehicles).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select vehicle sql: %w", err)
	}
	vehicle, err := scanVehicle(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan vehicle: %w", err)
	}
	return vehicle, nil
}

// ListByOwner returns the vehicles registered by ownerID.
func (r *VehicleRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Vehicle, error) {
	query := r.builder.Select(vehicleColumns...).
		From(tableVehicles).
		Where(squirrel.Eq{"owner_id": ownerID}).
		OrderBy("created_at ASC")
	return r.list(ctx, query)
}

// List returns all vehicles, optionally filtered by number.
func (r *VehicleRepository) List(ctx context.Context, search string, limit, offset int) ([]domain.Vehicle, error) {
	query := r.builder.Select(vehicleColumns...).From(tableVehicles)
	if strings.TrimSpace(search) != "" {
		query = query.Where(squirrel.ILike{"number": ilikePattern(domain.NormalizeVehicleNumber(search))})
	}
	query = applyPage(query.OrderBy("number ASC"), limit, offset)
	return r.list(ctx, query)
}

func (r *VehicleRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]domain.Vehicle, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list vehicles sql: %w", err)
	}
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, *vehicle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicles: %w", err)
	}
	return vehicles, nil
}

func scanVehicle(row pgx.Row) (*domain.Vehicle, error) {
	var (
		vehicle     domain.Vehicle
		vehicleType string
	)
	if err := row.Scan(
		&vehicle.ID,
		&vehicle.OwnerID,
		&vehicle.Number,
		&vehicleType,
		&vehicle.Brand,
		&vehicle.Model,
		&vehicle.Color,
		&vehicle.ParkingSlot,
		&vehicle.CreatedAt,
		&vehicle.UpdatedAt,
	); err != nil {
		return nil, err
	}
	vehicle.Type = domain.VehicleType(vehicleType)
	return &vehicle, nil
}

var _ port.VehicleRepository = (*VehicleRepository)(nil)
