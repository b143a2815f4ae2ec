package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/repository"
)

var flatColumns = []string{
	"id", "building_id", "flat_number", "floor", "bhk_type", "owner_id", "tenant_id", "created_at", "updated_at",
}

// FlatRepository implements port.FlatRepository.
type FlatRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewFlatRepository constructs a flat repository.
func NewFlatRepository(exec pgExecutor) *FlatRepository {
	return &FlatRepository{exec: exec, builder: newBuilder()}
}

// Create inserts a flat.
func (r *FlatRepository) Create(ctx context.Context, flat domain.Flat) error {
	stmt, args, err := r.insert(flat).ToSql()
	if err != nil {
		return fmt.Errorf("build insert flat sql: %w", err)
	}
	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert flat: %w", translateWriteError(err))
	}
	return nil
}

func (r *FlatRepository) insert(flat domain.Flat) squirrel.InsertBuilder {
	return r.builder.Insert(tableFlats).
		Columns(flatColumns...).
		Values(
			flat.ID,
			flat.BuildingID,
			flat.FlatNumber,
			flat.Floor,
			flat.BHKType,
			optionalString(flat.OwnerID),
			optionalString(flat.TenantID),
			flat.CreatedAt,
			flat.UpdatedAt,
		)
}

// GetOrCreate inserts flat unless (building_id, flat_number) already exists and
// returns the stored row either way.
func (r *FlatRepository) GetOrCreate(ctx context.Context, flat domain.Flat) (*domain.Flat, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	stmt, args, err := r.insert(flat).
		Suffix("ON CONFLICT (building_id, flat_number) DO UPDATE SET flat_number = EXCLUDED.flat_number RETURNING " + joinColumns(flatColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert flat sql: %w", err)
	}

	stored, err := scanFlat(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, fmt.Errorf("upsert flat: %w", translateWriteError(err))
	}
	return stored, nil
}

// Update rewrites the mutable flat columns.
func (r *FlatRepository) Update(ctx context.Context, flat domain.Flat) error {
	stmt, args, err := r.builder.Update(tableFlats).
		Set("flat_number", flat.FlatNumber).
		Set("floor", flat.Floor).
		Set("bhk_type", flat.BHKType).
		Set("owner_id", optionalString(flat.OwnerID)).
		Set("tenant_id", optionalString(flat.TenantID)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": flat.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update flat sql: %w", err)
	}
	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update flat: %w", translateWriteError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a flat.
func (r *FlatRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.exec.Exec(ctx, "DELETE FROM "+tableFlats+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete flat: %w", translateWriteError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetByID fetches a flat.
func (r *FlatRepository) GetByID(ctx context.Context, id string) (*domain.Flat, error) {
	stmt, args, err := r.builder.Select(flatColumns...).
		From(tableFlats).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select flat sql: %w", err)
	}
	flat, err := scanFlat(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan flat: %w", err)
	}
	return flat, nil
}

// ListByBuilding returns the flats of one building ordered by number.
func (r *FlatRepository) ListByBuilding(ctx context.Context, buildingID string) ([]domain.Flat, error) {
	stmt, args, err := r.builder.Select(flatColumns...).
		From(tableFlats).
		Where(squirrel.Eq{"building_id": buildingID}).
		OrderBy("flat_number ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list flats sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list flats: %w", err)
	}
	defer rows.Close()

	var flats []domain.Flat
	for rows.Next() {
		flat, err := scanFlat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flat: %w", err)
		}
		flats = append(flats, *flat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flats: %w", err)
	}
	return flats, nil
}

// AssignResident sets the owner or tenant column of a flat.
func (r *FlatRepository) AssignResident(ctx context.Context, flatID string, userType domain.UserType, userID string) error {
	column := "owner_id"
	if userType == domain.UserTypeTenant {
		column = "tenant_id"
	}
	stmt, args, err := r.builder.Update(tableFlats).
		Set(column, userID).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": flatID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build assign resident sql: %w", err)
	}
	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("assign resident: %w", translateWriteError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanFlat(row pgx.Row) (*domain.Flat, error) {
	var flat domain.Flat
	if err := row.Scan(
		&flat.ID,
		&flat.BuildingID,
		&flat.FlatNumber,
		&flat.Floor,
		&flat.BHKType,
		&flat.OwnerID,
		&flat.TenantID,
		&flat.CreatedAt,
		&flat.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &flat, nil
}

var _ port.FlatRepository = (*FlatRepository)(nil)
