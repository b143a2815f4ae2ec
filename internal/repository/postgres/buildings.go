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

var buildingColumns = []string{
	"id", "name", "code", "total_floors", "visible_for_registration", "created_at", "updated_at",
}

// BuildingRepository implements port.BuildingRepository.
type BuildingRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewBuildingRepository constructs a building repository.
func NewBuildingRepository(exec pgExecutor) *BuildingRepository {
	return &BuildingRepository{exec: exec, builder: newBuilder()}
}

// Create inserts a building.
func (r *BuildingRepository) Create(ctx context.Context, building domain.Building) error {
	stmt, args, err := r.builder.Insert(tableBuildings).
		Columns(buildingColumns...).
		Values(
			building.ID,
			building.Name,
			domain.NormalizeBuildingCode(building.Code),
			building.TotalFloors,
			building.VisibleForRegistration,
			building.CreatedAt,
			building.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert building sql: %w", err)
	}
	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert building: %w", translateWriteError(err))
	}
	return nil
}

// Update rewrites the mutable building columns.
func (r *BuildingRepository) Update(ctx context.Context, building domain.Building) error {
	stmt, args, err := r.builder.Update(tableBuildings).
		Set("name", building.Name).
		Set("code", domain.NormalizeBuildingCode(building.Code)).
		Set("total_floors", building.TotalFloors).
		Set("visible_for_registration", building.VisibleForRegistration).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": building.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update building sql: %w", err)
	}
	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update building: %w", translateWriteError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a building. Buildings still referenced by flats or users are refused.
func (r *BuildingRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.exec.Exec(ctx, "DELETE FROM "+tableBuildings+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete building: %w", translateWriteError(err))
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetByID fetches a building.
func (r *BuildingRepository) GetByID(ctx context.Context, id string) (*domain.Building, error) {
	stmt, args, err := r.builder.Select(buildingColumns...).
		From(tableBuildings).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select building sql: %w", err)
	}

	var b domain.Building
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&b.ID, &b.Name, &b.Code, &b.TotalFloors, &b.VisibleForRegistration, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan building: %w", err)
	}
	return &b, nil
}

// List returns buildings ordered by code.
func (r *BuildingRepository) List(ctx context.Context, visibleOnly bool) ([]domain.Building, error) {
	query := r.builder.Select(buildingColumns...).From(tableBuildings)
	if visibleOnly {
		query = query.Where(squirrel.Eq{"visible_for_registration": true})
	}
	stmt, args, err := query.OrderBy("code ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list buildings sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	defer rows.Close()

	var buildings []domain.Building
	for rows.Next() {
		var b domain.Building
		if err := rows.Scan(
			&b.ID, &b.Name, &b.Code, &b.TotalFloors, &b.VisibleForRegistration, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan building: %w", err)
		}
		buildings = append(buildings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buildings: %w", err)
	}
	return buildings, nil
}

// CountFlats returns how many flats belong to buildingID.
func (r *BuildingRepository) CountFlats(ctx context.Context, buildingID string) (int, error) {
	var count int
	if err := r.exec.QueryRow(ctx, "SELECT COUNT(*) FROM "+tableFlats+" WHERE building_id = $1", buildingID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count flats: %w", err)
	}
	return count, nil
}

var _ port.BuildingRepository = (*BuildingRepository)(nil)
