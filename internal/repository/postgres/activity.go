package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
)

// ActivityRepository implements port.ActivityRepository on an append-only table.
type ActivityRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewActivityRepository constructs an activity log repository.
func NewActivityRepository(exec pgExecutor) *ActivityRepository {
	return &ActivityRepository{exec: exec, builder: newBuilder()}
}

// Append records one audit entry.
func (r *ActivityRepository) Append(ctx context.Context, entry domain.ActivityLog) error {
	details, err := marshalJSON(entry.Details)
	if err != nil {
		return err
	}
	stmt, args, err := r.builder.Insert(tableActivityLogs).
		Columns("id", "actor_id", "action", "entity_type", "entity_id", "details", "created_at").
		Values(
			entry.ID,
			optionalString(entry.ActorID),
			entry.Action,
			entry.EntityType,
			entry.EntityID,
			details,
			entry.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert activity sql: %w", err)
	}
	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// List returns audit entries, newest first.
func (r *ActivityRepository) List(ctx context.Context, limit, offset int) ([]domain.ActivityLog, error) {
	query := r.builder.Select("id", "actor_id", "action", "entity_type", "entity_id", "details", "created_at").
		From(tableActivityLogs).
		OrderBy("created_at DESC")
	stmt, args, err := applyPage(query, limit, offset).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list activity sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var entries []domain.ActivityLog
	for rows.Next() {
		var (
			entry   domain.ActivityLog
			details []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if len(details) > 0 && string(details) != "null" {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("decode activity details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return entries, nil
}

var _ port.ActivityRepository = (*ActivityRepository)(nil)
