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

var eventColumns = []string{
	"id",
	"title",
	"description",
	"type",
	"start_date",
	"end_date",
	"venue",
	"image_url",
	"registration_required",
	"registration_start_date",
	"registration_end_date",
	"participation_type",
	"max_participants",
	"published",
	"created_by",
	"created_at",
	"updated_at",
}

// EventRepository implements port.EventRepository.
type EventRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewEventRepository constructs an event repository.
func NewEventRepository(exec pgExecutor) *EventRepository {
	return &EventRepository{exec: exec, builder: newBuilder()}
}

// Create inserts an event.
func (r *EventRepository) Create(ctx context.Context, event domain.Event) error {
	stmt, args, err := r.builder.Insert(tableEvents).
		Columns(eventColumns...).
		Values(
			event.ID,
			event.Title,
			event.Description,
			string(event.Type),
			event.StartDate,
			event.EndDate,
			event.Venue,
			optionalString(event.ImageURL),
			event.RegistrationRequired,
			optionalTime(event.RegistrationStartDate),
			optionalTime(event.RegistrationEndDate),
			string(event.ParticipationType),
			optionalInt(event.MaxParticipants),
			event.Published,
			event.CreatedBy,
			event.CreatedAt,
			event.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert event sql: %w", err)
	}
	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert event: %w", translateWriteError(err))
	}
	return nil
}

// Update rewrites the mutable event columns.
func (r *EventRepository) Update(ctx context.Context, event domain.Event) error {
	stmt, args, err := r.builder.Update(tableEvents).
		Set("title", event.Title).
		Set("description", event.Description).
		Set("type", string(event.Type)).
		Set("start_date", event.StartDate).
		Set("end_date", event.EndDate).
		Set("venue", event.Venue).
		Set("image_url", optionalString(event.ImageURL)).
		Set("registration_required", event.RegistrationRequired).
		Set("registration_start_date", optionalTime(event.RegistrationStartDate)).
		Set("registration_end_date", optionalTime(event.RegistrationEndDate)).
		Set("participation_type", string(event.ParticipationType)).
		Set("max_participants", optionalInt(event.MaxParticipants)).
		Set("published", event.Published).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": event.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update event sql: %w", err)
	}
	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes an event together with its registrations (ON DELETE CASCADE).
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.exec.Exec(ctx, "DELETE FROM "+tableEvents+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetByID fetches an event regardless of publication state.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	stmt, args, err := r.builder.Select(eventColumns...).
		From(tableEvents).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select event sql: %w", err)
	}
	event, err := scanEvent(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return event, nil
}

// List returns events ordered by start date.
func (r *EventRepository) List(ctx context.Context, filter port.EventFilter) ([]domain.Event, error) {
	query := r.builder.Select(eventColumns...).From(tableEvents)
	if filter.PublishedOnly {
		query = query.Where(squirrel.Eq{"published": true})
	}
	if strings.TrimSpace(filter.Search) != "" {
		pattern := ilikePattern(filter.Search)
		query = query.Where(squirrel.Or{
			squirrel.ILike{"title": pattern},
			squirrel.ILike{"venue": pattern},
		})
	}
	query = applyPage(query.OrderBy("start_date ASC"), filter.Limit, filter.Offset)

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list events sql: %w", err)
	}
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var (
		event         domain.Event
		eventType     string
		participation string
	)
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&eventType,
		&event.StartDate,
		&event.EndDate,
		&event.Venue,
		&event.ImageURL,
		&event.RegistrationRequired,
		&event.RegistrationStartDate,
		&event.RegistrationEndDate,
		&participation,
		&event.MaxParticipants,
		&event.Published,
		&event.CreatedBy,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		return nil, err
	}
	event.Type = domain.EventType(eventType)
	event.ParticipationType = domain.ParticipationType(participation)
	return &event, nil
}

var _ port.EventRepository = (*EventRepository)(nil)
