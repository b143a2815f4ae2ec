package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/repository"
)

// ConstraintRegistrationUnique is the unique (event_id, user_id) constraint on registrations.
const ConstraintRegistrationUnique = "event_registrations_event_user_key"

var registrationColumns = []string{
	"id", "event_id", "user_id", "status", "team_name", "team_members", "created_at",
}

// RegistrationRepository implements port.RegistrationRepository.
type RegistrationRepository struct {
	db      DB
	builder squirrel.StatementBuilderType
}

// NewRegistrationRepository constructs a registration repository. db must support
// transactions because Create locks the event row.
func NewRegistrationRepository(db DB) *RegistrationRepository {
	return &RegistrationRepository{db: db, builder: newBuilder()}
}

// Create inserts reg while holding a row lock on its event, so capacity and
// uniqueness are evaluated against a stable registration set.
func (r *RegistrationRepository) Create(ctx context.Context, reg domain.EventRegistration, maxParticipants *int) error {
	members, err := marshalJSON(teamMembersValue(reg.TeamMembers))
	if err != nil {
		return err
	}

	insert, args, err := r.builder.Insert(tableRegistrations).
		Columns(registrationColumns...).
		Values(
			reg.ID,
			reg.EventID,
			reg.UserID,
			string(reg.Status),
			optionalString(reg.TeamName),
			members,
			reg.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert registration sql: %w", err)
	}

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, "SELECT id FROM "+tableEvents+" WHERE id = $1 FOR UPDATE", reg.EventID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}

		if maxParticipants != nil {
			var count int
			if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM "+tableRegistrations+" WHERE event_id = $1", reg.EventID).Scan(&count); err != nil {
				return fmt.Errorf("count registrations: %w", err)
			}
			if count >= *maxParticipants {
				return repository.ErrCapacityReached
			}
		}

		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+tableRegistrations+" WHERE event_id = $1 AND user_id = $2)", reg.EventID, reg.UserID).Scan(&exists); err != nil {
			return fmt.Errorf("check registration: %w", err)
		}
		if exists {
			return &repository.DuplicateError{Constraint: ConstraintRegistrationUnique}
		}

		if _, err := tx.Exec(ctx, insert, args...); err != nil {
			return fmt.Errorf("insert registration: %w", translateWriteError(err))
		}
		return nil
	})
}

// Count returns the number of registrations held for eventID.
func (r *RegistrationRepository) Count(ctx context.Context, eventID string) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+tableRegistrations+" WHERE event_id = $1", eventID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

// GetByEventAndUser returns the caller's registration for an event.
func (r *RegistrationRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.EventRegistration, error) {
	stmt, args, err := r.builder.Select(registrationColumns...).
		From(tableRegistrations).
		Where(squirrel.Eq{"event_id": eventID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select registration sql: %w", err)
	}
	reg, err := scanRegistration(r.db.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	return reg, nil
}

// DeleteByEventAndUser hard-deletes a registration.
func (r *RegistrationRepository) DeleteByEventAndUser(ctx context.Context, eventID, userID string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM "+tableRegistrations+" WHERE event_id = $1 AND user_id = $2", eventID, userID)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListByEvent returns registrations with registrant contact details, oldest first.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]domain.RegistrationDetail, error) {
	stmt, args, err := r.builder.Select(
		"r.id", "r.event_id", "r.user_id", "r.status", "r.team_name", "r.team_members", "r.created_at",
		"u.name", "u.email", "u.phone",
	).
		From(tableRegistrations + " r").
		Join(tableUsers + " u ON u.id = r.user_id").
		Where(squirrel.Eq{"r.event_id": eventID}).
		OrderBy("r.created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list registrations sql: %w", err)
	}

	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var details []domain.RegistrationDetail
	for rows.Next() {
		var (
			detail  domain.RegistrationDetail
			status  string
			members []byte
		)
		if err := rows.Scan(
			&detail.ID,
			&detail.EventID,
			&detail.UserID,
			&status,
			&detail.TeamName,
			&members,
			&detail.CreatedAt,
			&detail.UserName,
			&detail.UserEmail,
			&detail.UserPhone,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		detail.Status = domain.RegistrationStatus(status)
		if detail.TeamMembers, err = decodeTeamMembers(members); err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return details, nil
}

// ListByUser returns a user's registrations, newest first.
func (r *RegistrationRepository) ListByUser(ctx context.Context, userID string) ([]domain.EventRegistration, error) {
	stmt, args, err := r.builder.Select(registrationColumns...).
		From(tableRegistrations).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list user registrations sql: %w", err)
	}

	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list user registrations: %w", err)
	}
	defer rows.Close()

	var regs []domain.EventRegistration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return regs, nil
}

func teamMembersValue(members []domain.TeamMember) []domain.TeamMember {
	if members == nil {
		return []domain.TeamMember{}
	}
	return members
}

func decodeTeamMembers(raw []byte) ([]domain.TeamMember, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var members []domain.TeamMember
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, fmt.Errorf("decode team members: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	return members, nil
}

func scanRegistration(row pgx.Row) (*domain.EventRegistration, error) {
	var (
		reg     domain.EventRegistration
		status  string
		members []byte
	)
	if err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.UserID,
		&status,
		&reg.TeamName,
		&members,
		&reg.CreatedAt,
	); err != nil {
		return nil, err
	}
	reg.Status = domain.RegistrationStatus(status)
	decoded, err := decodeTeamMembers(members)
	if err != nil {
		return nil, err
	}
	reg.TeamMembers = decoded
	return &reg, nil
}

var _ port.RegistrationRepository = (*RegistrationRepository)(nil)
