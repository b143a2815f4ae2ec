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

var userColumns = []string{
	"id",
	"email",
	"name",
	"phone",
	"password_hash",
	"role",
	"status",
	"user_type",
	"building_id",
	"flat_id",
	"is_profile_public",
	"approved_by",
	"approved_at",
	"version",
	"created_at",
	"updated_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: newBuilder(),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{exec: tx, builder: r.builder}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	version := user.Version
	if version == 0 {
		version = 1
	}

	stmt, args, err := r.builder.Insert(tableUsers).
		Columns(userColumns...).
		Values(
			user.ID,
			strings.ToLower(strings.TrimSpace(user.Email)),
			user.Name,
			user.Phone,
			user.PasswordHash,
			string(user.Role),
			string(user.Status),
			string(user.UserType),
			optionalString(user.BuildingID),
			optionalString(user.FlatID),
			user.IsProfilePublic,
			optionalString(user.ApprovedBy),
			optionalTime(user.ApprovedAt),
			version,
			user.CreatedAt,
			user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert user: %w", translateWriteError(err))
	}
	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by case-insensitive email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From(tableUsers).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	user, err := scanUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

// ExistsByEmail reports whether an account already uses email.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	stmt, args, err := r.builder.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(tableUsers).
		Where(squirrel.Eq{"email": strings.ToLower(strings.TrimSpace(email))}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build user exists sql: %w", err)
	}

	var exists bool
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("query user exists: %w", err)
	}
	return exists, nil
}

// UpdateState applies change when the stored version still equals expectedVersion.
func (r *UserRepository) UpdateState(ctx context.Context, id string, expectedVersion int64, change domain.UserStateChange) error {
	update := r.builder.Update(tableUsers).
		Set("status", string(change.Status)).
		Set("role", string(change.Role)).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", time.Now().UTC())
	if change.ApprovedBy != nil {
		update = update.Set("approved_by", *change.ApprovedBy)
	}
	if change.ApprovedAt != nil {
		update = update.Set("approved_at", change.ApprovedAt.UTC())
	}

	stmt, args, err := update.
		Where(squirrel.Eq{"id": id, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user state sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user state: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	exists, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStaleVersion
}

func (r *UserRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.exec.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+tableUsers+" WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("query user exists: %w", err)
	}
	return exists, nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	stmt, args, err := r.builder.Update(tableUsers).
		Set("password_hash", passwordHash).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}
	return r.execOne(ctx, stmt, args, "update password")
}

// UpdateProfile stores self-service profile edits.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, profile domain.ProfileUpdate) error {
	stmt, args, err := r.builder.Update(tableUsers).
		Set("name", profile.Name).
		Set("phone", profile.Phone).
		Set("is_profile_public", profile.IsProfilePublic).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update profile sql: %w", err)
	}
	return r.execOne(ctx, stmt, args, "update profile")
}

func (r *UserRepository) execOne(ctx context.Context, stmt string, args []any, op string) error {
	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List returns users matching filter, newest first.
func (r *UserRepository) List(ctx context.Context, filter port.UserFilter) ([]domain.User, error) {
	query := r.builder.Select(userColumns...).From(tableUsers)
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.Role != "" {
		query = query.Where(squirrel.Eq{"role": string(filter.Role)})
	}
	if filter.BuildingID != "" {
		query = query.Where(squirrel.Eq{"building_id": filter.BuildingID})
	}
	if strings.TrimSpace(filter.Search) != "" {
		pattern := ilikePattern(filter.Search)
		query = query.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"email": pattern},
		})
	}
	query = applyPage(query.OrderBy("created_at DESC"), filter.Limit, filter.Offset)
	return r.list(ctx, query)
}

// ListDirectory returns approved residents who opted into the directory.
func (r *UserRepository) ListDirectory(ctx context.Context, filter port.DirectoryFilter) ([]domain.User, error) {
	query := r.builder.Select(userColumns...).
		From(tableUsers).
		Where(squirrel.Eq{
			"status":            string(domain.UserStatusApproved),
			"is_profile_public": true,
		})
	if filter.BuildingID != "" {
		query = query.Where(squirrel.Eq{"building_id": filter.BuildingID})
	}
	if strings.TrimSpace(filter.Search) != "" {
		query = query.Where(squirrel.ILike{"name": ilikePattern(filter.Search)})
	}
	query = applyPage(query.OrderBy("name ASC"), filter.Limit, filter.Offset)
	return r.list(ctx, query)
}

func (r *UserRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]domain.User, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user     domain.User
		role     string
		status   string
		userType string
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Phone,
		&user.PasswordHash,
		&role,
		&status,
		&userType,
		&user.BuildingID,
		&user.FlatID,
		&user.IsProfilePublic,
		&user.ApprovedBy,
		&user.ApprovedAt,
		&user.Version,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	user.Status = domain.UserStatus(status)
	user.UserType = domain.UserType(userType)
	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
