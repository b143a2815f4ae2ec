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

var noticeColumns = []string{
	"id", "title", "content", "type", "visibility", "published", "published_at", "created_by", "attachments", "created_at", "updated_at",
}

// NoticeRepository implements port.NoticeRepository.
type NoticeRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewNoticeRepository constructs a notice repository.
func NewNoticeRepository(exec pgExecutor) *NoticeRepository {
	return &NoticeRepository{exec: exec, builder: newBuilder()}
}

// Create inserts a notice.
func (r *NoticeRepository) Create(ctx context.Context, notice domain.Notice) error {
	stmt, args, err := r.builder.Insert(tableNotices).
		Columns(noticeColumns...).
		Values(
			notice.ID,
			notice.Title,
			notice.Content,
			string(notice.Type),
			string(notice.Visibility),
			notice.Published,
			optionalTime(notice.PublishedAt),
			notice.CreatedBy,
			attachmentsValue(notice.Attachments),
			notice.CreatedAt,
			notice.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert notice sql: %w", err)
	}
	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert notice: %w", translateWriteError(err))
	}
	return nil
}

// Update rewrites a notice. published_at is only ever filled, never cleared.
func (r *NoticeRepository) Update(ctx context.Context, notice domain.Notice) error {
	stmt, args, err := r.builder.Update(tableNotices).
		Set("title", notice.Title).
		Set("content", notice.Content).
		Set("type", string(notice.Type)).
		Set("visibility", string(notice.Visibility)).
		Set("published", notice.Published).
		Set("published_at", squirrel.Expr("COALESCE(published_at, ?)", optionalTime(notice.PublishedAt))).
		Set("attachments", attachmentsValue(notice.Attachments)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": notice.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update notice sql: %w", err)
	}
	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a notice.
func (r *NoticeRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.exec.Exec(ctx, "DELETE FROM "+tableNotices+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetByID fetches a notice regardless of publication state.
func (r *NoticeRepository) GetByID(ctx context.Context, id string) (*domain.Notice, error) {
	stmt, args, err := r.builder.Select(noticeColumns...).
		From(tableNotices).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select notice sql: %w", err)
	}
	notice, err := scanNotice(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan notice: %w", err)
	}
	return notice, nil
}

// List returns notices matching filter, most recently published first.
func (r *NoticeRepository) List(ctx context.Context, filter port.NoticeFilter) ([]domain.Notice, error) {
	query := r.builder.Select(noticeColumns...).From(tableNotices)
	if filter.PublishedOnly {
		query = query.Where(squirrel.Eq{"published": true})
	}
	if len(filter.Visibilities) > 0 {
		values := make([]string, 0, len(filter.Visibilities))
		for _, v := range filter.Visibilities {
			values = append(values, string(v))
		}
		query = query.Where(squirrel.Eq{"visibility": values})
	}
	if strings.TrimSpace(filter.Search) != "" {
		pattern := ilikePattern(filter.Search)
		query = query.Where(squirrel.Or{
			squirrel.ILike{"title": pattern},
			squirrel.ILike{"content": pattern},
		})
	}
	query = applyPage(query.OrderBy("published_at DESC NULLS LAST", "created_at DESC"), filter.Limit, filter.Offset)

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list notices sql: %w", err)
	}
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	var notices []domain.Notice
	for rows.Next() {
		notice, err := scanNotice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		notices = append(notices, *notice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notices: %w", err)
	}
	return notices, nil
}

func attachmentsValue(attachments []string) []string {
	if attachments == nil {
		return []string{}
	}
	return attachments
}

func scanNotice(row pgx.Row) (*domain.Notice, error) {
	var (
		notice     domain.Notice
		noticeType string
		visibility string
	)
	if err := row.Scan(
		&notice.ID,
		&notice.Title,
		&notice.Content,
		&noticeType,
		&visibility,
		&notice.Published,
		&notice.PublishedAt,
		&notice.CreatedBy,
		&notice.Attachments,
		&notice.CreatedAt,
		&notice.UpdatedAt,
	); err != nil {
		return nil, err
	}
	notice.Type = domain.NoticeType(noticeType)
	notice.Visibility = domain.Visibility(visibility)
	return &notice, nil
}

var _ port.NoticeRepository = (*NoticeRepository)(nil)
