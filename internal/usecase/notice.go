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

// NoticeInput carries the editable fields of a notice.
type NoticeInput struct {
	Title       string
	Content     string
	Type        domain.NoticeType
	Visibility  domain.Visibility
	Attachments []string
	Published   bool
}

// NoticeService manages announcements and their audience filtering.
type NoticeService struct {
	workflowBase
	notices port.NoticeRepository
}

// NewNoticeService constructs a NoticeService.
func NewNoticeService(notices port.NoticeRepository, activity port.ActivityRepository, deps Dependencies) *NoticeService {
	return &NoticeService{workflowBase: newWorkflowBase(deps, activity), notices: notices}
}

// Create stores a notice, publishing it immediately when input.Published is set.
func (s *NoticeService) Create(ctx context.Context, caller *domain.Session, input NoticeInput) (domain.Notice, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Notice{}, err
	}
	input, err := validateNotice(input)
	if err != nil {
		return domain.Notice{}, err
	}

	now := s.clock()
	notice := domain.Notice{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Content:     input.Content,
		Type:        input.Type,
		Visibility:  input.Visibility,
		CreatedBy:   caller.UserID,
		Attachments: input.Attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.Published {
		notice.Publish(now)
	}

	if err := s.notices.Create(ctx, notice); err != nil {
		return domain.Notice{}, fmt.Errorf("create notice: %w", err)
	}
	if notice.Published {
		s.announce(ctx, caller, notice)
	}
	return notice, nil
}

// Update replaces a notice's fields. Publishing for the first time sets
// PublishedAt; it is never cleared.
func (s *NoticeService) Update(ctx context.Context, caller *domain.Session, id string, input NoticeInput) (domain.Notice, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Notice{}, err
	}
	input, err := validateNotice(input)
	if err != nil {
		return domain.Notice{}, err
	}

	notice, err := s.load(ctx, id)
	if err != nil {
		return domain.Notice{}, err
	}
	wasPublished := notice.Published

	notice.Title = input.Title
	notice.Content = input.Content
	notice.Type = input.Type
	notice.Visibility = input.Visibility
	notice.Attachments = input.Attachments
	if input.Published {
		notice.Publish(s.clock())
	} else {
		notice.Unpublish()
	}
	return s.save(ctx, caller, *notice, wasPublished)
}

// Publish makes a notice visible to its audience.
func (s *NoticeService) Publish(ctx context.Context, caller *domain.Session, id string) (domain.Notice, error) {
	return s.setPublished(ctx, caller, id, true)
}

// Unpublish hides a notice from everyone but admins.
func (s *NoticeService) Unpublish(ctx context.Context, caller *domain.Session, id string) (domain.Notice, error) {
	return s.setPublished(ctx, caller, id, false)
}

func (s *NoticeService) setPublished(ctx context.Context, caller *domain.Session, id string, published bool) (domain.Notice, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Notice{}, err
	}
	notice, err := s.load(ctx, id)
	if err != nil {
		return domain.Notice{}, err
	}
	wasPublished := notice.Published
	if published {
		notice.Publish(s.clock())
	} else {
		notice.Unpublish()
	}
	return s.save(ctx, caller, *notice, wasPublished)
}

func (s *NoticeService) save(ctx context.Context, caller *domain.Session, notice domain.Notice, wasPublished bool) (domain.Notice, error) {
	notice.UpdatedAt = s.clock()
	if err := s.notices.Update(ctx, notice); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Notice{}, ErrNoticeNotFound
		}
		return domain.Notice{}, fmt.Errorf("update notice: %w", err)
	}
	if notice.Published && !wasPublished {
		s.announce(ctx, caller, notice)
	}
	return notice, nil
}

// Delete removes a notice.
func (s *NoticeService) Delete(ctx context.Context, caller *domain.Session, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.notices.Delete(ctx, strings.TrimSpace(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoticeNotFound
		}
		return fmt.Errorf("delete notice: %w", err)
	}
	return nil
}

// ListAll is the admin list: every notice regardless of state.
func (s *NoticeService) ListAll(ctx context.Context, caller *domain.Session, search string, limit, offset int) ([]domain.Notice, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	return s.list(ctx, port.NoticeFilter{Search: strings.TrimSpace(search), Limit: limit, Offset: offset})
}

// ListPublic returns published PUBLIC notices.
func (s *NoticeService) ListPublic(ctx context.Context, limit, offset int) ([]domain.Notice, error) {
	return s.ListForUser(ctx, nil, limit, offset)
}

// ListForUser returns published notices whose visibility the viewer may read.
// A nil viewer is the anonymous public.
func (s *NoticeService) ListForUser(ctx context.Context, viewer *domain.Session, limit, offset int) ([]domain.Notice, error) {
	limit, offset = normalizePage(limit, offset)
	return s.list(ctx, port.NoticeFilter{
		PublishedOnly: true,
		Visibilities:  domain.VisibilitiesFor(viewer),
		Limit:         limit,
		Offset:        offset,
	})
}

// Get returns a notice the viewer may read. Admins read every notice.
func (s *NoticeService) Get(ctx context.Context, viewer *domain.Session, id string) (domain.Notice, error) {
	notice, err := s.load(ctx, id)
	if err != nil {
		return domain.Notice{}, err
	}
	if !viewer.IsAdmin() && !notice.VisibleTo(viewer) {
		return domain.Notice{}, ErrNoticeNotFound
	}
	return *notice, nil
}

func (s *NoticeService) list(ctx context.Context, filter port.NoticeFilter) ([]domain.Notice, error) {
	notices, err := s.notices.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	return notices, nil
}

func (s *NoticeService) load(ctx context.Context, id string) (*domain.Notice, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNoticeNotFound
	}
	notice, err := s.notices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoticeNotFound
		}
		return nil, fmt.Errorf("lookup notice: %w", err)
	}
	return notice, nil
}

func (s *NoticeService) announce(ctx context.Context, caller *domain.Session, notice domain.Notice) {
	s.audit(ctx, caller.UserID, domain.ActivityNoticePublished, domain.EntityNotice, notice.ID, map[string]any{
		"visibility": string(notice.Visibility),
	})
	s.publish(ctx, "notice.published", func(p port.EventPublisher) error {
		event := domain.NoticePublishedEvent{
			EventID:     uuid.NewString(),
			NoticeID:    notice.ID,
			Title:       notice.Title,
			Type:        notice.Type,
			Visibility:  notice.Visibility,
			PublishedBy: caller.UserID,
		}
		if notice.PublishedAt != nil {
			event.PublishedAt = *notice.PublishedAt
		}
		return p.PublishNoticePublished(ctx, event)
	})
}

func validateNotice(input NoticeInput) (NoticeInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Content = strings.TrimSpace(input.Content)
	if input.Type == "" {
		input.Type = domain.NoticeTypeGeneral
	}
	if input.Visibility == "" {
		input.Visibility = domain.VisibilityPublic
	}

	fields := fieldErrors{}
	if input.Title == "" {
		fields.add("title", "title is required")
	}
	if input.Content == "" {
		fields.add("content", "content is required")
	}
	if !input.Type.Valid() {
		fields.add("type", "type must be GENERAL, URGENT, MAINTENANCE or EVENT")
	}
	if !input.Visibility.Valid() {
		fields.add("visibility", "visibility must be PUBLIC, REGISTERED or ADMIN")
	}

	attachments := make([]string, 0, len(input.Attachments))
	for i, a := range input.Attachments {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if !validURL(a) {
			fields.add(fmt.Sprintf("attachments[%d]", i), "attachment must be an http(s) URL")
		}
		attachments = append(attachments, a)
	}
	input.Attachments = attachments

	return input, fields.err()
}
