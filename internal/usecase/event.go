package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/repository"
)

// EventInput carries the editable fields of an event.
type EventInput struct {
	Title                 string
	Description           string
	Type                  domain.EventType
	StartDate             time.Time
	EndDate               time.Time
	Venue                 string
	ImageURL              *string
	RegistrationRequired  bool
	RegistrationStartDate *time.Time
	RegistrationEndDate   *time.Time
	ParticipationType     domain.ParticipationType
	MaxParticipants       *int
	Published             bool
}

// EventView is an event with its current registration count.
type EventView struct {
	domain.Event
	RegistrationCount int
}

// EventService manages society events.
type EventService struct {
	workflowBase
	events        port.EventRepository
	registrations port.RegistrationRepository
}

// NewEventService constructs an EventService.
func NewEventService(events port.EventRepository, registrations port.RegistrationRepository, deps Dependencies) *EventService {
	return &EventService{
		workflowBase:  newWorkflowBase(deps, nil),
		events:        events,
		registrations: registrations,
	}
}

// Create stores a new event.
func (s *EventService) Create(ctx context.Context, caller *domain.Session, input EventInput) (domain.Event, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Event{}, err
	}
	input, err := validateEvent(input)
	if err != nil {
		return domain.Event{}, err
	}

	now := s.clock()
	event := domain.Event{ID: uuid.NewString(), CreatedBy: caller.UserID, CreatedAt: now}
	applyEventInput(&event, input)
	event.UpdatedAt = now

	if err := s.events.Create(ctx, event); err != nil {
		return domain.Event{}, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// Update replaces an event's editable fields.
func (s *EventService) Update(ctx context.Context, caller *domain.Session, id string, input EventInput) (domain.Event, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Event{}, err
	}
	input, err := validateEvent(input)
	if err != nil {
		return domain.Event{}, err
	}

	event, err := s.load(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	applyEventInput(event, input)
	return s.save(ctx, *event)
}

// Publish makes an event visible and open to registration rules.
func (s *EventService) Publish(ctx context.Context, caller *domain.Session, id string) (domain.Event, error) {
	return s.setPublished(ctx, caller, id, true)
}

// Unpublish hides an event from residents.
func (s *EventService) Unpublish(ctx context.Context, caller *domain.Session, id string) (domain.Event, error) {
	return s.setPublished(ctx, caller, id, false)
}

func (s *EventService) setPublished(ctx context.Context, caller *domain.Session, id string, published bool) (domain.Event, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Event{}, err
	}
	event, err := s.load(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	event.Published = published
	return s.save(ctx, *event)
}

func (s *EventService) save(ctx context.Context, event domain.Event) (domain.Event, error) {
	event.UpdatedAt = s.clock()
	if err := s.events.Update(ctx, event); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Event{}, ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

// Delete removes an event together with its registrations.
func (s *EventService) Delete(ctx context.Context, caller *domain.Session, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, strings.TrimSpace(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEventNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// ListAll returns every event for admins.
func (s *EventService) ListAll(ctx context.Context, caller *domain.Session, search string, limit, offset int) ([]domain.Event, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	return s.list(ctx, port.EventFilter{Search: strings.TrimSpace(search), Limit: limit, Offset: offset})
}

// ListPublished returns published events.
func (s *EventService) ListPublished(ctx context.Context, search string, limit, offset int) ([]domain.Event, error) {
	limit, offset = normalizePage(limit, offset)
	return s.list(ctx, port.EventFilter{PublishedOnly: true, Search: strings.TrimSpace(search), Limit: limit, Offset: offset})
}

// Get returns a published event with its registration count. Admins may read
// unpublished events.
func (s *EventService) Get(ctx context.Context, viewer *domain.Session, id string) (EventView, error) {
	event, err := s.load(ctx, id)
	if err != nil {
		return EventView{}, err
	}
	if !event.Published && !viewer.IsAdmin() {
		return EventView{}, ErrEventNotFound
	}
	count, err := s.registrations.Count(ctx, event.ID)
	if err != nil {
		return EventView{}, fmt.Errorf("count registrations: %w", err)
	}
	return EventView{Event: *event, RegistrationCount: count}, nil
}

func (s *EventService) list(ctx context.Context, filter port.EventFilter) ([]domain.Event, error) {
	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *EventService) load(ctx context.Context, id string) (*domain.Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEventNotFound
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("lookup event: %w", err)
	}
	return event, nil
}

func applyEventInput(event *domain.Event, input EventInput) {
	event.Title = input.Title
	event.Description = input.Description
	event.Type = input.Type
	event.StartDate = input.StartDate.UTC()
	event.EndDate = input.EndDate.UTC()
	event.Venue = input.Venue
	event.ImageURL = input.ImageURL
	event.RegistrationRequired = input.RegistrationRequired
	event.RegistrationStartDate = utcPtr(input.RegistrationStartDate)
	event.RegistrationEndDate = utcPtr(input.RegistrationEndDate)
	event.ParticipationType = input.ParticipationType
	event.MaxParticipants = input.MaxParticipants
	event.Published = input.Published
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func validateEvent(input EventInput) (EventInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Venue = strings.TrimSpace(input.Venue)
	input.ImageURL = trimmedPtr(input.ImageURL)
	if input.Type == "" {
		input.Type = domain.EventTypeOther
	}
	if input.ParticipationType == "" {
		input.ParticipationType = domain.ParticipationIndividual
	}

	fields := fieldErrors{}
	if input.Title == "" {
		fields.add("title", "title is required")
	}
	if input.Venue == "" {
		fields.add("venue", "venue is required")
	}
	if !input.Type.Valid() {
		fields.add("type", "unknown event type")
	}
	if !input.ParticipationType.Valid() {
		fields.add("participationType", "participation type must be INDIVIDUAL or TEAM")
	}
	if input.StartDate.IsZero() {
		fields.add("startDate", "start date is required")
	}
	if input.EndDate.IsZero() {
		fields.add("endDate", "end date is required")
	} else if input.EndDate.Before(input.StartDate) {
		fields.add("endDate", "end date must not be before start date")
	}
	if input.ImageURL != nil && !validURL(*input.ImageURL) {
		fields.add("imageUrl", "image must be an http(s) URL")
	}
	if input.MaxParticipants != nil && *input.MaxParticipants <= 0 {
		fields.add("maxParticipants", "max participants must be positive when set")
	}
	if input.RegistrationStartDate != nil && input.RegistrationEndDate != nil &&
		input.RegistrationEndDate.Before(*input.RegistrationStartDate) {
		fields.add("registrationEndDate", "registration must not close before it opens")
	}

	return input, fields.err()
}
