package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/repository"
)

const (
	workflowEventRegistration = "event_registration"
	workflowEventCancellation = "event_cancellation"
)

var registrationCSVHeader = []string{
	"registration_id", "registrant", "email", "phone", "team_name",
	"member_name", "member_email", "member_phone", "registered_at",
}

// RegisterForEventInput carries the optional team payload.
type RegisterForEventInput struct {
	TeamName    string
	TeamMembers []domain.TeamMember
}

// EventRegistrationService registers residents for events and cancels registrations.
type EventRegistrationService struct {
	workflowBase
	events        port.EventRepository
	registrations port.RegistrationRepository
}

// NewEventRegistrationService constructs an EventRegistrationService.
func NewEventRegistrationService(
	events port.EventRepository,
	registrations port.RegistrationRepository,
	activity port.ActivityRepository,
	deps Dependencies,
) *EventRegistrationService {
	return &EventRegistrationService{
		workflowBase:  newWorkflowBase(deps, activity),
		events:        events,
		registrations: registrations,
	}
}

// Register checks eligibility in a fixed order, the first failure winning: session,
// event published, registration required, window, capacity, duplicate. The
// capacity and duplicate checks are repeated by the repository under a lock on
// the event row.
func (s *EventRegistrationService) Register(ctx context.Context, caller *domain.Session, eventID string, input RegisterForEventInput) (reg domain.EventRegistration, err error) {
	defer func() { s.record(workflowEventRegistration, err) }()

	if err := requireSession(caller); err != nil {
		return domain.EventRegistration{}, err
	}

	event, err := s.publishedEvent(ctx, eventID)
	if err != nil {
		return domain.EventRegistration{}, err
	}
	if !event.RegistrationRequired {
		return domain.EventRegistration{}, ErrRegistrationNotRequired
	}

	now := s.clock()
	switch event.RegistrationWindow(now) {
	case domain.WindowNotYetOpen:
		return domain.EventRegistration{}, ErrRegistrationNotOpen
	case domain.WindowClosed:
		return domain.EventRegistration{}, ErrRegistrationClosed
	}

	if event.MaxParticipants != nil {
		count, err := s.registrations.Count(ctx, event.ID)
		if err != nil {
			return domain.EventRegistration{}, fmt.Errorf("count registrations: %w", err)
		}
		if count >= *event.MaxParticipants {
			return domain.EventRegistration{}, ErrEventFull
		}
	}

	if _, err := s.registrations.GetByEventAndUser(ctx, event.ID, caller.UserID); err == nil {
		return domain.EventRegistration{}, ErrAlreadyRegistered
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.EventRegistration{}, fmt.Errorf("lookup registration: %w", err)
	}

	reg = domain.EventRegistration{
		ID:        uuid.NewString(),
		EventID:   event.ID,
		UserID:    caller.UserID,
		Status:    domain.RegistrationStatusRegistered,
		CreatedAt: now,
	}
	if event.IsTeam() {
		members, err := validateTeam(input)
		if err != nil {
			return domain.EventRegistration{}, err
		}
		reg.TeamMembers = members
		if name := strings.TrimSpace(input.TeamName); name != "" {
			reg.TeamName = &name
		}
	}

	if err := s.registrations.Create(ctx, reg, event.MaxParticipants); err != nil {
		switch {
		case errors.Is(err, repository.ErrCapacityReached):
			return domain.EventRegistration{}, ErrEventFull
		case errors.Is(err, repository.ErrDuplicate):
			return domain.EventRegistration{}, ErrAlreadyRegistered
		case errors.Is(err, repository.ErrNotFound):
			return domain.EventRegistration{}, ErrEventNotFound
		default:
			return domain.EventRegistration{}, fmt.Errorf("create registration: %w", err)
		}
	}

	s.audit(ctx, caller.UserID, domain.ActivityEventRegistered, domain.EntityRegistration, reg.ID, map[string]any{
		"event_id":  event.ID,
		"team_size": len(reg.TeamMembers),
	})
	s.publish(ctx, "event.registration_created", func(p port.EventPublisher) error {
		return p.PublishEventRegistrationChanged(ctx, domain.EventRegistrationChangedEvent{
			EventID:        uuid.NewString(),
			RegistrationID: reg.ID,
			SocietyEventID: event.ID,
			UserID:         caller.UserID,
			TeamSize:       len(reg.TeamMembers),
			OccurredAt:     now,
		})
	})

	return reg, nil
}

func validateTeam(input RegisterForEventInput) ([]domain.TeamMember, error) {
	fields := fieldErrors{}
	if len(input.TeamMembers) == 0 {
		fields.add("teamMembers", "team events need at least one member")
	}

	members := make([]domain.TeamMember, 0, len(input.TeamMembers))
	for i, m := range input.TeamMembers {
		member := domain.TeamMember{
			Name:  strings.TrimSpace(m.Name),
			Email: strings.TrimSpace(m.Email),
			Phone: strings.TrimSpace(m.Phone),
		}
		if member.Name == "" {
			fields.add(fmt.Sprintf("teamMembers[%d].name", i), "member name is required")
		}
		members = append(members, member)
	}

	if err := fields.err(); err != nil {
		return nil, err
	}
	return members, nil
}

// Cancel hard-deletes the caller's registration while the event has not started.
func (s *EventRegistrationService) Cancel(ctx context.Context, caller *domain.Session, eventID string) (err error) {
	defer func() { s.record(workflowEventCancellation, err) }()

	if err := requireSession(caller); err != nil {
		return err
	}
	eventID = strings.TrimSpace(eventID)

	reg, err := s.registrations.GetByEventAndUser(ctx, eventID, caller.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("lookup registration: %w", err)
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("lookup event: %w", err)
	}

	now := s.clock()
	if event.HasStarted(now) {
		return ErrEventAlreadyStarted
	}

	if err := s.registrations.DeleteByEventAndUser(ctx, eventID, caller.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("delete registration: %w", err)
	}

	s.audit(ctx, caller.UserID, domain.ActivityEventCancelled, domain.EntityRegistration, reg.ID, map[string]any{
		"event_id": eventID,
	})
	s.publish(ctx, "event.registration_cancelled", func(p port.EventPublisher) error {
		return p.PublishEventRegistrationChanged(ctx, domain.EventRegistrationChangedEvent{
			EventID:        uuid.NewString(),
			RegistrationID: reg.ID,
			SocietyEventID: eventID,
			UserID:         caller.UserID,
			Cancelled:      true,
			TeamSize:       len(reg.TeamMembers),
			OccurredAt:     now,
		})
	})
	return nil
}

// ListMine returns the caller's registrations.
func (s *EventRegistrationService) ListMine(ctx context.Context, caller *domain.Session) ([]domain.EventRegistration, error) {
	if err := requireSession(caller); err != nil {
		return nil, err
	}
	regs, err := s.registrations.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// ListForEvent returns every registration of an event with registrant details.
func (s *EventRegistrationService) ListForEvent(ctx context.Context, caller *domain.Session, eventID string) ([]domain.RegistrationDetail, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if _, err := s.anyEvent(ctx, eventID); err != nil {
		return nil, err
	}
	details, err := s.registrations.ListByEvent(ctx, strings.TrimSpace(eventID))
	if err != nil {
		return nil, fmt.Errorf("list event registrations: %w", err)
	}
	return details, nil
}

// ExportCSV writes the event's registrations as CSV, one row per team member.
// Individual registrations produce a single row with empty member columns.
func (s *EventRegistrationService) ExportCSV(ctx context.Context, caller *domain.Session, eventID string, w io.Writer) error {
	details, err := s.ListForEvent(ctx, caller, eventID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(registrationCSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, d := range details {
		teamName := ""
		if d.TeamName != nil {
			teamName = *d.TeamName
		}
		base := []string{d.ID, d.UserName, d.UserEmail, d.UserPhone, teamName}
		registeredAt := d.CreatedAt.UTC().Format(time.RFC3339)

		if len(d.TeamMembers) == 0 {
			if err := cw.Write(append(base, "", "", "", registeredAt)); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
			continue
		}
		for _, m := range d.TeamMembers {
			row := append(append([]string{}, base...), m.Name, m.Email, m.Phone, registeredAt)
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func (s *EventRegistrationService) publishedEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	event, err := s.anyEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.Published {
		return nil, ErrEventNotFound
	}
	return event, nil
}

func (s *EventRegistrationService) anyEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, ErrEventNotFound
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("lookup event: %w", err)
	}
	return event, nil
}
