package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types, published on <topic_prefix>.<type>.
const (
	TypeUserRegistered        = "user.registered"
	TypeUserLoggedIn          = "user.logged_in"
	TypeUserStatusChanged     = "user.status_changed"
	TypeUserRoleChanged       = "user.role_changed"
	TypeUserPasswordReset     = "user.password_reset"
	TypeRegistrationCreated   = "event.registration_created"
	TypeRegistrationCancelled = "event.registration_cancelled"
	TypeNoticePublished       = "notice.published"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

// publish wraps payload in the shared envelope. Messages are keyed by user so one
// user's events stay ordered within a partition.
func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	bytes, err := json.Marshal(eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}
	if userID != "" {
		message.Key = sarama.StringEncoder(userID)
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes society.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string    `json:"user_id"`
		Email        string    `json:"email"`
		BuildingID   string    `json:"building_id"`
		FlatID       string    `json:"flat_id"`
		UserType     string    `json:"user_type"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		UserID:       event.UserID,
		Email:        event.Email,
		BuildingID:   event.BuildingID,
		FlatID:       event.FlatID,
		UserType:     string(event.UserType),
		RegisteredAt: event.RegisteredAt.UTC(),
	}
	return p.publish(ctx, event.EventID, TypeUserRegistered, event.UserID, event.RegisteredAt, payload)
}

// PublishUserLoggedIn publishes society.user.logged_in events.
func (p *EventPublisher) PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error {
	payload := struct {
		UserID     string    `json:"user_id"`
		Role       string    `json:"role"`
		LoggedInAt time.Time `json:"logged_in_at"`
		IPAddress  *string   `json:"ip_address,omitempty"`
	}{
		UserID:     event.UserID,
		Role:       string(event.Role),
		LoggedInAt: event.LoggedInAt.UTC(),
		IPAddress:  event.IPAddress,
	}
	return p.publish(ctx, event.EventID, TypeUserLoggedIn, event.UserID, event.LoggedInAt, payload)
}

// PublishUserStatusChanged publishes society.user.status_changed events.
func (p *EventPublisher) PublishUserStatusChanged(ctx context.Context, event domain.UserStatusChangedEvent) error {
	payload := struct {
		UserID     string    `json:"user_id"`
		Action     string    `json:"action"`
		FromStatus string    `json:"from_status"`
		ToStatus   string    `json:"to_status"`
		ChangedBy  string    `json:"changed_by"`
		ChangedAt  time.Time `json:"changed_at"`
	}{
		UserID:     event.UserID,
		Action:     string(event.Action),
		FromStatus: string(event.FromStatus),
		ToStatus:   string(event.ToStatus),
		ChangedBy:  event.ChangedBy,
		ChangedAt:  event.ChangedAt.UTC(),
	}
	return p.publish(ctx, event.EventID, TypeUserStatusChanged, event.UserID, event.ChangedAt, payload)
}

// PublishUserRoleChanged publishes society.user.role_changed events.
func (p *EventPublisher) PublishUserRoleChanged(ctx context.Context, event domain.UserRoleChangedEvent) error {
	payload := struct {
		UserID    string    `json:"user_id"`
		FromRole  string    `json:"from_role"`
		ToRole    string    `json:"to_role"`
		ChangedBy string    `json:"changed_by"`
		ChangedAt time.Time `json:"changed_at"`
	}{
		UserID:    event.UserID,
		FromRole:  string(event.FromRole),
		ToRole:    string(event.ToRole),
		ChangedBy: event.ChangedBy,
		ChangedAt: event.ChangedAt.UTC(),
	}
	return p.publish(ctx, event.EventID, TypeUserRoleChanged, event.UserID, event.ChangedAt, payload)
}

// PublishPasswordReset publishes society.user.password_reset events.
func (p *EventPublisher) PublishPasswordReset(ctx context.Context, event domain.PasswordResetEvent) error {
	payload := struct {
		UserID  string    `json:"user_id"`
		ResetBy string    `json:"reset_by"`
		ResetAt time.Time `json:"reset_at"`
	}{
		UserID:  event.UserID,
		ResetBy: event.ResetBy,
		ResetAt: event.ResetAt.UTC(),
	}
	return p.publish(ctx, event.EventID, TypeUserPasswordReset, event.UserID, event.ResetAt, payload)
}

// PublishEventRegistrationChanged publishes registration created/cancelled events.
func (p *EventPublisher) PublishEventRegistrationChanged(ctx context.Context, event domain.EventRegistrationChangedEvent) error {
	eventType := TypeRegistrationCreated
	if event.Cancelled {
		eventType = TypeRegistrationCancelled
	}
	payload := struct {
		RegistrationID string    `json:"registration_id"`
		EventID        string    `json:"event_id"`
		UserID         string    `json:"user_id"`
		TeamSize       int       `json:"team_size"`
		OccurredAt     time.Time `json:"occurred_at"`
	}{
		RegistrationID: event.RegistrationID,
		EventID:        event.SocietyEventID,
		UserID:         event.UserID,
		TeamSize:       event.TeamSize,
		OccurredAt:     event.OccurredAt.UTC(),
	}
	return p.publish(ctx, event.EventID, eventType, event.UserID, event.OccurredAt, payload)
}

// PublishNoticePublished publishes society.notice.published events.
func (p *EventPublisher) PublishNoticePublished(ctx context.Context, event domain.NoticePublishedEvent) error {
	payload := struct {
		NoticeID    string    `json:"notice_id"`
		Title       string    `json:"title"`
		Type        string    `json:"type"`
		Visibility  string    `json:"visibility"`
		PublishedBy string    `json:"published_by"`
		PublishedAt time.Time `json:"published_at"`
	}{
		NoticeID:    event.NoticeID,
		Title:       event.Title,
		Type:        string(event.Type),
		Visibility:  string(event.Visibility),
		PublishedBy: event.PublishedBy,
		PublishedAt: event.PublishedAt.UTC(),
	}
	return p.publish(ctx, event.EventID, TypeNoticePublished, event.PublishedBy, event.PublishedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
