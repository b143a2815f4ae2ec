package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. It is used when no
// brokers are configured.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	p.logger.Info("stub event published", append([]zap.Field{
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
	}, fields...)...)
}

func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent(TypeUserRegistered, event.UserID, event.RegisteredAt,
		zap.String("building_id", event.BuildingID),
		zap.String("user_type", string(event.UserType)),
	)
	return nil
}

func (p *StubPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	p.logEvent(TypeUserLoggedIn, event.UserID, event.LoggedInAt, zap.String("role", string(event.Role)))
	return nil
}

func (p *StubPublisher) PublishUserStatusChanged(_ context.Context, event domain.UserStatusChangedEvent) error {
	p.logEvent(TypeUserStatusChanged, event.UserID, event.ChangedAt,
		zap.String("from_status", string(event.FromStatus)),
		zap.String("to_status", string(event.ToStatus)),
		zap.String("changed_by", event.ChangedBy),
	)
	return nil
}

func (p *StubPublisher) PublishUserRoleChanged(_ context.Context, event domain.UserRoleChangedEvent) error {
	p.logEvent(TypeUserRoleChanged, event.UserID, event.ChangedAt,
		zap.String("from_role", string(event.FromRole)),
		zap.String("to_role", string(event.ToRole)),
	)
	return nil
}

func (p *StubPublisher) PublishPasswordReset(_ context.Context, event domain.PasswordResetEvent) error {
	p.logEvent(TypeUserPasswordReset, event.UserID, event.ResetAt, zap.String("reset_by", event.ResetBy))
	return nil
}

func (p *StubPublisher) PublishEventRegistrationChanged(_ context.Context, event domain.EventRegistrationChangedEvent) error {
	eventType := TypeRegistrationCreated
	if event.Cancelled {
		eventType = TypeRegistrationCancelled
	}
	p.logEvent(eventType, event.UserID, event.OccurredAt,
		zap.String("event_id", event.SocietyEventID),
		zap.Int("team_size", event.TeamSize),
	)
	return nil
}

func (p *StubPublisher) PublishNoticePublished(_ context.Context, event domain.NoticePublishedEvent) error {
	p.logEvent(TypeNoticePublished, event.PublishedBy, event.PublishedAt,
		zap.String("notice_id", event.NoticeID),
		zap.String("visibility", string(event.Visibility)),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
