package port

import (
	"context"

	"github.com/greenvalley/society-portal/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error
	PublishUserStatusChanged(ctx context.Context, event domain.UserStatusChangedEvent) error
	PublishUserRoleChanged(ctx context.Context, event domain.UserRoleChangedEvent) error
	PublishPasswordReset(ctx context.Context, event domain.PasswordResetEvent) error
	PublishEventRegistrationChanged(ctx context.Context, event domain.EventRegistrationChangedEvent) error
	PublishNoticePublished(ctx context.Context, event domain.NoticePublishedEvent) error
}
