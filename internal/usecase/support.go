package usecase

import (
	"context"
	"net/url"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/infra/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Dependencies bundles collaborators shared by every workflow service.
type Dependencies struct {
	Events  port.EventPublisher
	Metrics port.WorkflowMetrics
	Logger  *zap.Logger
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

type workflowBase struct {
	events   port.EventPublisher
	metrics  port.WorkflowMetrics
	logger   *zap.Logger
	now      func() time.Time
	activity port.ActivityRepository
}

func newWorkflowBase(deps Dependencies, activity port.ActivityRepository) workflowBase {
	base := workflowBase{
		events:   deps.Events,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      deps.Now,
		activity: activity,
	}
	if base.logger == nil {
		base.logger = zap.NewNop()
	}
	if base.now == nil {
		base.now = time.Now
	}
	return base
}

func (b workflowBase) clock() time.Time {
	return b.now().UTC()
}

func (b workflowBase) record(workflow string, err error) {
	if b.metrics != nil {
		b.metrics.RecordOutcome(workflow, outcome(err))
	}
}

// audit appends an activity entry. Failures are logged and never fail the workflow.
func (b workflowBase) audit(ctx context.Context, actorID, action, entityType, entityID string, details map[string]any) {
	if b.activity == nil {
		return
	}
	entry := domain.ActivityLog{
		ID:         uuid.NewString(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  b.clock(),
	}
	if actorID != "" {
		entry.ActorID = &actorID
	}
	if err := b.activity.Append(ctx, entry); err != nil {
		logger.Scoped(ctx, b.logger).Warn("append activity log failed",
			zap.String("action", action),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}

// publish runs fn against the event publisher and logs failures.
func (b workflowBase) publish(ctx context.Context, name string, fn func(port.EventPublisher) error) {
	if b.events == nil {
		return
	}
	if err := fn(b.events); err != nil {
		logger.Scoped(ctx, b.logger).Warn("publish event failed", zap.String("event", name), zap.Error(err))
	}
}

func requireSession(caller *domain.Session) error {
	if !caller.Authenticated() {
		return ErrUnauthorized
	}
	return nil
}

func requireAdmin(caller *domain.Session) error {
	if !caller.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// validURL accepts absolute http and https URLs, the only form stored for uploads.
func validURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
