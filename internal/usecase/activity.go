package usecase

import (
	"context"
	"fmt"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
)

// ActivityService reads the audit trail.
type ActivityService struct {
	activity port.ActivityRepository
}

// NewActivityService constructs an ActivityService.
func NewActivityService(activity port.ActivityRepository) *ActivityService {
	return &ActivityService{activity: activity}
}

// List returns the newest entries first.
func (s *ActivityService) List(ctx context.Context, caller *domain.Session, limit, offset int) ([]domain.ActivityLog, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	entries, err := s.activity.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}
