package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
)

// DirectoryEntry is the public face of a resident.
type DirectoryEntry struct {
	UserID     string
	Name       string
	Email      string
	Phone      string
	UserType   domain.UserType
	BuildingID string
	FlatID     string
}

// DirectoryService lists residents who opted into the directory.
type DirectoryService struct {
	users port.UserRepository
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(users port.UserRepository) *DirectoryService {
	return &DirectoryService{users: users}
}

// List returns approved residents with a public profile.
func (s *DirectoryService) List(ctx context.Context, caller *domain.Session, filter port.DirectoryFilter) ([]DirectoryEntry, error) {
	if err := requireSession(caller); err != nil {
		return nil, err
	}
	filter.BuildingID = strings.TrimSpace(filter.BuildingID)
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Limit, filter.Offset = normalizePage(filter.Limit, filter.Offset)

	users, err := s.users.ListDirectory(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}

	entries := make([]DirectoryEntry, 0, len(users))
	for _, u := range users {
		if !u.IsApproved() || !u.IsProfilePublic {
			continue
		}
		entry := DirectoryEntry{
			UserID:   u.ID,
			Name:     u.Name,
			Email:    u.Email,
			Phone:    u.Phone,
			UserType: u.UserType,
		}
		if u.BuildingID != nil {
			entry.BuildingID = *u.BuildingID
		}
		if u.FlatID != nil {
			entry.FlatID = *u.FlatID
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
