package handlers

import (
	"time"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/usecase"
)

// Envelope is the uniform response body of every API endpoint.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Kind    string            `json:"kind"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	TraceID string            `json:"traceId,omitempty"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionPayload is the caller's session as seen by clients.
type SessionPayload struct {
	UserID     string      `json:"userId"`
	Role       domain.Role `json:"role"`
	BuildingID string      `json:"buildingId,omitempty"`
	FlatID     string      `json:"flatId,omitempty"`
	ExpiresAt  time.Time   `json:"expiresAt"`
}

// LoginResponse is returned on successful authentication. The token is also
// set as the session cookie.
type LoginResponse struct {
	Token   string         `json:"token"`
	Session SessionPayload `json:"session"`
	User    UserPayload    `json:"user"`
}

// RegisterRequest defines the self-registration payload.
type RegisterRequest struct {
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	Password        string          `json:"password"`
	ConfirmPassword string          `json:"confirmPassword"`
	BuildingID      string          `json:"buildingId"`
	FlatNumber      string          `json:"flatNumber"`
	Floor           *int            `json:"floor"`
	UserType        domain.UserType `json:"userType"`
}

// RegisterResponse contains the identifier of the pending account.
type RegisterResponse struct {
	UserID           string            `json:"userId"`
	FlatID           string            `json:"flatId"`
	Status           domain.UserStatus `json:"status"`
	PasswordStrength int               `json:"passwordStrength"`
}

// UserPayload is a user without credential material.
type UserPayload struct {
	ID              string            `json:"id"`
	Email           string            `json:"email"`
	Name            string            `json:"name"`
	Phone           string            `json:"phone"`
	Role            domain.Role       `json:"role"`
	Status          domain.UserStatus `json:"status"`
	UserType        domain.UserType   `json:"userType"`
	BuildingID      *string           `json:"buildingId,omitempty"`
	FlatID          *string           `json:"flatId,omitempty"`
	IsProfilePublic bool              `json:"isProfilePublic"`
	ApprovedBy      *string           `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time        `json:"approvedAt,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// PasswordResetResponse carries a generated temporary password. It is shown once.
type PasswordResetResponse struct {
	UserID            string `json:"userId"`
	TemporaryPassword string `json:"temporaryPassword"`
}

// ProfileRequest defines the editable profile fields.
type ProfileRequest struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	IsProfilePublic bool   `json:"isProfilePublic"`
}

// PasswordChangeRequest captures a password change request body.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// BuildingRequest defines the building payload.
type BuildingRequest struct {
	Name                   string `json:"name"`
	Code                   string `json:"code"`
	TotalFloors            int    `json:"totalFloors"`
	VisibleForRegistration bool   `json:"visibleForRegistration"`
}

// BuildingPayload describes a building.
type BuildingPayload struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Code                   string    `json:"code"`
	TotalFloors            int       `json:"totalFloors"`
	VisibleForRegistration bool      `json:"visibleForRegistration"`
	CreatedAt              time.Time `json:"createdAt"`
}

// FlatRequest defines the flat payload. Floor is derived from the flat number
// when omitted.
type FlatRequest struct {
	BuildingID string `json:"buildingId"`
	FlatNumber string `json:"flatNumber"`
	Floor      *int   `json:"floor"`
	BHKType    string `json:"bhkType"`
}

// FlatPayload describes a flat.
type FlatPayload struct {
	ID         string  `json:"id"`
	BuildingID string  `json:"buildingId"`
	FlatNumber string  `json:"flatNumber"`
	Floor      int     `json:"floor"`
	BHKType    string  `json:"bhkType,omitempty"`
	OwnerID    *string `json:"ownerId,omitempty"`
	TenantID   *string `json:"tenantId,omitempty"`
}

// NoticeRequest defines the notice payload.
type NoticeRequest struct {
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Type        domain.NoticeType `json:"type"`
	Visibility  domain.Visibility `json:"visibility"`
	Attachments []string          `json:"attachments"`
	Published   bool              `json:"published"`
}

// NoticePayload describes a notice.
type NoticePayload struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Type        domain.NoticeType `json:"type"`
	Visibility  domain.Visibility `json:"visibility"`
	Published   bool              `json:"published"`
	PublishedAt *time.Time        `json:"publishedAt,omitempty"`
	Attachments []string          `json:"attachments"`
	CreatedBy   string            `json:"createdBy"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// EventRequest defines the event payload.
type EventRequest struct {
	Title                 string                   `json:"title"`
	Description           string                   `json:"description"`
	Type                  domain.EventType         `json:"type"`
	StartDate             time.Time                `json:"startDate"`
	EndDate               time.Time                `json:"endDate"`
	Venue                 string                   `json:"venue"`
	ImageURL              *string                  `json:"imageUrl"`
	RegistrationRequired  bool                     `json:"registrationRequired"`
	RegistrationStartDate *time.Time               `json:"registrationStartDate"`
	RegistrationEndDate   *time.Time               `json:"registrationEndDate"`
	ParticipationType     domain.ParticipationType `json:"participationType"`
	MaxParticipants       *int                     `json:"maxParticipants"`
	Published             bool                     `json:"published"`
}

// EventPayload describes an event.
type EventPayload struct {
	ID                    string                   `json:"id"`
	Title                 string                   `json:"title"`
	Description           string                   `json:"description"`
	Type                  domain.EventType         `json:"type"`
	StartDate             time.Time                `json:"startDate"`
	EndDate               time.Time                `json:"endDate"`
	Venue                 string                   `json:"venue"`
	ImageURL              *string                  `json:"imageUrl,omitempty"`
	RegistrationRequired  bool                     `json:"registrationRequired"`
	RegistrationStartDate *time.Time               `json:"registrationStartDate,omitempty"`
	RegistrationEndDate   *time.Time               `json:"registrationEndDate,omitempty"`
	ParticipationType     domain.ParticipationType `json:"participationType"`
	MaxParticipants       *int                     `json:"maxParticipants,omitempty"`
	Published             bool                     `json:"published"`
	RegistrationCount     *int                     `json:"registrationCount,omitempty"`
}

// EventRegistrationRequest carries the team payload for TEAM events.
type EventRegistrationRequest struct {
	TeamName    string              `json:"teamName"`
	TeamMembers []domain.TeamMember `json:"teamMembers"`
}

// RegistrationPayload describes an event registration.
type RegistrationPayload struct {
	ID          string                    `json:"id"`
	EventID     string                    `json:"eventId"`
	UserID      string                    `json:"userId"`
	Status      domain.RegistrationStatus `json:"status"`
	TeamName    *string                   `json:"teamName,omitempty"`
	TeamMembers []domain.TeamMember       `json:"teamMembers,omitempty"`
	CreatedAt   time.Time                 `json:"createdAt"`
	UserName    string                    `json:"userName,omitempty"`
	UserEmail   string                    `json:"userEmail,omitempty"`
	UserPhone   string                    `json:"userPhone,omitempty"`
}

// VehicleRequest defines the vehicle payload.
type VehicleRequest struct {
	VehicleNumber string             `json:"vehicleNumber"`
	VehicleType   domain.VehicleType `json:"vehicleType"`
	Brand         *string            `json:"brand"`
	Model         *string            `json:"model"`
	Color         *string            `json:"color"`
	ParkingSlot   *string            `json:"parkingSlot"`
}

// VehiclePayload describes a vehicle.
type VehiclePayload struct {
	ID            string             `json:"id"`
	OwnerID       string             `json:"ownerId"`
	VehicleNumber string             `json:"vehicleNumber"`
	VehicleType   domain.VehicleType `json:"vehicleType"`
	Brand         *string            `json:"brand,omitempty"`
	Model         *string            `json:"model,omitempty"`
	Color         *string            `json:"color,omitempty"`
	ParkingSlot   *string            `json:"parkingSlot,omitempty"`
}

// DirectoryPayload is one row of the resident directory.
type DirectoryPayload struct {
	UserID     string          `json:"userId"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone"`
	UserType   domain.UserType `json:"userType"`
	BuildingID string          `json:"buildingId,omitempty"`
	FlatID     string          `json:"flatId,omitempty"`
}

// ActivityPayload is one audit log entry.
type ActivityPayload struct {
	ID         string         `json:"id"`
	ActorID    *string        `json:"actorId,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func newSessionPayload(session domain.Session) SessionPayload {
	return SessionPayload{
		UserID:     session.UserID,
		Role:       session.Role,
		BuildingID: session.BuildingID,
		FlatID:     session.FlatID,
		ExpiresAt:  session.ExpiresAt,
	}
}

func newUserPayload(user domain.User) UserPayload {
	return UserPayload{
		ID:              user.ID,
		Email:           user.Email,
		Name:            user.Name,
		Phone:           user.Phone,
		Role:            user.Role,
		Status:          user.Status,
		UserType:        user.UserType,
		BuildingID:      user.BuildingID,
		FlatID:          user.FlatID,
		IsProfilePublic: user.IsProfilePublic,
		ApprovedBy:      user.ApprovedBy,
		ApprovedAt:      user.ApprovedAt,
		CreatedAt:       user.CreatedAt,
	}
}

func newBuildingPayload(b domain.Building) BuildingPayload {
	return BuildingPayload{
		ID:                     b.ID,
		Name:                   b.Name,
		Code:                   b.Code,
		TotalFloors:            b.TotalFloors,
		VisibleForRegistration: b.VisibleForRegistration,
		CreatedAt:              b.CreatedAt,
	}
}

func newFlatPayload(f domain.Flat) FlatPayload {
	return FlatPayload{
		ID:         f.ID,
		BuildingID: f.BuildingID,
		FlatNumber: f.FlatNumber,
		Floor:      f.Floor,
		BHKType:    f.BHKType,
		OwnerID:    f.OwnerID,
		TenantID:   f.TenantID,
	}
}

func newNoticePayload(n domain.Notice) NoticePayload {
	attachments := n.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return NoticePayload{
		ID:          n.ID,
		Title:       n.Title,
		Content:     n.Content,
		Type:        n.Type,
		Visibility:  n.Visibility,
		Published:   n.Published,
		PublishedAt: n.PublishedAt,
		Attachments: attachments,
		CreatedBy:   n.CreatedBy,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

func newEventPayload(e domain.Event) EventPayload {
	return EventPayload{
		ID:                    e.ID,
		Title:                 e.Title,
		Description:           e.Description,
		Type:                  e.Type,
		StartDate:             e.StartDate,
		EndDate:               e.EndDate,
		Venue:                 e.Venue,
		ImageURL:              e.ImageURL,
		RegistrationRequired:  e.RegistrationRequired,
		RegistrationStartDate: e.RegistrationStartDate,
		RegistrationEndDate:   e.RegistrationEndDate,
		ParticipationType:     e.ParticipationType,
		MaxParticipants:       e.MaxParticipants,
		Published:             e.Published,
	}
}

func newEventViewPayload(view usecase.EventView) EventPayload {
	payload := newEventPayload(view.Event)
	count := view.RegistrationCount
	payload.RegistrationCount = &count
	return payload
}

func newRegistrationPayload(r domain.EventRegistration) RegistrationPayload {
	return RegistrationPayload{
		ID:          r.ID,
		EventID:     r.EventID,
		UserID:      r.UserID,
		Status:      r.Status,
		TeamName:    r.TeamName,
		TeamMembers: r.TeamMembers,
		CreatedAt:   r.CreatedAt,
	}
}

func newRegistrationDetailPayload(d domain.RegistrationDetail) RegistrationPayload {
	payload := newRegistrationPayload(d.EventRegistration)
	payload.UserName = d.UserName
	payload.UserEmail = d.UserEmail
	payload.UserPhone = d.UserPhone
	return payload
}

func newVehiclePayload(v domain.Vehicle) VehiclePayload {
	return VehiclePayload{
		ID:            v.ID,
		OwnerID:       v.OwnerID,
		VehicleNumber: v.Number,
		VehicleType:   v.Type,
		Brand:         v.Brand,
		Model:         v.Model,
		Color:         v.Color,
		ParkingSlot:   v.ParkingSlot,
	}
}

func newActivityPayload(a domain.ActivityLog) ActivityPayload {
	return ActivityPayload{
		ID:         a.ID,
		ActorID:    a.ActorID,
		Action:     a.Action,
		EntityType: a.EntityType,
		EntityID:   a.EntityID,
		Details:    a.Details,
		CreatedAt:  a.CreatedAt,
	}
}

// mapSlice converts a slice of domain values into payloads, never returning nil.
func mapSlice[T, P any](items []T, convert func(T) P) []P {
	out := make([]P, 0, len(items))
	for _, item := range items {
		out = append(out, convert(item))
	}
	return out
}
