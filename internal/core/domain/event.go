package domain

import "time"

// EventType classifies a society event.
type EventType string

const (
	EventTypeCultural EventType = "CULTURAL"
	EventTypeSports   EventType = "SPORTS"
	EventTypeMeeting  EventType = "MEETING"
	EventTypeFestival EventType = "FESTIVAL"
	EventTypeOther    EventType = "OTHER"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeCultural, EventTypeSports, EventTypeMeeting, EventTypeFestival, EventTypeOther:
		return true
	}
	return false
}

// ParticipationType says whether registrations are per person or per team.
type ParticipationType string

const (
	ParticipationIndividual ParticipationType = "INDIVIDUAL"
	ParticipationTeam       ParticipationType = "TEAM"
)

// Valid reports whether p is INDIVIDUAL or TEAM.
func (p ParticipationType) Valid() bool {
	return p == ParticipationIndividual || p == ParticipationTeam
}

// Event is a scheduled activity residents may register for.
type Event struct {
	ID                    string
	Title                 string
	Description           string
	Type                  EventType
	StartDate             time.Time
	EndDate               time.Time
	Venue                 string
	ImageURL              *string
	RegistrationRequired  bool
	RegistrationStartDate *time.Time
	RegistrationEndDate   *time.Time
	ParticipationType     ParticipationType
	MaxParticipants       *int
	Published             bool
	CreatedBy             string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// WindowState describes where a moment falls relative to the registration window.
type WindowState int

const (
	WindowOpen WindowState = iota
	WindowNotYetOpen
	WindowClosed
)

// RegistrationWindow reports the registration window state at now. Unset bounds
// do not restrict.
func (e Event) RegistrationWindow(now time.Time) WindowState {
	if e.RegistrationStartDate != nil && now.Before(*e.RegistrationStartDate) {
		return WindowNotYetOpen
	}
	if e.RegistrationEndDate != nil && now.After(*e.RegistrationEndDate) {
		return WindowClosed
	}
	return WindowOpen
}

// HasStarted reports whether the event start is at or before now.
func (e Event) HasStarted(now time.Time) bool {
	return !e.StartDate.After(now)
}

// IsTeam reports whether the event takes team registrations.
func (e Event) IsTeam() bool {
	return e.ParticipationType == ParticipationTeam
}

// RegistrationStatus is the state of an event registration.
type RegistrationStatus string

const RegistrationStatusRegistered RegistrationStatus = "REGISTERED"

// TeamMember is one participant listed on a team registration.
type TeamMember struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// EventRegistration links a user to an event. At most one exists per (event, user).
type EventRegistration struct {
	ID          string
	EventID     string
	UserID      string
	Status      RegistrationStatus
	TeamName    *string
	TeamMembers []TeamMember
	CreatedAt   time.Time
}

// RegistrationDetail joins a registration with the registrant's identity for admin views.
type RegistrationDetail struct {
	EventRegistration
	UserName  string
	UserEmail string
	UserPhone string
}
