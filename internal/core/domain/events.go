package domain

import "time"

// UserRegisteredEvent represents the payload for society.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Email        string
	BuildingID   string
	FlatID       string
	UserType     UserType
	RegisteredAt time.Time
}

// UserLoggedInEvent represents the payload for society.user.logged_in messages.
type UserLoggedInEvent struct {
	EventID    string
	UserID     string
	Role       Role
	LoggedInAt time.Time
	IPAddress  *string
}

// UserStatusChangedEvent represents the payload for society.user.status_changed messages.
type UserStatusChangedEvent struct {
	EventID    string
	UserID     string
	Action     StatusAction
	FromStatus UserStatus
	ToStatus   UserStatus
	ChangedBy  string
	ChangedAt  time.Time
}

// UserRoleChangedEvent represents the payload for society.user.role_changed messages.
type UserRoleChangedEvent struct {
	EventID   string
	UserID    string
	FromRole  Role
	ToRole    Role
	ChangedBy string
	ChangedAt time.Time
}

// PasswordResetEvent represents the payload for society.user.password_reset messages.
// It never carries the temporary password.
type PasswordResetEvent struct {
	EventID string
	UserID  string
	ResetBy string
	ResetAt time.Time
}

// EventRegistrationChangedEvent represents society.event.registration_created and
// society.event.registration_cancelled messages.
type EventRegistrationChangedEvent struct {
	EventID        string
	RegistrationID string
	SocietyEventID string
	UserID         string
	Cancelled      bool
	TeamSize       int
	OccurredAt     time.Time
}

// NoticePublishedEvent represents the payload for society.notice.published messages.
type NoticePublishedEvent struct {
	EventID     string
	NoticeID    string
	Title       string
	Type        NoticeType
	Visibility  Visibility
	PublishedBy string
	PublishedAt time.Time
}
