package domain

import "time"

// Role is the authorization role carried by a user and its session.
type Role string

const (
	RolePublic Role = "PUBLIC"
	RoleOwner  Role = "OWNER"
	RoleTenant Role = "TENANT"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RolePublic, RoleOwner, RoleTenant, RoleAdmin:
		return true
	}
	return false
}

// UserStatus enumerates account approval states.
type UserStatus string

const (
	UserStatusPending   UserStatus = "PENDING"
	UserStatusApproved  UserStatus = "APPROVED"
	UserStatusRejected  UserStatus = "REJECTED"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// UserType records whether a resident owns or rents the flat. It is independent of Role.
type UserType string

const (
	UserTypeOwner  UserType = "OWNER"
	UserTypeTenant UserType = "TENANT"
)

// Valid reports whether t is OWNER or TENANT.
func (t UserType) Valid() bool {
	return t == UserTypeOwner || t == UserTypeTenant
}

// ResidentRole is the role an approved, non-admin resident of this type holds.
func (t UserType) ResidentRole() Role {
	if t == UserTypeTenant {
		return RoleTenant
	}
	return RoleOwner
}

// StatusAction names an approval workflow transition.
type StatusAction string

const (
	ActionApprove    StatusAction = "approve"
	ActionReject     StatusAction = "reject"
	ActionSuspend    StatusAction = "suspend"
	ActionReactivate StatusAction = "reactivate"
)

var statusTransitions = map[StatusAction]struct {
	from UserStatus
	to   UserStatus
}{
	ActionApprove:    {from: UserStatusPending, to: UserStatusApproved},
	ActionReject:     {from: UserStatusPending, to: UserStatusRejected},
	ActionSuspend:    {from: UserStatusApproved, to: UserStatusSuspended},
	ActionReactivate: {from: UserStatusSuspended, to: UserStatusApproved},
}

// NextStatus returns the status reached by applying action to current.
// The boolean is false when the transition is not allowed.
func NextStatus(current UserStatus, action StatusAction) (UserStatus, bool) {
	t, ok := statusTransitions[action]
	if !ok || t.from != current {
		return current, false
	}
	return t.to, true
}

// CanTransition reports whether any action moves s to target.
func (s UserStatus) CanTransition(target UserStatus) bool {
	for _, t := range statusTransitions {
		if t.from == s && t.to == target {
			return true
		}
	}
	return false
}

// User mirrors the persisted representation in the users table.
type User struct {
	ID              string
	Email           string
	Name            string
	Phone           string
	PasswordHash    string
	Role            Role
	Status          UserStatus
	UserType        UserType
	BuildingID      *string
	FlatID          *string
	IsProfilePublic bool
	ApprovedBy      *string
	ApprovedAt      *time.Time
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsApproved reports whether the account may hold a session.
func (u User) IsApproved() bool {
	return u.Status == UserStatusApproved
}

// Sanitized returns a copy with the password hash cleared.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// UserState is the authoritative subset of a user consulted on every protected request.
type UserState struct {
	Status     UserStatus
	Role       Role
	BuildingID string
	FlatID     string
	// Version is the users row version the state was read at.
	Version int64
}

// State extracts the authorization-relevant fields.
func (u User) State() UserState {
	state := UserState{Status: u.Status, Role: u.Role, Version: u.Version}
	if u.BuildingID != nil {
		state.BuildingID = *u.BuildingID
	}
	if u.FlatID != nil {
		state.FlatID = *u.FlatID
	}
	return state
}

// UserStateChange is applied by approval workflow actions. Nil pointers leave columns untouched.
type UserStateChange struct {
	Status     UserStatus
	Role       Role
	ApprovedBy *string
	ApprovedAt *time.Time
}

// ProfileUpdate carries the fields a user may edit on their own account.
type ProfileUpdate struct {
	Name            string
	Phone           string
	IsProfilePublic bool
}
