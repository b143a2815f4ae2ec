package domain

import (
	"strings"
	"time"
)

// Session is the authenticated identity carried by the signed session token.
type Session struct {
	UserID     string
	Role       Role
	BuildingID string
	FlatID     string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// IsAdmin reports whether the session holds the ADMIN role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// Authenticated reports whether s identifies a user.
func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}

// WithState returns a copy of the session carrying the authoritative role and placement.
func (s Session) WithState(state UserState) Session {
	s.Role = state.Role
	s.BuildingID = state.BuildingID
	s.FlatID = state.FlatID
	return s
}

// AccessRules configures the path prefixes guarded by Authorize.
type AccessRules struct {
	AdminPrefix     string
	DashboardPrefix string
}

// Decision is the outcome of an access check.
type Decision int

const (
	DecisionAllow Decision = iota
	// DecisionDenyUnauthenticated means the path requires a session and none was presented.
	DecisionDenyUnauthenticated
	// DecisionDenyForbidden means a session was presented but lacks the ADMIN role.
	DecisionDenyForbidden
)

// Allowed reports whether the decision grants access.
func (d Decision) Allowed() bool {
	return d == DecisionAllow
}

// Authorize decides whether session may access path. Paths under the admin prefix
// require ADMIN, paths under the dashboard prefix require any session, all other
// paths are open.
func Authorize(session *Session, path string, rules AccessRules) Decision {
	switch {
	case underPrefix(path, rules.AdminPrefix):
		if !session.Authenticated() {
			return DecisionDenyUnauthenticated
		}
		if !session.IsAdmin() {
			return DecisionDenyForbidden
		}
		return DecisionAllow
	case underPrefix(path, rules.DashboardPrefix):
		if !session.Authenticated() {
			return DecisionDenyUnauthenticated
		}
		return DecisionAllow
	default:
		return DecisionAllow
	}
}

func underPrefix(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
