package domain

import "time"

// Activity actions recorded in the activity log.
const (
	ActivityUserLogin         = "user.login"
	ActivityUserRegistered    = "user.registered"
	ActivityUserApproved      = "user.approved"
	ActivityUserRejected      = "user.rejected"
	ActivityUserSuspended     = "user.suspended"
	ActivityUserReactivated   = "user.reactivated"
	ActivityUserMadeAdmin     = "user.made_admin"
	ActivityUserAdminRemoved  = "user.admin_removed"
	ActivityUserPasswordReset = "user.password_reset"
	ActivityUserPasswordSet   = "user.password_changed"
	ActivityUserProfileSaved  = "user.profile_updated"
	ActivityNoticePublished   = "notice.published"
	ActivityEventRegistered   = "event.registered"
	ActivityEventCancelled    = "event.registration_cancelled"
)

// Entity types referenced by activity entries.
const (
	EntityUser         = "user"
	EntityNotice       = "notice"
	EntityEvent        = "event"
	EntityBuilding     = "building"
	EntityRegistration = "event_registration"
)

// ActivityLog is an append-only audit entry.
type ActivityLog struct {
	ID         string
	ActorID    *string
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]any
	CreatedAt  time.Time
}
