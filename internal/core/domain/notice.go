package domain

import "time"

// NoticeType classifies an announcement.
type NoticeType string

const (
	NoticeTypeGeneral     NoticeType = "GENERAL"
	NoticeTypeUrgent      NoticeType = "URGENT"
	NoticeTypeMaintenance NoticeType = "MAINTENANCE"
	NoticeTypeEvent       NoticeType = "EVENT"
)

// Valid reports whether t is a known notice type.
func (t NoticeType) Valid() bool {
	switch t {
	case NoticeTypeGeneral, NoticeTypeUrgent, NoticeTypeMaintenance, NoticeTypeEvent:
		return true
	}
	return false
}

// Visibility controls which audience may read a published notice.
type Visibility string

const (
	VisibilityPublic     Visibility = "PUBLIC"
	VisibilityRegistered Visibility = "REGISTERED"
	VisibilityAdmin      Visibility = "ADMIN"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityRegistered, VisibilityAdmin:
		return true
	}
	return false
}

// Notice is an announcement published to residents or the public.
type Notice struct {
	ID          string
	Title       string
	Content     string
	Type        NoticeType
	Visibility  Visibility
	Published   bool
	PublishedAt *time.Time
	CreatedBy   string
	Attachments []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Publish marks the notice published. PublishedAt is only set the first time.
func (n *Notice) Publish(now time.Time) {
	n.Published = true
	if n.PublishedAt == nil {
		at := now.UTC()
		n.PublishedAt = &at
	}
}

// Unpublish hides the notice without clearing its first publication time.
func (n *Notice) Unpublish() {
	n.Published = false
}

// VisibilitiesFor lists the notice visibilities readable by a viewer. A nil
// session is the anonymous public.
func VisibilitiesFor(session *Session) []Visibility {
	switch {
	case session.IsAdmin():
		return []Visibility{VisibilityPublic, VisibilityRegistered, VisibilityAdmin}
	case session.Authenticated():
		return []Visibility{VisibilityPublic, VisibilityRegistered}
	default:
		return []Visibility{VisibilityPublic}
	}
}

// VisibleTo reports whether a viewer outside the admin list may read n.
func (n Notice) VisibleTo(session *Session) bool {
	if !n.Published {
		return false
	}
	for _, v := range VisibilitiesFor(session) {
		if v == n.Visibility {
			return true
		}
	}
	return false
}
