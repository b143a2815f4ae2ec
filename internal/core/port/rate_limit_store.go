package port

import (
	"context"
	"time"
)

// RateLimitStore keeps per-identifier attempt timestamps for sliding-window
// limits. Identifiers are "<rule>:<subject>", for example "auth_login_ip:192.0.2.1".
type RateLimitStore interface {
	// TrimWindow drops attempts strictly older than reference-window.
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	// CountAttempts counts attempts inside [reference-window, reference].
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	// OldestAttempt returns the earliest attempt still inside the window; the
	// window reopens one window length after it.
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
