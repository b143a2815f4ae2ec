package usecase

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies workflow failures for the presentation layer.
type ErrorKind string

const (
	KindInternal     ErrorKind = "internal"
	KindUnauthorized ErrorKind = "unauthorized"
	KindValidation   ErrorKind = "validation_failed"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindDomainRule   ErrorKind = "domain_rule"
)

// Error is a classified workflow error. Sentinels are compared with errors.Is.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	// ErrUnauthorized indicates the caller has no session or lacks the required role.
	ErrUnauthorized = newError(KindUnauthorized, "unauthorized", "unauthorized")
	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	ErrInvalidCredentials = newError(KindUnauthorized, "invalid_credentials", "invalid email or password")
	// ErrSessionInvalid indicates the session token is invalid or the account lost access.
	ErrSessionInvalid = newError(KindUnauthorized, "session_invalid", "session is no longer valid")

	ErrAccountPending   = newError(KindDomainRule, "account_pending", "account is awaiting admin approval")
	ErrAccountSuspended = newError(KindDomainRule, "account_suspended", "account has been suspended")
	ErrAccountRejected  = newError(KindDomainRule, "account_rejected", "account registration was rejected")

	ErrDuplicateEmail = newError(KindConflict, "duplicate_email", "email is already registered")
	// ErrConcurrentUpdate indicates another admin changed the user first.
	ErrConcurrentUpdate  = newError(KindConflict, "concurrent_update", "user was modified concurrently; reload and retry")
	ErrInvalidTransition = newError(KindDomainRule, "invalid_transition", "action is not allowed for the user's current state")
	ErrSelfModification  = newError(KindDomainRule, "self_modification", "admins cannot apply this action to their own account")
	ErrUserNotFound      = newError(KindNotFound, "user_not_found", "user not found")

	ErrEventNotFound           = newError(KindNotFound, "event_not_found", "event not found")
	ErrRegistrationNotRequired = newError(KindDomainRule, "registration_not_required", "event does not take registrations")
	ErrRegistrationNotOpen     = newError(KindDomainRule, "registration_not_open", "registration has not opened yet")
	ErrRegistrationClosed      = newError(KindDomainRule, "registration_closed", "registration is closed")
	ErrEventFull               = newError(KindDomainRule, "event_full", "event is full")
	ErrAlreadyRegistered       = newError(KindDomainRule, "already_registered", "already registered for this event")
	ErrEventAlreadyStarted     = newError(KindDomainRule, "event_already_started", "event has already started")
	ErrRegistrationNotFound    = newError(KindNotFound, "registration_not_found", "registration not found")

	ErrNoticeNotFound = newError(KindNotFound, "notice_not_found", "notice not found")

	ErrBuildingNotFound      = newError(KindNotFound, "building_not_found", "building not found")
	ErrDuplicateBuildingCode = newError(KindConflict, "duplicate_building_code", "building code is already in use")
	ErrBuildingInUse         = newError(KindDomainRule, "building_in_use", "building still has flats or residents")
	ErrFlatNotFound          = newError(KindNotFound, "flat_not_found", "flat not found")
	ErrDuplicateFlat         = newError(KindConflict, "duplicate_flat", "flat number already exists in this building")

	ErrVehicleNotFound  = newError(KindNotFound, "vehicle_not_found", "vehicle not found")
	ErrDuplicateVehicle = newError(KindConflict, "duplicate_vehicle", "vehicle number is already registered")
)

// ValidationError lists per-field input problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldErrors accumulates validation problems; the first message per field wins.
type fieldErrors map[string]string

func (f fieldErrors) add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: map[string]string(f)}
}

// KindOf classifies err. Unclassified errors are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return KindValidation
	}
	var uErr *Error
	if errors.As(err, &uErr) {
		return uErr.Kind
	}
	return KindInternal
}

// outcome labels a workflow result for metrics.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return string(KindOf(err))
}
