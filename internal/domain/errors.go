package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error the way the storage/security/mcpserver
// layers need to translate it into a wire response (spec §7).
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindProtocol         Kind = "protocol"
	KindInvalidParams    Kind = "invalid_params"
	KindAuthentication   Kind = "authentication"
	KindPermission       Kind = "permission"
	KindRateLimit        Kind = "rate_limit"
	KindStateTransition  Kind = "state_transition"
	KindExecution        Kind = "execution"
	KindParsing          Kind = "parsing"
	KindStorage          Kind = "storage"
	KindInternal         Kind = "internal"
)

// Error is the single result type carried across layers. Handlers decide
// whether Kind allows the message to reach the caller verbatim (Validation,
// NotFound, Conflict, Permission, RateLimit) or must be replaced with a
// generic message plus correlation id (spec §7).
type Error struct {
	Kind    Kind
	Message string
	Entity  string
	ID      string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Sanitized reports whether this error's Kind is safe to surface verbatim
// to an external caller.
func (e *Error) Sanitized() bool {
	switch e.Kind {
	case KindValidation, KindNotFound, KindConflict, KindPermission, KindRateLimit:
		return true
	default:
		return false
	}
}

func NewValidation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

func NewConflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NewStateTransition(format string, args ...any) error {
	return &Error{Kind: KindStateTransition, Message: fmt.Sprintf(format, args...)}
}

func NewPermission(message string) error {
	return &Error{Kind: KindPermission, Message: message}
}

func NewAuthentication(message string) error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func NewRateLimit(message string) error {
	return &Error{Kind: KindRateLimit, Message: message}
}

func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, defaulting to KindInternal when err is
// not a *Error (matches the teacher's practice of never leaking raw errors
// past a service boundary, generalized from internal/memory/db.go's
// fmt.Errorf wrapping idiom into a typed classification).
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrOptimisticLock     = errors.New("optimistic lock precondition failed")
)
