/*
 * file: apperr.go
 * package: apperr
 * description:
 *     Defines the error-kind taxonomy shared by every core component, so the
 *     transport gateway can map a failure to a wire error{code, action}
 *     payload without a type switch per call site.
 */
package apperr

import "fmt"

// Kind classifies an error for propagation and logging purposes.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindCapacity       Kind = "capacity"
	KindAuthorization  Kind = "authorization"
	KindRulesRejection Kind = "rules_rejection"
	KindGameNotActive  Kind = "game_not_active"
	KindTransient      Kind = "transient"
	KindFatal          Kind = "fatal"
)

// Error is the concrete error type returned by every exported core
// operation. Action identifies the inbound event that triggered it, which
// the gateway echoes back to the caller for client-side routing.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Action  string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func new(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *Error    { return new(KindValidation, code, message) }
func NotFound(code, message string) *Error      { return new(KindNotFound, code, message) }
func Conflict(code, message string) *Error      { return new(KindConflict, code, message) }
func Capacity(code, message string) *Error      { return new(KindCapacity, code, message) }
func Authorization(code, message string) *Error { return new(KindAuthorization, code, message) }
func GameNotActive(code, message string) *Error { return new(KindGameNotActive, code, message) }
func Fatal(code, message string) *Error         { return new(KindFatal, code, message) }

// RulesRejection wraps a rules strategy's rejection reason verbatim.
func RulesRejection(reason string) *Error {
	return new(KindRulesRejection, "rules_rejection", reason)
}

// Transient marks an error that is logged but never surfaced to a caller
// (repository save failures, metric sampling failures).
func Transient(code, message string) *Error { return new(KindTransient, code, message) }

// WithAction returns a copy of err with Action set, for errors produced
// deep in the core before the gateway knows which inbound event caused them.
func (e *Error) WithAction(action string) *Error {
	cp := *e
	cp.Action = action
	return &cp
}

// As reports whether err is an *Error of the given kind.
func As(err error, kind Kind) bool {
	ae, ok := err.(*Error)
	return ok && ae.Kind == kind
}
