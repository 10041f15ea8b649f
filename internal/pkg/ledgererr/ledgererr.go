// Package ledgererr defines the ledger's error taxonomy. Every rejected
// operation carries a kind (how recoverable it is) and a code (what rule was
// broken); the HTTP layer maps kinds to status codes.
package ledgererr

import "fmt"

// Kind classifies an error by recovery semantics.
type Kind string

const (
	// Validation is malformed input, rejected before any mutation.
	Validation Kind = "validation_error"
	// Invariant is a cross-entity sum/limit violation, rejected atomically.
	Invariant Kind = "invariant_violation"
	// Transition is a disallowed state machine edge, state unchanged.
	Transition Kind = "state_transition_error"
	// External is a collaborator failure (gateway timeout/error), recorded
	// but never committed as ledger state.
	External Kind = "external_dependency_failure"
	// NotFound is a missing referenced row.
	NotFound Kind = "not_found"
)

// Codes for specific rules.
const (
	CodeAllocationMismatch = "AllocationMismatch"
	CodeUnknownFund        = "UnknownFund"
	CodeOverSettlement     = "OverSettlement"
	CodeInvalidRefund      = "InvalidRefund"
	CodeInvalidTransition  = "InvalidTransition"
	CodeAllocationFrozen   = "AllocationFrozen"
	CodeRestrictionFrozen  = "RestrictionFrozen"
	CodeGatewayFailure     = "GatewayFailure"
)

// Error is a kinded ledger error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

func New(kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...interface{}) *Error {
	return New(Validation, "", format, args...)
}

func NotFoundf(format string, args ...interface{}) *Error {
	return New(NotFound, "", format, args...)
}

func Invariantf(code, format string, args ...interface{}) *Error {
	return New(Invariant, code, format, args...)
}

func Transitionf(code, format string, args ...interface{}) *Error {
	return New(Transition, code, format, args...)
}

func Externalf(format string, args ...interface{}) *Error {
	return New(External, CodeGatewayFailure, format, args...)
}

// StatusCode maps an error kind to its HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case Validation:
		return 400
	case NotFound:
		return 404
	case Invariant, Transition:
		return 409
	case External:
		return 502
	}
	return 500
}

// IsCode reports whether err is a ledger error with the given code.
func IsCode(err error, code string) bool {
	le, ok := err.(*Error)
	return ok && le.Code == code
}

// IsKind reports whether err is a ledger error of the given kind.
func IsKind(err error, kind Kind) bool {
	le, ok := err.(*Error)
	return ok && le.Kind == kind
}
