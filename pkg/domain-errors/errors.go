// Package domainerrors provides coded errors for the ledger's failure
// taxonomy. Stores return infrastructure sentinels (pkg/platform/sentinel);
// services translate them into coded errors; the HTTP layer maps codes to
// status lines. Every failed operation is all-or-nothing, so a coded error
// always means the ledger tables are exactly as they were before the call.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation covers precondition violations: bad or missing input,
	// non-positive amounts, zero addresses.
	CodeValidation Code = "validation"
	// CodeUnauthorized covers missing or insufficient capabilities.
	CodeUnauthorized Code = "unauthorized"
	// CodeNotFound covers lookups of assets, records, or distributions that
	// do not exist.
	CodeNotFound Code = "not_found"
	// CodeComplianceDenied covers blacklist, whitelist, and holding-ceiling
	// denials. Kept distinct from validation for audit observability.
	CodeComplianceDenied Code = "compliance_denied"
	// CodeInsufficientFunds covers buyer balances, share balances, and escrow
	// shortfalls. No partial payment is ever issued.
	CodeInsufficientFunds Code = "insufficient_funds"
	// CodeConflict covers state conflicts: already tokenized, already
	// claimed, hold period not elapsed. Resubmission keeps failing until
	// external state changes.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks a broken model invariant; surfacing one
	// indicates a bug rather than bad input.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal covers infrastructure failures.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	code    Code
	message string
	cause   error
}

// New constructs a coded error.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Code returns the error's classification.
func (e *Error) Code() Code {
	return e.code
}

// Message returns the human-readable description without the code prefix.
func (e *Error) Message() string {
	return e.message
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that carry none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}
