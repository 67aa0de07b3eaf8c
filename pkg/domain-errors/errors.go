// Package domainerrors carries coded errors across layers. Services return
// *Error values; transport maps Code to a status without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error independently of its message.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal_error"
	CodeUnavailable  Code = "unavailable"
	CodeTimeout      Code = "timeout"

	// Mutation request validation.
	CodeInvalidHTTPMethod       Code = "invalid_http_method"
	CodeInvalidModel            Code = "invalid_model"
	CodeIdentityModelFKNotValid Code = "identity_model_fk_not_valid"
	CodeInvalidCurrentModelID   Code = "invalid_current_model_id"
	CodeInvalidIdentityModelFK  Code = "invalid_identity_model_fk"

	// Entry building.
	CodeOwnerNotFound       Code = "owner_not_found"
	CodeMissingIdentity     Code = "missing_identity"
	CodeIdentityNotFound    Code = "identity_not_found"
	CodeMissingAuditChain   Code = "missing_audit_chain"
	CodeAmbiguousAuditChain Code = "ambiguous_audit_chain"
	CodeMissingKeyPair      Code = "missing_key_pair"
	CodeLedgerAppendFailed  Code = "ledger_append_failed"
	CodeQueueFull           Code = "queue_full"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New builds an error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to err. A nil err still yields a coded error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a coded error with the same code, so a wrapped
// error still matches the package-level value it was derived from.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the outermost coded error in err's chain,
// or CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
