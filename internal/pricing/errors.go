package pricing

import (
	"errors"
	"fmt"
)

// Error codes returned by the engine and rule validation.
const (
	ErrCodeValidation      = "VALIDATION_FAILED"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeEvaluationFault = "EVALUATION_FAULT"
	ErrCodeUnavailable     = "SNAPSHOT_UNAVAILABLE"
	ErrCodeNotFound        = "NOT_FOUND"
)

// Error is a pricing domain error.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	// Index points at the offending scenario in a batch, -1 otherwise.
	Index int `json:"-"`
	err   error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// NewValidationError reports a rule rejected at write time.
func NewValidationError(ruleID, details string) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("pricing rule %q is invalid", ruleID),
		Details: details,
		Index:   -1,
	}
}

// NewInvalidRequestError reports a malformed evaluation request.
func NewInvalidRequestError(details string) *Error {
	return &Error{
		Code:    ErrCodeInvalidRequest,
		Message: "invalid evaluation request",
		Details: details,
		Index:   -1,
	}
}

// NewFaultError reports a malformed snapshot or arithmetic overflow. No price is returned.
func NewFaultError(details string) *Error {
	return &Error{
		Code:    ErrCodeEvaluationFault,
		Message: "pricing evaluation failed",
		Details: details,
		Index:   -1,
	}
}

// NewUnavailableError wraps a repository failure while taking a snapshot.
func NewUnavailableError(err error) *Error {
	return &Error{
		Code:    ErrCodeUnavailable,
		Message: "rule snapshot unavailable",
		Details: err.Error(),
		Index:   -1,
		err:     err,
	}
}

// NewNotFoundError reports a missing rule.
func NewNotFoundError(id string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: "pricing rule not found",
		Details: fmt.Sprintf("ID: %s", id),
		Index:   -1,
	}
}

// AtIndex returns a copy of e attributed to scenario i of a batch.
func (e *Error) AtIndex(i int) *Error {
	out := *e
	out.Index = i
	out.Details = fmt.Sprintf("scenario %d: %s", i, e.Details)
	return &out
}

// GetError extracts a pricing error from an error chain.
func GetError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}

func hasCode(err error, code string) bool {
	pe := GetError(err)
	return pe != nil && pe.Code == code
}

// IsValidation reports whether err is a rule validation error.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsInvalidRequest reports whether err is a malformed request.
func IsInvalidRequest(err error) bool { return hasCode(err, ErrCodeInvalidRequest) }

// IsFault reports whether err is an evaluation fault.
func IsFault(err error) bool { return hasCode(err, ErrCodeEvaluationFault) }

// IsUnavailable reports whether the snapshot could not be read.
func IsUnavailable(err error) bool { return hasCode(err, ErrCodeUnavailable) }

// IsNotFound reports whether err is a missing rule.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }
