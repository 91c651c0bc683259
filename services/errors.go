package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	// Policy rejections
	ErrorTypeStructuralInvalid   ErrorType = "structural_invalid"
	ErrorTypePermissionDenied    ErrorType = "permission_denied"
	ErrorTypeIllegalTransition   ErrorType = "illegal_transition"
	ErrorTypeQuotaViolation      ErrorType = "quota_violation"
	ErrorTypeQuorumNotMet        ErrorType = "quorum_not_met"
	ErrorTypeRateLimited         ErrorType = "rate_limited"
	ErrorTypeTimeWindowViolation ErrorType = "time_window_violation"

	// Infrastructure and supporting types
	ErrorTypeStoreUnavailable ErrorType = "store_unavailable"
	ErrorTypeReactorFailed    ErrorType = "reactor_failed"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeConflict         ErrorType = "conflict"
	ErrorTypeUnauthorized     ErrorType = "unauthorized"
	ErrorTypeInternal         ErrorType = "internal"
)

// IsPolicyType reports whether the type is a policy decision rather than a failure.
func (t ErrorType) IsPolicyType() bool {
	switch t {
	case ErrorTypeStructuralInvalid, ErrorTypePermissionDenied, ErrorTypeIllegalTransition,
		ErrorTypeQuotaViolation, ErrorTypeQuorumNotMet, ErrorTypeRateLimited,
		ErrorTypeTimeWindowViolation, ErrorTypeConflict:
		return true
	case ErrorTypeStoreUnavailable, ErrorTypeReactorFailed, ErrorTypeNotFound,
		ErrorTypeUnauthorized, ErrorTypeInternal:
		return false
	}
	return false
}

// Violation is a single human-readable reason a mutation was rejected.
type Violation struct {
	Type    ErrorType `json:"type"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
}

// NewViolation creates a violation
func NewViolation(errType ErrorType, field, message string) Violation {
	return Violation{Type: errType, Field: field, Message: message}
}

// Violationf creates a violation with a formatted message
func Violationf(errType ErrorType, field, format string, args ...interface{}) Violation {
	return Violation{Type: errType, Field: field, Message: fmt.Sprintf(format, args...)}
}

func (v Violation) String() string {
	return v.Message
}

// DomainError represents a structured error with additional context
type DomainError struct {
	Type       ErrorType
	Message    string
	Err        error
	Details    map[string]interface{}
	Violations []Violation
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// NewViolationError builds the rejection returned by an assertion.
// The error takes the type of the first violation; messages are joined with "; ".
func NewViolationError(violations ...Violation) *DomainError {
	if len(violations) == 0 {
		return NewDomainError(ErrorTypeInternal, "rejection without violations", nil)
	}
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Message)
	}
	e := NewDomainError(violations[0].Type, strings.Join(msgs, "; "), nil)
	e.Violations = append([]Violation(nil), violations...)
	return e
}

// Domain error variables

var (
	// Not Found Errors
	ErrDocumentNotFound = NewDomainError(ErrorTypeNotFound, "document not found", nil)
	ErrAdminNotFound    = NewDomainError(ErrorTypeNotFound, "admin not found", nil)

	// Structural Errors
	ErrInvalidInput    = NewDomainError(ErrorTypeStructuralInvalid, "invalid input", nil)
	ErrUnknownDocument = NewDomainError(ErrorTypeStructuralInvalid, "document cannot be decoded", nil)

	// Authorization Errors
	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidToken = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)

	// Permission Errors
	ErrPermissionDenied = NewDomainError(ErrorTypePermissionDenied, "permission denied", nil)

	// Policy Errors
	ErrIllegalTransition   = NewDomainError(ErrorTypeIllegalTransition, "illegal state transition", nil)
	ErrQuotaViolation      = NewDomainError(ErrorTypeQuotaViolation, "role quota violated", nil)
	ErrQuorumNotMet        = NewDomainError(ErrorTypeQuorumNotMet, "approval quorum not met", nil)
	ErrRateLimited         = NewDomainError(ErrorTypeRateLimited, "rate limit exceeded", nil)
	ErrTimeWindowViolation = NewDomainError(ErrorTypeTimeWindowViolation, "outside permitted time window", nil)

	// Conflict Errors
	ErrDuplicateEmail   = NewDomainError(ErrorTypeConflict, "email already exists", nil)
	ErrConcurrentUpdate = NewDomainError(ErrorTypeConflict, "concurrent update detected", nil)

	// Infrastructure Errors
	ErrStoreUnavailable = NewDomainError(ErrorTypeStoreUnavailable, "document store unavailable", nil)
	ErrReactorFailed    = NewDomainError(ErrorTypeReactorFailed, "post-commit reaction failed", nil)
	ErrInternal         = NewDomainError(ErrorTypeInternal, "internal error", nil)
)

// Error type checking helper functions

func hasType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsStructuralError checks if an error is a structural validation error
func IsStructuralError(err error) bool {
	return hasType(err, ErrorTypeStructuralInvalid)
}

// IsPermissionError checks if an error is a permission error
func IsPermissionError(err error) bool {
	return hasType(err, ErrorTypePermissionDenied)
}

// IsTransitionError checks if an error is an illegal transition error
func IsTransitionError(err error) bool {
	return hasType(err, ErrorTypeIllegalTransition)
}

// IsQuotaError checks if an error is a quota violation
func IsQuotaError(err error) bool {
	return hasType(err, ErrorTypeQuotaViolation)
}

// IsQuorumError checks if an error is a quorum error
func IsQuorumError(err error) bool {
	return hasType(err, ErrorTypeQuorumNotMet)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return hasType(err, ErrorTypeRateLimited)
}

// IsTimeWindowError checks if an error is a time window error
func IsTimeWindowError(err error) bool {
	return hasType(err, ErrorTypeTimeWindowViolation)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return hasType(err, ErrorTypeConflict)
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return hasType(err, ErrorTypeUnauthorized)
}

// IsStoreUnavailableError checks if an error is an infrastructure failure of the store
func IsStoreUnavailableError(err error) bool {
	return hasType(err, ErrorTypeStoreUnavailable)
}

// IsReactorError checks if an error came from a post-commit reaction
func IsReactorError(err error) bool {
	return hasType(err, ErrorTypeReactorFailed)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

// IsPolicyRejection reports whether err is a policy decision, as opposed to an
// infrastructure failure that callers must not treat as a denied mutation.
func IsPolicyRejection(err error) bool {
	return GetErrorType(err).IsPolicyType()
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// GetViolations returns the violations carried by a rejection
func GetViolations(err error) []Violation {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Violations
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapStoreError classifies a store port failure. Not-found and conflict
// errors pass through unchanged; anything else becomes store_unavailable.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFoundError(err) || IsConflictError(err) || IsStoreUnavailableError(err) {
		return err
	}
	return NewDomainError(ErrorTypeStoreUnavailable, op, err)
}

// WrapReactorError marks a failure that happened after the document was committed.
func WrapReactorError(collection string, err error) error {
	if err == nil {
		return nil
	}
	return NewDomainError(ErrorTypeReactorFailed,
		fmt.Sprintf("%s committed but post-commit reaction failed", collection), err)
}
