package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "document not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "document not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeStoreUnavailable,
				Message: "get admins/u1",
				Err:     errors.New("connection refused"),
			},
			wantMsg: "store_unavailable: get admins/u1 (connection refused)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeQuorumNotMet,
				Message: "activation requires approval",
			},
			wantMsg: "quorum_not_met: activation requires approval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same error type", NewDomainError(ErrorTypeQuotaViolation, "too many managers", nil), ErrQuotaViolation, true},
		{"different error type", NewDomainError(ErrorTypeQuotaViolation, "too many", nil), ErrQuorumNotMet, false},
		{"not a domain error", NewDomainError(ErrorTypeNotFound, "not found", nil), errors.New("regular error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestNewViolationError(t *testing.T) {
	err := NewViolationError(
		NewViolation(ErrorTypeStructuralInvalid, "title", "title is required"),
		Violationf(ErrorTypeStructuralInvalid, "goalAmount", "goal amount must be at most %d", 10000000),
	)

	assert.Equal(t, ErrorTypeStructuralInvalid, err.Type)
	assert.Equal(t, "title is required; goal amount must be at most 10000000", err.Message)
	require.Len(t, GetViolations(err), 2)
	assert.Equal(t, "goalAmount", GetViolations(err)[1].Field)
	assert.True(t, IsStructuralError(fmt.Errorf("wrapped: %w", err)))
}

func TestNewViolationError_Empty(t *testing.T) {
	assert.True(t, IsInternalError(NewViolationError()))
}

func TestTypeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"structural", ErrInvalidInput, IsStructuralError, true},
		{"permission", ErrPermissionDenied, IsPermissionError, true},
		{"transition", ErrIllegalTransition, IsTransitionError, true},
		{"quota", ErrQuotaViolation, IsQuotaError, true},
		{"quorum", ErrQuorumNotMet, IsQuorumError, true},
		{"rate limited", ErrRateLimited, IsRateLimitError, true},
		{"time window", ErrTimeWindowViolation, IsTimeWindowError, true},
		{"conflict", ErrDuplicateEmail, IsConflictError, true},
		{"store", ErrStoreUnavailable, IsStoreUnavailableError, true},
		{"reactor", ErrReactorFailed, IsReactorError, true},
		{"not found wrapped", fmt.Errorf("wrapped: %w", ErrDocumentNotFound), IsNotFoundError, true},
		{"unauthorized", ErrInvalidToken, IsUnauthorizedError, true},
		{"internal", ErrInternal, IsInternalError, true},
		{"mismatch", ErrQuotaViolation, IsQuorumError, false},
		{"regular error", errors.New("regular"), IsPermissionError, false},
		{"nil error", nil, IsNotFoundError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestIsPolicyRejection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"structural", ErrInvalidInput, true},
		{"permission", ErrPermissionDenied, true},
		{"transition", ErrIllegalTransition, true},
		{"quota", ErrQuotaViolation, true},
		{"quorum", ErrQuorumNotMet, true},
		{"rate limited", ErrRateLimited, true},
		{"time window", ErrTimeWindowViolation, true},
		{"conflict", ErrConcurrentUpdate, true},
		{"store unavailable", ErrStoreUnavailable, false},
		{"reactor failed", ErrReactorFailed, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPolicyRejection(tt.err))
		})
	}
}

func TestWrapStoreError(t *testing.T) {
	assert.NoError(t, WrapStoreError("get", nil))

	wrapped := WrapStoreError("list admins", errors.New("dial tcp: timeout"))
	assert.True(t, IsStoreUnavailableError(wrapped))
	assert.False(t, IsPolicyRejection(wrapped))

	assert.Same(t, ErrDocumentNotFound, WrapStoreError("get", ErrDocumentNotFound))
	assert.Same(t, ErrConcurrentUpdate, WrapStoreError("put", ErrConcurrentUpdate))
}

func TestWrapReactorError(t *testing.T) {
	assert.NoError(t, WrapReactorError("admins", nil))

	base := errors.New("notifier down")
	err := WrapReactorError("admins", base)
	assert.True(t, IsReactorError(err))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "admins committed")
}

func TestGetErrorDetails(t *testing.T) {
	err := NewDomainError(ErrorTypeQuotaViolation, "quota", nil)
	err.WithDetail("role", "manager").WithDetail("count", 3)

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "manager", details["role"])
	assert.Equal(t, 3, details["count"])

	assert.Nil(t, GetErrorDetails(errors.New("regular error")))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("regular error")))
}

func TestWrapInternal(t *testing.T) {
	baseErr := errors.New("encode failed")
	wrapped := WrapInternal("failed to encode", baseErr)

	assert.True(t, IsInternalError(wrapped))
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}
