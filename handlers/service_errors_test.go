package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/waqf-policy-engine/services"
	"github.com/upb/waqf-policy-engine/utils"
	"go.uber.org/zap"
)

func rejection(errType services.ErrorType) error {
	return services.NewViolationError(services.NewViolation(errType, "", "rejected"))
}

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"structural", rejection(services.ErrorTypeStructuralInvalid), http.StatusBadRequest, "structural_invalid"},
		{"permission", rejection(services.ErrorTypePermissionDenied), http.StatusForbidden, "permission_denied"},
		{"time window", rejection(services.ErrorTypeTimeWindowViolation), http.StatusForbidden, "time_window_violation"},
		{"transition", rejection(services.ErrorTypeIllegalTransition), http.StatusUnprocessableEntity, "illegal_transition"},
		{"quota", rejection(services.ErrorTypeQuotaViolation), http.StatusUnprocessableEntity, "quota_violation"},
		{"quorum", rejection(services.ErrorTypeQuorumNotMet), http.StatusUnprocessableEntity, "quorum_not_met"},
		{"rate limited", rejection(services.ErrorTypeRateLimited), http.StatusTooManyRequests, "rate_limited"},
		{"concurrent update", services.ErrConcurrentUpdate, http.StatusConflict, "conflict"},
		{"not found", services.ErrDocumentNotFound, http.StatusNotFound, "not_found"},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"store unavailable", services.WrapStoreError("get admins", errors.New("dial tcp")), http.StatusServiceUnavailable, "service_unavailable"},
		{"reactor failed", services.WrapReactorError("admins", errors.New("notifier down")), http.StatusInternalServerError, "reactor_failed"},
		{"internal", services.WrapInternal("decode", errors.New("bad")), http.StatusInternalServerError, "internal_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedStatus, StatusFor(tt.err))

			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
		})
	}
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, nil, zap.NewNop())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandleServiceError_SynthesisesViolation(t *testing.T) {
	w := httptest.NewRecorder()

	HandleServiceError(w, services.ErrConcurrentUpdate, zap.NewNop())

	var response struct {
		Violations []services.Violation `json:"violations"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response.Violations, 1)
	assert.Equal(t, services.ErrorTypeConflict, response.Violations[0].Type)
	assert.Equal(t, "concurrent update detected", response.Violations[0].Message)
}

func TestHandleValidationError(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := &utils.ValidationError{Message: "Validation failed", Fields: map[string]string{"Key": "Key is required"}}

		HandleValidationError(w, err, zap.NewNop())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Key is required", response.Details["Key"])
	})

	t.Run("plain", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleValidationError(w, errors.New("invalid request body"), zap.NewNop())

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "invalid request body", response.Message)
	})
}
