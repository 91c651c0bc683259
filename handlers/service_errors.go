package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/waqf-policy-engine/services"
	"github.com/upb/waqf-policy-engine/utils"
	"go.uber.org/zap"
)

// rejectionStatus maps each policy rejection type to its HTTP status
var rejectionStatus = map[services.ErrorType]int{
	services.ErrorTypeStructuralInvalid:   http.StatusBadRequest,
	services.ErrorTypePermissionDenied:    http.StatusForbidden,
	services.ErrorTypeTimeWindowViolation: http.StatusForbidden,
	services.ErrorTypeIllegalTransition:   http.StatusUnprocessableEntity,
	services.ErrorTypeQuotaViolation:      http.StatusUnprocessableEntity,
	services.ErrorTypeQuorumNotMet:        http.StatusUnprocessableEntity,
	services.ErrorTypeRateLimited:         http.StatusTooManyRequests,
	services.ErrorTypeConflict:            http.StatusConflict,
}

// StatusFor returns the HTTP status a service error is reported with
func StatusFor(err error) int {
	errType := services.GetErrorType(err)
	if status, ok := rejectionStatus[errType]; ok {
		return status
	}
	switch errType {
	case services.ErrorTypeNotFound:
		return http.StatusNotFound
	case services.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorTypeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var writeErr error
	switch {
	case services.IsPolicyRejection(err):
		errType := services.GetErrorType(err)
		logger.Debug("mutation rejected",
			zap.String("type", string(errType)),
			zap.Error(err))
		writeErr = utils.WriteRejection(w, rejectionStatus[errType], string(errType),
			rejectionMessage(err), violationsOf(err))

	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, rejectionMessage(err))

	case services.IsUnauthorizedError(err):
		writeErr = utils.WriteUnauthorized(w, rejectionMessage(err))

	case services.IsStoreUnavailableError(err):
		logger.Error("document store unavailable", zap.Error(err))
		writeErr = utils.WriteServiceUnavailable(w, "The document store is unavailable")

	case services.IsReactorError(err):
		logger.Error("post-commit reaction failed", zap.Error(err))
		writeErr = utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse{
			Error:   string(services.ErrorTypeReactorFailed),
			Message: rejectionMessage(err),
			Details: map[string]interface{}{"committed": true},
		})

	case services.IsInternalError(err):
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}

// rejectionMessage returns the human-readable part of a domain error
func rejectionMessage(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

// violationsOf returns the violations of a rejection, synthesising one from
// the message when the error carries none
func violationsOf(err error) []services.Violation {
	if v := services.GetViolations(err); len(v) > 0 {
		return v
	}
	return []services.Violation{services.NewViolation(services.GetErrorType(err), "", rejectionMessage(err))}
}
