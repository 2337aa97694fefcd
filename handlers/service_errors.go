package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dsz/skyfleet/services"
	"github.com/dsz/skyfleet/utils"
)

// HandleServiceError maps domain errors to the response envelope.
// Internal causes are logged and never sent to the client.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	message := services.PublicMessage(err)
	details := services.GetErrorDetails(err)
	if len(details) == 0 {
		details = nil
	}

	var writeErr error
	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, message)

	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, message, details)

	case services.IsUnauthorizedError(err):
		writeErr = utils.WriteUnauthorized(w, message)

	case services.IsForbiddenError(err):
		writeErr = utils.WriteForbidden(w, message)

	case services.IsConflictError(err):
		writeErr = utils.WriteConflict(w, message, details)

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w)

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w)
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// writeInvalidBody writes the 400 returned for an undecodable request body
func writeInvalidBody(w http.ResponseWriter, err error, logger *zap.Logger) {
	logger.Debug("invalid request body", zap.Error(err))
	if err := utils.WriteBadRequest(w, msgInvalidBody, nil); err != nil {
		logger.Error("failed to write bad request response", zap.Error(err))
	}
}
