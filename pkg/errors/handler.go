package errors

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// errorResponse is the wire shape for failed requests.
type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// WriteHTTP maps an error to an HTTP response. AppErrors carry their own
// status; anything else is treated as internal and its message is hidden
// from the client. Internal and database errors are logged with cause
// and stack, expected domain errors at debug only.
func WriteHTTP(w http.ResponseWriter, logger *zap.Logger, err error) {
	appErr := GetAppError(err)
	if appErr == nil {
		appErr = NewInternalError("internal server error").WithCause(err)
	}

	switch appErr.Type {
	case ErrorTypeInternal, ErrorTypeDatabase, ErrorTypeUnavailable:
		logger.Error("request failed",
			zap.String("errorType", string(appErr.Type)),
			zap.String("message", appErr.Message),
			zap.Error(appErr.Cause),
		)
	default:
		logger.Debug("request rejected",
			zap.String("errorType", string(appErr.Type)),
			zap.String("message", appErr.Message),
		)
	}

	body := errorResponse{
		Success: false,
		Error: errorBody{
			Type:    appErr.Type,
			Message: clientMessage(appErr),
			Code:    appErr.Code,
			Details: appErr.Details,
		},
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(body); encodeErr != nil {
		logger.Error("failed to encode error response", zap.Error(encodeErr))
	}
}

// clientMessage hides internal detail from clients while keeping domain
// error messages intact.
func clientMessage(appErr *AppError) string {
	switch appErr.Type {
	case ErrorTypeInternal, ErrorTypeDatabase:
		return "internal server error"
	default:
		return appErr.Message
	}
}
