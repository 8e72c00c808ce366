package errors

import "net/http"

// APIError carries an HTTP status alongside the internal cause. Handlers
// attach one via c.Error() and the ErrorHandler middleware writes it out.
type APIError struct {
	Status   int    `json:"status"`
	Message  string `json:"error"`
	Internal error  `json:"-"`
}

// Error returns the error message
func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

// Unwrap returns the original error
func (e *APIError) Unwrap() error {
	return e.Internal
}

func New(status int, message string, internal error) *APIError {
	return &APIError{Status: status, Message: message, Internal: internal}
}

func BadRequest(message string, internal error) *APIError {
	return New(http.StatusBadRequest, message, internal)
}

func Unauthorized(message string, internal error) *APIError {
	return New(http.StatusUnauthorized, message, internal)
}

func Forbidden(message string, internal error) *APIError {
	return New(http.StatusForbidden, message, internal)
}

func NotFound(message string, internal error) *APIError {
	return New(http.StatusNotFound, message, internal)
}

func Conflict(message string, internal error) *APIError {
	return New(http.StatusConflict, message, internal)
}

func UnprocessableEntity(message string, internal error) *APIError {
	return New(http.StatusUnprocessableEntity, message, internal)
}

func Internal(internal error) *APIError {
	return New(http.StatusInternalServerError, "Internal server error", internal)
}

// NewValidationError wraps a request-binding or record-validation failure
func NewValidationError(internal error) *APIError {
	return New(http.StatusUnprocessableEntity, "Invalid input", internal)
}
