package errors

import (
	"net/http"

	"github.com/resqnow/dispatch-core/core/entities"
)

// BadRequestError creates a 400 Bad Request error
func BadRequestError(message string) *AppError {
	return &AppError{
		Type:    entities.ErrEntity,
		Message: message,
		Fields:  nil,
		Cause:   nil,
	}
}

// UnauthorizedError creates a 401 Unauthorized error
func UnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    entities.ErrUnauthorized,
		Message: message,
		Fields:  nil,
		Cause:   nil,
	}
}

// ForbiddenError creates a 403 Forbidden error
func ForbiddenError(message string) *AppError {
	return &AppError{
		Type:    entities.ErrForbidden,
		Message: message,
		Fields:  nil,
		Cause:   nil,
	}
}

// GatewayUnconfiguredError creates a 503 error for a missing payment-gateway credential.
func GatewayUnconfiguredError(message string) *AppError {
	return &AppError{
		Type:    entities.ErrGatewayUnconfigured,
		Message: message,
		Fields:  nil,
		Cause:   nil,
	}
}

// SignatureMismatchError creates a 400 error for a failed HMAC signature check.
func SignatureMismatchError(message string) *AppError {
	return &AppError{
		Type:    entities.ErrSignatureMismatch,
		Message: message,
		Fields:  nil,
		Cause:   nil,
	}
}

// NotFound creates a 404 Not Found error
func NotFound(message string) *AppError {
	return &AppError{
		Type:    entities.ErrNotFound,
		Message: message,
		Fields:  nil,
		Cause:   nil,
	}
}

// ConflictError creates a 409 Conflict error. The optional context map is
// surfaced in the response body alongside the message, so conflicts can
// point the caller at the row they collided with.
func ConflictError(message string, ctx ...map[string]interface{}) *AppError {
	return &AppError{
		Type:    entities.ErrConflict,
		Message: message,
		Fields:  firstCtx(ctx),
		Cause:   nil,
	}
}

// InternalServerError creates a 500 Internal Server Error
func InternalServerError(message string) *AppError {
	return &AppError{
		Type:    entities.ErrService,
		Message: message,
		Fields:  nil,
		Cause:   nil,
	}
}

// ExternalServiceError creates a service error (500) for external service failures
func ExternalServiceError(message string) *AppError {
	return &AppError{
		Type:    entities.ErrService,
		Message: message,
		Fields:  nil,
		Cause:   nil,
	}
}

// PaymentRequiredError creates an entity error (400) for a missing or invalid payment
func PaymentRequiredError(message string) *AppError {
	return &AppError{
		Type:    entities.ErrEntity,
		Message: message,
		Fields:  nil,
		Cause:   nil,
	}
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == entities.ErrNotFound || appErr.HTTPStatus() == http.StatusNotFound
	}
	return false
}
