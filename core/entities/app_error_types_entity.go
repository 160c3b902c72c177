package entities

import "net/http"

// AppErrorType represents a class of application error.
type AppErrorType int

// ErrDatabase and its siblings are the closed set of error classes the
// system maps to HTTP status codes at the API boundary.
const (
	ErrDatabase AppErrorType = iota + 1001
	ErrRepository
	ErrUsecase
	ErrEntity
	ErrModel
	ErrService
	ErrMiddleware
	ErrRoot
	ErrEnvironment
	ErrNotFound
	ErrInvalidToken
	ErrInvalidCredentials
	ErrUnauthorized
	ErrForbidden
	ErrConflict
	ErrGatewayUnconfigured
	ErrSignatureMismatch
)

// AppErrorTypeToString maps AppErrorType to a default human-readable message.
var AppErrorTypeToString = map[AppErrorType]string{
	ErrDatabase:            "database error",
	ErrRepository:          "repository error",
	ErrUsecase:             "use case error",
	ErrEntity:              "invalid entity",
	ErrModel:               "invalid model",
	ErrService:             "service error",
	ErrMiddleware:          "middleware error",
	ErrRoot:                "internal error",
	ErrEnvironment:         "environment error",
	ErrNotFound:            "resource not found",
	ErrInvalidToken:        "invalid token",
	ErrInvalidCredentials:  "invalid credentials",
	ErrUnauthorized:        "unauthorized",
	ErrForbidden:           "forbidden",
	ErrConflict:            "conflict",
	ErrGatewayUnconfigured: "payment gateway is not configured",
	ErrSignatureMismatch:   "signature mismatch",
}

// AppErrorTypeToHTTP maps AppErrorType to the HTTP status it surfaces as.
var AppErrorTypeToHTTP = map[AppErrorType]int{
	ErrDatabase:            http.StatusInternalServerError,
	ErrRepository:          http.StatusInternalServerError,
	ErrUsecase:             http.StatusInternalServerError,
	ErrEntity:              http.StatusBadRequest,
	ErrModel:               http.StatusBadRequest,
	ErrService:             http.StatusInternalServerError,
	ErrMiddleware:          http.StatusInternalServerError,
	ErrRoot:                http.StatusInternalServerError,
	ErrEnvironment:         http.StatusInternalServerError,
	ErrNotFound:            http.StatusNotFound,
	ErrInvalidToken:        http.StatusUnauthorized,
	ErrInvalidCredentials:  http.StatusUnauthorized,
	ErrUnauthorized:        http.StatusUnauthorized,
	ErrForbidden:           http.StatusForbidden,
	ErrConflict:            http.StatusConflict,
	ErrGatewayUnconfigured: http.StatusServiceUnavailable,
	ErrSignatureMismatch:   http.StatusBadRequest,
}
