// Package usecases implements the HTTP-facing request operations:
// creation, retrieval, technician status updates, and cancellation.
package usecases

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	coreErrors "github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/helpers"
	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/features/request/domain/entities"
	"github.com/resqnow/dispatch-core/features/request/domain/services"
)

// IRequestUseCase defines the HTTP handlers for the request feature.
type IRequestUseCase interface {
	Create(c *gin.Context)
	FindByID(c *gin.Context)
	UpdateStatus(c *gin.Context)
	Cancel(c *gin.Context)
}

// RequestUseCase implements IRequestUseCase.
type RequestUseCase struct {
	lifecycle services.RequestLifecycleService
	validator *validator.Validate
	logger    logger.Logger
}

// NewRequestUseCase builds a RequestUseCase.
func NewRequestUseCase(lifecycle services.RequestLifecycleService, logger logger.Logger) IRequestUseCase {
	return &RequestUseCase{lifecycle: lifecycle, validator: validator.New(), logger: logger}
}

// Create books a new service request for the calling user.
func (uc *RequestUseCase) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var request entities.CreateRequestRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		appError := coreErrors.UsecaseError("invalid request format")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}
	if err := uc.validator.Struct(request); err != nil {
		appError := coreErrors.UsecaseError("validation failed: " + err.Error())
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	userID := helpers.GetUserID(c)

	created, appErr := uc.lifecycle.CreateRequest(ctx, userID, request)
	if appErr != nil {
		// Conflict responses carry the colliding row's id (the
		// duplicate-booking guard sets existing_request_id) so clients
		// can surface the open booking instead of a dead-end error.
		response := gin.H{"error": appErr.Message}
		for key, value := range appErr.Fields {
			response[key] = value
		}
		c.JSON(appErr.HTTPStatus(), response)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// FindByID returns a single service request.
func (uc *RequestUseCase) FindByID(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		appError := coreErrors.UsecaseError("invalid request id")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	request, appErr := uc.lifecycle.GetRequest(ctx, id)
	if appErr != nil {
		c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, request)
}

// UpdateStatus applies a technician-reported status transition.
func (uc *RequestUseCase) UpdateStatus(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		appError := coreErrors.UsecaseError("invalid request id")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	var body entities.UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		appError := coreErrors.UsecaseError("invalid request format")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}
	if err := uc.validator.Struct(body); err != nil {
		appError := coreErrors.UsecaseError("validation failed: " + err.Error())
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	updated, appErr := uc.lifecycle.UpdateStatus(ctx, id, body.Status)
	if appErr != nil {
		c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Cancel is the dedicated cancel route, permitting cancellation at a wider
// set of states than the general status PATCH.
func (uc *RequestUseCase) Cancel(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		appError := coreErrors.UsecaseError("invalid request id")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	var body entities.CancelRequest
	_ = c.ShouldBindJSON(&body)

	cancelled, appErr := uc.lifecycle.CancelExplicit(ctx, id, body.Reason)
	if appErr != nil {
		c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, cancelled)
}
