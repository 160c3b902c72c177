// Package usecases implements the HTTP-facing dispatch operations: a
// technician accepting an offer and inspecting the offers raised against a
// request.
package usecases

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	coreErrors "github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/helpers"
	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/features/dispatch/domain/repositories"
	"github.com/resqnow/dispatch-core/features/dispatch/domain/services"
)

// IDispatchUseCase defines the HTTP handlers for the dispatch feature.
type IDispatchUseCase interface {
	Accept(c *gin.Context)
	ListOffers(c *gin.Context)
}

// DispatchUseCase implements IDispatchUseCase.
type DispatchUseCase struct {
	engine     services.DispatchEngineService
	repository repositories.DispatchRepository
	logger     logger.Logger
}

// NewDispatchUseCase builds a DispatchUseCase.
func NewDispatchUseCase(engine services.DispatchEngineService, repository repositories.DispatchRepository, logger logger.Logger) IDispatchUseCase {
	return &DispatchUseCase{engine: engine, repository: repository, logger: logger}
}

// Accept is the technician-facing acceptJob endpoint: the caller's own id
// is the accepting technician, taken from its JWT, never from the body.
func (uc *DispatchUseCase) Accept(c *gin.Context) {
	ctx := c.Request.Context()

	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		appError := coreErrors.UsecaseError("invalid request id")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	technicianID := helpers.GetUserID(c)

	result, appErr := uc.engine.AcceptJob(ctx, technicianID, requestID)
	if appErr != nil {
		uc.logger.Error(ctx, "acceptJob failed", logger.Fields{"error": appErr.Error()})
		c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message})
		return
	}

	if !result.Success {
		c.JSON(http.StatusConflict, gin.H{"success": false, "reason": result.Reason})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "request": result.Request})
}

// ListOffers returns every offer raised for a request, any status.
func (uc *DispatchUseCase) ListOffers(c *gin.Context) {
	ctx := c.Request.Context()

	requestID, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		appError := coreErrors.UsecaseError("invalid request id")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	offers, err := uc.repository.FindByRequestID(ctx, requestID)
	if err != nil {
		appError := coreErrors.RepositoryError(err.Error())
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	c.JSON(http.StatusOK, offers)
}
