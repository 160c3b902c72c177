// Package usecases implements the HTTP-facing technician operations:
// registration, admin approval, availability/location updates the Dispatch
// Engine reads, and free-form pricing maintenance the Pricing Resolver
// walks.
package usecases

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	coreErrors "github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/helpers"
	"github.com/resqnow/dispatch-core/core/logger"
	normservices "github.com/resqnow/dispatch-core/features/normalize/domain/services"
	"github.com/resqnow/dispatch-core/features/technician/domain/entities"
	"github.com/resqnow/dispatch-core/features/technician/domain/repositories"
	"github.com/resqnow/dispatch-core/features/technician/domain/services"
)

// ITechnicianUseCase defines the HTTP handlers for the technician feature.
type ITechnicianUseCase interface {
	Register(c *gin.Context)
	Approve(c *gin.Context)
	FindByID(c *gin.Context)
	UpdateLocation(c *gin.Context)
	SetAvailability(c *gin.Context)
	UpdatePricing(c *gin.Context)
}

// TechnicianUseCase implements ITechnicianUseCase.
type TechnicianUseCase struct {
	repository repositories.TechnicianRepository
	normalizer normservices.NormalizerService
	presence   services.PresenceService
	validator  *validator.Validate
	logger     logger.Logger
}

// NewTechnicianUseCase builds a TechnicianUseCase.
func NewTechnicianUseCase(repository repositories.TechnicianRepository, normalizer normservices.NormalizerService, presence services.PresenceService, logger logger.Logger) ITechnicianUseCase {
	return &TechnicianUseCase{
		repository: repository,
		normalizer: normalizer,
		presence:   presence,
		validator:  validator.New(),
		logger:     logger,
	}
}

// Register creates a technician in pending approval state. Admin approval
// is a separate step; an unapproved technician is never a dispatch
// candidate.
func (uc *TechnicianUseCase) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var request entities.RegisterTechnicianRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		uc.logger.Error(ctx, "failed to bind register technician request", logger.Fields{"error": err.Error()})
		appError := coreErrors.UsecaseError("invalid request format")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	if err := uc.validator.Struct(request); err != nil {
		appError := coreErrors.UsecaseError("validation failed: " + err.Error())
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	technician := &entities.Technician{
		ID:                   uuid.New(),
		Name:                 request.Name,
		Email:                request.Email,
		Phone:                request.Phone,
		ApprovalStatus:       entities.ApprovalPending,
		PrimaryServiceDomain: uc.normalizer.CanonicalizeServiceDomain(request.PrimaryDomain),
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}

	if err := uc.repository.Create(ctx, technician); err != nil {
		uc.logger.Error(ctx, "failed to create technician", logger.Fields{"error": err.Error()})
		appError := coreErrors.RepositoryError(err.Error())
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	c.JSON(http.StatusCreated, technician.ToResponse())
}

// Approve records the admin's accept/reject decision and, on approval,
// marks the technician active (availability is a separate toggle the
// technician controls themselves).
func (uc *TechnicianUseCase) Approve(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		appError := coreErrors.UsecaseError("invalid technician id")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	var request entities.ApproveTechnicianRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		appError := coreErrors.UsecaseError("invalid request format")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	technician, err := uc.repository.FindByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
		return
	}

	if request.Approved {
		technician.ApprovalStatus = entities.ApprovalApproved
		technician.IsActive = true
	} else {
		technician.ApprovalStatus = entities.ApprovalRejected
		technician.IsActive = false
	}
	technician.UpdatedAt = time.Now()

	if err := uc.repository.Update(ctx, technician); err != nil {
		uc.logger.Error(ctx, "failed to update technician approval", logger.Fields{"error": err.Error()})
		appError := coreErrors.RepositoryError(err.Error())
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	c.JSON(http.StatusOK, technician.ToResponse())
}

// FindByID returns a single technician's public projection.
func (uc *TechnicianUseCase) FindByID(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		appError := coreErrors.UsecaseError("invalid technician id")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	technician, err := uc.repository.FindByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
		return
	}

	response := technician.ToResponse()
	if online, appErr := uc.presence.IsOnline(ctx, id); appErr == nil {
		response.Online = online
	}

	c.JSON(http.StatusOK, response)
}

// UpdateLocation sets the technician's current position, the input the
// Dispatch Engine's Haversine ranking reads at dispatch time.
func (uc *TechnicianUseCase) UpdateLocation(c *gin.Context) {
	ctx := c.Request.Context()

	callerID := helpers.GetUserID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || callerID != id {
		appError := coreErrors.ForbiddenError("cannot update another technician's location")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	var request entities.UpdateLocationRequest
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

	technician, err := uc.repository.FindByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
		return
	}

	technician.Location = &entities.Location{Lat: request.Lat, Lng: request.Lng}
	technician.UpdatedAt = time.Now()

	if err := uc.repository.Update(ctx, technician); err != nil {
		uc.logger.Error(ctx, "failed to update technician location", logger.Fields{"error": err.Error()})
		appError := coreErrors.RepositoryError(err.Error())
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	// A location write is as good as a heartbeat for presence purposes.
	if appErr := uc.presence.Heartbeat(ctx, id); appErr != nil {
		uc.logger.Error(ctx, "failed to refresh technician presence", logger.Fields{"error": appErr.Error()})
	}

	c.JSON(http.StatusOK, technician.ToResponse())
}

// SetAvailability flips the technician's dispatch-eligibility flag. The
// Dispatch Engine flips this to false on job acceptance, and the request
// lifecycle flips it back to true when the job reaches payment-pending or
// paid, or is cancelled; this endpoint is the technician's manual on/off
// switch.
func (uc *TechnicianUseCase) SetAvailability(c *gin.Context) {
	ctx := c.Request.Context()

	callerID := helpers.GetUserID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || callerID != id {
		appError := coreErrors.ForbiddenError("cannot update another technician's availability")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	var request entities.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		appError := coreErrors.UsecaseError("invalid request format")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	if err := uc.repository.SetAvailability(ctx, id, request.IsAvailable); err != nil {
		uc.logger.Error(ctx, "failed to set technician availability", logger.Fields{"error": err.Error()})
		appError := coreErrors.RepositoryError(err.Error())
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	if request.IsAvailable {
		if appErr := uc.presence.Heartbeat(ctx, id); appErr != nil {
			uc.logger.Error(ctx, "failed to refresh technician presence", logger.Fields{"error": appErr.Error()})
		}
	}

	c.JSON(http.StatusOK, gin.H{"is_available": request.IsAvailable})
}

// UpdatePricing replaces a technician's free-form pricing/service-cost
// trees and derives the specialty/vehicle-family sets the Dispatch Engine
// filters on from the service_costs keys, so the technician never has to
// maintain both independently.
func (uc *TechnicianUseCase) UpdatePricing(c *gin.Context) {
	ctx := c.Request.Context()

	callerID := helpers.GetUserID(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || callerID != id {
		appError := coreErrors.ForbiddenError("cannot update another technician's pricing")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	var request entities.UpdatePricingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		appError := coreErrors.UsecaseError("invalid request format")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	technician, err := uc.repository.FindByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "technician not found"})
		return
	}

	technician.Pricing = request.Pricing
	technician.ServiceCosts = request.ServiceCosts
	technician.Specialties = uc.normalizer.ServiceDomainsFromCosts(request.ServiceCosts)
	technician.UpdatedAt = time.Now()

	if err := uc.repository.Update(ctx, technician); err != nil {
		uc.logger.Error(ctx, "failed to update technician pricing", logger.Fields{"error": err.Error()})
		appError := coreErrors.RepositoryError(err.Error())
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	c.JSON(http.StatusOK, technician.ToResponse())
}
