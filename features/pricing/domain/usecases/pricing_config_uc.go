// Package usecases implements the admin-facing Platform Pricing Config
// endpoints: read the effective config and push an edit that invalidates
// the TTL cache.
package usecases

import (
	"net/http"

	"github.com/gin-gonic/gin"

	coreErrors "github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/features/pricing/domain/entities"
	"github.com/resqnow/dispatch-core/features/pricing/domain/repositories"
	"github.com/resqnow/dispatch-core/features/pricing/domain/services"
)

// IPricingConfigUseCase defines the HTTP handlers for the pricing config
// feature.
type IPricingConfigUseCase interface {
	Get(c *gin.Context)
	Update(c *gin.Context)
}

// PricingConfigUseCase implements IPricingConfigUseCase.
type PricingConfigUseCase struct {
	service    services.PricingConfigService
	repository repositories.PricingConfigRepository
	logger     logger.Logger
}

// NewPricingConfigUseCase builds a PricingConfigUseCase.
func NewPricingConfigUseCase(service services.PricingConfigService, repository repositories.PricingConfigRepository, logger logger.Logger) IPricingConfigUseCase {
	return &PricingConfigUseCase{service: service, repository: repository, logger: logger}
}

// Get returns the current effective pricing config.
func (uc *PricingConfigUseCase) Get(c *gin.Context) {
	ctx := c.Request.Context()

	config, err := uc.service.Get(ctx, false)
	if err != nil {
		uc.logger.Error(ctx, "failed to load pricing config", logger.Fields{"error": err.Error()})
		appError := coreErrors.ServiceError(err.Error())
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	c.JSON(http.StatusOK, config)
}

// Update persists an admin edit to the singleton row and invalidates the
// cache so the next read reflects it immediately.
func (uc *PricingConfigUseCase) Update(c *gin.Context) {
	ctx := c.Request.Context()

	var request entities.PlatformPricingConfig
	if err := c.ShouldBindJSON(&request); err != nil {
		appError := coreErrors.UsecaseError("invalid request format")
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	if err := uc.repository.Update(ctx, &request); err != nil {
		uc.logger.Error(ctx, "failed to update pricing config", logger.Fields{"error": err.Error()})
		appError := coreErrors.RepositoryError(err.Error())
		c.JSON(appError.HTTPStatus(), gin.H{"error": appError.Message})
		return
	}

	uc.service.Invalidate()

	c.JSON(http.StatusOK, gin.H{"updated": true})
}
