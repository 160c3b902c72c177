package technician

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/resqnow/dispatch-core/core/entities"
	"github.com/resqnow/dispatch-core/core/middlewares"
	"github.com/resqnow/dispatch-core/features/technician/domain/usecases"
)

// Routes registers all technician routes. The public profile GET is cached
// briefly; 15s staleness is acceptable for a profile read and the presence
// flag it carries has a coarser TTL of its own.
func Routes(route *gin.RouterGroup, useCase usecases.ITechnicianUseCase, protectFactory func(handler gin.HandlerFunc, roles ...entities.Role) gin.HandlerFunc, cache *middlewares.CacheMiddleware) {
	technicianRoutes := route.Group("/technicians")
	{
		technicianRoutes.POST("/", protectFactory(useCase.Register, entities.RoleTechnician))
		technicianRoutes.POST("/:id/approve", protectFactory(useCase.Approve, entities.RoleAdmin))
		technicianRoutes.GET("/:id", protectFactory(cache.Wrap(middlewares.CacheConfig{TTL: 15 * time.Second}, useCase.FindByID), entities.RoleUser, entities.RoleTechnician, entities.RoleAdmin))
		technicianRoutes.PATCH("/:id/location", protectFactory(useCase.UpdateLocation, entities.RoleTechnician))
		technicianRoutes.PATCH("/:id/availability", protectFactory(useCase.SetAvailability, entities.RoleTechnician))
		technicianRoutes.PUT("/:id/pricing", protectFactory(useCase.UpdatePricing, entities.RoleTechnician))
	}
}
