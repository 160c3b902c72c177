package dispatch

import (
	"github.com/gin-gonic/gin"

	"github.com/resqnow/dispatch-core/core/entities"
	"github.com/resqnow/dispatch-core/features/dispatch/domain/usecases"
)

// Routes registers all dispatch routes.
func Routes(route *gin.RouterGroup, useCase usecases.IDispatchUseCase, protectFactory func(handler gin.HandlerFunc, roles ...entities.Role) gin.HandlerFunc) {
	dispatchRoutes := route.Group("/dispatch")
	{
		dispatchRoutes.POST("/:requestId/accept", protectFactory(useCase.Accept, entities.RoleTechnician))
		dispatchRoutes.GET("/:requestId/offers", protectFactory(useCase.ListOffers, entities.RoleUser, entities.RoleTechnician, entities.RoleAdmin))
	}
}
