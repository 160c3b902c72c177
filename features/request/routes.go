package request

import (
	"github.com/gin-gonic/gin"

	"github.com/resqnow/dispatch-core/core/entities"
	"github.com/resqnow/dispatch-core/features/request/domain/usecases"
)

// Routes registers all service-request routes.
func Routes(route *gin.RouterGroup, useCase usecases.IRequestUseCase, protectFactory func(handler gin.HandlerFunc, roles ...entities.Role) gin.HandlerFunc) {
	requestRoutes := route.Group("/requests")
	{
		requestRoutes.POST("/", protectFactory(useCase.Create, entities.RoleUser))
		requestRoutes.GET("/:id", protectFactory(useCase.FindByID, entities.RoleUser, entities.RoleTechnician, entities.RoleAdmin))
		requestRoutes.PATCH("/:id/status", protectFactory(useCase.UpdateStatus, entities.RoleTechnician))
		requestRoutes.POST("/:id/cancel", protectFactory(useCase.Cancel, entities.RoleUser, entities.RoleTechnician, entities.RoleAdmin))
	}
}
