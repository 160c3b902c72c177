package payment

import (
	"github.com/gin-gonic/gin"

	"github.com/resqnow/dispatch-core/core/entities"
	"github.com/resqnow/dispatch-core/features/payment/domain/usecases"
)

// Routes registers all payment routes. The webhook route is deliberately
// left outside protectFactory: the gateway calls it directly and carries
// no bearer token, only its own HMAC signature header.
func Routes(route *gin.RouterGroup, useCase usecases.IPaymentUseCase, protectFactory func(handler gin.HandlerFunc, roles ...entities.Role) gin.HandlerFunc) {
	requestRoutes := route.Group("/requests")
	{
		requestRoutes.POST("/:id/quote", protectFactory(useCase.Quote, entities.RoleUser, entities.RoleTechnician, entities.RoleAdmin))
		requestRoutes.POST("/:id/order", protectFactory(useCase.CreateOrder, entities.RoleUser))
		requestRoutes.POST("/:id/cash", protectFactory(useCase.Cash, entities.RoleTechnician))
	}

	paymentRoutes := route.Group("/payments")
	{
		paymentRoutes.POST("/confirm", protectFactory(useCase.Confirm, entities.RoleUser))
		paymentRoutes.POST("/webhook", useCase.Webhook)
	}

	dueRoutes := route.Group("/technician-dues")
	{
		dueRoutes.POST("/:id/settle", protectFactory(useCase.SettleTechnicianDue, entities.RoleAdmin, entities.RoleTechnician))
	}
}
