package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/resqnow/dispatch-core/core/entities"
	"github.com/resqnow/dispatch-core/core/health"
	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/core/middlewares"
	"github.com/resqnow/dispatch-core/core/services"
	"github.com/resqnow/dispatch-core/features/dispatch"
	dispatchuc "github.com/resqnow/dispatch-core/features/dispatch/domain/usecases"
	"github.com/resqnow/dispatch-core/features/notifier"
	"github.com/resqnow/dispatch-core/features/notifier/presentation/handlers"
	"github.com/resqnow/dispatch-core/features/payment"
	paymentuc "github.com/resqnow/dispatch-core/features/payment/domain/usecases"
	"github.com/resqnow/dispatch-core/features/pricing"
	pricinguc "github.com/resqnow/dispatch-core/features/pricing/domain/usecases"
	"github.com/resqnow/dispatch-core/features/request"
	requestuc "github.com/resqnow/dispatch-core/features/request/domain/usecases"
	"github.com/resqnow/dispatch-core/features/technician"
	technicianuc "github.com/resqnow/dispatch-core/features/technician/domain/usecases"
)

// InitializeRoutes sets up all application routes.
func InitializeRoutes(
	router *gin.Engine,
	db *gorm.DB,
	redisService *services.RedisService,
	dispatchUc dispatchuc.IDispatchUseCase,
	requestUc requestuc.IRequestUseCase,
	technicianUc technicianuc.ITechnicianUseCase,
	pricingUc pricinguc.IPricingConfigUseCase,
	paymentUc paymentuc.IPaymentUseCase,
	wsHandler *handlers.WebSocketHandler,
	protectFactory func(handler gin.HandlerFunc, roles ...entities.Role) gin.HandlerFunc,
	cache *middlewares.CacheMiddleware,
	logger logger.Logger,
) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	root := router.Group("/v1")

	health.Routes(root, db, redisService, logger)
	dispatch.Routes(root, dispatchUc, protectFactory)
	request.Routes(root, requestUc, protectFactory)
	technician.Routes(root, technicianUc, protectFactory, cache)
	pricing.Routes(root, pricingUc, protectFactory, cache)
	payment.Routes(root, paymentUc, protectFactory)
	notifier.Routes(root, wsHandler)
}
