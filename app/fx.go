package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/resqnow/dispatch-core/core/config"
	"github.com/resqnow/dispatch-core/core/entities"
	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/core/middlewares"
	"github.com/resqnow/dispatch-core/core/services"
	dispatchDi "github.com/resqnow/dispatch-core/features/dispatch/di"
	dispatchuc "github.com/resqnow/dispatch-core/features/dispatch/domain/usecases"
	normalizeDi "github.com/resqnow/dispatch-core/features/normalize/di"
	notifierDi "github.com/resqnow/dispatch-core/features/notifier/di"
	"github.com/resqnow/dispatch-core/features/notifier/presentation/handlers"
	paymentDi "github.com/resqnow/dispatch-core/features/payment/di"
	paymentuc "github.com/resqnow/dispatch-core/features/payment/domain/usecases"
	pricingDi "github.com/resqnow/dispatch-core/features/pricing/di"
	pricinguc "github.com/resqnow/dispatch-core/features/pricing/domain/usecases"
	requestDi "github.com/resqnow/dispatch-core/features/request/di"
	requestuc "github.com/resqnow/dispatch-core/features/request/domain/usecases"
	technicianDi "github.com/resqnow/dispatch-core/features/technician/di"
	technicianuc "github.com/resqnow/dispatch-core/features/technician/domain/usecases"
	"gorm.io/gorm"
)

// NewFxApp builds and returns the application's Fx graph.
func NewFxApp() *fx.App {
	return fx.New(
		logger.Module,
		config.Module,
		services.Module,
		middlewares.Module,
		normalizeDi.Module,
		technicianDi.Module,
		requestDi.Module,
		pricingDi.Module,
		dispatchDi.Module,
		notifierDi.Module,
		paymentDi.Module,
		fx.Provide(gin.New),
		fx.Invoke(
			func(
				lc fx.Lifecycle,
				router *gin.Engine,
				dispatchUc dispatchuc.IDispatchUseCase,
				requestUc requestuc.IRequestUseCase,
				technicianUc technicianuc.ITechnicianUseCase,
				pricingUc pricinguc.IPricingConfigUseCase,
				paymentUc paymentuc.IPaymentUseCase,
				wsHandler *handlers.WebSocketHandler,
				redisService *services.RedisService,
				db *gorm.DB,
				protectFactory func(handler gin.HandlerFunc, roles ...entities.Role) gin.HandlerFunc,
				cache *middlewares.CacheMiddleware,
				cfg *config.AppConfig,
				logger logger.Logger,
				monitoring *middlewares.MonitoringMiddleware,
			) {
				if err := redisService.Init(); err != nil {
					logger.Error(context.TODO(), "failed to initialize redis", map[string]interface{}{
						"error": err.Error(),
					})
				}

				SetupMiddlewaresAndRoutes(lc, router, db, redisService, dispatchUc, requestUc, technicianUc, pricingUc, paymentUc, wsHandler, protectFactory, cache, cfg, logger, monitoring)
			},
		),
		InitAndRun(),
	)
}
