package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/resqnow/dispatch-core/core/config"
	"github.com/resqnow/dispatch-core/core/entities"
	"github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/core/middlewares"
	"github.com/resqnow/dispatch-core/core/services"
	dispatchuc "github.com/resqnow/dispatch-core/features/dispatch/domain/usecases"
	"github.com/resqnow/dispatch-core/features/notifier/presentation/handlers"
	paymentuc "github.com/resqnow/dispatch-core/features/payment/domain/usecases"
	pricinguc "github.com/resqnow/dispatch-core/features/pricing/domain/usecases"
	requestuc "github.com/resqnow/dispatch-core/features/request/domain/usecases"
	technicianuc "github.com/resqnow/dispatch-core/features/technician/domain/usecases"
	"github.com/resqnow/dispatch-core/routes"
)

// SetupMiddlewaresAndRoutes configures middlewares BEFORE routes (critical for Gin)
func SetupMiddlewaresAndRoutes(
	lifecycle fx.Lifecycle,
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
	cfg *config.AppConfig,
	logger logger.Logger,
	monitoring *middlewares.MonitoringMiddleware,
) {
	// Configure trusted proxies
	if err := router.SetTrustedProxies([]string{}); err != nil {
		appError := errors.RootError(err.Error(), nil)
		logger.LogError(context.Background(), "failed to configure trusted proxies", appError)
		panic(err)
	}

	router.MaxMultipartMemory = 32 << 20 // 32MB

	config.SentryConfig()

	// Register middlewares
	router.Use(middlewares.Cors(cfg))
	router.Use(monitoring.SentryMiddleware())
	router.Use(monitoring.LogMiddleware)
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(gin.ErrorLogger())

	routes.InitializeRoutes(router, db, redisService, dispatchUc, requestUc, technicianUc, pricingUc, paymentUc, wsHandler, protectFactory, cache, logger)
	logger.Info(context.Background(), "routes initialized after middleware setup")

	lifecycle.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				logger.Info(ctx, "application started")
				return nil
			},
			OnStop: func(ctx context.Context) error {
				logger.Info(ctx, "stopping server")
				return nil
			},
		},
	)
}
