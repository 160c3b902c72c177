package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/resqnow/dispatch-core/core/config"
	appErrors "github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/core/services"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// InitAndRun initializes and runs the application using Fx lifecycle
func InitAndRun() fx.Option {
	return fx.Invoke(func(lc fx.Lifecycle, cfg *config.AppConfig, amqpService *services.AmqpService, app *gin.Engine, log logger.Logger, db *gorm.DB) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				// Test database connection
				sqlDB, err := db.DB()
				if err != nil {
					log.Error(ctx, "Failed to get database instance", map[string]interface{}{
						"error": err.Error(),
					})
					return fmt.Errorf("failed to get database instance: %w", err)
				}
				if err := sqlDB.Ping(); err != nil {
					log.Error(ctx, "Database ping failed", map[string]interface{}{
						"error": err.Error(),
					})
					return fmt.Errorf("database not accessible: %w", err)
				}
				log.Info(ctx, "Database connection verified", nil)

				log.Info(ctx, "Running migrations...", nil)

				if err := services.RunMigrations(log); err != nil {
					log.Error(ctx, "Migrations failed", map[string]interface{}{"error": err.Error()})
					return fmt.Errorf("failed to run migrations: %w", err)
				}

				log.Info(ctx, "Migrations done", nil)

				runPort := fmt.Sprintf(":%s", cfg.Port)
				go func() {
					err := app.Run(runPort)
					if err != nil && !errors.Is(err, http.ErrServerClosed) {
						appError := appErrors.RootError(err.Error(), nil)
						log.LogError(ctx, "failed to start HTTP server", appError)
						panic(err)
					}
				}()

				return nil
			},
			OnStop: func(ctx context.Context) error {
				log.Info(ctx, "shutting down gracefully", nil)
				amqpService.Close()
				return nil
			},
		})
	})
}
