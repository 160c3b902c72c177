package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/core/services"
	"gorm.io/gorm"
)

// Status reports the reachability of each backing store the core depends on.
type Status struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Routes registers the health endpoint.
func Routes(route *gin.RouterGroup, db *gorm.DB, redisService *services.RedisService, logger logger.Logger) {
	route.GET("/health", func(c *gin.Context) {
		status := Status{Database: "ok", Redis: "ok"}
		httpStatus := http.StatusOK

		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			status.Database = "unreachable"
			httpStatus = http.StatusServiceUnavailable
		}

		if err := redisService.Ping(c.Request.Context()); err != nil {
			status.Redis = "unreachable"
			httpStatus = http.StatusServiceUnavailable
		}

		if httpStatus != http.StatusOK {
			logger.Warning(c.Request.Context(), "health check degraded", map[string]interface{}{
				"database": status.Database,
				"redis":    status.Redis,
			})
		}

		c.JSON(httpStatus, status)
	})
}
