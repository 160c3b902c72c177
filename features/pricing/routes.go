package pricing

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/resqnow/dispatch-core/core/entities"
	"github.com/resqnow/dispatch-core/core/middlewares"
	"github.com/resqnow/dispatch-core/features/pricing/domain/usecases"
)

// Routes registers all platform pricing config routes, admin-only. The GET
// response is cached in Redis for a minute; the update handler clears the
// entry so an admin edit is visible on the next read rather than after the
// TTL.
func Routes(route *gin.RouterGroup, useCase usecases.IPricingConfigUseCase, protectFactory func(handler gin.HandlerFunc, roles ...entities.Role) gin.HandlerFunc, cache *middlewares.CacheMiddleware) {
	pricingRoutes := route.Group("/pricing-config")
	{
		pricingRoutes.GET("/", protectFactory(cache.Wrap(middlewares.CacheConfig{TTL: time.Minute}, useCase.Get), entities.RoleAdmin))
		pricingRoutes.PUT("/", protectFactory(func(c *gin.Context) {
			useCase.Update(c)
			if c.Writer.Status() == http.StatusOK {
				_ = cache.ClearCache(c, middlewares.CachedPathKey(c.Request.URL.Path))
			}
		}, entities.RoleAdmin))
	}
}
