package middlewares

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/resqnow/dispatch-core/core/errors"
	"github.com/resqnow/dispatch-core/core/logger"
	"github.com/resqnow/dispatch-core/core/services"
)

// CacheConfig holds cache configuration for an endpoint.
type CacheConfig struct {
	TTL         time.Duration // Time to live
	KeyPrefix   string        // Prefix for cache keys
	VaryByUser  bool          // Include user ID in cache key
	VaryByQuery bool          // Include query parameters in cache key
}

// CacheMiddleware provides Redis-backed response caching for read-heavy
// GET endpoints (pricing config, technician profiles). Only 200 responses
// are stored; everything else passes through untouched.
type CacheMiddleware struct {
	redisService *services.RedisService
	logger       logger.Logger
}

// NewCacheMiddleware creates a new cache middleware instance.
func NewCacheMiddleware(redisService *services.RedisService, logger logger.Logger) *CacheMiddleware {
	return &CacheMiddleware{
		redisService: redisService,
		logger:       logger,
	}
}

// Wrap returns a handler that serves handler's response from Redis when a
// fresh copy exists and tees it into the cache otherwise. It wraps the
// final handler rather than running as a chain middleware, so it composes
// inside the auth gate: the role check always runs before a cache HIT can
// be served.
func (cm *CacheMiddleware) Wrap(config CacheConfig, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only GET responses are cacheable.
		if c.Request.Method != http.MethodGet {
			handler(c)
			return
		}
		// Redis is initialized by an fx hook after route registration;
		// until then (and whenever Redis is down) serve uncached.
		if cm.redisService.GetClient() == nil {
			handler(c)
			return
		}

		cacheKey := cm.generateCacheKey(c, config)

		var cachedData CachedResponse
		if appErr := cm.redisService.GetWithJSON(c.Request.Context(), cacheKey, &cachedData); appErr == nil && cachedData.StatusCode != 0 {
			c.Header("X-Cache", "HIT")
			c.Data(cachedData.StatusCode, cachedData.ContentType, cachedData.Body)
			return
		}

		// Cache miss: tee the response while it streams to the client.
		writer := &cacheResponseWriter{
			ResponseWriter: c.Writer,
			statusCode:     http.StatusOK,
		}
		c.Writer = writer
		c.Header("X-Cache", "MISS")

		handler(c)

		c.Writer = writer.ResponseWriter

		if writer.statusCode != http.StatusOK {
			return
		}

		cached := CachedResponse{
			Body:        writer.body,
			StatusCode:  writer.statusCode,
			ContentType: writer.Header().Get("Content-Type"),
		}
		if appErr := cm.redisService.SetWithJSON(c.Request.Context(), cacheKey, cached, config.TTL); appErr != nil {
			cm.logger.Error(c.Request.Context(), "failed to cache response", map[string]interface{}{
				"cache_key": cacheKey,
				"error":     appErr.Error(),
			})
		}
	}
}

// CachedResponse represents a cached HTTP response.
type CachedResponse struct {
	Body        []byte `json:"body"`
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
}

// cacheResponseWriter tees response data into a buffer while still
// forwarding every write to the real writer.
type cacheResponseWriter struct {
	gin.ResponseWriter
	body       []byte
	statusCode int
}

func (w *cacheResponseWriter) Write(data []byte) (int, error) {
	w.body = append(w.body, data...)
	return w.ResponseWriter.Write(data)
}

func (w *cacheResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// generateCacheKey creates a unique cache key based on the request and
// configuration.
func (cm *CacheMiddleware) generateCacheKey(c *gin.Context, config CacheConfig) string {
	var keyParts []string

	if config.KeyPrefix != "" {
		keyParts = append(keyParts, config.KeyPrefix)
	} else {
		keyParts = append(keyParts, "cache")
	}

	keyParts = append(keyParts, c.Request.URL.Path)

	if config.VaryByUser {
		if userID, exists := c.Get("user_id"); exists {
			if id, ok := userID.(string); ok && id != "" {
				keyParts = append(keyParts, fmt.Sprintf("user:%s", id))
			}
		}
	}

	if config.VaryByQuery && len(c.Request.URL.RawQuery) > 0 {
		keyParts = append(keyParts, "query:"+c.Request.URL.RawQuery)
	}

	finalKey := strings.Join(keyParts, ":")

	// Hash the key if it's too long
	if len(finalKey) > 250 {
		hash := md5.Sum([]byte(finalKey))
		finalKey = config.KeyPrefix + ":" + hex.EncodeToString(hash[:])
	}

	return finalKey
}

// ClearCache removes the cached response stored under the given key; used
// by write handlers whose route shares a path with a cached GET.
func (cm *CacheMiddleware) ClearCache(c *gin.Context, key string) *errors.AppError {
	if cm.redisService.GetClient() == nil {
		return nil
	}
	return cm.redisService.Delete(c.Request.Context(), key)
}

// CachedPathKey reproduces the default cache key for a path-only config,
// so a write handler on the same path can clear its GET sibling's entry.
func CachedPathKey(path string) string {
	return "cache:" + path
}
