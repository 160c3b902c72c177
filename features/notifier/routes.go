package notifier

import (
	"github.com/gin-gonic/gin"

	"github.com/resqnow/dispatch-core/features/notifier/presentation/handlers"
)

// Routes registers the websocket upgrade endpoint. Authentication happens
// inside the handler itself (the bearer token travels as a query
// parameter), so this bypasses the usual protectFactory role gate.
func Routes(route *gin.RouterGroup, handler *handlers.WebSocketHandler) {
	route.GET("/ws", handler.Handle)
}
