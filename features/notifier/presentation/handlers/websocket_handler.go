// Package handlers implements the websocket upgrade endpoint that fronts
// the Real-time Notifier: a thin transport shim over NotifierService's
// Redis-backed rooms.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	jsonToken "github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	coreEntities "github.com/resqnow/dispatch-core/core/entities"
	"github.com/resqnow/dispatch-core/core/logger"
	notifierEntities "github.com/resqnow/dispatch-core/features/notifier/domain/entities"
	"github.com/resqnow/dispatch-core/features/notifier/domain/services"
	technicianServices "github.com/resqnow/dispatch-core/features/technician/domain/services"
)

// heartbeatInterval keeps NAT paths open on one-way server-sent streams,
// per the Notifier's suspension/reconnect contract.
const heartbeatInterval = 15 * time.Second

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketHandler upgrades a connection and joins it to the rooms implied
// by the caller's JWT role: user_{id} (and technician_{id} for
// technicians), plus the broadcast room for admins.
type WebSocketHandler struct {
	notifier services.NotifierService
	presence technicianServices.PresenceService
	logger   logger.Logger
}

// NewWebSocketHandler builds a WebSocketHandler.
func NewWebSocketHandler(notifier services.NotifierService, presence technicianServices.PresenceService, logger logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{notifier: notifier, presence: presence, logger: logger}
}

// Handle upgrades the connection. The bearer token travels as a query
// parameter (`?token=`) since browsers cannot set Authorization headers
// on the websocket handshake.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	var claims coreEntities.JWTClaim
	parser := jsonToken.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil || claims.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(c.Request.Context(), "websocket upgrade failed", logger.Fields{"error": err.Error()})
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	subs := []services.RoomSubscription{h.notifier.JoinUser(ctx, claims.UserID)}
	var heartbeat func()
	switch claims.Role {
	case coreEntities.RoleTechnician:
		subs = append(subs, h.notifier.JoinTechnician(ctx, claims.UserID))
		// A live websocket is what "online" means for a technician; the
		// presence key is refreshed on every heartbeat tick below.
		heartbeat = func() {
			if appErr := h.presence.Heartbeat(ctx, claims.UserID); appErr != nil {
				h.logger.Error(ctx, "failed to refresh technician presence", logger.Fields{"error": appErr.Error()})
			}
		}
		heartbeat()
	case coreEntities.RoleAdmin:
		subs = append(subs, h.notifier.JoinBroadcast(ctx))
	}
	defer func() {
		for _, s := range subs {
			_ = s.Close()
		}
	}()

	go h.readPump(conn, cancel)
	h.writePump(conn, subs, heartbeat)
}

// readPump discards inbound client frames (this channel is push-only) but
// must keep reading so gorilla processes control frames (pong/close).
func (h *WebSocketHandler) readPump(conn *gorillaws.Conn, cancel func()) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WebSocketHandler) writePump(conn *gorillaws.Conn, subs []services.RoomSubscription, heartbeat func()) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	merged := mergeSubscriptions(subs)
	for {
		select {
		case <-ticker.C:
			if heartbeat != nil {
				heartbeat()
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(gorillaws.PingMessage, nil); err != nil {
				return
			}
		case msg, ok := <-merged:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

// mergeSubscriptions fans multiple room subscriptions into a single
// channel so writePump can select over one case instead of N. Each
// source subscription is itself closed by its owning context, so this
// only needs to wait for all of them to drain before closing out.
func mergeSubscriptions(subs []services.RoomSubscription) <-chan *notifierEntities.Message {
	out := make(chan *notifierEntities.Message, 16)
	var wg sync.WaitGroup
	wg.Add(len(subs))
	for _, sub := range subs {
		go func(sub services.RoomSubscription) {
			defer wg.Done()
			for msg := range sub.Messages() {
				out <- msg
			}
		}(sub)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
