// Package transport owns the WebSocket side of the API: upgrading
// connections, pumping frames, and speaking the register/buzz protocol.
// Everything stateful about the game itself lives in the game package;
// a transport Client is just a Sink the room broadcasts to.
package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alex-gusto/buzzer/internal/v1/game"
	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/metrics"
	"github.com/alex-gusto/buzzer/internal/v1/ratelimit"
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// Hub upgrades /ws/:code requests and hands the resulting connections to
// per-connection clients. Room state is the dispatcher's business.
type Hub struct {
	dispatcher     *game.Dispatcher
	allowedOrigins []string
	rateLimiter    *ratelimit.RateLimiter
}

// NewHub wires the WebSocket entry point. A nil rateLimiter disables
// connection throttling (tests).
func NewHub(dispatcher *game.Dispatcher, allowedOrigins []string, rateLimiter *ratelimit.RateLimiter) *Hub {
	return &Hub{
		dispatcher:     dispatcher,
		allowedOrigins: allowedOrigins,
		rateLimiter:    rateLimiter,
	}
}

// ServeWs validates the request and upgrades it to a WebSocket. Rejections
// happen before the upgrade so clients get a proper HTTP status instead of
// a dropped socket.
func (h *Hub) ServeWs(c *gin.Context) {
	if h.rateLimiter != nil && !h.rateLimiter.CheckWebSocket(c) {
		return // response already written
	}

	code := types.RoomCodeType(c.Param("code")).Canonical()
	if !h.dispatcher.HasRoom(code) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Room not found"})
		return
	}

	if err := validateOrigin(c.Request, h.allowedOrigins); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"message": "Origin not allowed"})
		return
	}

	conn, err := h.upgradeWebSocket(c)
	if err != nil {
		// Upgrade failures write their own response.
		return
	}

	h.HandleConnection(c, conn)
}

// HandleConnection starts the pumps for an established connection. Split
// from ServeWs so tests can drive a client over a mock connection.
func (h *Hub) HandleConnection(c *gin.Context, conn wsConnection) {
	code := types.RoomCodeType(c.Param("code")).Canonical()
	client := newClient(conn, h.dispatcher, code)

	metrics.IncConnection()
	logging.GetLogger().Debug("WebSocket connection established",
		zap.String("room", string(code)))

	go client.writePump()
	go client.readPump()
}
