package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/you/backoffice/domain"
	"github.com/you/backoffice/internal/realtime"
	"go.uber.org/zap"
)

// WSHandler upgrades authenticated requests and keeps the connection in the registry.
type WSHandler struct {
	registry domain.ConnectionRegistry
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler creates the live-connection handler. checkOrigin may be nil
// to accept only same-origin handshakes.
func NewWSHandler(registry domain.ConnectionRegistry, checkOrigin func(r *http.Request) bool, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// Connect upgrades the request and blocks until the client disconnects.
func (h *WSHandler) Connect(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.Debug("websocket upgrade failed", zap.Uint("user_id", userID), zap.Error(err))
		return
	}

	conn := realtime.NewWSConn(ws)
	h.registry.Register(userID, conn)
	h.logger.Info("live connection opened", zap.Uint("user_id", userID))

	conn.ReadLoop()

	h.registry.Unregister(userID, conn)
	_ = ws.Close()
	h.logger.Info("live connection closed", zap.Uint("user_id", userID))
}
