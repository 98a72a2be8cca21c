package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"hotelbooking/internal/config"
	"hotelbooking/pkg/log"
)

const pingLiteral = "PING"
const pongLiteral = "PONG"

// Handler terminates websocket handshakes and exposes the ops surface.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	cfg      config.WSConfig
}

// NewHandler builds the handshake handler. An empty allowed-origins list
// accepts any origin.
func NewHandler(hub *Hub, cfg config.WSConfig) *Handler {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}

	return &Handler{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// Serve handles GET /ws?userId=<id>. Connections without a userId are closed
// with a policy-violation status right after the upgrade.
func (h *Handler) Serve(c *gin.Context) {
	userID := c.Query("userId")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	if userID == "" {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "userId is required"), deadline)
		_ = conn.Close()
		return
	}

	conn.SetReadLimit(h.cfg.ReadLimit)

	sess := h.hub.Register(userID, conn)
	defer func() {
		h.hub.Unregister(sess)
		_ = conn.Close()
	}()

	h.sendGreeting(sess, userID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if string(data) == pingLiteral {
			if err := sess.Send([]byte(pongLiteral)); err != nil {
				return
			}
		}
	}
}

func (h *Handler) sendGreeting(sess *Session, userID string) {
	greeting, _ := json.Marshal(map[string]interface{}{
		"type":      "CONNECTED",
		"userId":    userID,
		"message":   "Successfully connected to WebSocket",
		"timestamp": time.Now().UnixMilli(),
	})
	if err := sess.Send(greeting); err != nil {
		log.WithError(err).Warn("Failed to send connection greeting")
	}
}

// Stats handles GET /api/websocket/stats.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"activeUsers":   h.hub.ActiveUsers(),
		"totalSessions": h.hub.TotalSessions(),
	})
}

// Broadcast handles POST /api/websocket/broadcast: the JSON body is relayed
// verbatim to every connected user on every instance.
func (h *Handler) Broadcast(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.hub.Broadcast(c.Request.Context(), body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": string(body),
	})
}

// SendToUser handles POST /api/websocket/send/:userId.
func (h *Handler) SendToUser(c *gin.Context) {
	userID := c.Param("userId")

	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.hub.SendToUser(c.Request.Context(), userID, body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"userId":  userID,
		"message": string(body),
	})
}
