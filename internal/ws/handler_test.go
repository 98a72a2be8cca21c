package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelbooking/internal/config"
)

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	hub, _ := newTestHub(t)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(hub, config.WSConfig{
		ReadLimit:    64 * 1024,
		WriteTimeout: time.Second,
	})
	r.GET("/ws", handler.Serve)
	r.GET("/api/websocket/stats", handler.Stats)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestServeSendsConnectedGreeting(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws?userId=u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var greeting map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &greeting))
	assert.Equal(t, "CONNECTED", greeting["type"])
	assert.Equal(t, "u1", greeting["userId"])
	assert.NotZero(t, greeting["timestamp"])
}

func TestServeAnswersPingWithPong(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws?userId=u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage() // greeting
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("PING")))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "PONG", string(data))
}

func TestServeRejectsMissingUserID(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws"), nil)
	require.NoError(t, err, "upgrade itself succeeds, the close follows")
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation),
		"expected policy violation close, got %v", err)
}

func TestStatsReflectsConnections(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws?userId=u1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	// greeting confirms the session is registered
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/websocket/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats struct {
		ActiveUsers   int `json:"activeUsers"`
		TotalSessions int `json:"totalSessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.ActiveUsers)
	assert.Equal(t, 1, stats.TotalSessions)
}
