// Package ws holds the live-connection registry and its Redis pub/sub relay.
//
// Every instance keeps only its local connections. Outbound sends go through
// Redis channels (one per user plus a broadcast channel), so a message reaches
// a user no matter which instance holds their socket.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"hotelbooking/internal/monitor"
	"hotelbooking/pkg/log"
)

const (
	userChannelPrefix = "ws:user:"
	broadcastChannel  = "ws:broadcast"
)

func userChannel(userID string) string {
	return userChannelPrefix + userID
}

// sessionConn is the subset of *websocket.Conn a session writes through.
type sessionConn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session is one live connection. Writes are serialized by the mutex since
// gorilla conns allow only one concurrent writer.
type Session struct {
	userID string
	conn   sessionConn

	mu           sync.Mutex
	writeTimeout time.Duration
}

// UserID returns the owner of the session.
func (s *Session) UserID() string { return s.userID }

// Send writes one text frame, bounded by the write timeout.
func (s *Session) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub is the per-instance connection registry plus the Redis relay.
type Hub struct {
	rdb          *redis.Client
	pubsub       *redis.PubSub
	writeTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
}

// NewHub builds the registry and subscribes to the broadcast channel.
// Call Run to start delivering relayed messages.
func NewHub(rdb *redis.Client, writeTimeout time.Duration) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Hub{
		rdb:          rdb,
		pubsub:       rdb.Subscribe(context.Background(), broadcastChannel),
		writeTimeout: writeTimeout,
		sessions:     make(map[string]map[*Session]struct{}),
	}
}

// Run pumps relayed messages to local sessions until the context ends.
func (h *Hub) Run(ctx context.Context) {
	ch := h.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = h.pubsub.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Channel == broadcastChannel {
				h.deliverBroadcast([]byte(msg.Payload))
			} else {
				h.deliverToUser(msg.Channel[len(userChannelPrefix):], []byte(msg.Payload))
			}
		}
	}
}

// Register adds a connection for a user. The first connection of a user on
// this instance subscribes the relay to their channel.
func (h *Hub) Register(userID string, conn sessionConn) *Session {
	s := &Session{userID: userID, conn: conn, writeTimeout: h.writeTimeout}

	h.mu.Lock()
	set, ok := h.sessions[userID]
	if !ok {
		set = make(map[*Session]struct{})
		h.sessions[userID] = set
	}
	set[s] = struct{}{}
	first := len(set) == 1
	total := len(set)
	h.mu.Unlock()

	if first {
		if err := h.pubsub.Subscribe(context.Background(), userChannel(userID)); err != nil {
			log.WithError(err).Error("Failed to subscribe user channel")
		}
	}

	monitor.WSConnected()
	log.WithFields(map[string]interface{}{
		"user_id":        userID,
		"local_sessions": total,
	}).Info("WebSocket connected")

	return s
}

// Unregister drops a session. The last connection of a user on this instance
// unsubscribes the relay from their channel.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	set, ok := h.sessions[s.userID]
	if ok {
		if _, present := set[s]; !present {
			ok = false
		}
		delete(set, s)
		if len(set) == 0 {
			delete(h.sessions, s.userID)
		}
	}
	last := ok && len(set) == 0
	h.mu.Unlock()

	if !ok {
		return
	}

	if last {
		if err := h.pubsub.Unsubscribe(context.Background(), userChannel(s.userID)); err != nil {
			log.WithError(err).Error("Failed to unsubscribe user channel")
		}
	}

	monitor.WSDisconnected()
	log.WithField("user_id", s.userID).Info("WebSocket disconnected")
}

// SendToUser publishes a payload to the user's channel. Delivery happens on
// whichever instances hold the user's connections; the publish itself is
// fire-and-forget.
func (h *Hub) SendToUser(ctx context.Context, userID string, payload []byte) error {
	return h.rdb.Publish(ctx, userChannel(userID), payload).Err()
}

// Broadcast publishes a payload to every connected user across all instances.
func (h *Hub) Broadcast(ctx context.Context, payload []byte) error {
	return h.rdb.Publish(ctx, broadcastChannel, payload).Err()
}

// ActiveUsers counts users with at least one local connection.
func (h *Hub) ActiveUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// TotalSessions counts local connections across all users.
func (h *Hub) TotalSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.sessions {
		n += len(set)
	}
	return n
}

// deliverToUser fans a payload out to the user's local sessions. Sessions are
// snapshotted first so sends run outside the registry lock; a failed session
// is closed and dropped.
func (h *Hub) deliverToUser(userID string, payload []byte) int {
	h.mu.RLock()
	snapshot := make([]*Session, 0, len(h.sessions[userID]))
	for s := range h.sessions[userID] {
		snapshot = append(snapshot, s)
	}
	h.mu.RUnlock()

	sent := 0
	for _, s := range snapshot {
		if err := s.Send(payload); err != nil {
			monitor.WSDelivery(false)
			log.WithFields(map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			}).Warn("WebSocket send failed, dropping session")
			_ = s.conn.Close()
			h.Unregister(s)
			continue
		}
		monitor.WSDelivery(true)
		sent++
	}
	return sent
}

func (h *Hub) deliverBroadcast(payload []byte) {
	h.mu.RLock()
	users := make([]string, 0, len(h.sessions))
	for userID := range h.sessions {
		users = append(users, userID)
	}
	h.mu.RUnlock()

	sent := 0
	for _, userID := range users {
		sent += h.deliverToUser(userID, payload)
	}
	log.WithField("sessions", sent).Debug("Broadcast delivered locally")
}
