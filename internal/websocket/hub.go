package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chartgpt-backend/internal/models"
	"chartgpt-backend/internal/services"
)

const (
	writeWait          = 10 * time.Second
	maxSessionIDLength = 128
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StateFunc returns a session's current result; it seeds new connections.
type StateFunc func(sessionID string) models.RequestResult

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(data)
}

func (c *conn) writeLocked(data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Hub pushes chart state to the websockets watching a session. With a Redis
// client it forwards the session's pub/sub channel; without one it is fed
// directly through Publish.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*conn
	cancelFuncs map[string]context.CancelFunc
	redisClient *redis.Client
	state       StateFunc
	logger      *zap.Logger
}

func NewHub(redisClient *redis.Client, state StateFunc, logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string][]*conn),
		cancelFuncs: make(map[string]context.CancelFunc),
		redisClient: redisClient,
		state:       state,
		logger:      logger,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" || len(sessionID) > maxSessionIDLength {
		http.Error(w, "session query parameter is required", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	// Broadcasts to c wait until the snapshot is written, so the snapshot is
	// never delivered after an update that is newer than it.
	c := &conn{ws: ws}
	c.mu.Lock()
	ready := h.registerConnection(sessionID, c)
	<-ready
	if h.state != nil {
		h.sendLocked(c, models.NewResultView(h.state(sessionID)))
	}
	c.mu.Unlock()

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(sessionID, c)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// registerConnection returns a channel closed once the session's updates
// can be received.
func (h *Hub) registerConnection(sessionID string, c *conn) <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[sessionID] = append(h.connections[sessionID], c)
	h.logger.Debug("WebSocket connected",
		zap.String("session_id", sessionID),
		zap.Int("total", len(h.connections[sessionID])))

	ready := make(chan struct{})
	// Start pub/sub subscription if this is the first connection for this session
	if h.redisClient != nil && len(h.connections[sessionID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[sessionID] = cancel
		go h.subscribeToPubSub(ctx, sessionID, ready)
		return ready
	}
	close(ready)
	return ready
}

func (h *Hub) unregisterConnection(sessionID string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.ws.Close()

	conns := h.connections[sessionID]
	for i, existing := range conns {
		if existing == c {
			h.connections[sessionID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	// If no more connections, cancel pub/sub
	if len(h.connections[sessionID]) == 0 {
		delete(h.connections, sessionID)
		if cancel, ok := h.cancelFuncs[sessionID]; ok {
			cancel()
			delete(h.cancelFuncs, sessionID)
		}
	}

	h.logger.Debug("WebSocket disconnected", zap.String("session_id", sessionID))
}

func (h *Hub) subscribeToPubSub(ctx context.Context, sessionID string, ready chan<- struct{}) {
	pubsub := h.redisClient.Subscribe(ctx, services.SessionChannel(sessionID))
	defer pubsub.Close()

	_, err := pubsub.Receive(ctx)
	close(ready)
	if err != nil {
		h.logger.Warn("Failed to subscribe to session updates",
			zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(sessionID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(sessionID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.connections[sessionID] {
		if err := c.write(data); err != nil {
			h.logger.Debug("WebSocket write failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}

func (h *Hub) sendLocked(c *conn, view models.ResultView) {
	data, err := json.Marshal(models.WSMessage{Type: models.WSTypeChartState, Payload: view})
	if err != nil {
		return
	}
	c.writeLocked(data)
}

// Publish delivers a state change to this process's connections for the
// session. It makes the hub a services.Notifier when Redis is not in use.
func (h *Hub) Publish(_ context.Context, sessionID string, view models.ResultView) {
	data, err := json.Marshal(models.WSMessage{Type: models.WSTypeChartState, Payload: view})
	if err != nil {
		h.logger.Error("failed to encode state update", zap.Error(err))
		return
	}
	h.broadcast(sessionID, data)
}

// Close cancels every pub/sub subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, cancel := range h.cancelFuncs {
		cancel()
		delete(h.cancelFuncs, id)
	}
}
