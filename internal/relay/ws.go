package relay

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/SuLition/CatParse/internal/tasks"
)

// WebSocket timing
const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 16
)

// MessageTypeSnapshot tags task snapshot messages
const MessageTypeSnapshot = "snapshot"

// Message is what clients receive on /ws/tasks
type Message struct {
	Type string         `json:"type"`
	Data tasks.Snapshot `json:"data"`
}

// TaskSource publishes task store snapshots
type TaskSource interface {
	Snapshot() tasks.Snapshot
	Subscribe(fn func(tasks.Snapshot)) func()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the relay listens on loopback only
	},
}

type wsClient struct {
	out  chan tasks.Snapshot
	done chan struct{}
	once sync.Once
}

func (c *wsClient) close() { c.once.Do(func() { close(c.done) }) }

// push queues s, dropping the oldest queued snapshot when the client lags
func (c *wsClient) push(s tasks.Snapshot) {
	select {
	case c.out <- s:
		return
	default:
	}
	select {
	case <-c.out:
	default:
	}
	select {
	case c.out <- s:
	default:
	}
}

// Hub fans task snapshots out to WebSocket clients
type Hub struct {
	mu          sync.Mutex
	clients     map[*wsClient]struct{}
	source      TaskSource
	unsubscribe func()
	closeOnce   sync.Once
	interval    time.Duration
	logger      *zap.Logger
}

// NewHub subscribes to source
func NewHub(source TaskSource, logger *zap.Logger) *Hub {
	h := &Hub{
		clients:  make(map[*wsClient]struct{}),
		source:   source,
		interval: pingInterval,
		logger:   logger,
	}
	h.unsubscribe = source.Subscribe(h.broadcast)
	return h
}

func (h *Hub) broadcast(s tasks.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.push(s)
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close unsubscribes and disconnects every client
func (h *Hub) Close() {
	h.closeOnce.Do(h.unsubscribe)
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
	}
}

func (h *Hub) register() *wsClient {
	c := &wsClient{out: make(chan tasks.Snapshot, sendBuffer), done: make(chan struct{})}
	h.mu.Lock()
	c.out <- h.source.Snapshot()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Handle upgrades the request and streams snapshots until the client leaves
func (h *Hub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	client := h.register()
	defer h.unregister(client)
	h.logger.Debug("client connected", zap.String("remote", conn.RemoteAddr().String()))

	go h.readLoop(conn, client)
	h.writeLoop(conn, client)
}

// readLoop keeps the read deadline fresh and notices disconnects
func (h *Hub) readLoop(conn *websocket.Conn, client *wsClient) {
	defer client.close()
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, client *wsClient) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case s := <-client.out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(Message{Type: MessageTypeSnapshot, Data: s}); err != nil {
				h.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.logger.Debug("ping failed", zap.Error(err))
				return
			}
		case <-client.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
