package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shirts/opencv-tracking/internal/logger"
	"github.com/shirts/opencv-tracking/internal/metrics"
)

const (
	// broadcastBuffer bounds how many preview frames may wait for the hub loop.
	broadcastBuffer = 4
	// clientBuffer bounds how many frames may wait for a single viewer.
	clientBuffer = 2
	writeWait    = 5 * time.Second
)

// viewer is one connected client with its own outgoing queue.
type viewer struct {
	conn *websocket.Conn
	send chan []byte
}

// HubService fans preview frames out to every connected viewer.
type HubService struct {
	clients    map[*websocket.Conn]*viewer
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	count      atomic.Int64
	writeWait  time.Duration
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewHubService(logger *logger.Logger, m *metrics.Metrics) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]*viewer),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		writeWait:  writeWait,
		logger:     logger,
		metrics:    m,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client. Writes happen in one goroutine per viewer, so the loop
// itself never waits on the network.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn, v := range h.clients {
				close(v.send)
				conn.Close()
				delete(h.clients, conn)
			}
			h.updateClientGauge()
			h.mutex.Unlock()
			return

		case conn := <-h.register:
			v := &viewer{conn: conn, send: make(chan []byte, clientBuffer)}
			h.mutex.Lock()
			h.clients[conn] = v
			h.updateClientGauge()
			h.mutex.Unlock()
			go h.writePump(v)
			h.logger.Info("Client connected. Total: %d", h.GetClientCount())

		case conn := <-h.unregister:
			h.mutex.Lock()
			if v, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				close(v.send)
				conn.Close()
			}
			h.updateClientGauge()
			h.mutex.Unlock()
			h.logger.Info("Client disconnected. Total: %d", h.GetClientCount())

		case message := <-h.broadcast:
			h.mutex.RLock()
			for _, v := range h.clients {
				select {
				case v.send <- message:
				default:
					// viewer is behind, skip this frame for it
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// writePump delivers queued frames to one viewer. A write that misses its
// deadline drops the viewer.
func (h *HubService) writePump(v *viewer) {
	for message := range v.send {
		v.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := v.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
			h.logger.Error("Error sending frame: %v", err)
			v.conn.Close()
			h.Unregister(v.conn)
			return
		}
	}
}

func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a JPEG frame for every viewer. Frames are dropped while
// the queue is full so the capture loop never blocks on slow viewers.
func (h *HubService) Broadcast(frame []byte) bool {
	select {
	case h.broadcast <- frame:
		return true
	default:
		return false
	}
}

// GetClientCount never takes the hub lock; the preview calls it every frame.
func (h *HubService) GetClientCount() int {
	return int(h.count.Load())
}

// updateClientGauge must be called with the mutex held.
func (h *HubService) updateClientGauge() {
	n := int64(len(h.clients))
	if h.metrics != nil {
		h.metrics.ViewClients.Store(n)
	}
	h.count.Store(n)
}
