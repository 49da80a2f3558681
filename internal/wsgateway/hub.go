package wsgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mohamedkhairy/session-intel/internal/config"
	"github.com/mohamedkhairy/session-intel/internal/models"
	"github.com/mohamedkhairy/session-intel/pkg/logger"
)

// SnapshotSource provides the latest snapshot and a stream of new ones
type SnapshotSource interface {
	Latest() *models.GlobalSnapshot
	Subscribe() (<-chan *models.GlobalSnapshot, func())
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Snapshots are public market-hours data
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub manages WebSocket connections and broadcasts snapshots
type Hub struct {
	config      config.WSGatewayConfig
	registry    *ConnectionRegistry
	source      SnapshotSource
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.RWMutex
	running     bool
	stats       HubStats
}

// HubStats holds statistics about the hub
type HubStats struct {
	ConnectionsTotal   int64     `json:"connections_total"`
	ConnectionsActive  int64     `json:"connections_active"`
	ConnectionsRefused int64     `json:"connections_refused"`
	SnapshotsReceived  int64     `json:"snapshots_received"`
	MessagesSent       int64     `json:"messages_sent"`
	MessagesDropped    int64     `json:"messages_dropped"`
	LastSnapshotTime   time.Time `json:"last_snapshot_time"`
	mu                 sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub(config config.WSGatewayConfig, source SnapshotSource) *Hub {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 60 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 30 * time.Second
	}
	if config.MaxConnections <= 0 {
		config.MaxConnections = 1000
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		config:   config,
		registry: NewConnectionRegistry(),
		source:   source,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the hub (consumes snapshots and broadcasts)
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	updates, unsubscribe := h.source.Subscribe()
	h.unsubscribe = unsubscribe
	h.mu.Unlock()

	logger.Info("Starting WebSocket hub",
		logger.Int("max_connections", h.config.MaxConnections),
		logger.Duration("ping_interval", h.config.PingInterval),
	)

	h.wg.Add(1)
	go h.consumeSnapshots(updates)

	// Start connection health monitor
	h.wg.Add(1)
	go h.monitorConnections()

	return nil
}

// Stop stops the hub and closes all connections
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	logger.Info("Stopping WebSocket hub")
	h.cancel()
	h.unsubscribe()
	h.wg.Wait()
	logger.Info("WebSocket hub stopped")
}

// ServeWS upgrades the request and registers the connection. The latest snapshot,
// if any, is sent straight away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.registry.Count() >= h.config.MaxConnections {
		h.incrementConnectionsRefused()
		logger.Warn("Max connections reached, rejecting new connection",
			logger.Int("max_connections", h.config.MaxConnections),
			logger.String("remote_addr", r.RemoteAddr),
		)
		http.Error(w, "Max connections reached", http.StatusServiceUnavailable)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade connection",
			logger.ErrorField(err),
		)
		return
	}

	conn := NewConnection(uuid.New().String(), r.RemoteAddr, ws)
	h.Register(conn)

	if snapshot := h.source.Latest(); snapshot != nil {
		if err := conn.SendSnapshot(snapshot); err != nil {
			logger.Debug("Failed to send initial snapshot",
				logger.ErrorField(err),
				logger.String("connection_id", conn.ID),
			)
		}
	}
}

// Register registers a new connection
func (h *Hub) Register(conn *Connection) {
	h.registry.Add(conn)
	h.incrementConnectionsTotal()
	logger.WSConnectionsActive.Inc()

	logger.Info("Connection registered",
		logger.String("connection_id", conn.ID),
		logger.String("remote_addr", conn.RemoteAddr),
		logger.Int("total_connections", h.registry.Count()),
	)

	// Start connection handlers
	h.wg.Add(2)
	go h.writePump(conn)
	go h.readPump(conn)
}

// Unregister unregisters a connection. Safe to call from both pumps.
func (h *Hub) Unregister(conn *Connection) {
	conn.Close()
	if !h.registry.Remove(conn.ID) {
		return
	}
	logger.WSConnectionsActive.Dec()

	logger.Info("Connection unregistered",
		logger.String("connection_id", conn.ID),
		logger.String("remote_addr", conn.RemoteAddr),
		logger.Int("total_connections", h.registry.Count()),
	)
}

// consumeSnapshots forwards every published snapshot to subscribed connections
func (h *Hub) consumeSnapshots(updates <-chan *models.GlobalSnapshot) {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return

		case snapshot, ok := <-updates:
			if !ok {
				logger.Warn("Snapshot channel closed")
				return
			}
			h.incrementSnapshotsReceived()
			h.broadcastSnapshot(snapshot)
		}
	}
}

// broadcastSnapshot encodes the snapshot once and queues it on every subscribed connection
func (h *Hub) broadcastSnapshot(snapshot *models.GlobalSnapshot) {
	data, err := json.Marshal(ServerMessage{
		Type: string(MessageTypeSnapshot),
		Data: snapshot,
	})
	if err != nil {
		logger.Error("Failed to marshal snapshot",
			logger.ErrorField(err),
		)
		return
	}

	connections := h.registry.GetSubscribed()
	var sent, dropped int64

	for _, conn := range connections {
		if err := conn.queue(data); err != nil {
			dropped++
			logger.Debug("Failed to queue snapshot for connection",
				logger.ErrorField(err),
				logger.String("connection_id", conn.ID),
			)
			continue
		}
		sent++
	}

	h.addMessages(sent, dropped)
	logger.WSMessagesSent.Add(float64(sent))
	logger.WSMessagesDropped.Add(float64(dropped))
}

// writePump pumps messages from the hub to the WebSocket connection
func (h *Hub) writePump(conn *Connection) {
	defer h.wg.Done()
	defer h.Unregister(conn)

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			conn.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return

		case <-conn.Done():
			return

		case message := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (h *Hub) readPump(conn *Connection) {
	defer h.wg.Done()
	defer h.Unregister(conn)

	conn.Conn.SetReadLimit(4096)
	conn.Conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.UpdateLastPong()
		conn.Conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket error",
					logger.ErrorField(err),
					logger.String("connection_id", conn.ID),
				)
			}
			break
		}

		// Parse client message
		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			conn.SendError(ErrCodeInvalidMessage, "failed to parse message")
			continue
		}

		if err := conn.HandleClientMessage(&clientMsg, h.source.Latest); err != nil {
			logger.Debug("Failed to handle client message",
				logger.ErrorField(err),
				logger.String("connection_id", conn.ID),
			)
		}
	}
}

// monitorConnections monitors connection health and removes stale connections
func (h *Hub) monitorConnections() {
	defer h.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-ticker.C:
			h.removeStale(time.Now())
		}
	}
}

func (h *Hub) removeStale(now time.Time) {
	staleThreshold := h.config.ReadTimeout * 2

	for _, conn := range h.registry.GetAll() {
		lastPong := conn.GetLastPong()
		if now.Sub(lastPong) > staleThreshold {
			logger.Info("Removing stale connection",
				logger.String("connection_id", conn.ID),
				logger.Duration("idle_time", now.Sub(lastPong)),
			)
			h.Unregister(conn)
		}
	}
}

// GetStats returns hub statistics
func (h *Hub) GetStats() HubStats {
	h.stats.mu.RLock()
	defer h.stats.mu.RUnlock()

	return HubStats{
		ConnectionsTotal:   h.stats.ConnectionsTotal,
		ConnectionsActive:  int64(h.registry.Count()),
		ConnectionsRefused: h.stats.ConnectionsRefused,
		SnapshotsReceived:  h.stats.SnapshotsReceived,
		MessagesSent:       h.stats.MessagesSent,
		MessagesDropped:    h.stats.MessagesDropped,
		LastSnapshotTime:   h.stats.LastSnapshotTime,
	}
}

// Stats increment methods
func (h *Hub) incrementConnectionsTotal() {
	h.stats.mu.Lock()
	defer h.stats.mu.Unlock()
	h.stats.ConnectionsTotal++
}

func (h *Hub) incrementConnectionsRefused() {
	h.stats.mu.Lock()
	defer h.stats.mu.Unlock()
	h.stats.ConnectionsRefused++
}

func (h *Hub) incrementSnapshotsReceived() {
	h.stats.mu.Lock()
	defer h.stats.mu.Unlock()
	h.stats.SnapshotsReceived++
	h.stats.LastSnapshotTime = time.Now()
}

func (h *Hub) addMessages(sent, dropped int64) {
	h.stats.mu.Lock()
	defer h.stats.mu.Unlock()
	h.stats.MessagesSent += sent
	h.stats.MessagesDropped += dropped
}
