package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft/events"
)

var _ events.Notifier = (*ConnectionManager)(nil)

// ConnectionManager manages WebSocket subscribers per season and fans
// committed events out to them.
type ConnectionManager struct {
	// Connection pools organized by season ID
	seasonConnections map[uuid.UUID]map[*Connection]bool
	mu                sync.RWMutex

	// Highest sequence delivered per stream
	lastSequence map[uuid.UUID]int64
	seqMu        sync.Mutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan events.Envelope
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID       string
	UserID   string
	SeasonID uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	done      chan struct{}
	closeOnce sync.Once

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	BroadcastBuffer int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		BroadcastBuffer: 1000,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// ConnectionStats is a snapshot of the subscriber pools.
type ConnectionStats struct {
	TotalConnections  int            `json:"total_connections"`
	ActiveSeasons     int            `json:"active_seasons"`
	SeasonConnections map[string]int `json:"season_connections"`
	TrackedStreams    int            `json:"tracked_streams"`
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	if config.SendBuffer <= 0 {
		config.SendBuffer = 256
	}
	if config.BroadcastBuffer <= 0 {
		config.BroadcastBuffer = 1000
	}
	return &ConnectionManager{
		seasonConnections: make(map[uuid.UUID]map[*Connection]bool),
		lastSequence:      make(map[uuid.UUID]int64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan events.Envelope, config.BroadcastBuffer),
	}
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case env := <-cm.broadcastCh:
			cm.handleBroadcast(env)
		}
	}
}

// Notify queues env for every subscriber of its season. Events at or below
// the last delivered sequence of their stream are redeliveries and dropped.
// It never blocks the caller.
func (cm *ConnectionManager) Notify(_ context.Context, env events.Envelope) {
	if !cm.accept(env) {
		log.Debug().
			Str("event_id", env.ID.String()).
			Str("stream_id", env.StreamID.String()).
			Int64("sequence", env.Sequence).
			Msg("duplicate event dropped")
		return
	}
	select {
	case cm.broadcastCh <- env:
	default:
		log.Warn().
			Str("season_id", env.SeasonID.String()).
			Str("event_type", string(env.Type)).
			Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) accept(env events.Envelope) bool {
	cm.seqMu.Lock()
	defer cm.seqMu.Unlock()

	if last, ok := cm.lastSequence[env.StreamID]; ok && env.Sequence <= last {
		return false
	}
	cm.lastSequence[env.StreamID] = env.Sequence
	return true
}

// UpgradeConnection upgrades an HTTP connection to a WebSocket subscribed to
// seasonID.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID string, seasonID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := time.Now()
	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		SeasonID:    seasonID,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBuffer),
		Manager:     cm,
		done:        make(chan struct{}),
		ConnectedAt: now,
		LastPing:    now,
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("season_id", seasonID.String()).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.seasonConnections[conn.SeasonID] == nil {
		cm.seasonConnections[conn.SeasonID] = make(map[*Connection]bool)
	}
	cm.seasonConnections[conn.SeasonID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("season_id", conn.SeasonID.String()).
		Int("total_connections", len(cm.seasonConnections[conn.SeasonID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.seasonConnections[conn.SeasonID]
	if !exists || !connections[conn] {
		return
	}
	delete(connections, conn)
	conn.close()
	if len(connections) == 0 {
		delete(cm.seasonConnections, conn.SeasonID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("season_id", conn.SeasonID.String()).
		Msg("connection unregistered")
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for seasonID, connections := range cm.seasonConnections {
		for conn := range connections {
			conn.close()
		}
		delete(cm.seasonConnections, seasonID)
	}
}

func (cm *ConnectionManager) handleBroadcast(env events.Envelope) {
	cm.mu.RLock()
	connections := cm.seasonConnections[env.SeasonID]
	targets := make([]*Connection, 0, len(connections))
	for conn := range connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		case <-conn.done:
		default:
			log.Warn().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
		}
	}

	log.Debug().
		Str("event_type", string(env.Type)).
		Str("season_id", env.SeasonID.String()).
		Int64("sequence", env.Sequence).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// Stats returns statistics about active connections
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	stats := ConnectionStats{SeasonConnections: make(map[string]int, len(cm.seasonConnections))}
	for seasonID, connections := range cm.seasonConnections {
		stats.TotalConnections += len(connections)
		stats.SeasonConnections[seasonID.String()] = len(connections)
	}
	stats.ActiveSeasons = len(cm.seasonConnections)
	cm.mu.RUnlock()

	cm.seqMu.Lock()
	stats.TrackedStreams = len(cm.lastSequence)
	cm.seqMu.Unlock()
	return stats
}

func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump keeps the read deadline alive and notices client disconnects.
// Clients only send pings; anything else is logged and ignored.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		log.Debug().
			Str("connection_id", c.ID).
			Str("user_id", c.UserID).
			Int("bytes", len(message)).
			Msg("received client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
