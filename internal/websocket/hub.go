package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hirewise/server/domain"
	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Messages kept per session for viewers that join late.
	defaultBacklogSize = 500

	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Role decides what a connection may do in its session room
type Role int

const (
	// RoleViewer only receives broadcasts
	RoleViewer Role = iota
	// RolePublisher sends the live transcript of the session it holds a token for
	RolePublisher
)

func (r Role) String() string {
	if r == RolePublisher {
		return "publisher"
	}
	return "viewer"
}

// LineRecorder receives every transcript line published to the hub
type LineRecorder interface {
	RecordLine(ctx context.Context, sessionID string, line entities.TranscriptItem) error
}

type room struct {
	clients map[*Client]struct{}
	backlog [][]byte
}

type envelope struct {
	sessionID string
	payload   []byte
}

type directMsg struct {
	client  *Client
	payload []byte
}

// ErrHubClosed is returned once the hub loop has stopped
var ErrHubClosed = errors.New("websocket hub closed")

// Hub maintains per-session rooms of live transcript clients and broadcasts
// published lines to the viewers of the same session.
type Hub struct {
	// Rooms keyed by session ID.
	rooms map[string]*room

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Outbound messages for a room.
	broadcast chan envelope

	// Outbound messages for a single client.
	direct chan directMsg

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to rooms map
	mu sync.RWMutex

	recorder    LineRecorder
	backlogSize int
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewHub creates a new WebSocket hub. recorder may be nil.
func NewHub(recorder LineRecorder, m *metrics.Metrics, logger *zap.Logger) *Hub {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Hub{
		rooms:       make(map[string]*room),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan envelope, sendBufferSize),
		direct:      make(chan directMsg, sendBufferSize),
		done:        make(chan struct{}),
		recorder:    recorder,
		backlogSize: defaultBacklogSize,
		metrics:     m,
		logger:      logger,
	}
}

// Run starts the hub's main loop. It returns when ctx is done, closing every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case env := <-h.broadcast:
			h.deliver(env)

		case d := <-h.direct:
			h.mu.Lock()
			if r, ok := h.rooms[d.client.sessionID]; ok {
				if _, ok := r.clients[d.client]; ok {
					select {
					case d.client.send <- d.payload:
					default:
					}
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for id, r := range h.rooms {
				for client := range r.clients {
					close(client.send)
					h.metrics.RecordLiveConnection(-1)
				}
				delete(h.rooms, id)
			}
			h.mu.Unlock()
			h.logger.Info("Hub stopped")
			return
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	r, ok := h.rooms[client.sessionID]
	if !ok {
		r = &room{clients: make(map[*Client]struct{})}
		h.rooms[client.sessionID] = r
	}
	r.clients[client] = struct{}{}

	if client.role == RoleViewer {
		for _, payload := range r.backlog {
			select {
			case client.send <- payload:
			default:
			}
		}
	}
	h.mu.Unlock()

	h.metrics.RecordLiveConnection(1)
	h.logger.Info("Client registered",
		zap.String("session_id", client.sessionID),
		zap.Stringer("role", client.role))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	removed := h.dropLocked(client)
	h.mu.Unlock()

	if removed {
		h.logger.Info("Client unregistered",
			zap.String("session_id", client.sessionID),
			zap.Stringer("role", client.role))
	}
}

// dropLocked removes client from its room. Caller holds h.mu.
func (h *Hub) dropLocked(client *Client) bool {
	r, ok := h.rooms[client.sessionID]
	if !ok {
		return false
	}
	if _, ok := r.clients[client]; !ok {
		return false
	}
	delete(r.clients, client)
	close(client.send)
	h.metrics.RecordLiveConnection(-1)
	if len(r.clients) == 0 {
		delete(h.rooms, client.sessionID)
	}
	return true
}

func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[env.sessionID]
	if !ok {
		return
	}

	r.backlog = append(r.backlog, env.payload)
	if over := len(r.backlog) - h.backlogSize; over > 0 {
		r.backlog = r.backlog[over:]
	}

	for client := range r.clients {
		if client.role != RoleViewer {
			continue
		}
		select {
		case client.send <- env.payload:
		default:
			// slow viewer
			h.dropLocked(client)
		}
	}
}

// Broadcast sends msg to every viewer of the session
func (h *Hub) Broadcast(sessionID string, msg interface{}) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}
	select {
	case h.broadcast <- envelope{sessionID: sessionID, payload: payload}:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// ClientCount returns the number of connections in a session room
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.rooms[sessionID]; ok {
		return len(r.clients)
	}
	return 0
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	sessionID string
	role      Role
	validator *MessageValidator

	logger *zap.Logger
}

// Serve upgrades the request and joins the session room with the given role.
func Serve(hub *Hub, c echo.Context, sessionID string, role Role) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		sessionID: sessionID,
		role:      role,
		validator: NewMessageValidator(sessionID),
		logger:    hub.logger.With(zap.String("session_id", sessionID), zap.Stringer("role", role)),
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return ErrHubClosed
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn("Received unsupported message type", zap.Int("type", messageType))
			continue
		}
		c.processMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage handles one text message from the peer
func (c *Client) processMessage(message []byte) {
	msg, err := c.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Debug("Rejected message", zap.Error(err))
		c.reply(CreateErrorMessage("invalid_message", err.Error()))
		return
	}

	if ping, ok := msg.(*PingMessage); ok {
		c.reply(CreatePongMessage(ping.Data))
		return
	}

	if c.role != RolePublisher {
		c.reply(CreateErrorMessage("forbidden", "viewers cannot publish"))
		return
	}

	switch m := msg.(type) {
	case *domain.TranscriptLineMessage:
		if c.hub.recorder != nil {
			if err := c.hub.recorder.RecordLine(context.Background(), c.sessionID, m.Line); err != nil {
				c.logger.Warn("Failed to record transcript line", zap.Error(err))
			}
		}
		c.broadcast(m)

	case *domain.StateChangeMessage:
		c.broadcast(m)
	}
}

func (c *Client) broadcast(msg interface{}) {
	if err := c.hub.Broadcast(c.sessionID, msg); err != nil {
		c.logger.Error("Failed to broadcast message", zap.Error(err))
	}
}

// reply queues a message for this client only. A full buffer drops it.
func (c *Client) reply(msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.hub.direct <- directMsg{client: c, payload: payload}:
	case <-c.hub.done:
	}
}
