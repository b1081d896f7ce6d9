package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/programadoraburrido/gestion-flota/internal/middleware"
	"github.com/programadoraburrido/gestion-flota/internal/model"
	"github.com/programadoraburrido/gestion-flota/internal/service"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	// Heartbeat interval
	pingInterval = 30 * time.Second
	// Write timeout
	writeTimeout = 10 * time.Second
	// Read deadline, extended by every pong
	pongWait = 60 * time.Second
)

// outbound is one message with the vehicle it concerns
type outbound struct {
	vehicleID string
	data      []byte
}

// Client represents a WebSocket client connection
type Client struct {
	ID        string
	Conn      *websocket.Conn
	Send      chan []byte
	Hub       *WSHub
	Principal *model.Principal
	// VehicleID filters pushes to one vehicle; empty means every visible vehicle
	VehicleID string

	mu sync.RWMutex
}

func (c *Client) wants(vehicleID string, visible func(*model.Principal, string) bool) bool {
	c.mu.RLock()
	filter := c.VehicleID
	c.mu.RUnlock()
	if filter != "" && filter != vehicleID {
		return false
	}
	return visible(c.Principal, vehicleID)
}

// WSHub manages WebSocket clients and broadcasts alerts and positions
type WSHub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	vehicles   *service.VehicleService
	logger     *zap.Logger
	mu         sync.RWMutex
}

// NewWSHub creates a new WebSocket hub
func NewWSHub(vehicles *service.VehicleService, logger *zap.Logger) *WSHub {
	return &WSHub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		vehicles:   vehicles,
		logger:     logger.Named("ws"),
	}
}

// Run starts the hub's event loop and returns when ctx is done
func (h *WSHub) Run(ctx context.Context) {
	h.logger.Info("hub started")
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", zap.String("client", client.ID), zap.Int("clients", n))

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.deliver(ctx, msg)
		}
	}
}

func (h *WSHub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client disconnected", zap.String("client", client.ID), zap.Int("clients", n))
}

func (h *WSHub) deliver(ctx context.Context, msg outbound) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	visible := func(p *model.Principal, vehicleID string) bool {
		if vehicleID == "" {
			return true
		}
		_, err := h.vehicles.Get(ctx, p, vehicleID)
		return err == nil
	}

	for _, client := range clients {
		if !client.wants(msg.vehicleID, visible) {
			continue
		}
		select {
		case client.Send <- msg.data:
		default:
			// send buffer full, drop the client
			h.remove(client)
		}
	}
}

func (h *WSHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.Send)
		client.Conn.Close()
		delete(h.clients, client)
	}
}

// ClientCount returns the number of connected clients
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHub) enqueue(vehicleID string, msg model.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- outbound{vehicleID: vehicleID, data: data}:
	default:
		h.logger.Warn("broadcast queue full, message dropped", zap.String("type", msg.Type))
	}
	return nil
}

// Notify pushes newly accepted alerts to every client that can see the vehicle
func (h *WSHub) Notify(_ context.Context, events []model.AlertEvent) error {
	for _, e := range events {
		if err := h.enqueue(e.VehicleID, model.WSMessage{Type: "alert", Data: e}); err != nil {
			return err
		}
	}
	return nil
}

// BroadcastPositions pushes the latest simulated positions
func (h *WSHub) BroadcastPositions(updates []model.LocationUpdate) {
	for _, u := range updates {
		if err := h.enqueue(u.VehicleID, model.WSMessage{Type: "location", Data: u}); err != nil {
			h.logger.Warn("marshal location", zap.Error(err))
		}
	}
}

// clientMessage is sent by dashboard clients
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ReadPump handles incoming messages from the client
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(64 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("read error", zap.String("client", c.ID), zap.Error(err))
			}
			break
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == "subscribe" {
			var data struct {
				VehicleID string `json:"vehicle_id"`
			}
			if err := json.Unmarshal(msg.Data, &data); err == nil {
				c.mu.Lock()
				c.VehicleID = data.VehicleID
				c.mu.Unlock()
			}
		}
	}
}

// WritePump handles outgoing messages to the client
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// WSHandler handles WebSocket connections
type WSHandler struct {
	hub *WSHub
}

// NewWSHandler creates a new WebSocket handler
func NewWSHandler(hub *WSHub) *WSHandler {
	return &WSHandler{hub: hub}
}

// HandleAlerts upgrades the connection and streams alert and location messages
// @Summary Live alert stream
// @Description WebSocket. Pass the token as ?token= when headers cannot be set.
// @Tags Realtime
// @Param token query string false "Bearer token"
// @Param vehicle_id query string false "Only this vehicle"
// @Router /ws/alerts [get]
func (h *WSHandler) HandleAlerts(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:        uuid.NewString(),
		Conn:      conn,
		Send:      make(chan []byte, 256),
		Hub:       h.hub,
		Principal: middleware.PrincipalFrom(c),
		VehicleID: c.Query("vehicle_id"),
	}
	if welcome, err := json.Marshal(model.WSMessage{Type: "connected", Data: gin.H{"client_id": client.ID}}); err == nil {
		client.Send <- welcome
	}

	select {
	case client.Hub.register <- client:
	case <-client.Hub.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// Stats returns WebSocket hub statistics
func (h *WSHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": h.hub.ClientCount(),
	})
}
