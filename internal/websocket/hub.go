package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType represents the type of WebSocket message pushed to operator
// dashboards.
type MessageType string

const (
	MessageTypeTicketsSold     MessageType = "tickets_sold"
	MessageTypeTicketValidated MessageType = "ticket_validated"
	MessageTypeTicketCancelled MessageType = "ticket_cancelled"
)

// Message is one dashboard update for an operator's feed.
type Message struct {
	Type           MessageType `json:"type"`
	OperatorID     string      `json:"operatorId"`
	DepartureID    string      `json:"departureId,omitempty"`
	BusCode        string      `json:"busCode,omitempty"`
	TicketCodes    []string    `json:"ticketCodes,omitempty"`
	SoldSeats      int         `json:"soldSeats,omitempty"`
	AvailableSeats int         `json:"availableSeats,omitempty"`
	Timestamp      int64       `json:"timestamp"`
}

// Client represents one dashboard connection watching an operator.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	operatorID string
}

// Hub manages WebSocket connections per operator.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	logger     *zap.Logger
	mu         sync.RWMutex
}

// NewHub creates a hub; call Run in a goroutine before serving connections.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		logger:     logger,
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.operatorID] == nil {
				h.clients[client.operatorID] = make(map[*Client]bool)
			}
			h.clients[client.operatorID][client] = true
			h.logger.Info("websocket client registered",
				zap.String("operatorId", client.operatorID),
				zap.Int("total", len(h.clients[client.operatorID])))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.operatorID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.operatorID)
					}
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.Error("websocket marshal failed", zap.Error(err))
				continue
			}

			h.mu.RLock()
			clients := h.clients[message.OperatorID]
			h.mu.RUnlock()

			for client := range clients {
				select {
				case client.send <- data:
				default:
					h.mu.Lock()
					delete(h.clients[message.OperatorID], client)
					close(client.send)
					h.mu.Unlock()
				}
			}
		}
	}
}

// Broadcast queues a message for every client watching the operator.
func (h *Hub) Broadcast(msg *Message) {
	msg.Timestamp = time.Now().UnixMilli()
	h.broadcast <- msg
}

// ClientCount returns the number of clients watching an operator.
func (h *Hub) ClientCount(operatorID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[operatorID])
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// ServeWS upgrades an HTTP request to a WebSocket connection subscribed to
// one operator's feed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, operatorID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, 64),
		operatorID: operatorID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		// The feed is one-way; drain and discard anything the client sends.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
