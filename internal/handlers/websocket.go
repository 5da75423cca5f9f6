package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/atharvakonge/paper-trading-simulator/internal/market"
)

const (
	clientBuffer = 256
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins (for development and demo)
	},
}

// PriceHub fans price updates out to every connected WebSocket client.
type PriceHub struct {
	book       *market.PriceBook
	clients    map[*priceClient]bool
	broadcast  chan market.PriceUpdate
	register   chan *priceClient
	unregister chan *priceClient
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	log        *zap.SugaredLogger
}

type priceClient struct {
	hub  *PriceHub
	conn *websocket.Conn
	send chan []byte
}

// NewPriceHub creates a hub subscribed to book.
func NewPriceHub(book *market.PriceBook, log *zap.SugaredLogger) *PriceHub {
	h := &PriceHub{
		book:       book,
		clients:    make(map[*priceClient]bool),
		broadcast:  make(chan market.PriceUpdate, clientBuffer),
		register:   make(chan *priceClient),
		unregister: make(chan *priceClient),
		done:       make(chan struct{}),
		log:        log,
	}
	book.OnUpdate(h.Publish)
	return h
}

// Run is the hub's event loop. It returns when ctx is cancelled.
func (h *PriceHub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debugw("websocket client connected", "clients", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debugw("websocket client disconnected", "clients", n)

		case update := <-h.broadcast:
			data, err := json.Marshal(update)
			if err != nil {
				h.log.Warnw("failed to marshal price update", "error", err)
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Too slow to keep up; drop the client.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues update for broadcast without blocking. Updates published
// after Run has returned are discarded.
func (h *PriceHub) Publish(update market.PriceUpdate) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- update:
	default:
		h.log.Warnw("price broadcast channel full, dropping update", "symbol", update.Symbol)
	}
}

// ClientCount returns the number of connected clients.
func (h *PriceHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS handles GET /ws/prices. The client first receives the current
// price of every symbol, then live updates.
func (h *PriceHub) ServeWS(c *gin.Context) {
	// Upgrade HTTP connection to WebSocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	client := &priceClient{hub: h, conn: conn, send: make(chan []byte, clientBuffer)}
	h.queueSnapshot(client)

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *PriceHub) queueSnapshot(client *priceClient) {
	snapshot := h.book.Snapshot()
	symbols := make([]string, 0, len(snapshot))
	for s := range snapshot {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	now := time.Now()
	for _, s := range symbols {
		data, err := json.Marshal(market.PriceUpdate{Symbol: s, Price: snapshot[s], Timestamp: now})
		if err != nil {
			continue
		}
		select {
		case client.send <- data:
		default:
			return
		}
	}
}

// writePump sends messages from the send channel to the WebSocket connection.
func (c *priceClient) writePump() {
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

// readPump only watches for the client going away.
func (c *priceClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
