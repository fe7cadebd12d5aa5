package notify

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"librarydesk/app/echoServer/jwtx"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

type Message struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
	SentAt  time.Time `json:"sentAt"`
}

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan Message
}

// Hub fans messages out to every open connection of a user.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewHub(log *slog.Logger, allowedOrigin string) *Hub {
	return &Hub{
		clients: map[string]map[*client]struct{}{},
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				o := r.Header.Get("Origin")
				return o == "" || allowedOrigin == "" || o == allowedOrigin
			},
		},
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = map[*client]struct{}{}
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
	}
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// Notify queues a message for userID and reports whether any connection took it.
// A connection whose buffer is full is dropped.
func (h *Hub) Notify(userID, kind, message string, data any) bool {
	msg := Message{Kind: kind, Message: message, Data: data, SentAt: time.Now().UTC()}

	h.mu.Lock()
	defer h.mu.Unlock()
	delivered := false
	for c := range h.clients[userID] {
		select {
		case c.send <- msg:
			delivered = true
		default:
			delete(h.clients[userID], c)
			close(c.send)
		}
	}
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
	return delivered
}

// Connected returns the number of open connections for userID.
func (h *Hub) Connected(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[userID])
}

// Serve upgrades an authenticated request to a websocket: GET /api/ws
func (h *Hub) Serve(c echo.Context) error {
	uid := jwtx.UserID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "user_id", uid, "err", err)
		return nil
	}

	cl := &client{userID: uid, conn: conn, send: make(chan Message, sendBuffer)}
	h.register(cl)
	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

// readPump only watches for close and pong frames.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	t := time.NewTicker(pingPeriod)
	defer func() {
		t.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-t.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
