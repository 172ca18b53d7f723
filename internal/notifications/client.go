package notifications

import (
	"sync"
	"time"

	"schoolmates/internal/middleware"
	"schoolmates/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16384

	sendBufferSize = 256
)

// Client is one realtime connection. Conn may be nil in tests; only the
// pumps touch it.
type Client struct {
	ID     string
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte

	// Handle processes one inbound frame. Frames from a single connection
	// are handled sequentially.
	Handle func(*Client, []byte)
	// OnClose runs once after the read loop ends.
	OnClose func(*Client)
	// OnActivity runs on every inbound frame and pong.
	OnActivity func(*Client)

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient wraps conn for userID with a fresh connection id.
func NewClient(conn *websocket.Conn, userID uint) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close stops the write pump. It is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) touch() {
	if c.OnActivity != nil {
		c.OnActivity(c)
	}
}

// ReadPump reads frames until the connection fails, then closes the client
// and runs OnClose.
func (c *Client) ReadPump() {
	defer func() {
		c.Close()
		if c.OnClose != nil {
			c.OnClose(c)
		}
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("websocket read failed",
					"user_id", c.UserID, "conn_id", c.ID, "error", err.Error())
			}
			return
		}
		c.touch()
		if c.Handle != nil {
			c.Handle(c, message)
		}
	}
}

// WritePump drains Send onto the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// TrySend queues message without blocking. A full buffer drops the frame and
// queues a messages_dropped notice so the client can re-fetch.
func (c *Client) TrySend(message []byte) bool {
	select {
	case <-c.done:
		observability.WebSocketBackpressureDrops.WithLabelValues("closed").Inc()
		return false
	default:
	}

	select {
	case c.Send <- message:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues("full").Inc()
		middleware.Logger.Warn("websocket buffer full, dropped frame",
			"user_id", c.UserID, "conn_id", c.ID)
		select {
		case c.Send <- droppedNotice:
		default:
		}
		return false
	}
}

// SendEvent encodes ev and queues it.
func (c *Client) SendEvent(ev Event) bool {
	data, err := ev.Marshal()
	if err != nil {
		middleware.Logger.Error("failed to encode realtime event", "event_type", ev.Type, "error", err.Error())
		return false
	}
	if !c.TrySend(data) {
		return false
	}
	observability.WebSocketEvents.WithLabelValues("out", ev.Type).Inc()
	return true
}
