package launch

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1024
)

var ErrClosed = errors.New("game module connection closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The module is served from the companion's own origin, or a local dev
	// server; the session cookie already scopes the connection.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Outbound is the frame that carries a message call into the module.
type Outbound struct {
	Channel string `json:"channel"`
	Method  string `json:"method"`
	Payload string `json:"payload"`
}

// Inbound is a frame sent by the module: {"type":"progress","progress":0.5}
// or {"type":"ready"}.
type Inbound struct {
	Type     string  `json:"type"`
	Progress float64 `json:"progress,omitempty"`
}

// Conn is a game module attached over a websocket. It implements Messenger.
type Conn struct {
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	log    *slog.Logger
	bridge *Bridge
}

// Upgrade accepts a module connection and returns it with a fresh Bridge.
// Call Run to pump frames; seed the bridge before that if a deck is waiting.
func Upgrade(w http.ResponseWriter, r *http.Request, log *slog.Logger) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Conn{
		ws:   ws,
		send: make(chan []byte, 8),
		done: make(chan struct{}),
		log:  log,
	}
	c.bridge = NewBridge(c, log)
	return c, nil
}

func (c *Conn) Bridge() *Bridge { return c.bridge }

// Done is closed once the connection is gone.
func (c *Conn) Done() <-chan struct{} { return c.done }

// SendMessage queues a message call. It does not wait for the module.
func (c *Conn) SendMessage(channel, method, payload string) error {
	b, err := json.Marshal(Outbound{Channel: channel, Method: method, Payload: payload})
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return errors.New("game module send buffer full")
	}
}

// Run pumps frames until the module disconnects.
func (c *Conn) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *Conn) readPump() {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("game module connection error", slog.Any("error", err))
			}
			return
		}
		var in Inbound
		if err := json.Unmarshal(msg, &in); err != nil {
			c.log.Debug("ignoring malformed frame", slog.Any("error", err))
			continue
		}
		switch in.Type {
		case "progress":
			c.bridge.SetProgress(in.Progress)
		case "ready", "loaded":
			c.bridge.MarkReady()
		default:
			c.log.Debug("ignoring frame", slog.String("type", in.Type))
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
