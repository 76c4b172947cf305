package realtime

import (
	"bytes"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gorilla/websocket"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// Websocket is an MQTT listener served from a route of the HTTP server.
type Websocket struct {
	sync.RWMutex
	id        string
	path      string
	router    fiber.Router
	log       *slog.Logger
	establish listeners.EstablishFn
	upgrader  *websocket.Upgrader
}

func NewWebsocket(router fiber.Router, cfg WebsocketListenerConfig) *Websocket {
	return &Websocket{
		id:     cfg.id(),
		path:   cfg.Path,
		router: router,
		upgrader: &websocket.Upgrader{
			Subprotocols: []string{"mqtt"},
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
}

func (l *Websocket) ID() string {
	return l.id
}

func (l *Websocket) Address() string {
	return l.path
}

func (l *Websocket) Protocol() string {
	return "ws"
}

func (l *Websocket) Init(log *slog.Logger) error {
	l.log = log
	l.router.All(l.path, adaptor.HTTPHandlerFunc(l.handler))
	return nil
}

func (l *Websocket) handler(w http.ResponseWriter, r *http.Request) {
	l.RLock()
	establish := l.establish
	l.RUnlock()
	if establish == nil {
		http.Error(w, "mqtt listener not serving", http.StatusServiceUnavailable)
		return
	}

	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := newFrameConn(ws)
	defer conn.Close()
	if err := establish(l.id, conn); err != nil {
		l.log.Warn("websocket session ended", "listener", l.id, "error", err)
	}
}

// Serve records the broker's establish callback; connections arrive through
// the HTTP route.
func (l *Websocket) Serve(establish listeners.EstablishFn) {
	l.Lock()
	l.establish = establish
	l.Unlock()
}

func (l *Websocket) Close(closeClients listeners.CloseFn) {
	l.Lock()
	l.establish = nil
	l.Unlock()

	closeClients(l.id)
}

// frameConn carries the MQTT byte stream over binary websocket frames. A
// frame may hold any slice of the stream; reads drain the pending frame before
// the next one is fetched.
type frameConn struct {
	net.Conn
	ws      *websocket.Conn
	pending bytes.Reader
}

func newFrameConn(ws *websocket.Conn) *frameConn {
	return &frameConn{Conn: ws.UnderlyingConn(), ws: ws}
}

func (c *frameConn) Read(p []byte) (int, error) {
	for c.pending.Len() == 0 {
		kind, frame, err := c.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		if kind != websocket.BinaryMessage {
			return 0, ErrInvalidMessage
		}
		c.pending.Reset(frame)
	}
	return c.pending.Read(p)
}

func (c *frameConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *frameConn) Close() error {
	return c.ws.Close()
}
