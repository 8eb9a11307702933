// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"hummer/internal/log"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

const (
	broadcastBuffer = 256
	writeWait       = time.Second
	maxMessageSize  = 4096
)

// WebSocketTransport broadcasts payloads as JSON to every connected client
// and hands inbound control messages to a ControlHandler.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	onControl atomic.Pointer[ControlHandler]
	server    *http.Server
}

// NewWebSocketTransport creates a WebSocketTransport and starts serving
// /ws on addr. onControl may be nil, in which case inbound messages are
// ignored.
func NewWebSocketTransport(addr string, onControl ControlHandler) *WebSocketTransport {
	wst := newWebSocketTransport(addr, onControl)
	wst.start()
	return wst
}

func newWebSocketTransport(addr string, onControl ControlHandler) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local tool, any page may connect.
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, broadcastBuffer),
		done:      make(chan struct{}),
	}
	wst.OnControl(onControl)
	return wst
}

// OnControl replaces the handler for inbound control messages. A nil
// handler ignores them.
func (wst *WebSocketTransport) OnControl(h ControlHandler) {
	if h == nil {
		wst.onControl.Store(nil)
		return
	}
	wst.onControl.Store(&h)
}

// start begins the WebSocket server.
func (wst *WebSocketTransport) start() {
	mux := http.NewServeMux()
	mux.Handle("/ws", wst)

	wst.server = &http.Server{
		Addr:              wst.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("WebSocket: Starting server on %s", wst.addr)
		if err := wst.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("WebSocket: Server error: %v", err)
		}
	}()

	go wst.handleBroadcasts()
}

// ServeHTTP upgrades the connection and registers the client.
func (wst *WebSocketTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket: Upgrade error: %v", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	log.Infof("WebSocket: Client connected, total: %d", total)

	go wst.readLoop(conn)
}

// readLoop decodes control messages until the client goes away.
func (wst *WebSocketTransport) readLoop(conn *websocket.Conn) {
	defer wst.drop(conn)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := ParseControl(data)
		if err != nil {
			log.Warnf("WebSocket: Ignoring control message: %v", err)
			continue
		}
		log.Debugf("WebSocket: Control message %q", msg.Type)
		if h := wst.onControl.Load(); h != nil {
			(*h)(msg)
		}
	}
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	conn.Close()
	if ok {
		log.Infof("WebSocket: Client disconnected, total: %d", total)
	}
}

// handleBroadcasts sends queued payloads to all connected clients.
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				_ = client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteJSON(data); err != nil {
					log.Warnf("WebSocket: Error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Send queues data for broadcast. When the queue is full the payload is
// dropped so the caller never blocks.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return ErrClosed
	default:
	}
	select {
	case wst.broadcast <- data:
	default:
		log.Debugf("WebSocket: Broadcast queue full, dropping %T", data)
	}
	return nil
}

// Close disconnects every client and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		log.Infof("WebSocket: Closing server")
		close(wst.done)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
