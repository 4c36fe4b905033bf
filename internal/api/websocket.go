package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bbernstein/ledsectional/internal/services/pubsub"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 10 * time.Second
	wsBuffer     = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for WebSocket
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// serveWebSocket streams display snapshots: the current one on connect, then
// every update the runner publishes.
func (h *Handler) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.deps.PubSub == nil {
		writeError(w, http.StatusServiceUnavailable, "live updates are not available")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	sub := h.deps.PubSub.Subscribe(pubsub.TopicDisplay, wsBuffer)
	defer h.deps.PubSub.Unsubscribe(sub)

	// The read side only handles control frames and notices the client leaving.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeMessage(conn, h.deps.Display.Snapshot()); err != nil {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case msg, ok := <-sub.Channel:
			if !ok {
				return
			}
			if err := writeMessage(conn, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeMessage(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}
