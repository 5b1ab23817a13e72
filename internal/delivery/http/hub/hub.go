// Package hub fans slot-change records out to every subscribed
// websocket client. Records are broadcast in publish order and each
// client receives them in that order over its own connection.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"barcampgrid/internal/domain"
)

const (
	// sendBuffer is the per-client queue. A client that falls this far
	// behind is disconnected rather than stalling the broadcast.
	sendBuffer = 64

	writeWait = 10 * time.Second
)

// Hub owns the set of subscribed clients. Run must be started before
// any publish or subscribe.
type Hub struct {
	logger      *slog.Logger
	upgrader    websocket.Upgrader
	subscribe   chan chan []byte
	unsubscribe chan chan []byte
	broadcast   chan []byte
	done        chan struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			// Access is gated by the bearer token, not the origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subscribe:   make(chan chan []byte),
		unsubscribe: make(chan chan []byte),
		broadcast:   make(chan []byte),
		done:        make(chan struct{}),
	}
}

var _ domain.SlotChangePublisher = (*Hub)(nil)

// Run processes subscriptions and broadcasts until the context is
// cancelled. The single loop is what serializes broadcast order.
// Closing done on exit unblocks any client goroutine still trying to
// reach the loop.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	clients := make(map[chan []byte]struct{})
	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				close(c)
			}
			return
		case c := <-h.subscribe:
			clients[c] = struct{}{}
		case c := <-h.unsubscribe:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c)
			}
		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c <- msg:
				default:
					// Slow consumer: drop it instead of blocking
					// everyone else.
					delete(clients, c)
					close(c)
				}
			}
		}
	}
}

// Publish broadcasts one slot change to all subscribed clients.
func (h *Hub) Publish(change domain.SlotChange) {
	msg, err := json.Marshal(change)
	if err != nil {
		h.logger.Error("marshal slot change", "err", err)
		return
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// Subscribe upgrades the request to a websocket and streams slot
// changes until the client disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	send := make(chan []byte, sendBuffer)
	select {
	case h.subscribe <- send:
	case <-h.done:
		conn.Close()
		return
	}

	// Read pump: discard inbound messages, detect disconnect.
	go func() {
		defer func() {
			select {
			case h.unsubscribe <- send:
			case <-h.done:
			}
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for msg := range send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			// Drain until the read pump unsubscribes us.
			for range send {
			}
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
}
