// Package gridws subscribes to the authority's slot-change stream over
// a websocket and delivers records in arrival order.
package gridws

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
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// Subscriber maintains the slot-change subscription. If the connection
// drops it resubscribes with exponential backoff; records received on
// any one connection are delivered in the order they arrived.
type Subscriber struct {
	url    string
	token  string
	logger *slog.Logger

	// Dialer and the backoff bounds may be overridden before Subscribe
	// is called.
	Dialer         *websocket.Dialer
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// NewSubscriber returns a Subscriber for the websocket endpoint at url
// (ws:// or wss://), authenticating with the given bearer token.
func NewSubscriber(url, token string, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		url:            url,
		token:          token,
		logger:         logger,
		Dialer:         websocket.DefaultDialer,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}

// Subscribe starts the subscription and returns the change channel. The
// channel is closed when the context is cancelled; it is never closed
// on connection loss, which is handled by resubscribing.
func (s *Subscriber) Subscribe(ctx context.Context) <-chan domain.SlotChange {
	changes := make(chan domain.SlotChange)
	go s.run(ctx, changes)
	return changes
}

func (s *Subscriber) run(ctx context.Context, changes chan<- domain.SlotChange) {
	defer close(changes)
	backoff := s.InitialBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		header := http.Header{}
		if s.token != "" {
			header.Set("Authorization", "Bearer "+s.token)
		}
		conn, _, err := s.Dialer.DialContext(ctx, s.url, header)
		if err != nil {
			s.logger.Warn("slot subscription dial failed", "url", s.url, "err", err)
			if !s.sleep(ctx, backoff) {
				return
			}
			backoff = s.nextBackoff(backoff)
			continue
		}
		backoff = s.InitialBackoff

		if !s.readLoop(ctx, conn, changes) {
			conn.Close()
			return
		}
		conn.Close()
		s.logger.Info("slot subscription lost, resubscribing", "url", s.url)
		if !s.sleep(ctx, backoff) {
			return
		}
		backoff = s.nextBackoff(backoff)
	}
}

// readLoop reads until the connection fails. It returns false when the
// context is done and the subscription should stop for good.
func (s *Subscriber) readLoop(ctx context.Context, conn *websocket.Conn, changes chan<- domain.SlotChange) bool {
	// Unblock the read when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return ctx.Err() == nil
		}
		var change domain.SlotChange
		if err := json.Unmarshal(msg, &change); err != nil {
			// Malformed records are inert, not fatal.
			s.logger.Warn("dropping malformed slot change", "err", err)
			continue
		}
		select {
		case changes <- change:
		case <-ctx.Done():
			return false
		}
	}
}

func (s *Subscriber) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Subscriber) nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > s.MaxBackoff {
		d = s.MaxBackoff
	}
	return d
}
