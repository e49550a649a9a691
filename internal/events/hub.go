// Package events fans the assistant's status out to websocket watchers.
package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	log "log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"luna/pkg/protocol"
)

const (
	bufferSize = 32
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

// Hub delivers every published event to each subscriber. A subscriber that
// falls behind loses events rather than stalling the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan protocol.Event]struct{}
	closed bool
	now    func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[chan protocol.Event]struct{}),
		now:  time.Now,
	}
}

func (h *Hub) Publish(kind protocol.Kind, text, route string) {
	ev := protocol.Event{
		ID:    uuid.NewString(),
		Kind:  kind,
		Text:  text,
		Route: route,
		Time:  h.now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Debug("Dropped event for slow watcher", "kind", kind)
		}
	}
}

// Subscribe returns a channel of events and a func that ends the
// subscription and closes the channel.
func (h *Hub) Subscribe() (<-chan protocol.Event, func()) {
	ch := make(chan protocol.Event, bufferSize)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Speaker publishes every spoken line as a say event.
func (h *Hub) Speaker() SayPublisher { return SayPublisher{h} }

type SayPublisher struct{ hub *Hub }

func (p SayPublisher) Say(_ context.Context, text string) {
	p.hub.Publish(protocol.KindSay, text, "")
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS streams events to one websocket client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	events, cancel := h.Subscribe()
	defer cancel()

	log.Debug("Watcher connected", "remote", r.RemoteAddr)

	// Reads only detect the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			log.Debug("Watcher disconnected", "remote", r.RemoteAddr)
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				_ = conn.SetReadDeadline(time.Now().Add(writeWait))
				<-gone
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Error("Failed to encode event", "err", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}
