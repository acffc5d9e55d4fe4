package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/srcbook/websearch-mcp/internal/infrastructure/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// ErrHubClosed is returned once the hub has been shut down.
var ErrHubClosed = errors.New("broadcast hub is closed")

// Envelope is the frame written to websocket subscribers.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Encode marshals an event and its payload into an envelope frame.
func Encode(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}

type subscriber struct {
	id      string
	channel string
	conn    *websocket.Conn
	send    chan []byte
	once    sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub fans events out to websocket subscribers grouped by channel.
type Hub struct {
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	channels map[string]map[string]*subscriber
	closed   bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		channels: make(map[string]map[string]*subscriber),
	}
}

// Broadcast sends an event to every local subscriber of channel.
func (h *Hub) Broadcast(_ context.Context, channel, event string, payload any) error {
	frame, err := Encode(event, payload)
	if err != nil {
		metrics.RecordBroadcast(event, "error")
		return err
	}
	if _, err := h.Deliver(channel, frame); err != nil {
		metrics.RecordBroadcast(event, "error")
		return err
	}
	metrics.RecordBroadcast(event, "ok")
	return nil
}

// Deliver writes an encoded frame to the subscribers of channel and returns how
// many received it. Subscribers whose buffers are full are disconnected.
func (h *Hub) Deliver(channel string, frame []byte) (int, error) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return 0, ErrHubClosed
	}
	var slow []*subscriber
	delivered := 0
	for _, sub := range h.channels[channel] {
		select {
		case sub.send <- frame:
			delivered++
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		log.Warn().Str("channel", channel).Str("subscriber_id", sub.id).Msg("dropping slow subscriber")
		h.remove(sub)
	}
	return delivered, nil
}

// Subscribers returns the number of subscribers on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// ServeWS upgrades the request and streams channel events to it until the
// client disconnects or the hub closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, channel string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	sub := &subscriber{
		id:      uuid.NewString(),
		channel: channel,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}
	if err := h.add(sub); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return err
	}

	log.Debug().Str("channel", channel).Str("subscriber_id", sub.id).Msg("subscriber connected")

	go h.writePump(sub)
	h.readPump(sub)
	return nil
}

func (h *Hub) add(sub *subscriber) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	subs, ok := h.channels[sub.channel]
	if !ok {
		subs = make(map[string]*subscriber)
		h.channels[sub.channel] = subs
	}
	subs[sub.id] = sub
	return nil
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	if subs, ok := h.channels[sub.channel]; ok {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(h.channels, sub.channel)
		}
	}
	h.mu.Unlock()
	sub.close()
}

// readPump drains client frames so control messages are processed.
func (h *Hub) readPump(sub *subscriber) {
	defer func() {
		h.remove(sub)
		log.Debug().Str("channel", sub.channel).Str("subscriber_id", sub.id).Msg("subscriber disconnected")
	}()

	sub.conn.SetReadLimit(maxMessageSize)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("subscriber_id", sub.id).Msg("websocket read error")
			}
			return
		}
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every subscriber and rejects further broadcasts.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	var all []*subscriber
	for _, subs := range h.channels {
		for _, sub := range subs {
			all = append(all, sub)
		}
	}
	h.channels = make(map[string]map[string]*subscriber)
	h.mu.Unlock()

	for _, sub := range all {
		sub.close()
	}
}
