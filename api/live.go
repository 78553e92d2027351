/*
live.go - Websocket live feed

PURPOSE:
  Streams the running session to connected clients: one snapshot frame
  per engine tick plus every notification event as it is dispatched.

DESIGN:
  - LiveHub is a worktime.Notifier. The engine hands it events through the
    same path as the log notifier; the hub fans them out to websocket
    clients without blocking.
  - Snapshots come straight from Engine.Subscribe.
  - A client that cannot keep up misses frames; it is never allowed to
    slow the timer down.

FRAMES:
  {"type": "idle"}                                on connect when not working
  {"type": "snapshot", "snapshot": {...}}         per tick
  {"type": "event", "event": {...}}               per notification

SEE ALSO:
  - worktime/engine.go: Subscribe, Notifier dispatch
  - notify/notify.go: Message text
*/
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/worktime-engine/notify"
	"github.com/warp/worktime-engine/worktime"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	liveBuffer       = 16
	liveWriteTimeout = 5 * time.Second
)

// LiveHub broadcasts notification events to websocket clients.
type LiveHub struct {
	log zerolog.Logger

	// OriginPatterns is passed to websocket.AcceptOptions. Empty means same-origin only.
	OriginPatterns []string

	mu      sync.Mutex
	clients map[int]chan worktime.Event
	next    int
}

var _ worktime.Notifier = (*LiveHub)(nil)

func NewLiveHub(log zerolog.Logger) *LiveHub {
	return &LiveHub{
		log:     log.With().Str("component", "live").Logger(),
		clients: make(map[int]chan worktime.Event),
	}
}

// Notify delivers ev to every connected client. Never fails.
func (h *LiveHub) Notify(_ context.Context, ev worktime.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Clients returns the number of connected listeners.
func (h *LiveHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *LiveHub) subscribe() (<-chan worktime.Event, func()) {
	ch := make(chan worktime.Event, liveBuffer)
	h.mu.Lock()
	id := h.next
	h.next++
	h.clients[id] = ch
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.clients, id)
		h.mu.Unlock()
	}
}

// =============================================================================
// WEBSOCKET HANDLER
// =============================================================================

// LiveFeed upgrades the request and streams frames until the client leaves
// or the engine shuts down.
func (h *Handler) LiveFeed(w http.ResponseWriter, r *http.Request) {
	if h.Live == nil {
		writeError(w, http.StatusNotFound, "Live feed disabled", nil)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.Live.OriginPatterns,
	})
	if err != nil {
		h.log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	// Clients only listen; CloseRead handles control frames and reports disconnects.
	ctx := conn.CloseRead(r.Context())

	snaps, cancelSnaps := h.Engine.Subscribe(liveBuffer)
	defer cancelSnaps()
	events, cancelEvents := h.Live.subscribe()
	defer cancelEvents()

	first := LiveMessage{Type: LiveTypeIdle}
	if snap, ok := h.Engine.Snapshot(); ok {
		sd := toSnapshotDTO(snap)
		first = LiveMessage{Type: LiveTypeSnapshot, Snapshot: &sd}
	}
	if err := writeFrame(ctx, conn, first); err != nil {
		return
	}

	h.log.Debug().Int("clients", h.Live.Clients()).Msg("Live client connected")
	for {
		var msg LiveMessage
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			sd := toSnapshotDTO(snap)
			msg = LiveMessage{Type: LiveTypeSnapshot, Snapshot: &sd}
		case ev := <-events:
			ed := toEventDTO(ev)
			msg = LiveMessage{Type: LiveTypeEvent, Event: &ed}
		}
		if err := writeFrame(ctx, conn, msg); err != nil {
			return
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, msg LiveMessage) error {
	ctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

func toEventDTO(ev worktime.Event) EventDTO {
	return EventDTO{
		Category:  string(ev.Category),
		SessionID: ev.SessionID,
		At:        formatTime(ev.At),
		Message:   notify.Message(ev),
		Data:      ev.Data,
	}
}
