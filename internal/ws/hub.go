package ws

import (
	"sync"

	"shot-clock/internal/clock"

	"github.com/rs/zerolog/log"
)

// Hub groups live connections into per-session rooms. It implements the
// session service's Broadcaster.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: map[string]map[*Client]struct{}{}}
}

// Join moves c into the room of sessionID and queues the current snapshot
// for c alone. snapshot runs under the hub lock so no broadcast can slip in
// between enrolment and the initial snapshot. On error c is not enrolled.
func (h *Hub) Join(c *Client, sessionID string, mode clock.Mode, snapshot func() (clock.State, error)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, err := snapshot()
	if err != nil {
		return err
	}
	msg, err := encodeSnapshot(sessionID, st.WithMode(mode))
	if err != nil {
		return err
	}
	h.removeLocked(c)
	room := h.rooms[sessionID]
	if room == nil {
		room = map[*Client]struct{}{}
		h.rooms[sessionID] = room
	}
	room[c] = struct{}{}
	c.room = sessionID
	c.mode = mode
	if !c.enqueue(msg) {
		h.dropLocked(c)
	}
	return nil
}

// Leave removes c from whatever room it is in.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// Broadcast queues st for every connection in the room. The snapshot is
// encoded once per distinct connection mode.
func (h *Hub) Broadcast(sessionID string, st clock.State) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[sessionID]
	if len(room) == 0 {
		return
	}
	metricBroadcastsTotal.Add(1)
	encoded := map[clock.Mode][]byte{}
	for c := range room {
		msg, ok := encoded[c.mode]
		if !ok {
			var err error
			msg, err = encodeSnapshot(sessionID, st.WithMode(c.mode))
			if err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Msg("encode snapshot failed")
				return
			}
			encoded[c.mode] = msg
		}
		if !c.enqueue(msg) {
			h.dropLocked(c)
		}
	}
}

// CloseRoom detaches every connection from the room. The connections stay
// open and may join another session.
func (h *Hub) CloseRoom(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[sessionID]
	for c := range room {
		c.room = ""
	}
	delete(h.rooms, sessionID)
	if len(room) > 0 {
		log.Info().Str("session_id", sessionID).Int("connections", len(room)).Msg("room_closed")
	}
}

// RoomSize reports the number of connections in a room.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// Send queues msg for c without touching any room.
func (h *Hub) Send(c *Client, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !c.enqueue(msg) {
		h.dropLocked(c)
	}
}

func (h *Hub) removeLocked(c *Client) {
	if c.room == "" {
		return
	}
	if room := h.rooms[c.room]; room != nil {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.room = ""
}

func (h *Hub) dropLocked(c *Client) {
	metricSlowConsumers.Add(1)
	log.Warn().
		Str("conn_id", c.id).
		Str("session_id", c.room).
		Msg("connection send buffer full, closing connection")
	h.removeLocked(c)
	c.close()
}
