package store

import "sync"

type ClaimRecord struct {
	SessionID string `json:"sessionId"`
	SeatID    string `json:"seatId"`
	Position  int    `json:"position"`
	Name      string `json:"name"`
}

// ClaimIndex maps a device to the seat it last claimed. A device holds one
// record at a time; claiming in another session replaces the old record.
// Records never expire and are not tied to session lifetime, so callers must
// check the session still exists before trusting one.
type ClaimIndex struct {
	mu       sync.RWMutex
	byDevice map[string]ClaimRecord
}

func NewClaimIndex() *ClaimIndex {
	return &ClaimIndex{byDevice: map[string]ClaimRecord{}}
}

func (c *ClaimIndex) TryClaim(deviceID string, rec ClaimRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.byDevice[deviceID]; ok && existing.SessionID == rec.SessionID {
		return ErrAlreadyClaimed
	}
	c.byDevice[deviceID] = rec
	return nil
}

// Holds reports whether deviceID already has a claim in sessionID.
func (c *ClaimIndex) Holds(deviceID, sessionID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.byDevice[deviceID]
	return ok && rec.SessionID == sessionID
}

func (c *ClaimIndex) Lookup(deviceID string) (ClaimRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.byDevice[deviceID]
	return rec, ok
}

// ReleaseSession drops every record pointing at sessionID and returns how
// many were removed.
func (c *ClaimIndex) ReleaseSession(sessionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for device, rec := range c.byDevice {
		if rec.SessionID == sessionID {
			delete(c.byDevice, device)
			n++
		}
	}
	return n
}

func (c *ClaimIndex) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byDevice)
}
