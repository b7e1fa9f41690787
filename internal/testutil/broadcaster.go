package testutil

import (
	"sync"

	"shot-clock/internal/clock"
)

type Broadcast struct {
	SessionID string
	State     clock.State
}

// RecordingBroadcaster captures broadcasts instead of sending them anywhere.
type RecordingBroadcaster struct {
	mu         sync.Mutex
	broadcasts []Broadcast
	closed     []string
}

func NewRecordingBroadcaster() *RecordingBroadcaster {
	return &RecordingBroadcaster{}
}

func (b *RecordingBroadcaster) Broadcast(sessionID string, st clock.State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcasts = append(b.broadcasts, Broadcast{SessionID: sessionID, State: st.Clone()})
}

func (b *RecordingBroadcaster) CloseRoom(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, sessionID)
}

func (b *RecordingBroadcaster) Count(sessionID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, bc := range b.broadcasts {
		if bc.SessionID == sessionID {
			n++
		}
	}
	return n
}

func (b *RecordingBroadcaster) Last(sessionID string) (clock.State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.broadcasts) - 1; i >= 0; i-- {
		if b.broadcasts[i].SessionID == sessionID {
			return b.broadcasts[i].State, true
		}
	}
	return clock.State{}, false
}

func (b *RecordingBroadcaster) Closed() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.closed...)
}
