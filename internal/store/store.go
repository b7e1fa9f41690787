package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"shot-clock/internal/clock"

	"github.com/jonboulle/clockwork"
)

var (
	ErrAlreadyExists  = errors.New("already_exists")
	ErrNotFound       = errors.New("not_found")
	ErrAlreadyClaimed = errors.New("already_claimed")
)

// Session is one independently tracked game instance. Values handed out by
// the Registry are copies; mutate through Registry.Update.
type Session struct {
	ID          string         `json:"id"`
	Settings    clock.Settings `json:"settings"`
	Secret      string         `json:"-"`
	State       clock.State    `json:"state"`
	CreatedAt   time.Time      `json:"createdAt"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

func (s Session) HasSecret() bool {
	return s.Secret != ""
}

// Authorize reports whether secret grants privileged access. A session
// without a secret treats every caller as privileged.
func (s Session) Authorize(secret string) bool {
	return s.Secret == "" || secret == s.Secret
}

func (s Session) clone() Session {
	out := s
	out.State = s.State.Clone()
	if s.Settings.SeatNames != nil {
		out.Settings.SeatNames = append([]string(nil), s.Settings.SeatNames...)
	}
	return out
}

// Registry is the in-memory keyed store of sessions.
type Registry struct {
	clock    clockwork.Clock
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(clk clockwork.Clock) *Registry {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Registry{clock: clk, sessions: map[string]*Session{}}
}

func (r *Registry) Create(id string, settings clock.Settings, secret string) (Session, error) {
	state, err := clock.NewState(settings)
	if err != nil {
		return Session{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		return Session{}, ErrAlreadyExists
	}
	now := r.clock.Now()
	sess := &Session{
		ID:          id,
		Settings:    settings,
		Secret:      secret,
		State:       state,
		CreatedAt:   now,
		LastUpdated: now,
	}
	r.sessions[id] = sess
	return sess.clone(), nil
}

func (r *Registry) Get(id string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess.clone(), nil
}

// Update runs fn against the stored session under the registry lock. If fn
// returns an error nothing is written back. When touch is set LastUpdated is
// advanced to the registry clock.
func (r *Registry) Update(id string, touch bool, fn func(*Session) error) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	work := sess.clone()
	if err := fn(&work); err != nil {
		return sess.clone(), err
	}
	if touch {
		work.LastUpdated = r.clock.Now()
	}
	*sess = work
	return work.clone(), nil
}

// Delete removes id and reports whether it was present.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// ForEach visits a point-in-time copy of every session in id order. The
// visitor may call back into the registry.
func (r *Registry) ForEach(visit func(Session) bool) {
	r.mu.RLock()
	all := make([]Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		all = append(all, sess.clone())
	}
	r.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	for _, sess := range all {
		if !visit(sess) {
			return
		}
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
