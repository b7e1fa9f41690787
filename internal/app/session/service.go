package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"shot-clock/internal/clock"
	"shot-clock/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Service is the single event-processing context for every session. All
// state transitions run under mu, so one action application (state change,
// claim index update and broadcast enqueue) is atomic with respect to every
// other action in the process.
type Service struct {
	registry *store.Registry
	claims   *store.ClaimIndex
	rooms    Broadcaster
	clock    clockwork.Clock
	opts     Options

	mu sync.Mutex

	tickMu  sync.Mutex
	tickers map[string]context.CancelFunc
}

func NewService(reg *store.Registry, claims *store.ClaimIndex, rooms Broadcaster, clk clockwork.Clock, opts Options) *Service {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if opts.ClaimPolicy == "" {
		opts.ClaimPolicy = ClaimsRetain
	}
	return &Service{
		registry: reg,
		claims:   claims,
		rooms:    rooms,
		clock:    clk,
		opts:     opts,
		tickers:  map[string]context.CancelFunc{},
	}
}

func (s *Service) Create(req CreateRequest) (*CreateResponse, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, ErrInvalidRequest
	}
	settings := req.Settings.Resolve(s.opts.Defaults)
	sess, err := s.registry.Create(id, settings, req.Secret)
	if err != nil {
		if errors.Is(err, clock.ErrInvalidSettings) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil, err
	}
	metricSessionsCreated.Add(1)
	log.Info().
		Str("session_id", sess.ID).
		Int("seats", settings.SeatCount).
		Int("time_limit", settings.TimeLimit).
		Int("max_time_bank", settings.MaxTimeBank).
		Bool("has_secret", sess.HasSecret()).
		Msg("session_created")
	return &CreateResponse{ID: sess.ID, Success: true}, nil
}

func (s *Service) Get(id string) (*SessionView, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return &SessionView{
		ID:          sess.ID,
		Settings:    sess.Settings,
		HasSecret:   sess.HasSecret(),
		State:       sess.State,
		CreatedAt:   sess.CreatedAt,
		LastUpdated: sess.LastUpdated,
	}, nil
}

func (s *Service) List() []SessionSummary {
	out := make([]SessionSummary, 0, s.registry.Len())
	s.registry.ForEach(func(sess store.Session) bool {
		out = append(out, SessionSummary{
			ID:          sess.ID,
			Seats:       len(sess.State.Seats),
			Claimed:     sess.State.ClaimedCount(),
			Running:     sess.State.Running,
			Paused:      sess.State.Paused,
			CreatedAt:   sess.CreatedAt,
			LastUpdated: sess.LastUpdated,
		})
		return true
	})
	return out
}

// Join authenticates a device into a session. A device without an id gets
// one issued. The previously claimed seat is reported only while the
// current state still shows that device in it.
func (s *Service) Join(id string, req JoinRequest) (*JoinResponse, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		deviceID = store.NewDeviceID()
	}
	resp := &JoinResponse{
		ID:           sess.ID,
		DeviceID:     deviceID,
		IsPrivileged: sess.Authorize(req.Secret),
		HasSecret:    sess.HasSecret(),
	}
	if rec, ok := s.claims.Lookup(deviceID); ok && rec.SessionID == sess.ID {
		if seat, ok := sess.State.SeatByID(rec.SeatID); ok && seat.Claimed && seat.ClaimedBy == deviceID {
			resp.ClaimedSeat = &ClaimedSeat{ID: seat.ID, Position: seat.Position, Name: seat.Name}
		}
	}
	log.Info().
		Str("session_id", sess.ID).
		Str("device_id", deviceID).
		Bool("privileged", resp.IsPrivileged).
		Bool("has_claimed_seat", resp.ClaimedSeat != nil).
		Msg("session_joined")
	return resp, nil
}

// Authorize reports whether secret grants privileged access to id.
func (s *Service) Authorize(id, secret string) (bool, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return false, err
	}
	return sess.Authorize(secret), nil
}

func (s *Service) Snapshot(id string) (clock.State, error) {
	sess, err := s.registry.Get(id)
	if err != nil {
		return clock.State{}, err
	}
	return sess.State, nil
}

// UpdateSettings rebuilds every seat of the session from patch and stops
// the game. Device claim records are kept or released according to the
// configured ClaimPolicy.
func (s *Service) UpdateSettings(id string, actor Actor, patch clock.SettingsPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.EnforcePrivilege && !actor.Privileged {
		return ErrUnauthorized
	}
	settings := patch.Resolve(s.opts.Defaults)
	sess, err := s.registry.Update(id, true, func(sess *store.Session) error {
		next, err := clock.Rebuild(sess.State, settings)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		sess.Settings = settings
		sess.State = next
		return nil
	})
	if err != nil {
		return err
	}
	released := 0
	if s.opts.ClaimPolicy == ClaimsRelease {
		released = s.claims.ReleaseSession(id)
	}
	metricSettingsUpdates.Add(1)
	log.Info().
		Str("session_id", id).
		Str("device_id", actor.DeviceID).
		Int("seats", settings.SeatCount).
		Int("time_limit", settings.TimeLimit).
		Str("claim_policy", string(s.opts.ClaimPolicy)).
		Int("claims_released", released).
		Msg("settings_updated")
	s.syncClock(id, sess.State)
	s.rooms.Broadcast(id, sess.State)
	return nil
}

// Delete removes a session. Claim records pointing at it are left alone.
func (s *Service) Delete(id string, actor Actor) error {
	_, err := s.Apply(id, actor, clock.DeleteSession{})
	return err
}

// Evict is the janitor hook for sessions that aged out of the registry.
func (s *Service) Evict(sess store.Session) error {
	metricSessionsEvicted.Add(1)
	s.stopClock(sess.ID)
	s.rooms.CloseRoom(sess.ID)
	return nil
}

// Close stops every server clock.
func (s *Service) Close() {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	for id, cancel := range s.tickers {
		cancel()
		delete(s.tickers, id)
	}
}
