package session

import (
	"context"
	"time"

	"shot-clock/internal/clock"

	"github.com/rs/zerolog/log"
)

const serverTickInterval = time.Second

// syncClock starts or stops the server-owned ticker of a session so that it
// runs exactly while the game is running and not paused. It is a no-op
// unless Options.ServerClock is set.
func (s *Service) syncClock(id string, st clock.State) {
	if !s.opts.ServerClock {
		return
	}
	want := st.Running && !st.Paused
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	cancel, active := s.tickers[id]
	switch {
	case want && !active:
		ctx, cancel := context.WithCancel(context.Background())
		s.tickers[id] = cancel
		ticker := s.clock.NewTicker(serverTickInterval)
		go s.runClock(ctx, id, ticker.Chan(), ticker.Stop)
		log.Debug().Str("session_id", id).Msg("server_clock_started")
	case !want && active:
		cancel()
		delete(s.tickers, id)
		log.Debug().Str("session_id", id).Msg("server_clock_stopped")
	}
}

func (s *Service) stopClock(id string) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	if cancel, ok := s.tickers[id]; ok {
		cancel()
		delete(s.tickers, id)
	}
}

func (s *Service) runClock(ctx context.Context, id string, ticks <-chan time.Time, stop func()) {
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if !s.serverTick(ctx, id) {
				return
			}
		}
	}
}

// serverTick applies one tick on behalf of the server. A ticker cancelled
// while it waited for the lock must not tick, since a newer ticker may
// already own the session.
func (s *Service) serverTick(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	metricServerClockTicks.Add(1)
	if _, err := s.applyLocked(id, systemActor, clock.Tick{}); err != nil {
		log.Debug().Err(err).Str("session_id", id).Msg("server_clock_tick_failed")
		s.stopClock(id)
		return false
	}
	return true
}

// clockRunning reports whether a server clock is active for id.
func (s *Service) clockRunning(id string) bool {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	_, ok := s.tickers[id]
	return ok
}
