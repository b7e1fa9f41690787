package session

import (
	"errors"

	"shot-clock/internal/clock"
	"shot-clock/internal/store"

	"github.com/rs/zerolog/log"
)

// Apply runs one action against session id and broadcasts the resulting
// state to the session's room. Failed actions change nothing and broadcast
// nothing; callers other than CLAIM treat the error as a silent no-op.
func (s *Service) Apply(id string, actor Actor, a clock.Action) (ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(id, actor, a)
}

func (s *Service) applyLocked(id string, actor Actor, a clock.Action) (ActionResult, error) {
	res, err := s.apply(id, actor, a)
	if err != nil {
		metricActionsRejected.Add(1)
		if _, ok := a.(clock.Claim); ok {
			metricClaimsRejected.Add(1)
		}
		if !errors.Is(err, errClientTickIgnored) && !errors.Is(err, store.ErrNotFound) {
			log.Debug().
				Err(err).
				Str("session_id", id).
				Str("action", string(a.Kind())).
				Str("device_id", actor.DeviceID).
				Msg("action_rejected")
		}
		return res, err
	}
	metricActionsApplied.Add(1)
	if _, ok := a.(clock.Tick); !ok {
		logAction(id, actor, a)
	}
	if _, ok := a.(clock.DeleteSession); ok {
		s.stopClock(id)
		s.rooms.Broadcast(id, res.State)
		s.rooms.CloseRoom(id)
		return res, nil
	}
	s.syncClock(id, res.State)
	s.rooms.Broadcast(id, res.State)
	return res, nil
}

func (s *Service) apply(id string, actor Actor, a clock.Action) (ActionResult, error) {
	if _, ok := a.(clock.Tick); ok && s.opts.ServerClock && !actor.system {
		return ActionResult{}, errClientTickIgnored
	}
	if s.opts.EnforcePrivilege && !actor.Privileged && clock.RequiresPrivilege(a) {
		return ActionResult{}, ErrUnauthorized
	}

	switch act := a.(type) {
	case clock.DeleteSession:
		sess, err := s.registry.Get(id)
		if err != nil {
			return ActionResult{}, err
		}
		s.registry.Delete(id)
		metricSessionsDeleted.Add(1)
		return ActionResult{State: sess.State}, nil
	case clock.Claim:
		return s.claim(id, act)
	case clock.Rename:
		if s.opts.EnforcePrivilege && !actor.Privileged {
			act.SelfService = true
		}
		if act.SelfService {
			return s.update(id, true, func(sess *store.Session) error {
				seat, ok := sess.State.SeatByID(act.SeatID)
				if !ok || seat.ClaimedBy != actor.DeviceID {
					return ErrUnauthorized
				}
				return applyTo(sess, act)
			})
		}
	}

	if _, ok := a.(clock.Tick); ok {
		// Outside a running game a tick changes nothing but is still broadcast.
		return s.update(id, false, func(sess *store.Session) error {
			if err := applyTo(sess, a); !errors.Is(err, clock.ErrNotRunning) {
				return err
			}
			return nil
		})
	}
	return s.update(id, true, func(sess *store.Session) error {
		return applyTo(sess, a)
	})
}

func (s *Service) claim(id string, c clock.Claim) (ActionResult, error) {
	if c.DeviceID == "" {
		return ActionResult{}, ErrInvalidRequest
	}
	if s.claims.Holds(c.DeviceID, id) {
		return ActionResult{}, ErrAlreadyClaimed
	}
	var claimed ClaimedSeat
	res, err := s.update(id, true, func(sess *store.Session) error {
		if err := applyTo(sess, c); err != nil {
			return err
		}
		for _, seat := range sess.State.Seats {
			if seat.Position != c.Position {
				continue
			}
			claimed = ClaimedSeat{ID: seat.ID, Position: seat.Position, Name: seat.Name}
			return s.claims.TryClaim(c.DeviceID, store.ClaimRecord{
				SessionID: id,
				SeatID:    seat.ID,
				Position:  seat.Position,
				Name:      seat.Name,
			})
		}
		return ErrSeatUnavailable
	})
	if err != nil {
		return res, err
	}
	res.Claim = &claimed
	return res, nil
}

func (s *Service) update(id string, touch bool, fn func(*store.Session) error) (ActionResult, error) {
	sess, err := s.registry.Update(id, touch, fn)
	if err != nil {
		return ActionResult{}, err
	}
	return ActionResult{State: sess.State}, nil
}

func applyTo(sess *store.Session, a clock.Action) error {
	next, err := clock.Apply(sess.State, a)
	if err != nil {
		return err
	}
	sess.State = next
	return nil
}

func logAction(id string, actor Actor, a clock.Action) {
	ev := log.Info().
		Str("session_id", id).
		Str("action", string(a.Kind())).
		Str("device_id", actor.DeviceID).
		Bool("privileged", actor.Privileged)
	switch act := a.(type) {
	case clock.Claim:
		ev = ev.Int("position", act.Position).Str("name", act.Name)
	case clock.UseTimeBank:
		ev = ev.Str("seat_id", act.SeatID)
	case clock.ResetTimer:
		ev = ev.Str("seat_id", act.SeatID)
	case clock.SetCurrent:
		ev = ev.Str("seat_id", act.SeatID)
	case clock.Rename:
		ev = ev.Str("seat_id", act.SeatID).Str("name", act.Name)
	case clock.Move:
		ev = ev.Int("from_index", act.From).Int("to_index", act.To)
	}
	ev.Msg("game_action")
}
