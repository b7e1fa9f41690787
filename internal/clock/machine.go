package clock

import "fmt"

// Apply returns the state that results from applying a to st. On error the
// returned state is st itself, so a failed action never leaves a partial
// update behind.
func Apply(st State, a Action) (State, error) {
	next := st.Clone()
	var err error
	switch act := a.(type) {
	case Start:
		err = next.start()
	case Pause:
		next.Paused = true
	case Reset:
		next.reset()
	case Next:
		err = next.advance()
	case Tick:
		err = next.tick()
	case Claim:
		err = next.claim(act)
	case UseTimeBank:
		err = next.useTimeBank(act.SeatID)
	case ResetTimer:
		err = next.resetTimer(act.SeatID)
	case SetCurrent:
		err = next.setCurrent(act.SeatID)
	case Rename:
		err = next.rename(act)
	case Move:
		err = next.move(act.From, act.To)
	case DeleteSession:
		// Removal is owned by the registry; the state itself is untouched.
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
	if err != nil {
		return st, err
	}
	return next, nil
}

func (s *State) start() error {
	idx := s.firstClaimed()
	if idx < 0 {
		return ErrNoClaimedSeats
	}
	s.Running = true
	s.Paused = false
	s.markCurrent(idx)
	return nil
}

func (s *State) reset() {
	s.Running = false
	s.Paused = false
	idx := s.firstClaimed()
	if idx < 0 {
		idx = 0
	}
	for i := range s.Seats {
		s.Seats[i].RemainingTime = s.TimeLimit
	}
	s.markCurrent(idx)
}

// advance hands the turn to the next claimed seat after the current one,
// wrapping around. Landing back on the current seat is not a turn change.
func (s *State) advance() error {
	n := len(s.Seats)
	if n == 0 {
		return ErrNoClaimedSeats
	}
	idx := s.CurrentSeatIndex
	for attempts := 0; attempts < n; attempts++ {
		idx = (idx + 1) % n
		if s.Seats[idx].Claimed {
			break
		}
	}
	if !s.Seats[idx].Claimed || idx == s.CurrentSeatIndex {
		return ErrNoClaimedSeats
	}
	s.markCurrent(idx)
	s.Seats[idx].RemainingTime = s.TimeLimit
	return nil
}

func (s *State) tick() error {
	if !s.Running || s.Paused {
		return ErrNotRunning
	}
	for i := range s.Seats {
		seat := &s.Seats[i]
		if seat.IsCurrent && seat.Claimed && seat.RemainingTime > 0 {
			seat.RemainingTime--
		}
	}
	return nil
}

func (s *State) claim(c Claim) error {
	for i := range s.Seats {
		seat := &s.Seats[i]
		if seat.Position != c.Position {
			continue
		}
		if seat.Claimed {
			return ErrSeatUnavailable
		}
		if c.Name != "" {
			seat.Name = c.Name
		}
		seat.Claimed = true
		seat.ClaimedBy = c.DeviceID
		seat.CanRename = true
		seat.Active = true
		return nil
	}
	return ErrSeatUnavailable
}

func (s *State) seat(id string) (*Seat, error) {
	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrSeatNotFound
	}
	return &s.Seats[i], nil
}

func (s *State) useTimeBank(seatID string) error {
	seat, err := s.seat(seatID)
	if err != nil {
		return err
	}
	if seat.TimeBank <= 0 {
		return ErrTimeBankEmpty
	}
	seat.TimeBank--
	seat.RemainingTime += TimeBankTopUp
	return nil
}

func (s *State) resetTimer(seatID string) error {
	seat, err := s.seat(seatID)
	if err != nil {
		return err
	}
	seat.RemainingTime = s.TimeLimit
	return nil
}

func (s *State) setCurrent(seatID string) error {
	i := s.indexOf(seatID)
	if i < 0 {
		return ErrSeatNotFound
	}
	s.markCurrent(i)
	return nil
}

func (s *State) rename(r Rename) error {
	seat, err := s.seat(r.SeatID)
	if err != nil {
		return err
	}
	if r.Name == "" {
		return fmt.Errorf("%w: empty name", ErrSeatUnavailable)
	}
	if r.SelfService {
		if !seat.CanRename {
			return ErrSeatUnavailable
		}
		seat.CanRename = false
	}
	seat.Name = r.Name
	return nil
}

func (s *State) move(from, to int) error {
	n := len(s.Seats)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrInvalidMove
	}
	moved := s.Seats[from]
	seats := make([]Seat, 0, n)
	seats = append(seats, s.Seats[:from]...)
	seats = append(seats, s.Seats[from+1:]...)
	seats = append(seats[:to], append([]Seat{moved}, seats[to:]...)...)
	for i := range seats {
		seats[i].Position = i + 1
	}
	s.Seats = seats
	// the current marker travels with its seat
	for i, seat := range s.Seats {
		if seat.IsCurrent {
			s.CurrentSeatIndex = i
			break
		}
	}
	return nil
}
