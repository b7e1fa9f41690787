package clock

import (
	"errors"
	"fmt"
)

// Seconds added to a seat's remaining time per time bank draw.
const TimeBankTopUp = 30

const MaxSeats = 32

type Mode string

const (
	ModePrivileged  Mode = "privileged"
	ModeParticipant Mode = "participant"
	ModeObserver    Mode = "observer"
)

func ParseMode(v string) Mode {
	switch v {
	case "privileged", "admin":
		return ModePrivileged
	case "observer", "display":
		return ModeObserver
	default:
		return ModeParticipant
	}
}

type Settings struct {
	SeatCount   int      `json:"seatCount" yaml:"seat_count"`
	SeatNames   []string `json:"seatNames" yaml:"seat_names"`
	TimeLimit   int      `json:"timeLimit" yaml:"time_limit"`
	MaxTimeBank int      `json:"maxTimeBank" yaml:"max_time_bank"`
}

func (s Settings) Validate() error {
	if s.SeatCount < 1 || s.SeatCount > MaxSeats {
		return fmt.Errorf("%w: seat count %d", ErrInvalidSettings, s.SeatCount)
	}
	if s.TimeLimit < 0 {
		return fmt.Errorf("%w: time limit %d", ErrInvalidSettings, s.TimeLimit)
	}
	if s.MaxTimeBank < 0 {
		return fmt.Errorf("%w: max time bank %d", ErrInvalidSettings, s.MaxTimeBank)
	}
	return nil
}

// SettingsPatch is settings as a caller sends them. A nil field was left
// out and takes the configured default; an explicit zero is kept.
type SettingsPatch struct {
	SeatCount   *int     `json:"seatCount,omitempty" yaml:"seat_count"`
	SeatNames   []string `json:"seatNames,omitempty" yaml:"seat_names"`
	TimeLimit   *int     `json:"timeLimit,omitempty" yaml:"time_limit"`
	MaxTimeBank *int     `json:"maxTimeBank,omitempty" yaml:"max_time_bank"`
}

// Patch returns s with every field given.
func (s Settings) Patch() SettingsPatch {
	seats, limit, bank := s.SeatCount, s.TimeLimit, s.MaxTimeBank
	return SettingsPatch{
		SeatCount:   &seats,
		SeatNames:   append([]string(nil), s.SeatNames...),
		TimeLimit:   &limit,
		MaxTimeBank: &bank,
	}
}

// Resolve fills the omitted fields of p from d. Seat names are filled per
// position, so an empty name in p falls back to d's name for that seat.
func (p SettingsPatch) Resolve(d Settings) Settings {
	out := d
	if p.SeatCount != nil {
		out.SeatCount = *p.SeatCount
	}
	if p.TimeLimit != nil {
		out.TimeLimit = *p.TimeLimit
	}
	if p.MaxTimeBank != nil {
		out.MaxTimeBank = *p.MaxTimeBank
	}
	names := make([]string, max(len(p.SeatNames), len(d.SeatNames)))
	for i := range names {
		switch {
		case i < len(p.SeatNames) && p.SeatNames[i] != "":
			names[i] = p.SeatNames[i]
		case i < len(d.SeatNames):
			names[i] = d.SeatNames[i]
		}
	}
	out.SeatNames = nil
	if len(names) > 0 {
		out.SeatNames = names
	}
	return out
}

type Seat struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Position      int    `json:"position"`
	TimeBank      int    `json:"timeBank"`
	RemainingTime int    `json:"remainingTime"`
	Active        bool   `json:"isActive"`
	IsCurrent     bool   `json:"isCurrent"`
	Claimed       bool   `json:"claimed"`
	ClaimedBy     string `json:"claimedBy,omitempty"`
	CanRename     bool   `json:"canChangeName"`
}

type State struct {
	Seats            []Seat `json:"seats"`
	CurrentSeatIndex int    `json:"currentSeatIndex"`
	TimeLimit        int    `json:"timeLimit"`
	MaxTimeBank      int    `json:"maxTimeBank"`
	Running          bool   `json:"running"`
	Paused           bool   `json:"paused"`
	Mode             Mode   `json:"mode"`
}

func SeatID(position int) string {
	return fmt.Sprintf("seat-%d", position)
}

func buildSeats(settings Settings) []Seat {
	seats := make([]Seat, settings.SeatCount)
	for i := range seats {
		pos := i + 1
		name := ""
		if i < len(settings.SeatNames) {
			name = settings.SeatNames[i]
		}
		if name == "" {
			name = fmt.Sprintf("Seat %d", pos)
		}
		seats[i] = Seat{
			ID:            SeatID(pos),
			Name:          name,
			Position:      pos,
			TimeBank:      settings.MaxTimeBank,
			RemainingTime: settings.TimeLimit,
		}
	}
	return seats
}

// NewState builds the idle state for a freshly created session.
func NewState(settings Settings) (State, error) {
	if err := settings.Validate(); err != nil {
		return State{}, err
	}
	return State{
		Seats:       buildSeats(settings),
		TimeLimit:   settings.TimeLimit,
		MaxTimeBank: settings.MaxTimeBank,
		Mode:        ModePrivileged,
	}, nil
}

// Rebuild replaces every seat from settings. Prior claims are lost and the
// game returns to idle.
func Rebuild(st State, settings Settings) (State, error) {
	if err := settings.Validate(); err != nil {
		return st, err
	}
	next := st.Clone()
	next.Seats = buildSeats(settings)
	next.TimeLimit = settings.TimeLimit
	next.MaxTimeBank = settings.MaxTimeBank
	next.CurrentSeatIndex = 0
	next.Running = false
	next.Paused = false
	return next, nil
}

func (s State) Clone() State {
	out := s
	out.Seats = make([]Seat, len(s.Seats))
	copy(out.Seats, s.Seats)
	return out
}

// WithMode returns a copy of the state as seen by a connection of the given role.
func (s State) WithMode(m Mode) State {
	out := s.Clone()
	out.Mode = m
	return out
}

func (s State) CurrentSeat() (Seat, bool) {
	if !s.Running || s.CurrentSeatIndex < 0 || s.CurrentSeatIndex >= len(s.Seats) {
		return Seat{}, false
	}
	return s.Seats[s.CurrentSeatIndex], true
}

func (s State) SeatByID(id string) (Seat, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Seat{}, false
	}
	return s.Seats[i], true
}

func (s State) ClaimedCount() int {
	n := 0
	for _, seat := range s.Seats {
		if seat.Claimed {
			n++
		}
	}
	return n
}

func (s State) indexOf(seatID string) int {
	for i, seat := range s.Seats {
		if seat.ID == seatID {
			return i
		}
	}
	return -1
}

func (s State) firstClaimed() int {
	for i, seat := range s.Seats {
		if seat.Claimed {
			return i
		}
	}
	return -1
}

func (s *State) markCurrent(idx int) {
	s.CurrentSeatIndex = idx
	for i := range s.Seats {
		s.Seats[i].IsCurrent = i == idx
	}
}

var (
	ErrInvalidSettings = errors.New("invalid_settings")
	ErrSeatUnavailable = errors.New("seat_unavailable")
	ErrSeatNotFound    = errors.New("seat_not_found")
	ErrNoClaimedSeats  = errors.New("no_claimed_seats")
	ErrTimeBankEmpty   = errors.New("time_bank_empty")
	ErrInvalidMove     = errors.New("invalid_move")
	ErrNotRunning      = errors.New("not_running")
	ErrUnknownAction   = errors.New("unknown_action")
)
