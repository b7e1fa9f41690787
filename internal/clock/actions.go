package clock

type Kind string

const (
	KindStart         Kind = "START"
	KindPause         Kind = "PAUSE"
	KindReset         Kind = "RESET"
	KindNext          Kind = "NEXT"
	KindTick          Kind = "TICK"
	KindClaim         Kind = "CLAIM"
	KindUseTimeBank   Kind = "USE_TIME_BANK"
	KindResetTimer    Kind = "RESET_TIMER"
	KindSetCurrent    Kind = "SET_CURRENT"
	KindRename        Kind = "RENAME"
	KindMove          Kind = "MOVE"
	KindDeleteSession Kind = "DELETE_SESSION"
)

var legacyKinds = map[string]Kind{
	"START_GAME":         KindStart,
	"PAUSE_GAME":         KindPause,
	"RESET_GAME":         KindReset,
	"NEXT_PLAYER":        KindNext,
	"UPDATE_TIMER":       KindTick,
	"CLAIM_SEAT":         KindClaim,
	"RESET_PLAYER_TIMER": KindResetTimer,
	"SET_CURRENT_PLAYER": KindSetCurrent,
	"UPDATE_PLAYER_NAME": KindRename,
	"MOVE_PLAYER":        KindMove,
}

// ParseKind accepts both the current action names and the older wire names.
func ParseKind(v string) (Kind, bool) {
	switch k := Kind(v); k {
	case KindStart, KindPause, KindReset, KindNext, KindTick, KindClaim, KindUseTimeBank,
		KindResetTimer, KindSetCurrent, KindRename, KindMove, KindDeleteSession:
		return k, true
	}
	k, ok := legacyKinds[v]
	return k, ok
}

// Action is the closed set of transitions accepted by Apply. The unexported
// method keeps implementations inside this package.
type Action interface {
	Kind() Kind
	action()
}

type Start struct{}

type Pause struct{}

type Reset struct{}

type Next struct{}

type Tick struct{}

type Claim struct {
	Position int
	Name     string
	DeviceID string
}

type UseTimeBank struct {
	SeatID string
}

type ResetTimer struct {
	SeatID string
}

type SetCurrent struct {
	SeatID string
}

// Rename overwrites a seat name. SelfService marks a participant renaming its
// own seat, which consumes the one-time rename flag.
type Rename struct {
	SeatID      string
	Name        string
	SelfService bool
}

type Move struct {
	From int
	To   int
}

type DeleteSession struct{}

func (Start) Kind() Kind         { return KindStart }
func (Pause) Kind() Kind         { return KindPause }
func (Reset) Kind() Kind         { return KindReset }
func (Next) Kind() Kind          { return KindNext }
func (Tick) Kind() Kind          { return KindTick }
func (Claim) Kind() Kind         { return KindClaim }
func (UseTimeBank) Kind() Kind   { return KindUseTimeBank }
func (ResetTimer) Kind() Kind    { return KindResetTimer }
func (SetCurrent) Kind() Kind    { return KindSetCurrent }
func (Rename) Kind() Kind        { return KindRename }
func (Move) Kind() Kind          { return KindMove }
func (DeleteSession) Kind() Kind { return KindDeleteSession }

func (Start) action()         {}
func (Pause) action()         {}
func (Reset) action()         {}
func (Next) action()          {}
func (Tick) action()          {}
func (Claim) action()         {}
func (UseTimeBank) action()   {}
func (ResetTimer) action()    {}
func (SetCurrent) action()    {}
func (Rename) action()        {}
func (Move) action()          {}
func (DeleteSession) action() {}

// RequiresPrivilege reports whether the action is a session-wide control
// action. Rename is decided separately since participants may rename once.
func RequiresPrivilege(a Action) bool {
	switch a.(type) {
	case Start, Pause, Reset, SetCurrent, Move, ResetTimer, DeleteSession:
		return true
	default:
		return false
	}
}
