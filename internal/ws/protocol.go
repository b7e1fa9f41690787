package ws

import (
	"encoding/json"

	"shot-clock/internal/clock"
)

const (
	TypeJoinSession    = "join-session"
	TypeUpdateSettings = "update-settings"
	TypeAction         = "action"
	TypeGameAction     = "game-action"
	TypeLeave          = "leave"

	TypeStateSnapshot = "state-snapshot"
	TypeClaimResult   = "claim-result"
)

type JoinSessionMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	DeviceID  string `json:"deviceId"`
	Role      string `json:"role,omitempty"`
	IsAdmin   bool   `json:"isAdmin,omitempty"`
	Secret    string `json:"secret,omitempty"`
}

type UpdateSettingsMessage struct {
	Type      string              `json:"type"`
	SessionID string              `json:"sessionId"`
	DeviceID  string              `json:"deviceId"`
	Settings  clock.SettingsPatch `json:"settings"`
}

type ClaimDetails struct {
	Position   int    `json:"position"`
	PlayerName string `json:"playerName"`
}

// ActionMessage carries every field any action may need; which ones are
// read depends on Action.
type ActionMessage struct {
	Type      string        `json:"type"`
	SessionID string        `json:"sessionId"`
	Action    string        `json:"action"`
	DeviceID  string        `json:"deviceId"`
	SeatID    string        `json:"seatId,omitempty"`
	Name      string        `json:"name,omitempty"`
	FromIndex *int          `json:"fromIndex,omitempty"`
	ToIndex   *int          `json:"toIndex,omitempty"`
	Position  int           `json:"position,omitempty"`
	Details   *ClaimDetails `json:"details,omitempty"`
}

type StateSnapshot struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	State     clock.State `json:"state"`
}

type ClaimResult struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	Position int    `json:"position,omitempty"`
	Name     string `json:"name,omitempty"`
	SeatID   string `json:"seatId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// decodeAction turns a wire action into its typed form.
func decodeAction(msg ActionMessage) (clock.Action, error) {
	kind, ok := clock.ParseKind(msg.Action)
	if !ok {
		return nil, clock.ErrUnknownAction
	}
	switch kind {
	case clock.KindStart:
		return clock.Start{}, nil
	case clock.KindPause:
		return clock.Pause{}, nil
	case clock.KindReset:
		return clock.Reset{}, nil
	case clock.KindNext:
		return clock.Next{}, nil
	case clock.KindTick:
		return clock.Tick{}, nil
	case clock.KindClaim:
		c := clock.Claim{Position: msg.Position, Name: msg.Name, DeviceID: msg.DeviceID}
		if msg.Details != nil {
			if c.Position == 0 {
				c.Position = msg.Details.Position
			}
			if c.Name == "" {
				c.Name = msg.Details.PlayerName
			}
		}
		return c, nil
	case clock.KindUseTimeBank:
		return clock.UseTimeBank{SeatID: msg.SeatID}, nil
	case clock.KindResetTimer:
		return clock.ResetTimer{SeatID: msg.SeatID}, nil
	case clock.KindSetCurrent:
		return clock.SetCurrent{SeatID: msg.SeatID}, nil
	case clock.KindRename:
		return clock.Rename{SeatID: msg.SeatID, Name: msg.Name}, nil
	case clock.KindMove:
		if msg.FromIndex == nil || msg.ToIndex == nil {
			return nil, clock.ErrInvalidMove
		}
		return clock.Move{From: *msg.FromIndex, To: *msg.ToIndex}, nil
	case clock.KindDeleteSession:
		return clock.DeleteSession{}, nil
	}
	return nil, clock.ErrUnknownAction
}

func encodeSnapshot(sessionID string, st clock.State) ([]byte, error) {
	return json.Marshal(StateSnapshot{Type: TypeStateSnapshot, SessionID: sessionID, State: st})
}
