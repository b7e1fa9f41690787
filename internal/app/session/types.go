package session

import (
	"time"

	"shot-clock/internal/clock"
)

type ClaimPolicy string

const (
	// ClaimsRetain keeps device claim records across a settings rebuild even
	// though the rebuilt seats are unclaimed.
	ClaimsRetain ClaimPolicy = "retain"
	// ClaimsRelease drops the session's claim records on a settings rebuild.
	ClaimsRelease ClaimPolicy = "release"
)

func ParseClaimPolicy(v string) (ClaimPolicy, bool) {
	switch p := ClaimPolicy(v); p {
	case ClaimsRetain, ClaimsRelease:
		return p, true
	case "":
		return ClaimsRetain, true
	}
	return "", false
}

type Options struct {
	Defaults         clock.Settings
	ClaimPolicy      ClaimPolicy
	ServerClock      bool
	EnforcePrivilege bool
}

// Broadcaster pushes state to every connection watching a session.
type Broadcaster interface {
	Broadcast(sessionID string, st clock.State)
	CloseRoom(sessionID string)
}

// Actor identifies who issued an action.
type Actor struct {
	DeviceID   string
	Privileged bool
	system     bool
}

var systemActor = Actor{DeviceID: "system", Privileged: true, system: true}

type CreateRequest struct {
	ID       string              `json:"id"`
	Settings clock.SettingsPatch `json:"settings"`
	Secret   string              `json:"secret,omitempty"`
}

type CreateResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

type JoinRequest struct {
	DeviceID string `json:"deviceId"`
	Secret   string `json:"secret,omitempty"`
}

type ClaimedSeat struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Name     string `json:"name"`
}

type JoinResponse struct {
	ID           string       `json:"id"`
	DeviceID     string       `json:"deviceId"`
	IsPrivileged bool         `json:"isPrivileged"`
	HasSecret    bool         `json:"hasSecret"`
	ClaimedSeat  *ClaimedSeat `json:"claimedSeat,omitempty"`
}

type SessionView struct {
	ID          string         `json:"id"`
	Settings    clock.Settings `json:"settings"`
	HasSecret   bool           `json:"hasSecret"`
	State       clock.State    `json:"state"`
	CreatedAt   time.Time      `json:"createdAt"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

type SessionSummary struct {
	ID          string    `json:"id"`
	Seats       int       `json:"seats"`
	Claimed     int       `json:"claimed"`
	Running     bool      `json:"running"`
	Paused      bool      `json:"paused"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ActionResult is the outcome of an applied action. Claim is set only for
// a successful CLAIM.
type ActionResult struct {
	State clock.State
	Claim *ClaimedSeat
}
