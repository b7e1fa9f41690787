package testutil

import "shot-clock/internal/clock"

// ThreeSeats is the settings used by most session scenarios.
func ThreeSeats() clock.SettingsPatch {
	return clock.Settings{SeatCount: 3, TimeLimit: 30, MaxTimeBank: 1}.Patch()
}

func Int(v int) *int {
	return &v
}
