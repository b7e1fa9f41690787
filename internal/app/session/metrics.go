package session

import "expvar"

var (
	metricSessionsCreated  = expvar.NewInt("sessions_created_total")
	metricSessionsDeleted  = expvar.NewInt("sessions_deleted_total")
	metricSessionsEvicted  = expvar.NewInt("sessions_evicted_total")
	metricActionsApplied   = expvar.NewInt("actions_applied_total")
	metricActionsRejected  = expvar.NewInt("actions_rejected_total")
	metricClaimsRejected   = expvar.NewInt("claims_rejected_total")
	metricSettingsUpdates  = expvar.NewInt("settings_updates_total")
	metricServerClockTicks = expvar.NewInt("server_clock_ticks_total")
)
