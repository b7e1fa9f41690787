package httptransport

import "expvar"

var (
	metricSessionCreateTotal  = expvar.NewInt("http_session_create_total")
	metricSessionCreateErrors = expvar.NewInt("http_session_create_errors_total")
	metricSessionJoinTotal    = expvar.NewInt("http_session_join_total")
	metricSessionDeleteTotal  = expvar.NewInt("http_session_delete_total")
	metricUnauthorizedTotal   = expvar.NewInt("http_unauthorized_total")
)
