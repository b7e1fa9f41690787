package ws

import "expvar"

var (
	metricConnectionsTotal  = expvar.NewInt("ws_connections_total")
	metricConnectionsActive = expvar.NewInt("ws_connections_active")
	metricBroadcastsTotal   = expvar.NewInt("ws_broadcasts_total")
	metricSlowConsumers     = expvar.NewInt("ws_slow_consumers_dropped_total")
	metricRateLimited       = expvar.NewInt("ws_messages_rate_limited_total")
	metricBadMessages       = expvar.NewInt("ws_messages_invalid_total")
)
