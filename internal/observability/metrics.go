// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolmates_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// CacheLookups counts cache-aside lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolmates_cache_lookups_total",
		Help: "Cache-aside lookups by result",
	}, []string{"result"})

	// WebSocketConnections is the gauge of open realtime connections on this instance.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "schoolmates_websocket_connections",
		Help: "Number of open realtime connections",
	})

	// OnlineUsers is the gauge of users holding a presence slot on this instance.
	OnlineUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "schoolmates_online_users",
		Help: "Number of users with an active realtime connection",
	})

	// WebSocketEvents counts realtime events by direction and type.
	WebSocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolmates_websocket_events_total",
		Help: "Realtime events by direction (in, out) and type",
	}, []string{"direction", "event_type"})

	// WebSocketBackpressureDrops counts outbound frames dropped by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolmates_websocket_backpressure_drops_total",
		Help: "Outbound realtime frames dropped due to backpressure",
	}, []string{"reason"})

	// MessagesPosted counts chat messages persisted.
	MessagesPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schoolmates_messages_posted_total",
		Help: "Total chat messages posted",
	})

	// FriendRequestTransitions counts friend-request state transitions.
	FriendRequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schoolmates_friend_request_transitions_total",
		Help: "Friend request transitions by outcome (sent, accepted, rejected)",
	}, []string{"outcome"})
)
