package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chirp_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// RankingCandidates records the candidate pool size per ranking request.
	RankingCandidates = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chirp_ranking_candidates",
		Help:    "Candidate pool size per ranking request",
		Buckets: []float64{0, 10, 25, 50, 100, 200},
	}, []string{"kind"})

	// RankingFallbacks counts ranking requests that hit the recency fallback.
	RankingFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_ranking_fallbacks_total",
		Help: "Ranking requests served by the recency fallback",
	}, []string{"kind"})

	// EngagementRefreshes counts background engagement score recomputes by outcome.
	EngagementRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_engagement_refresh_total",
		Help: "Background engagement score refreshes by outcome",
	}, []string{"outcome"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chirp_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// NotificationsDelivered counts real-time notifications pushed to clients.
	NotificationsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_notifications_delivered_total",
		Help: "Real-time notifications delivered by type",
	}, []string{"type"})

	// WebSocketBackpressureDrops counts messages dropped because a client's
	// send buffer was full or closed.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_websocket_backpressure_drops_total",
		Help: "WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
