package observability

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Labels: outcome (created, duplicate, blocked, self, error)
	matchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studysync",
		Subsystem: "matching",
		Name:      "match_requests_total",
		Help:      "Match requests by outcome",
	}, []string{"outcome"})

	// Labels: status (accepted, rejected, expired)
	matchTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studysync",
		Subsystem: "matching",
		Name:      "match_transitions_total",
		Help:      "Match state transitions by target status",
	}, []string{"status"})

	degradedScoresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studysync",
		Subsystem: "matching",
		Name:      "degraded_scores_total",
		Help:      "Pairs scored as degraded because a profile failed validation",
	})

	scoringLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "studysync",
		Subsystem: "matching",
		Name:      "scoring_latency_seconds",
		Help:      "Time spent scoring one batch of candidates",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	suggestionCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "studysync",
		Subsystem: "matching",
		Name:      "suggestion_candidates",
		Help:      "Candidates retrieved per suggestion request before ranking",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
	})

	// Labels: result (hit, miss)
	suggestionCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studysync",
		Subsystem: "matching",
		Name:      "suggestion_cache_total",
		Help:      "Suggestion cache lookups by result",
	}, []string{"result"})

	// Labels: result (ok, skipped, lock_error, error)
	sweepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studysync",
		Subsystem: "sweeper",
		Name:      "runs_total",
		Help:      "Expiry sweep runs by result",
	}, []string{"result"})

	ratingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "studysync",
		Subsystem: "reputation",
		Name:      "ratings_total",
		Help:      "Ratings applied to student reputation",
	})

	// Labels: event (match_created, match_accepted, match_declined), result (delivered, failed)
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "studysync",
		Subsystem: "events",
		Name:      "notifications_total",
		Help:      "Match event notifications by event and result",
	}, []string{"event", "result"})

	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "studysync",
		Subsystem: "ws",
		Name:      "connections",
		Help:      "Open websocket connections",
	})

	dbPoolAcquired = newPoolGauge("acquired_conns", "Connections currently checked out of the pool", 0)
	dbPoolIdle     = newPoolGauge("idle_conns", "Idle connections held by the pool", 1)
	dbPoolTotal    = newPoolGauge("total_conns", "All connections held by the pool", 2)
)

type PoolStatsFunc func() (acquired, idle, total int32)

var poolStats atomic.Pointer[PoolStatsFunc]

func newPoolGauge(name, help string, idx int) prometheus.GaugeFunc {
	return promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "studysync",
		Subsystem: "db_pool",
		Name:      name,
		Help:      help,
	}, func() float64 {
		fn := poolStats.Load()
		if fn == nil || *fn == nil {
			return 0
		}
		a, i, t := (*fn)()
		return float64([3]int32{a, i, t}[idx])
	})
}

// SetPoolStats points the db_pool gauges at fn. The last call wins.
func SetPoolStats(fn PoolStatsFunc) {
	poolStats.Store(&fn)
}

func RecordMatchRequest(outcome string) {
	matchRequestsTotal.WithLabelValues(outcome).Inc()
}

func RecordTransition(status string, n int64) {
	if n <= 0 {
		return
	}
	matchTransitionsTotal.WithLabelValues(status).Add(float64(n))
}

func RecordScoring(d time.Duration, candidates, degraded int) {
	scoringLatencySeconds.Observe(d.Seconds())
	suggestionCandidates.Observe(float64(candidates))
	RecordDegraded(degraded)
}

// RecordDegraded counts pairs scored without a usable profile, outside a
// suggestion batch.
func RecordDegraded(n int) {
	if n > 0 {
		degradedScoresTotal.Add(float64(n))
	}
}

func RecordSuggestionCache(hit bool) {
	if hit {
		suggestionCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	suggestionCacheTotal.WithLabelValues("miss").Inc()
}

func RecordSweep(result string, expired int64) {
	sweepRunsTotal.WithLabelValues(result).Inc()
	RecordTransition("expired", expired)
}

func RecordRating() {
	ratingsTotal.Inc()
}

func RecordNotification(event string, err error) {
	if err != nil {
		notificationsTotal.WithLabelValues(event, "failed").Inc()
		return
	}
	notificationsTotal.WithLabelValues(event, "delivered").Inc()
}

func WSConnected()    { wsConnections.Inc() }
func WSDisconnected() { wsConnections.Dec() }
