package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "selfquery_http_request_duration_seconds",
		Help: "Latency of HTTP requests served by the self-query engine.",
	}, []string{"path", "status"})

	// IterationsUsed and StopReasons are updated by the engine wiring
	// after each Process call completes, not by this middleware.
	IterationsUsed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "selfquery_iterations_used",
		Help:    "Number of iterations the retrieval loop used before stopping.",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})
	StopReasons = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "selfquery_stop_reason_total",
		Help: "Count of retrieval loops by stop reason.",
	}, []string{"reason"})
	QueriesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "selfquery_query_rejected_total",
		Help: "Count of SPARQL candidates rejected by validation.",
	})
)

// Metrics records request latency per path/status.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		requestDuration.WithLabelValues(r.URL.Path, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}
