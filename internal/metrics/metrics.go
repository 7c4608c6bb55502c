// Package metrics exposes Prometheus collectors for pipeline depth and
// error classification: a handful of package-level collectors built with
// promauto, read and mutated through small Set/Inc helpers so call sites
// never touch the prometheus API directly.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error label constants, one per error kind in the façade's error design.
// Stable values bound the cardinality of the errors_total vector.
const (
	ErrConnectionFailed    = "connection_failed"
	ErrSendRequest         = "send_request"
	ErrInternalCoordinator = "internal_coordinator"
	ErrTimeout             = "timeout"
	ErrResponseDropped     = "response_dropped"
	ErrResponseError       = "response_error"
	ErrOAuth2              = "oauth2"
	ErrConfigFailed        = "config_failed"
)

var allErrorKinds = []string{
	ErrConnectionFailed,
	ErrSendRequest,
	ErrInternalCoordinator,
	ErrTimeout,
	ErrResponseDropped,
	ErrResponseError,
	ErrOAuth2,
	ErrConfigFailed,
}

var (
	// PendingTableSize tracks the number of in-flight requests awaiting
	// a reply, i.e. internal/pending.Table.Len().
	PendingTableSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dgrpc_pending_table_size",
		Help: "Number of requests currently awaiting a correlated response.",
	})

	// EventQueueDepth tracks how many decoded push events are buffered
	// in the façade's event queue.
	EventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dgrpc_event_queue_depth",
		Help: "Number of events buffered in the event queue.",
	})

	// SerdePoolQueueDepth tracks jobs queued (not yet running) in each
	// serialization worker pool, labeled by pool name ("encode"/"decode").
	SerdePoolQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dgrpc_serde_pool_queue_depth",
		Help: "Jobs queued awaiting a free worker in a serialization pool.",
	}, []string{"pool"})

	// SerdePoolInFlight tracks jobs currently executing in each
	// serialization worker pool.
	SerdePoolInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dgrpc_serde_pool_in_flight",
		Help: "Jobs currently executing in a serialization pool.",
	}, []string{"pool"})

	// Errors counts failures by error kind, one label value per kind
	// listed in the façade's error handling design.
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dgrpc_errors_total",
		Help: "Errors observed, by kind.",
	}, []string{"kind"})

	// EventsDelivered counts events successfully placed on the event
	// queue, in arrival order, distinct from Errors so a bounded queue
	// that is merely full (blocked, not dropped) never inflates it.
	EventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dgrpc_events_delivered_total",
		Help: "Events successfully delivered to the event queue.",
	})

	// RequestsCompleted counts requests that received a reply
	// (response or error response), labeled by cmd. Timeouts are not
	// counted here.
	RequestsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dgrpc_requests_completed_total",
		Help: "Requests completed, by command.",
	}, []string{"cmd"})
)

func init() {
	// Pre-register every error label series so the first occurrence of
	// each kind does not pay a registration-latency surprise on a
	// dashboard rate() query.
	for _, kind := range allErrorKinds {
		Errors.WithLabelValues(kind).Add(0)
	}
	for _, pool := range []string{"encode", "decode"} {
		SerdePoolQueueDepth.WithLabelValues(pool).Set(0)
		SerdePoolInFlight.WithLabelValues(pool).Set(0)
	}
}

// IncError increments the errors_total counter for kind.
func IncError(kind string) {
	Errors.WithLabelValues(kind).Inc()
}

// SetPendingTableSize records the current pending-table length.
func SetPendingTableSize(n int) {
	PendingTableSize.Set(float64(n))
}

// SetEventQueueDepth records the current event-queue buffer length.
func SetEventQueueDepth(n int) {
	EventQueueDepth.Set(float64(n))
}

// SetSerdePoolDepth records queued and in-flight job counts for the
// named pool ("encode" or "decode").
func SetSerdePoolDepth(pool string, queued, inFlight int) {
	SerdePoolQueueDepth.WithLabelValues(pool).Set(float64(queued))
	SerdePoolInFlight.WithLabelValues(pool).Set(float64(inFlight))
}

// IncEventDelivered increments the events-delivered counter.
func IncEventDelivered() {
	EventsDelivered.Inc()
}

// IncRequestCompleted increments the requests-completed counter for cmd.
func IncRequestCompleted(cmd string) {
	RequestsCompleted.WithLabelValues(cmd).Inc()
}

// Handler returns the promhttp handler for mounting at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
