package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	// ---- Simulation ----
	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ringsim",
			Name:      "messages_sent_total",
			Help:      "Messages accepted by the transport, by message kind.",
		},
		[]string{"kind"},
	)

	MessagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ringsim",
			Name:      "messages_dropped_total",
			Help:      "Messages dropped before reaching their final recipient, by reason.",
		},
		[]string{"reason"},
	)

	Relayed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ringsim",
			Name:      "routable_relayed_total",
			Help:      "Routable messages forwarded one hop toward their recipient.",
		},
	)

	Delivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ringsim",
			Name:      "routable_delivered_total",
			Help:      "Routable messages that reached their final recipient.",
		},
	)

	Rounds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ringsim",
			Name:      "lockstep_rounds_total",
			Help:      "Completed lock-step round barriers.",
		},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ringsim",
			Name:      "runs_total",
			Help:      "Simulation runs, by algorithm and outcome.",
		},
		[]string{"algorithm", "outcome"},
	)

	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ringsim",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of simulation runs.",
			// 100µs .. ~3s
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
		[]string{"algorithm"},
	)

	// ---- HTTP ----
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ringsim",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"op", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ringsim",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 13),
		},
		[]string{"op"},
	)

	InFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ringsim",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
		[]string{"op"},
	)

	// ---- Process / build info ----
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ringsim",
			Name:      "build_info",
			Help:      "Build info (constant 1, labeled by version and git_sha).",
		},
		[]string{"version", "git_sha"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "ringsim",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(
		MessagesSent, MessagesDropped, Relayed, Delivered, Rounds, RunsTotal, RunDuration,
		RequestsTotal, RequestDuration, InFlight, buildInfo, uptime,
	)
}

// MetricsHandler exposes /metrics. Mount it with mux.Handle("/metrics", telemetry.MetricsHandler()).
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetBuildInfo should be called once at startup, e.g. with ldflags-provided values.
func SetBuildInfo(version, gitSHA string) {
	buildInfo.WithLabelValues(version, gitSHA).Set(1)
}

// ObserveRun records the outcome and duration of one simulation run.
func ObserveRun(algorithm string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RunsTotal.WithLabelValues(algorithm, outcome).Inc()
	RunDuration.WithLabelValues(algorithm).Observe(d.Seconds())
}

// ---- Middleware instrumentation ----

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Instrument wraps an http.Handler to record metrics under the provided "op" label.
// Example:
//
//	mux.Handle("GET /runs/{id}", telemetry.Instrument("get_run", http.HandlerFunc(s.GetRun)))
func Instrument(op string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 200}
		start := time.Now()

		InFlight.WithLabelValues(op).Inc()
		defer InFlight.WithLabelValues(op).Dec()

		next.ServeHTTP(sw, r)

		class := strconv.Itoa(sw.status/100) + "xx"
		RequestsTotal.WithLabelValues(op, class).Inc()
		RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	})
}
