package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// OptimizeRuns counts per-algorithm outcomes within optimization runs
	OptimizeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "optimize_method_runs_total", Help: "Algorithm outcomes per optimization run."},
		[]string{"method", "outcome"},
	)
	// OptimizeDuration tracks per-algorithm search time in seconds
	OptimizeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "optimize_method_duration_seconds", Help: "Per-algorithm search duration in seconds.", Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}},
		[]string{"method"},
	)
	// ScheduleFitness reports the fitness of the most recent schedule per depot
	ScheduleFitness = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "schedule_fitness", Help: "Scalar fitness of the latest generated schedule."},
		[]string{"depot", "method"},
	)
	// StreamClients gauges connected websocket run-event subscribers
	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "stream_clients", Help: "Connected run-event stream clients."},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(OptimizeRuns)
		Registry.MustRegister(OptimizeDuration)
		Registry.MustRegister(ScheduleFitness)
		Registry.MustRegister(StreamClients)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
