package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ProbeRuns counts collector probe executions by outcome
	ProbeRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deviceinfo_probe_runs_total",
			Help: "Total number of device probe runs",
		},
		[]string{"probe", "status"},
	)

	// BridgeCalls counts bridge invocations per transport (http, ws)
	BridgeCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_calls_total",
			Help: "Total number of bridge calls",
		},
		[]string{"transport", "method"},
	)

	// BridgeCallDuration measures how long a snapshot takes to produce
	BridgeCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_call_duration_seconds",
			Help:    "Duration of bridge calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport"},
	)
)

// Register adds all collectors to reg
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{ProbeRuns, BridgeCalls, BridgeCallDuration} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler exposes the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveProbe records one probe outcome; it matches the collector probe hook
func ObserveProbe(probe string, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	ProbeRuns.WithLabelValues(probe, status).Inc()
}

// ObserveBridgeCall records a bridge call that started at start
func ObserveBridgeCall(transport, method string, start time.Time) {
	BridgeCalls.WithLabelValues(transport, method).Inc()
	BridgeCallDuration.WithLabelValues(transport).Observe(time.Since(start).Seconds())
}
