package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	botStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "botherd",
			Subsystem: "bot",
			Name:      "starts_total",
			Help:      "Number of successful bot process starts.",
		},
	)
	botStops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "botherd",
			Subsystem: "bot",
			Name:      "stops_total",
			Help:      "Number of observed bot process exits (forced or natural).",
		},
	)
	botRestarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "botherd",
			Subsystem: "bot",
			Name:      "restarts_total",
			Help:      "Number of restart operations performed.",
		},
	)
	spawnFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "botherd",
			Subsystem: "bot",
			Name:      "spawn_failures_total",
			Help:      "Number of bot process spawn attempts that failed.",
		},
	)
	outputLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "botherd",
			Subsystem: "output",
			Name:      "lines_total",
			Help:      "Captured output lines by stream.",
		}, []string{"stream"},
	)
	filteredLines = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "botherd",
			Subsystem: "output",
			Name:      "filtered_lines_total",
			Help:      "Output lines dropped by the noise denylist.",
		},
	)
	ipcRestartRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "botherd",
			Subsystem: "ipc",
			Name:      "restart_requests_total",
			Help:      "Restart requests accepted on the loopback listener.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		botStarts, botStops, botRestarts, spawnFailures,
		outputLines, filteredLines, ipcRestartRequests,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler exposes the default registry over HTTP.
func Handler() http.Handler { return promhttp.Handler() }

func IncStart()        { botStarts.Inc() }
func IncStop()         { botStops.Inc() }
func IncRestart()      { botRestarts.Inc() }
func IncSpawnFailure() { spawnFailures.Inc() }

func IncLine(stream string)   { outputLines.WithLabelValues(stream).Inc() }
func IncFiltered()            { filteredLines.Inc() }
func IncIPCRestartRequested() { ipcRestartRequests.Inc() }
