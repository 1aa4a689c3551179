// Package metrics records launcher activity in a private Prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for one launcher process.
type Metrics struct {
	registry *prometheus.Registry

	// Pump metrics
	BytesTransferred *prometheus.CounterVec
	Transfers        *prometheus.CounterVec
	TransferErrors   *prometheus.CounterVec

	// Launch metrics
	Launches       *prometheus.CounterVec
	ChildExitCode  prometheus.Gauge
	LaunchDuration prometheus.Histogram
}

// New creates a metrics collector with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		BytesTransferred: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_bytes_transferred_total",
				Help: "Total bytes moved from a child stream into its output file",
			},
			[]string{"stream"},
		),
		Transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_transfers_total",
				Help: "Total successful transfer calls per stream",
			},
			[]string{"stream"},
		),
		TransferErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_transfer_errors_total",
				Help: "Total failed transfer calls per stream",
			},
			[]string{"stream"},
		),
		Launches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_launches_total",
				Help: "Total launches by outcome",
			},
			[]string{"outcome"},
		),
		ChildExitCode: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_child_exit_code",
				Help: "Exit code returned by the most recent launch",
			},
		),
		LaunchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "launcher_launch_duration_seconds",
				Help:    "Wall time from launch start to pumps joined",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
	}

	m.registry.MustRegister(
		m.BytesTransferred,
		m.Transfers,
		m.TransferErrors,
		m.Launches,
		m.ChildExitCode,
		m.LaunchDuration,
	)
	return m
}

// ObserveTransfer records one successful transfer of n bytes.
func (m *Metrics) ObserveTransfer(stream string, n int) {
	m.Transfers.WithLabelValues(stream).Inc()
	m.BytesTransferred.WithLabelValues(stream).Add(float64(n))
}

// ObserveTransferError records one failed transfer.
func (m *Metrics) ObserveTransferError(stream string) {
	m.TransferErrors.WithLabelValues(stream).Inc()
}

// ObserveLaunch records the outcome of a finished launch.
func (m *Metrics) ObserveLaunch(outcome string, exitCode int, duration time.Duration) {
	m.Launches.WithLabelValues(outcome).Inc()
	m.ChildExitCode.Set(float64(exitCode))
	m.LaunchDuration.Observe(duration.Seconds())
}

// WriteTextfile writes all metrics in the node-exporter textfile format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
