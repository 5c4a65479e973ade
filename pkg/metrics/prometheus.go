package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	snapshotsStored  *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	spotPrice        *prometheus.GaugeVec
	blastProbability *prometheus.GaugeVec
	signalsTotal     *prometheus.CounterVec
	latency          *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		snapshotsStored: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gammapulse_snapshots_stored_total",
				Help: "Total number of option chain snapshots stored per backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gammapulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		spotPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gammapulse_spot_price",
				Help: "Last observed spot price for a symbol",
			},
			[]string{"symbol"},
		),
		blastProbability: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gammapulse_blast_probability",
				Help: "Latest blast probability per symbol",
			},
			[]string{"symbol"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gammapulse_signals_total",
				Help: "Signals emitted by confidence level",
			},
			[]string{"symbol", "confidence"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gammapulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSnapshotStored records a snapshot written to a backend.
func (r *Recorder) RecordSnapshotStored(backend, symbol string) {
	r.snapshotsStored.WithLabelValues(backend, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSpotPrice records the last spot price for a symbol.
func (r *Recorder) RecordSpotPrice(symbol string, price float64) {
	r.spotPrice.WithLabelValues(symbol).Set(price)
}

// RecordBlastProbability records the latest detector output for a symbol.
func (r *Recorder) RecordBlastProbability(symbol string, probability float64) {
	r.blastProbability.WithLabelValues(symbol).Set(probability)
}

// RecordSignal counts an emitted signal by confidence level.
func (r *Recorder) RecordSignal(symbol, confidence string) {
	r.signalsTotal.WithLabelValues(symbol, confidence).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
