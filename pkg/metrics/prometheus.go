package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	batchesTotal    prometheus.Counter
	batchAssets     prometheus.Histogram
	invalidPrices   prometheus.Counter
	batchesSkipped  *prometheus.CounterVec
	fundsValued     *prometheus.CounterVec
	networkGav      prometheus.Gauge
	networkGavValid prometheus.Gauge
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		batchesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fundpulse_price_batches_total",
				Help: "Total number of accepted price batches",
			},
		),
		batchAssets: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fundpulse_price_batch_assets",
				Help:    "Number of known assets priced per batch",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		invalidPrices: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fundpulse_invalid_prices_total",
				Help: "Total number of prices invalidated by the source",
			},
		),
		batchesSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundpulse_price_batches_skipped_total",
				Help: "Price batches skipped before fund valuation",
			},
			[]string{"reason"},
		),
		fundsValued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundpulse_funds_valued_total",
				Help: "Funds processed per validity outcome",
			},
			[]string{"valid"},
		),
		networkGav: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundpulse_network_gav",
				Help: "Latest network-wide GAV (approximate float)",
			},
		),
		networkGavValid: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundpulse_network_gav_valid",
				Help: "1 if the latest network GAV covered every fund",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordBatch records an accepted price batch.
func (r *Recorder) RecordBatch(assets, invalidPrices int) {
	r.batchesTotal.Inc()
	r.batchAssets.Observe(float64(assets))
	r.invalidPrices.Add(float64(invalidPrices))
}

// RecordBatchSkipped records a batch that stopped before fund valuation.
func (r *Recorder) RecordBatchSkipped(reason string) {
	r.batchesSkipped.WithLabelValues(reason).Inc()
}

// RecordFundValued records one fund's validity outcome.
func (r *Recorder) RecordFundValued(valid bool) {
	r.fundsValued.WithLabelValues(boolLabel(valid)).Inc()
}

// RecordNetworkGav records the batch's network GAV.
func (r *Recorder) RecordNetworkGav(gav float64, valid bool) {
	r.networkGav.Set(gav)
	if valid {
		r.networkGavValid.Set(1)
	} else {
		r.networkGavValid.Set(0)
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
