// Package metrics provides Prometheus collectors for the record store and the
// prediction engine. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricPredictionsTotal       = "predictions_total"
	MetricPredictionErrorsTotal  = "prediction_errors_total"
	MetricPredictionResults      = "prediction_results"
	MetricPredictionStageResults = "prediction_stage_results_total"
	MetricPredictionDuration     = "prediction_duration_seconds"
	MetricStoreLoadDuration      = "store_load_duration_seconds"
	MetricStoreRecords           = "store_records"
	MetricStoreFilesFailed       = "store_files_failed_total"
)

// Metrics contains Prometheus metrics for the engine.
// All operations are thread-safe.
type Metrics struct {
	predictionsTotal   *prometheus.CounterVec
	predictionErrors   *prometheus.CounterVec
	predictionResults  *prometheus.HistogramVec
	stageResults       *prometheus.CounterVec
	predictionDuration *prometheus.HistogramVec
	storeLoadDuration  *prometheus.HistogramVec
	storeRecords       *prometheus.GaugeVec
	storeFilesFailed   *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		predictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPredictionsTotal,
				Help: "Total number of prediction queries served by exam",
			},
			[]string{"exam"},
		),
		predictionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPredictionErrorsTotal,
				Help: "Total number of rejected prediction queries by reason",
			},
			[]string{"reason"},
		),
		predictionResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricPredictionResults,
				Help:    "Number of predictions returned per query",
				Buckets: []float64{0, 1, 10, 50, 100, 300, 1000},
			},
			[]string{"exam"},
		),
		stageResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPredictionStageResults,
				Help: "Total predictions accepted per relaxation stage",
			},
			[]string{"stage"},
		),
		predictionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricPredictionDuration,
				Help:    "Prediction latency in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"exam"},
		),
		storeLoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricStoreLoadDuration,
				Help:    "Time spent loading a record store tier",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"exam", "tier"},
		),
		storeRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricStoreRecords,
				Help: "Number of cutoff records held per exam",
			},
			[]string{"exam"},
		),
		storeFilesFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricStoreFilesFailed,
				Help: "Source files that could not be loaded",
			},
			[]string{"exam"},
		),
	}
}

// Register registers all metrics with the provided registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.predictionsTotal,
		m.predictionErrors,
		m.predictionResults,
		m.stageResults,
		m.predictionDuration,
		m.storeLoadDuration,
		m.storeRecords,
		m.storeFilesFailed,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObservePrediction records one successful prediction.
func (m *Metrics) ObservePrediction(exam string, results int, d time.Duration) {
	if m == nil {
		return
	}
	m.predictionsTotal.WithLabelValues(exam).Inc()
	m.predictionResults.WithLabelValues(exam).Observe(float64(results))
	m.predictionDuration.WithLabelValues(exam).Observe(d.Seconds())
}

// ObserveStage records how many predictions a relaxation stage contributed.
func (m *Metrics) ObserveStage(stage string, accepted int) {
	if m == nil || accepted == 0 {
		return
	}
	m.stageResults.WithLabelValues(stage).Add(float64(accepted))
}

// ObserveError records a rejected query.
func (m *Metrics) ObserveError(reason string) {
	if m == nil {
		return
	}
	m.predictionErrors.WithLabelValues(reason).Inc()
}

// ObserveLoad records a tier load.
func (m *Metrics) ObserveLoad(exam, tier string, records, failedFiles int, d time.Duration) {
	if m == nil {
		return
	}
	m.storeLoadDuration.WithLabelValues(exam, tier).Observe(d.Seconds())
	m.storeRecords.WithLabelValues(exam).Set(float64(records))
	if failedFiles > 0 {
		m.storeFilesFailed.WithLabelValues(exam).Add(float64(failedFiles))
	}
}
