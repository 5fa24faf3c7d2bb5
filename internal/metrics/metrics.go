// Package metrics provides Prometheus metrics collection for the churn
// prediction service. It covers uploads, request handling, and model
// inference, exposed via the /metrics endpoint.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Upload metrics
	UploadsTotal  *prometheus.CounterVec // Uploads received, by detected format
	UploadBytes   prometheus.Histogram   // Size of uploaded files
	RowsPredicted prometheus.Counter     // Rows scored across all uploads

	// Request metrics
	RequestDuration *prometheus.HistogramVec // Handler duration by route and status
	ErrorsTotal     *prometheus.CounterVec   // Failed requests by error kind

	// ML and prediction metrics
	MLPredictions      prometheus.Counter   // Total number of rows scored by the model
	MLFailures         prometheus.Counter   // Total number of inference failures
	MLModelAge         prometheus.Gauge     // Age of the loaded artifact in seconds
	MLLatency          prometheus.Histogram // Inference latency in seconds
	MLPredictionScores prometheus.Histogram // Distribution of predicted churn scores
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		UploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "churn_uploads_total",
			Help: "Total number of uploaded files by format",
		}, []string{"format"}),
		UploadBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "churn_upload_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),
		RowsPredicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "churn_rows_predicted_total",
			Help: "Total number of rows returned in prediction tables",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "churn_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "status"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "churn_errors_total",
			Help: "Total number of failed prediction requests by kind",
		}, []string{"kind"}),
		MLPredictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of ML predictions made",
		}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of ML prediction failures",
		}),
		MLModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ml_model_age_seconds",
			Help: "Age of the current ML model in seconds",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "ML prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		MLPredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_prediction_scores",
			Help:    "Distribution of predicted churn scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
}

// ObserveRequest records one handled HTTP request.
func (m *Metrics) ObserveRequest(path string, status int, seconds float64) {
	m.RequestDuration.WithLabelValues(path, strconv.Itoa(status)).Observe(seconds)
}

// ObserveUpload records an accepted upload.
func (m *Metrics) ObserveUpload(format string, size int) {
	m.UploadsTotal.WithLabelValues(format).Inc()
	m.UploadBytes.Observe(float64(size))
}

// RecordError counts a failed prediction request.
func (m *Metrics) RecordError(kind string) {
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}
