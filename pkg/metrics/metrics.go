// Package metrics exposes Prometheus instrumentation for training and classification.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Training
	TrainingDocuments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spamid_training_documents_total",
			Help: "Total number of documents learnt, by class label",
		},
		[]string{"class"},
	)

	TrainingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spamid_training_failures_total",
			Help: "Total number of training attempts that were rolled back",
		},
	)

	VocabularySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spamid_vocabulary_size",
			Help: "Number of distinct words known to the classifier",
		},
	)

	// Classification
	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spamid_classifications_total",
			Help: "Total number of classified documents, by class label",
		},
		[]string{"class"},
	)

	ClassificationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spamid_classification_errors_total",
			Help: "Total number of documents that could not be classified",
		},
	)

	ClassificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "spamid_classification_duration_seconds",
			Help:    "Time spent classifying one document",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8), // 100µs .. ~1.6s
		},
	)

	// Milter
	MilterRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spamid_milter_rejections_total",
			Help: "Total number of messages rejected by the milter",
		},
	)
)

// RecordClassification records one successful classification
func RecordClassification(label string, duration time.Duration) {
	Classifications.WithLabelValues(label).Inc()
	ClassificationDuration.Observe(duration.Seconds())
}

// RecordTraining records a completed training run
func RecordTraining(documents map[string]int, vocabulary int) {
	for label, n := range documents {
		TrainingDocuments.WithLabelValues(label).Add(float64(n))
	}
	VocabularySize.Set(float64(vocabulary))
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
