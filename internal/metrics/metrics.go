// Package metrics exposes lbwatch's Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "lbwatch"

// Recorder holds the poll cycle metrics on its own registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	notifications *prometheus.CounterVec
	storeErrors   *prometheus.CounterVec
	currentScore  prometheus.Gauge
	storedScore   prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// New creates a Recorder. competition is attached as a constant label.
func New(competition string) *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	labels := prometheus.Labels{"competition": competition}

	r := &Recorder{
		registry: reg,
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cycles_total",
			Help:        "Poll cycles by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "cycle_duration_seconds",
			Help:        "Wall time of one poll cycle.",
			ConstLabels: labels,
			Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "notifications_total",
			Help:        "High score notifications by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "store_errors_total",
			Help:        "Score store failures by operation.",
			ConstLabels: labels,
		}, []string{"op"}),
		currentScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "current_best_score",
			Help:        "Top score seen on the last successful listing.",
			ConstLabels: labels,
		}),
		storedScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "stored_best_score",
			Help:        "Score persisted as the notification baseline.",
			ConstLabels: labels,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_success_timestamp_seconds",
			Help:        "Unix time of the last cycle that read a score.",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(r.cycles, r.cycleDuration, r.notifications, r.storeErrors, r.currentScore, r.storedScore, r.lastSuccess)
	return r
}

// Registry returns the registry backing r.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ObserveCycle(outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.cycles.WithLabelValues(outcome).Inc()
	r.cycleDuration.Observe(took.Seconds())
}

func (r *Recorder) ObserveScores(current float64, stored float64, hasStored bool) {
	if r == nil {
		return
	}
	r.currentScore.Set(current)
	if hasStored {
		r.storedScore.Set(stored)
	}
	r.lastSuccess.SetToCurrentTime()
}

func (r *Recorder) SetStored(v float64) {
	if r == nil {
		return
	}
	r.storedScore.Set(v)
}

func (r *Recorder) ObserveNotification(err error) {
	if r == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	r.notifications.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveStoreError(op string) {
	if r == nil {
		return
	}
	r.storeErrors.WithLabelValues(op).Inc()
}
