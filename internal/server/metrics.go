package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors the job server updates.
type Metrics struct {
	jobs          *prometheus.CounterVec
	running       prometheus.Gauge
	duration      prometheus.Histogram
	minDistance   prometheus.Gauge
	acceptedMoves prometheus.Counter
}

// NewMetrics registers the job collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "distinct",
			Name:      "jobs_total",
			Help:      "Palette jobs by final status.",
		}, []string{"status"}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "distinct",
			Name:      "jobs_running",
			Help:      "Palette jobs currently annealing.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "distinct",
			Name:      "job_duration_seconds",
			Help:      "Wall time of finished palette jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		minDistance: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "distinct",
			Name:      "last_min_distance",
			Help:      "Closest-pair distance of the most recent completed palette.",
		}),
		acceptedMoves: f.NewCounter(prometheus.CounterOpts{
			Namespace: "distinct",
			Name:      "accepted_moves_total",
			Help:      "Annealing moves accepted across all completed jobs.",
		}),
	}
}

func (m *Metrics) jobStarted() {
	m.running.Inc()
}

func (m *Metrics) jobFinished(j *Job) {
	m.running.Dec()
	m.jobs.WithLabelValues(string(j.Status)).Inc()
	if j.EndTime != nil {
		m.duration.Observe(j.EndTime.Sub(j.StartTime).Seconds())
	}
	if j.Result != nil {
		m.minDistance.Set(j.Result.Statistics.Min)
		m.acceptedMoves.Add(float64(j.Result.Accepted))
	}
}
