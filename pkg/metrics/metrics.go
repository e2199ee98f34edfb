package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "signvideo"

type Metrics struct {
	Requests       *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	DroppedWords   prometheus.Counter
	MissingLetters prometheus.Counter
	OrphansRemoved prometheus.Counter
}

// New creates the service metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Sign video requests by outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		DroppedWords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "dropped_words_total",
			Help:      "Transcript words left out because neither the word nor any of its letters has a clip.",
		}),
		MissingLetters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "missing_letters_total",
			Help:      "Letters skipped while spelling a word.",
		}),
		OrphansRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "orphans_removed_total",
			Help:      "Uploaded objects removed because no record references them.",
		}),
	}

	reg.MustRegister(m.Requests, m.StageDuration, m.DroppedWords, m.MissingLetters, m.OrphansRemoved)

	return m
}
