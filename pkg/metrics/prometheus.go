package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fusionrisk"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	invocations     *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	riskEvents      *prometheus.CounterVec
	syncResults     *prometheus.CounterVec
	recordsIngested prometheus.Counter
}

// New creates a recorder registered on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "invocations_total",
				Help:      "Pipeline function invocations by outcome",
			},
			[]string{"function", "outcome"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		riskEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "risk",
				Name:      "events_total",
				Help:      "Risk events persisted by category and action",
			},
			[]string{"risk_category", "action"},
		),
		syncResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reinforcement",
				Name:      "sync_total",
				Help:      "Reinforcement sync calls by action and result",
			},
			[]string{"action", "result"},
		),
		recordsIngested: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "records_total",
				Help:      "Metric records appended through the ingest path",
			},
		),
	}
}

// RecordInvocation counts one pipeline function call.
func (r *Recorder) RecordInvocation(function, outcome string) {
	r.invocations.WithLabelValues(function, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordRiskEvent(category, action string) {
	r.riskEvents.WithLabelValues(category, action).Inc()
}

func (r *Recorder) RecordSync(action string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	r.syncResults.WithLabelValues(action, result).Inc()
}

func (r *Recorder) RecordIngested(n int) {
	r.recordsIngested.Add(float64(n))
}
