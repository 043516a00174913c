package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes instrumentation for the billing and delivery pipeline.
type Metrics struct {
	jobRuns      *prometheus.CounterVec
	jobErrors    *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	deliveries   *prometheus.CounterVec
	renewals     prometheus.Counter
	renewalFails prometheus.Counter
	queueDepth   *prometheus.GaugeVec
}

// New registers pipeline metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers pipeline metrics on the given registerer.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		jobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subtrack_job_runs_total",
			Help: "Job executions by job type.",
		}, []string{"job"}),
		jobErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subtrack_job_errors_total",
			Help: "Job failures by job type and reason.",
		}, []string{"job", "reason"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subtrack_job_duration_seconds",
			Help:    "Job execution duration by job type.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "subtrack_webhook_deliveries_total",
			Help: "Webhook delivery attempts by outcome.",
		}, []string{"outcome"}),
		renewals: factory.NewCounter(prometheus.CounterOpts{
			Name: "subtrack_billing_renewals_total",
			Help: "Subscriptions successfully renewed.",
		}),
		renewalFails: factory.NewCounter(prometheus.CounterOpts{
			Name: "subtrack_billing_renewal_failures_total",
			Help: "Per-subscription renewal failures.",
		}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "subtrack_queue_depth",
			Help: "Jobs waiting per queue.",
		}, []string{"queue"}),
	}
}

func (m *Metrics) IncJobRun(job string) {
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *Metrics) IncJobError(job, reason string) {
	m.jobErrors.WithLabelValues(job, reason).Inc()
}

func (m *Metrics) ObserveJobDuration(job string, seconds float64) {
	m.jobDuration.WithLabelValues(job).Observe(seconds)
}

func (m *Metrics) IncDelivery(outcome string) {
	m.deliveries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncRenewal() {
	m.renewals.Inc()
}

func (m *Metrics) IncRenewalFailure() {
	m.renewalFails.Inc()
}

func (m *Metrics) SetQueueDepth(queue string, depth float64) {
	m.queueDepth.WithLabelValues(queue).Set(depth)
}
