package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	CasesCreated        prometheus.Counter
	Transitions         *prometheus.CounterVec
	IllegalTransitions  prometheus.Counter
	TransitionConflicts prometheus.Counter
	SLABreaches         *prometheus.CounterVec
	Reminders           prometheus.Counter
	ScanDuration        prometheus.Histogram
	ScanCasesChecked    prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CasesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recoup_cases_created_total",
			Help: "Total number of recovery cases opened from ingested invoices",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recoup_case_transitions_total",
			Help: "Total number of applied case transitions by event",
		}, []string{"event"}),
		IllegalTransitions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recoup_illegal_transitions_total",
			Help: "Total number of rejected transition requests",
		}),
		TransitionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recoup_transition_conflicts_total",
			Help: "Total number of transitions that lost a concurrent-update race",
		}),
		SLABreaches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recoup_sla_breaches_total",
			Help: "Total number of SLA breaches detected by the monitor, by priority",
		}, []string{"priority"}),
		Reminders: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recoup_sla_reminders_total",
			Help: "Total number of weekly touchpoint reminders emitted",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recoup_sla_scan_duration_seconds",
			Help:    "Duration of SLA monitor scans",
			Buckets: prometheus.DefBuckets,
		}),
		ScanCasesChecked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recoup_sla_scan_cases_checked_total",
			Help: "Total number of cases examined by the SLA monitor",
		}),
	}
}
