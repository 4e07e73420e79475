package common

import "github.com/prometheus/client_golang/prometheus"

const (
	HTTPRequestTotal           = "http_requests_total"
	HTTPRequestDurationSeconds = "http_request_duration_seconds"
	SpinTotal                  = "lottery_spins_total"
	EntryGrantedTotal          = "lottery_entries_granted_total"
	DrawTransitionTotal        = "lottery_draw_transitions_total"
	AuditWriteFailure          = "lottery_audit_write_failures_total"
	EventPublishFailure        = "lottery_event_publish_failures_total"
)

var (
	PromCounters = map[string]*prometheus.CounterVec{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: HTTPRequestTotal,
			Help: "Count of all HTTP requests",
		}, []string{"path", "status_code"}),
		SpinTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: SpinTotal,
			Help: "Count of resolved spins",
		}, []string{"tier", "outcome"}),
		EntryGrantedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: EntryGrantedTotal,
			Help: "Sum of granted entry quantities",
		}, []string{"category", "source"}),
		DrawTransitionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: DrawTransitionTotal,
			Help: "Count of draw status transitions",
		}, []string{"status"}),
		AuditWriteFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: AuditWriteFailure,
			Help: "Count of audit events that could not be written",
		}, []string{"entity_type"}),
		EventPublishFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: EventPublishFailure,
			Help: "Count of draw events that could not be published",
		}, []string{"event"}),
	}

	PromHistograms = map[string]*prometheus.HistogramVec{
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: HTTPRequestDurationSeconds,
			Help: "Duration of all HTTP requests",
		}, []string{"path", "status_code"}),
	}
)
