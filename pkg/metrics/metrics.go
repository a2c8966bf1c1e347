package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registry *prometheus.Registry

	TicketsSubmitted  *prometheus.CounterVec
	QuotaDenied       *prometheus.CounterVec
	ValidationFailed  *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	ClaimConflicts    prometheus.Counter
	Compensations     prometheus.Counter
	SubmissionReplays prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		TicketsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexius_tickets_submitted_total",
			Help: "Tickets committed from a draft.",
		}, []string{"category"}),
		QuotaDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexius_quota_denied_total",
			Help: "Submits rejected because the daily quota was used up.",
		}, []string{"category"}),
		ValidationFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexius_draft_validation_failed_total",
			Help: "Submits rejected because the draft was incomplete or invalid.",
		}, []string{"category"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexius_ticket_transitions_total",
			Help: "Successful lifecycle transitions by action.",
		}, []string{"action"}),
		ClaimConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "nexius_claim_conflicts_total",
			Help: "Claims that lost to a concurrent claim.",
		}),
		Compensations: factory.NewCounter(prometheus.CounterOpts{
			Name: "nexius_quota_compensations_total",
			Help: "Reservations released because the ticket could not be committed.",
		}),
		SubmissionReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "nexius_submission_replays_total",
			Help: "Duplicate submits answered from a remembered submission.",
		}),
	}
}
