// Package metrics provides Prometheus metrics for the discipline core.
//
// Exposed series:
//   - gate_approvals_total{outcome}   – approval requests by outcome (approved|rejected|unavailable)
//   - gate_approvals_consumed_total   – approvals consumed before expiry
//   - gate_approvals_expired_total    – approvals that expired unused
//   - gate_triggers_total{kind,severity} – behavioral triggers fired
//   - gate_sessions_total{outcome}    – cooldown sessions resolved (completed|skipped)
//   - gate_sessions_active            – currently active cooldown sessions
//
// Served at /metrics in Prometheus text exposition format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"tradegate/internal/models"
	"tradegate/internal/stream"
)

var (
	approvals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_approvals_total",
			Help: "Approval requests by outcome",
		},
		[]string{"outcome"},
	)

	approvalsConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gate_approvals_consumed_total",
			Help: "Approvals consumed before expiry",
		},
	)

	approvalsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gate_approvals_expired_total",
			Help: "Approvals that expired unused",
		},
	)

	triggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_triggers_total",
			Help: "Behavioral triggers fired",
		},
		[]string{"kind", "severity"},
	)

	sessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_sessions_total",
			Help: "Cooldown sessions resolved by outcome",
		},
		[]string{"outcome"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gate_sessions_active",
			Help: "Currently active cooldown sessions",
		},
	)
)

func init() {
	prometheus.MustRegister(
		approvals,
		approvalsConsumed,
		approvalsExpired,
		triggers,
		sessions,
		sessionsActive,
	)
}

// ApprovalIssued counts an approved request.
func ApprovalIssued() { approvals.WithLabelValues("approved").Inc() }

// ApprovalRejected counts a rejected request.
func ApprovalRejected() { approvals.WithLabelValues("rejected").Inc() }

// ApprovalUnavailable counts a request refused because history was down.
func ApprovalUnavailable() { approvals.WithLabelValues("unavailable").Inc() }

// TriggerFired counts a behavioral trigger.
func TriggerFired(t models.Trigger) {
	triggers.WithLabelValues(string(t.Kind), string(t.Severity)).Inc()
}

// Collector consumes hub events and keeps the metrics current. Run it on
// its own goroutine; it exits when the subscription channel closes.
func Collector(events <-chan stream.Event) {
	for event := range events {
		switch event.Kind {
		case stream.EventTriggerWarning:
			if event.Trigger != nil {
				TriggerFired(*event.Trigger)
			}
		case stream.EventSessionStarted:
			sessionsActive.Inc()
		case stream.EventSessionCompleted:
			sessions.WithLabelValues("completed").Inc()
			sessionsActive.Dec()
		case stream.EventSessionSkipped:
			sessions.WithLabelValues("skipped").Inc()
			sessionsActive.Dec()
		case stream.EventApprovalConsumed:
			approvalsConsumed.Inc()
		case stream.EventApprovalExpired:
			approvalsExpired.Inc()
		}
	}
}
