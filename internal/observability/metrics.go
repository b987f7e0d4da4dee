// Package observability exposes the process's Prometheus counters: turn
// lifecycle, tool call outcomes, and transport retry attempts. Metrics are
// always registered, but are only reachable when a chat invocation is
// started with --metrics-addr.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the counters a single relay process exposes.
type Metrics struct {
	// TurnsStarted counts agent loop turns that began a model request.
	TurnsStarted prometheus.Counter

	// TurnsCompleted counts turns that reached a terminal stop reason,
	// labeled by how they ended (done, cancelled, error).
	TurnsCompleted *prometheus.CounterVec

	// ToolCalls counts tool dispatches, labeled by tool name and outcome
	// (ok, error, blocked).
	ToolCalls *prometheus.CounterVec

	// RetryAttempts counts transport retry attempts, labeled by the error
	// class that triggered the retry (rate_limited, overloaded, server_error,
	// network, timeout).
	RetryAttempts *prometheus.CounterVec
}

// NewMetrics creates and registers every counter against the default
// Prometheus registry. Call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		TurnsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relay_turns_started_total",
			Help: "Total number of agent loop turns started",
		}),
		TurnsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_turns_completed_total",
				Help: "Total number of agent loop turns completed by outcome",
			},
			[]string{"outcome"},
		),
		ToolCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_tool_calls_total",
				Help: "Total number of tool dispatches by tool name and outcome",
			},
			[]string{"tool", "outcome"},
		),
		RetryAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_retry_attempts_total",
				Help: "Total number of transport retry attempts by error class",
			},
			[]string{"error_class"},
		),
	}
}

// Observe increments the counter for kind; detail is the tool name for
// tool_* kinds and the error class for "retry". Unknown kinds are ignored.
func (m *Metrics) Observe(kind string, detail string) {
	switch kind {
	case "turn_started":
		m.TurnsStarted.Inc()
	case "turn_done":
		m.TurnsCompleted.WithLabelValues("done").Inc()
	case "turn_cancelled":
		m.TurnsCompleted.WithLabelValues("cancelled").Inc()
	case "turn_error":
		m.TurnsCompleted.WithLabelValues("error").Inc()
	case "tool_ok":
		m.ToolCalls.WithLabelValues(detail, "ok").Inc()
	case "tool_error":
		m.ToolCalls.WithLabelValues(detail, "error").Inc()
	case "tool_blocked":
		m.ToolCalls.WithLabelValues(detail, "blocked").Inc()
	case "retry":
		m.RetryAttempts.WithLabelValues(detail).Inc()
	}
}
