package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics records market lifecycle transition outcomes.
type WorkflowMetrics struct {
	transitions *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow metrics on the provided registerer.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "market_transitions_total",
		Help: "Successful market status transitions.",
	}, []string{"from", "to", "action"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "market_transition_failures_total",
		Help: "Rejected market status transitions by error code.",
	}, []string{"code"})
	reg.MustRegister(transitions, failures)
	return &WorkflowMetrics{
		transitions: transitions,
		failures:    failures,
	}
}

// IncTransition increments the counter for a completed transition.
func (w *WorkflowMetrics) IncTransition(from, to, action string) {
	if w == nil || w.transitions == nil {
		return
	}
	w.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(action)).Inc()
}

// IncFailure increments the rejection counter for the given error code.
func (w *WorkflowMetrics) IncFailure(code string) {
	if w == nil || w.failures == nil {
		return
	}
	w.failures.WithLabelValues(normalizeLabel(code)).Inc()
}
