// Package evolution implements pure feedback functions over run history:
// recurring-failure/degradation/recovery detection and behavior-drift
// comparison, grounded in the teacher's version-compare style
// (internal/version/version.go's semver.NewVersion usage) for the
// version-bump suggestion, with a hashicorp/golang-lru/v2 bounded window
// standing in for the teacher's own LRU caches (no teacher file exercises
// the library directly; its generic Cache API is used here as documented
// by the module itself). Each Detect* function also increments a
// prometheus counter (telemetry.go) alongside its pure Finding
// computation, mirroring the teacher's engine/infra/monitoring counters
// at a scale that fits a library with no server of its own.
package evolution

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/flowscript/flowscript/engine/state"
)

// ExecutionMetrics summarizes one run for historical comparison.
type ExecutionMetrics struct {
	RunID       string
	WorkflowID  string
	SuccessRate float64
	DurationMs  map[string]float64 // per-node mean duration
	Failures    map[string]bool    // per-node: failed this run
}

// MetricsFromState computes an ExecutionMetrics from a finished run.
func MetricsFromState(st *state.ExecutionState) ExecutionMetrics {
	results := st.NodeResults()
	m := ExecutionMetrics{
		RunID:      st.RunID,
		WorkflowID: st.WorkflowID,
		DurationMs: map[string]float64{},
		Failures:   map[string]bool{},
	}
	if len(results) == 0 {
		return m
	}
	success := 0
	for _, r := range results {
		m.DurationMs[r.NodeID] = float64(r.Duration().Milliseconds())
		m.Failures[r.NodeID] = r.Status == state.StatusFailed
		if r.Status == state.StatusSuccess {
			success++
		}
	}
	m.SuccessRate = float64(success) / float64(len(results))
	return m
}

// History is a bounded window of prior ExecutionMetrics for one workflow,
// newest-appended, capped at Capacity entries via an LRU eviction policy
// keyed by run id.
type History struct {
	workflowID string
	cache      *lru.Cache[string, ExecutionMetrics]
	order      []string
}

// NewHistory creates a History capped at capacity entries.
func NewHistory(workflowID string, capacity int) (*History, error) {
	if capacity <= 0 {
		capacity = 32
	}
	c, err := lru.New[string, ExecutionMetrics](capacity)
	if err != nil {
		return nil, err
	}
	return &History{workflowID: workflowID, cache: c}, nil
}

// Record appends m to the history.
func (h *History) Record(m ExecutionMetrics) {
	evicted := h.cache.Add(m.RunID, m)
	h.order = append(h.order, m.RunID)
	if evicted {
		h.order = h.order[1:]
	}
}

// Recent returns up to n most recent metrics, oldest first.
func (h *History) Recent(n int) []ExecutionMetrics {
	ids := h.order
	if len(ids) > n {
		ids = ids[len(ids)-n:]
	}
	out := make([]ExecutionMetrics, 0, len(ids))
	for _, id := range ids {
		if m, ok := h.cache.Get(id); ok {
			out = append(out, m)
		}
	}
	return out
}

// Signal names a detected evolution condition.
type Signal string

const (
	SignalRecurringFailure      Signal = "recurring_failure"
	SignalPerformanceDegradation Signal = "performance_degradation"
	SignalSuccessRateDrop       Signal = "success_rate_drop"
	SignalRecovery              Signal = "recovery"
)

// Finding pairs a detected Signal with the node (if any) it concerns.
type Finding struct {
	Signal Signal
	NodeID string
	Detail string
}

// DetectRecurringFailures reports nodes that failed in >= 3 of the last 4
// runs (current run included).
func DetectRecurringFailures(current ExecutionMetrics, history []ExecutionMetrics) []Finding {
	window := lastN(append(history, current), 4)
	counts := map[string]int{}
	for _, m := range window {
		for node, failed := range m.Failures {
			if failed {
				counts[node]++
			}
		}
	}
	var out []Finding
	for node, c := range counts {
		if c >= 3 {
			observe(SignalRecurringFailure)
			out = append(out, Finding{Signal: SignalRecurringFailure, NodeID: node, Detail: fmt.Sprintf("failed %d/%d runs", c, len(window))})
		}
	}
	return out
}

// DetectPerformanceDegradation reports nodes whose current duration
// exceeds 3x the rolling mean of the prior history.
func DetectPerformanceDegradation(current ExecutionMetrics, history []ExecutionMetrics) []Finding {
	if len(history) == 0 {
		return nil
	}
	var out []Finding
	for node, dur := range current.DurationMs {
		mean, n := 0.0, 0
		for _, m := range history {
			if d, ok := m.DurationMs[node]; ok {
				mean += d
				n++
			}
		}
		if n == 0 {
			continue
		}
		mean /= float64(n)
		if mean > 0 && dur > 3*mean {
			observe(SignalPerformanceDegradation)
			out = append(out, Finding{Signal: SignalPerformanceDegradation, NodeID: node, Detail: fmt.Sprintf("%.0fms vs rolling mean %.0fms", dur, mean)})
		}
	}
	return out
}

// DetectSuccessRateDrop reports when current success rate has fallen to
// <= 0.7x the prior history's mean.
func DetectSuccessRateDrop(current ExecutionMetrics, history []ExecutionMetrics) *Finding {
	if len(history) == 0 {
		return nil
	}
	mean := 0.0
	for _, m := range history {
		mean += m.SuccessRate
	}
	mean /= float64(len(history))
	if mean == 0 {
		return nil
	}
	if current.SuccessRate <= 0.7*mean {
		observe(SignalSuccessRateDrop)
		return &Finding{Signal: SignalSuccessRateDrop, Detail: fmt.Sprintf("%.2f vs rolling mean %.2f", current.SuccessRate, mean)}
	}
	return nil
}

// DetectRecovery reports a success after >= 3 consecutive prior runs with
// SuccessRate 0 (i.e. a total failure streak).
func DetectRecovery(current ExecutionMetrics, history []ExecutionMetrics) *Finding {
	if current.SuccessRate <= 0 {
		return nil
	}
	streak := 0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].SuccessRate == 0 {
			streak++
			continue
		}
		break
	}
	if streak >= 3 {
		observe(SignalRecovery)
		return &Finding{Signal: SignalRecovery, Detail: fmt.Sprintf("recovered after %d consecutive failed runs", streak)}
	}
	return nil
}

func lastN(xs []ExecutionMetrics, n int) []ExecutionMetrics {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}
