package evolution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowscript/flowscript/engine/state"
)

func metricsWith(runID string, successRate float64) ExecutionMetrics {
	return ExecutionMetrics{RunID: runID, WorkflowID: "wf", SuccessRate: successRate, DurationMs: map[string]float64{}, Failures: map[string]bool{}}
}

func TestMetricsFromStateComputesSuccessRateAndDurations(t *testing.T) {
	st := state.New("wf", state.Options{RunID: "r1"})
	start := time.Unix(0, 0)
	st.RecordNodeResult("a", state.NodeResult{Status: state.StatusSuccess, StartedAt: start, CompletedAt: start.Add(100 * time.Millisecond)})
	st.RecordNodeResult("b", state.NodeResult{Status: state.StatusFailed, StartedAt: start, CompletedAt: start.Add(50 * time.Millisecond)})

	m := MetricsFromState(st)
	assert.Equal(t, "r1", m.RunID)
	assert.Equal(t, 0.5, m.SuccessRate)
	assert.Equal(t, 100.0, m.DurationMs["a"])
	assert.Equal(t, 50.0, m.DurationMs["b"])
	assert.True(t, m.Failures["b"])
	assert.False(t, m.Failures["a"])
}

func TestMetricsFromStateHandlesEmptyRun(t *testing.T) {
	st := state.New("wf", state.Options{})
	m := MetricsFromState(st)
	assert.Equal(t, 0.0, m.SuccessRate)
	assert.Empty(t, m.DurationMs)
}

func TestHistoryRecordAndRecentPreservesOldestFirstOrder(t *testing.T) {
	h, err := NewHistory("wf", 10)
	require.NoError(t, err)
	h.Record(metricsWith("r1", 1))
	h.Record(metricsWith("r2", 0.5))
	h.Record(metricsWith("r3", 1))

	recent := h.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "r2", recent[0].RunID)
	assert.Equal(t, "r3", recent[1].RunID)
}

func TestHistoryEvictsOldestBeyondCapacity(t *testing.T) {
	h, err := NewHistory("wf", 2)
	require.NoError(t, err)
	h.Record(metricsWith("r1", 1))
	h.Record(metricsWith("r2", 1))
	h.Record(metricsWith("r3", 1))

	recent := h.Recent(10)
	require.Len(t, recent, 2)
	assert.Equal(t, "r2", recent[0].RunID)
	assert.Equal(t, "r3", recent[1].RunID)
}

func TestDetectRecurringFailuresRequiresThreeOfFourRuns(t *testing.T) {
	history := []ExecutionMetrics{
		{RunID: "r1", Failures: map[string]bool{"a": true}},
		{RunID: "r2", Failures: map[string]bool{"a": true}},
		{RunID: "r3", Failures: map[string]bool{"a": false}},
	}
	current := ExecutionMetrics{RunID: "r4", Failures: map[string]bool{"a": true}}

	findings := DetectRecurringFailures(current, history)
	require.Len(t, findings, 1)
	assert.Equal(t, SignalRecurringFailure, findings[0].Signal)
	assert.Equal(t, "a", findings[0].NodeID)
}

func TestDetectRecurringFailuresSilentBelowThreshold(t *testing.T) {
	history := []ExecutionMetrics{
		{RunID: "r1", Failures: map[string]bool{"a": true}},
		{RunID: "r2", Failures: map[string]bool{"a": false}},
	}
	current := ExecutionMetrics{RunID: "r3", Failures: map[string]bool{"a": false}}
	assert.Empty(t, DetectRecurringFailures(current, history))
}

func TestDetectPerformanceDegradationFlagsTripleMean(t *testing.T) {
	history := []ExecutionMetrics{
		{DurationMs: map[string]float64{"a": 100}},
		{DurationMs: map[string]float64{"a": 100}},
	}
	current := ExecutionMetrics{DurationMs: map[string]float64{"a": 400}}

	findings := DetectPerformanceDegradation(current, history)
	require.Len(t, findings, 1)
	assert.Equal(t, SignalPerformanceDegradation, findings[0].Signal)
}

func TestDetectPerformanceDegradationNoHistoryReturnsNil(t *testing.T) {
	current := ExecutionMetrics{DurationMs: map[string]float64{"a": 400}}
	assert.Nil(t, DetectPerformanceDegradation(current, nil))
}

func TestDetectSuccessRateDropBelow70PercentOfMean(t *testing.T) {
	history := []ExecutionMetrics{{SuccessRate: 1}, {SuccessRate: 1}}
	current := ExecutionMetrics{SuccessRate: 0.5}

	finding := DetectSuccessRateDrop(current, history)
	require.NotNil(t, finding)
	assert.Equal(t, SignalSuccessRateDrop, finding.Signal)
}

func TestDetectSuccessRateDropNoFindingWhenStable(t *testing.T) {
	history := []ExecutionMetrics{{SuccessRate: 1}, {SuccessRate: 1}}
	current := ExecutionMetrics{SuccessRate: 0.9}
	assert.Nil(t, DetectSuccessRateDrop(current, history))
}

func TestDetectRecoveryAfterThreeFailureStreak(t *testing.T) {
	history := []ExecutionMetrics{{SuccessRate: 1}, {SuccessRate: 0}, {SuccessRate: 0}, {SuccessRate: 0}}
	current := ExecutionMetrics{SuccessRate: 1}

	finding := DetectRecovery(current, history)
	require.NotNil(t, finding)
	assert.Equal(t, SignalRecovery, finding.Signal)
}

func TestDetectRecoveryNoFindingBelowStreakThreshold(t *testing.T) {
	history := []ExecutionMetrics{{SuccessRate: 1}, {SuccessRate: 0}, {SuccessRate: 0}}
	current := ExecutionMetrics{SuccessRate: 1}
	assert.Nil(t, DetectRecovery(current, history))
}

func TestDetectRecoveryNoFindingWhenCurrentAlsoFailed(t *testing.T) {
	history := []ExecutionMetrics{{SuccessRate: 0}, {SuccessRate: 0}, {SuccessRate: 0}}
	current := ExecutionMetrics{SuccessRate: 0}
	assert.Nil(t, DetectRecovery(current, history))
}
