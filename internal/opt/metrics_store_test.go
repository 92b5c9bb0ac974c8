package opt

import (
	"fmt"
	"testing"
)

func TestRunMetricsBounded(t *testing.T) {
	for i := 0; i < maxTrackedRuns+10; i++ {
		id := fmt.Sprintf("bound-%03d", i)
		RecordRunMetrics(id, MethodGreedy, MethodOutcome{Method: MethodGreedy})
	}
	if got := GetRunMetrics("bound-000"); len(got) != 0 {
		t.Error("oldest run should have been evicted")
	}
	last := fmt.Sprintf("bound-%03d", maxTrackedRuns+9)
	if got := GetRunMetrics(last); len(got) != 1 {
		t.Errorf("latest run missing: %+v", got)
	}
}

func TestRunMetricsCopyOnRead(t *testing.T) {
	RecordRunMetrics("copy-1", MethodGA, MethodOutcome{Method: MethodGA, Iterations: 5})
	got := GetRunMetrics("copy-1")
	got[MethodGA] = MethodOutcome{Method: MethodGA, Iterations: 99}
	again := GetRunMetrics("copy-1")
	if again[MethodGA].Iterations != 5 {
		t.Error("reader mutation leaked into the store")
	}
}
