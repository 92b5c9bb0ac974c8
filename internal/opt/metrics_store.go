package opt

import "sync"

// Process-local per-run search metrics, surfaced on the admin API. Bounded
// to the most recent runs.

const maxTrackedRuns = 200

var (
	mu       sync.Mutex
	runOrder []string
	runStore = map[string]map[string]MethodOutcome{}
)

func RecordRunMetrics(runID, method string, m MethodOutcome) {
	mu.Lock()
	defer mu.Unlock()
	if runStore[runID] == nil {
		runStore[runID] = map[string]MethodOutcome{}
		runOrder = append(runOrder, runID)
		if len(runOrder) > maxTrackedRuns {
			delete(runStore, runOrder[0])
			runOrder = runOrder[1:]
		}
	}
	runStore[runID][method] = m
}

func GetRunMetrics(runID string) map[string]MethodOutcome {
	mu.Lock()
	defer mu.Unlock()
	out := map[string]MethodOutcome{}
	for k, v := range runStore[runID] {
		out[k] = v
	}
	return out
}
