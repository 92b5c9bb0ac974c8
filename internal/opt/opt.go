package opt

import (
	"context"
	"time"
)

// Method names accepted by the coordinator.
const (
	MethodGreedy = "greedy"
	MethodGA     = "ga"
	MethodPSO    = "pso"
	MethodSA     = "sa"
	MethodCMAES  = "cmaes"
	MethodNSGA2  = "nsga2"
)

// Optimizer is the single contract every search algorithm implements. A
// solver owns its population/state exclusively for the duration of one
// Solve call and must observe ctx at its iteration boundary, returning the
// best candidate found so far together with the context error.
type Optimizer interface {
	Name() string
	Solve(ctx context.Context, prob *Problem) (Result, error)
}

// ParetoPoint is one member of a multi-objective front.
type ParetoPoint struct {
	Candidate  *Candidate
	Objectives [objectiveCount]float64
	Hard       int
}

// Result is what one solver hands back to the coordinator. For
// multi-objective solvers Front is populated and Best is left for the
// coordinator to collapse with the shared scalar weights.
type Result struct {
	Method      string
	Best        *Candidate
	Fitness     Fitness
	Front       []ParetoPoint
	Evaluations int
	Iterations  int
	Duration    time.Duration
	Meta        map[string]any
}

// Better reports whether a beats b under the shared tie-break policy:
// higher scalar fitness, then fewer hard violations, then fewer departures
// from the all-standby baseline, then method name for full determinism.
func Better(a, b Result) bool {
	if a.Best == nil {
		return false
	}
	if b.Best == nil {
		return true
	}
	if a.Fitness.Total != b.Fitness.Total {
		return a.Fitness.Total > b.Fitness.Total
	}
	if a.Fitness.HardViolations != b.Fitness.HardViolations {
		return a.Fitness.HardViolations < b.Fitness.HardViolations
	}
	if da, db := a.Best.Deviation(), b.Best.Deviation(); da != db {
		return da < db
	}
	return a.Method < b.Method
}
