package opt

import (
	"context"
	"sort"
	"time"

	"metrosched/internal/model"
)

// Greedy is the deterministic baseline heuristic: rank eligible trainsets by
// readiness, fill the service minimum, park damaged units in maintenance and
// keep the rest on standby. It needs no randomness and finishes in one pass,
// which makes it the coordinator's floor result and its adaptive-mode probe.
type Greedy struct{}

func (Greedy) Name() string { return MethodGreedy }

func (g Greedy) Solve(ctx context.Context, prob *Problem) (Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Result{Method: MethodGreedy}, err
	}
	eval := NewEvaluator(prob)
	c := greedyCandidate(prob)
	fit := eval.Score(c)
	return Result{
		Method:      MethodGreedy,
		Best:        c,
		Fitness:     fit,
		Evaluations: 1,
		Iterations:  1,
		Duration:    time.Since(start),
	}, nil
}

// greedyCandidate builds the readiness-ordered assignment. Also used to seed
// population-based solvers.
func greedyCandidate(prob *Problem) *Candidate {
	n := prob.Size()
	c := NewCandidate(n)

	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if prob.Eligible(i) {
			order = append(order, i)
		} else {
			c.Assign[i].Status = model.StatusMaintenance
		}
	}
	sort.Slice(order, func(a, b int) bool {
		ta, tb := &prob.Fleet[order[a]], &prob.Fleet[order[b]]
		if ta.Readiness != tb.Readiness {
			return ta.Readiness > tb.Readiness
		}
		if ta.CumulativeKM != tb.CumulativeKM {
			return ta.CumulativeKM < tb.CumulativeKM
		}
		return ta.ID < tb.ID
	})

	svc := prob.MinService
	if svc > len(order) {
		svc = len(order)
	}
	for r := 0; r < svc; r++ {
		c.Assign[order[r]].Status = model.StatusRevenueService
		c.Assign[order[r]].Rank = r + 1
	}
	// remaining eligible units stay standby (the NewCandidate default)

	allocateServiceKM(prob, c)
	return c
}

// allocateServiceKM splits the run's kilometer target across service trains,
// weighting low-mileage units higher to equalize wear. Allocations respect
// the per-train daily cap.
func allocateServiceKM(prob *Problem, c *Candidate) {
	var svc []int
	maxCum := 0.0
	for i := range c.Assign {
		if c.Assign[i].Status == model.StatusRevenueService {
			svc = append(svc, i)
			if km := prob.Fleet[i].CumulativeKM; km > maxCum {
				maxCum = km
			}
		}
	}
	if len(svc) == 0 {
		return
	}
	weights := make([]float64, len(svc))
	sum := 0.0
	for k, i := range svc {
		weights[k] = maxCum - prob.Fleet[i].CumulativeKM + 1
		sum += weights[k]
	}
	target := prob.TargetDailyKM * float64(len(svc))
	for k, i := range svc {
		km := target * weights[k] / sum
		if km > prob.MaxDailyKM {
			km = prob.MaxDailyKM
		}
		c.Assign[i].DailyKM = km
	}
}
