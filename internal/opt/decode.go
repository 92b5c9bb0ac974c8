package opt

import (
	"math/rand"
	"sort"

	"metrosched/internal/model"
)

// Continuous solvers (PSO, CMA-ES) share one position encoding: two keys per
// trainset. Key 2i selects the status by thresholding, key 2i+1 scales the
// daily kilometer allocation. Keeping the decode pure and shared guarantees
// both solvers apply identical rounding and tie-breaking rules.

const keysPerTrain = 2

func vectorLen(prob *Problem) int { return prob.Size() * keysPerTrain }

// decodeVector maps a continuous position to a discrete candidate. Status
// thresholds: [2/3,1] revenue service, [1/3,2/3) standby, below maintenance.
// Ineligible trainsets decode to maintenance regardless of key. Service
// ranks follow descending status key, ties broken by fleet index.
func decodeVector(prob *Problem, x []float64) *Candidate {
	n := prob.Size()
	c := NewCandidate(n)
	type ranked struct {
		idx int
		key float64
	}
	var svc []ranked
	for i := 0; i < n; i++ {
		s := clamp01(x[i*keysPerTrain])
		k := clamp01(x[i*keysPerTrain+1])
		switch {
		case !prob.Eligible(i):
			if s >= 2.0/3.0 {
				// damaged units cannot run revenue service; park them
				c.Assign[i].Status = model.StatusMaintenance
			} else if s >= 1.0/3.0 {
				c.Assign[i].Status = model.StatusStandby
			} else {
				c.Assign[i].Status = model.StatusMaintenance
			}
		case s >= 2.0/3.0:
			c.Assign[i].Status = model.StatusRevenueService
			c.Assign[i].DailyKM = k * prob.MaxDailyKM
			svc = append(svc, ranked{idx: i, key: s})
		case s >= 1.0/3.0:
			c.Assign[i].Status = model.StatusStandby
		default:
			c.Assign[i].Status = model.StatusMaintenance
		}
	}
	sort.Slice(svc, func(a, b int) bool {
		if svc[a].key != svc[b].key {
			return svc[a].key > svc[b].key
		}
		return svc[a].idx < svc[b].idx
	})
	for r, s := range svc {
		c.Assign[s.idx].Rank = r + 1
	}
	return c
}

// initVector seeds a position biased toward a feasible region: eligible
// trains lean into the service band, the rest toward standby/maintenance.
func initVector(prob *Problem, rng *rand.Rand) []float64 {
	x := make([]float64, vectorLen(prob))
	for i := 0; i < prob.Size(); i++ {
		if prob.Eligible(i) {
			x[i*keysPerTrain] = 0.4 + 0.6*rng.Float64()
		} else {
			x[i*keysPerTrain] = 0.5 * rng.Float64()
		}
		x[i*keysPerTrain+1] = 0.5 + 0.5*rng.Float64()
	}
	return x
}
