package opt

import (
	"math/rand"
	"sort"

	"metrosched/internal/model"
)

// Genome operators shared by the genetic solver and the multi-objective
// solver, so the two explore the same move space.

// randomCandidate samples a candidate biased toward eligibility: damaged
// units go to maintenance, eligible units favor service.
func randomCandidate(prob *Problem, rng *rand.Rand) *Candidate {
	c := NewCandidate(prob.Size())
	rank := 0
	for i := range c.Assign {
		if !prob.Eligible(i) {
			c.Assign[i].Status = model.StatusMaintenance
			continue
		}
		r := rng.Float64()
		switch {
		case r < 0.55:
			rank++
			c.Assign[i].Status = model.StatusRevenueService
			c.Assign[i].DailyKM = (0.5 + 0.5*rng.Float64()) * prob.MaxDailyKM
			c.Assign[i].Rank = rank
		case r < 0.90:
			c.Assign[i].Status = model.StatusStandby
		default:
			c.Assign[i].Status = model.StatusMaintenance
		}
	}
	return c
}

// tournamentSelect picks the index with the highest score among k random
// entrants.
func tournamentSelect(scores []float64, k int, rng *rand.Rand) int {
	best := rng.Intn(len(scores))
	for i := 1; i < k; i++ {
		cand := rng.Intn(len(scores))
		if scores[cand] > scores[best] {
			best = cand
		}
	}
	return best
}

// crossoverUniform swaps whole per-train assignments between two parents.
func crossoverUniform(p1, p2, c1, c2 *Candidate, rng *rand.Rand) {
	for i := range p1.Assign {
		if rng.Float64() < 0.5 {
			c1.Assign[i] = p1.Assign[i]
			c2.Assign[i] = p2.Assign[i]
		} else {
			c1.Assign[i] = p2.Assign[i]
			c2.Assign[i] = p1.Assign[i]
		}
	}
	normalizeRanks(c1)
	normalizeRanks(c2)
}

// mutate applies one random move in place: flip a train's status, jitter a
// service allocation, or swap two priority ranks.
func mutate(prob *Problem, c *Candidate, rng *rand.Rand) {
	i := rng.Intn(len(c.Assign))
	switch rng.Intn(3) {
	case 0: // status flip
		a := &c.Assign[i]
		if prob.Eligible(i) {
			switch a.Status {
			case model.StatusRevenueService:
				a.Status = model.StatusStandby
				a.DailyKM = 0
				a.Rank = 0
			case model.StatusStandby:
				a.Status = model.StatusMaintenance
			default:
				a.Status = model.StatusRevenueService
				a.DailyKM = prob.TargetDailyKM
			}
		} else {
			if a.Status == model.StatusMaintenance {
				a.Status = model.StatusStandby
			} else {
				a.Status = model.StatusMaintenance
			}
		}
		normalizeRanks(c)
	case 1: // kilometer jitter
		svc := serviceIndices(c)
		if len(svc) == 0 {
			return
		}
		a := &c.Assign[svc[rng.Intn(len(svc))]]
		km := a.DailyKM + (rng.Float64()*2-1)*0.2*prob.MaxDailyKM
		if km < 0 {
			km = 0
		}
		if km > prob.MaxDailyKM {
			km = prob.MaxDailyKM
		}
		a.DailyKM = km
	default: // rank swap
		svc := serviceIndices(c)
		if len(svc) < 2 {
			return
		}
		x := svc[rng.Intn(len(svc))]
		y := svc[rng.Intn(len(svc))]
		c.Assign[x].Rank, c.Assign[y].Rank = c.Assign[y].Rank, c.Assign[x].Rank
	}
}

func serviceIndices(c *Candidate) []int {
	var out []int
	for i := range c.Assign {
		if c.Assign[i].Status == model.StatusRevenueService {
			out = append(out, i)
		}
	}
	return out
}

// normalizeRanks reassigns dense 1..k ranks across service trains, keeping
// the existing relative order.
func normalizeRanks(c *Candidate) {
	svc := serviceIndices(c)
	sort.SliceStable(svc, func(a, b int) bool {
		ra, rb := c.Assign[svc[a]].Rank, c.Assign[svc[b]].Rank
		if ra != rb {
			if ra == 0 {
				return false
			}
			if rb == 0 {
				return true
			}
			return ra < rb
		}
		return svc[a] < svc[b]
	})
	for i := range c.Assign {
		if c.Assign[i].Status != model.StatusRevenueService {
			c.Assign[i].Rank = 0
		}
	}
	for r, idx := range svc {
		c.Assign[idx].Rank = r + 1
	}
}
