package opt

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// NSGA2Config tunes the multi-objective solver.
type NSGA2Config struct {
	Population     int
	Generations    int
	CrossoverRate  float64
	MutationRate   float64
	TournamentSize int
}

func DefaultNSGA2Config() NSGA2Config {
	return NSGA2Config{
		Population:     60,
		Generations:    80,
		CrossoverRate:  0.90,
		MutationRate:   0.25,
		TournamentSize: 2,
	}
}

func (c NSGA2Config) Validate() error {
	if c.Population <= 1 {
		return fmt.Errorf("population must be > 1 (got %d)", c.Population)
	}
	if c.Generations <= 0 {
		return fmt.Errorf("generations must be > 0 (got %d)", c.Generations)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("crossover rate must be in [0,1] (got %f)", c.CrossoverRate)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("mutation rate must be in [0,1] (got %f)", c.MutationRate)
	}
	if c.TournamentSize <= 0 {
		return fmt.Errorf("tournament size must be > 0 (got %d)", c.TournamentSize)
	}
	return nil
}

type nsgaInd struct {
	cand  *Candidate
	objs  [objectiveCount]float64
	hard  int
	rank  int
	crowd float64
}

// NSGA2 evolves a population against the raw objective vector using
// constrained non-dominated sorting and crowding-distance selection. It
// shares the genetic operators with GA and stays objective-agnostic: the
// returned Pareto front is collapsed by the coordinator with the shared
// scalar weights.
type NSGA2 struct {
	Cfg NSGA2Config
	Rng *rand.Rand
}

func NewNSGA2(cfg NSGA2Config, rng *rand.Rand) (*NSGA2, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("nil rng")
	}
	return &NSGA2{Cfg: cfg, Rng: rng}, nil
}

func (s *NSGA2) Name() string { return MethodNSGA2 }

func (s *NSGA2) Solve(ctx context.Context, prob *Problem) (Result, error) {
	start := time.Now()
	if err := s.Cfg.Validate(); err != nil {
		return Result{Method: MethodNSGA2}, err
	}
	eval := NewEvaluator(prob)
	n := s.Cfg.Population

	pop := make([]nsgaInd, 0, 2*n)
	pop = append(pop, s.newInd(eval, greedyCandidate(prob)))
	for len(pop) < n {
		pop = append(pop, s.newInd(eval, randomCandidate(prob, s.Rng)))
	}
	evals := n

	gen := 0
	for ; gen < s.Cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return s.result(prob, pop, evals, gen, start, "context"), err
		}
		rankPopulation(pop)

		children := make([]nsgaInd, 0, n)
		for len(children) < n {
			p1 := s.tournament(pop)
			p2 := s.tournament(pop)
			c1 := NewCandidate(prob.Size())
			c2 := NewCandidate(prob.Size())
			if s.Rng.Float64() < s.Cfg.CrossoverRate {
				crossoverUniform(pop[p1].cand, pop[p2].cand, c1, c2, s.Rng)
			} else {
				copy(c1.Assign, pop[p1].cand.Assign)
				copy(c2.Assign, pop[p2].cand.Assign)
			}
			if s.Rng.Float64() < s.Cfg.MutationRate {
				mutate(prob, c1, s.Rng)
			}
			if s.Rng.Float64() < s.Cfg.MutationRate {
				mutate(prob, c2, s.Rng)
			}
			children = append(children, s.newInd(eval, c1))
			evals++
			if len(children) < n {
				children = append(children, s.newInd(eval, c2))
				evals++
			}
		}

		// elitist environmental selection over parents+children
		combined := append(pop, children...)
		rankPopulation(combined)
		sort.SliceStable(combined, func(a, b int) bool {
			if combined[a].rank != combined[b].rank {
				return combined[a].rank < combined[b].rank
			}
			return combined[a].crowd > combined[b].crowd
		})
		pop = combined[:n:n]
	}

	return s.result(prob, pop, evals, gen, start, ""), nil
}

func (s *NSGA2) newInd(eval *Evaluator, c *Candidate) nsgaInd {
	objs, hard := eval.Objectives(c)
	return nsgaInd{cand: c, objs: objs, hard: hard}
}

func (s *NSGA2) tournament(pop []nsgaInd) int {
	best := s.Rng.Intn(len(pop))
	for i := 1; i < s.Cfg.TournamentSize; i++ {
		c := s.Rng.Intn(len(pop))
		if pop[c].rank < pop[best].rank ||
			(pop[c].rank == pop[best].rank && pop[c].crowd > pop[best].crowd) {
			best = c
		}
	}
	return best
}

func (s *NSGA2) result(prob *Problem, pop []nsgaInd, evals, gens int, start time.Time, stopped string) Result {
	rankPopulation(pop)
	front := make([]ParetoPoint, 0)
	for i := range pop {
		if pop[i].rank == 0 {
			front = append(front, ParetoPoint{
				Candidate:  pop[i].cand.Clone(),
				Objectives: pop[i].objs,
				Hard:       pop[i].hard,
			})
		}
	}
	meta := map[string]any{
		"population": s.Cfg.Population,
		"front_size": len(front),
	}
	if stopped != "" {
		meta["stopped"] = stopped
	}
	return Result{
		Method:      MethodNSGA2,
		Front:       front,
		Evaluations: evals,
		Iterations:  gens,
		Duration:    time.Since(start),
		Meta:        meta,
	}
}

// dominates implements constrained dominance: fewer hard violations always
// dominates; at equal violation counts, weak Pareto dominance on the
// maximized objective vector.
func dominates(a, b *nsgaInd) bool {
	if a.hard != b.hard {
		return a.hard < b.hard
	}
	better := false
	for k := 0; k < objectiveCount; k++ {
		if a.objs[k] < b.objs[k] {
			return false
		}
		if a.objs[k] > b.objs[k] {
			better = true
		}
	}
	return better
}

// rankPopulation assigns non-domination ranks and crowding distances.
func rankPopulation(pop []nsgaInd) {
	n := len(pop)
	domCount := make([]int, n)
	domList := make([][]int, n)
	var current []int
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if dominates(&pop[i], &pop[j]) {
				domList[i] = append(domList[i], j)
			} else if dominates(&pop[j], &pop[i]) {
				domCount[i]++
			}
		}
		if domCount[i] == 0 {
			pop[i].rank = 0
			current = append(current, i)
		}
	}
	rank := 0
	for len(current) > 0 {
		crowding(pop, current)
		var next []int
		for _, i := range current {
			for _, j := range domList[i] {
				domCount[j]--
				if domCount[j] == 0 {
					pop[j].rank = rank + 1
					next = append(next, j)
				}
			}
		}
		rank++
		current = next
	}
}

func crowding(pop []nsgaInd, front []int) {
	for _, i := range front {
		pop[i].crowd = 0
	}
	if len(front) <= 2 {
		for _, i := range front {
			pop[i].crowd = math.Inf(1)
		}
		return
	}
	idx := make([]int, len(front))
	for k := 0; k < objectiveCount; k++ {
		copy(idx, front)
		sort.SliceStable(idx, func(a, b int) bool { return pop[idx[a]].objs[k] < pop[idx[b]].objs[k] })
		lo, hi := idx[0], idx[len(idx)-1]
		pop[lo].crowd = math.Inf(1)
		pop[hi].crowd = math.Inf(1)
		span := pop[hi].objs[k] - pop[lo].objs[k]
		if span <= 0 {
			continue
		}
		for m := 1; m < len(idx)-1; m++ {
			pop[idx[m]].crowd += (pop[idx[m+1]].objs[k] - pop[idx[m-1]].objs[k]) / span
		}
	}
}
