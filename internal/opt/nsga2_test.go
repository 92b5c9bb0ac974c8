package opt

import (
	"context"
	"math"
	"math/rand"
	"testing"
)

func TestNSGA2FrontProperties(t *testing.T) {
	prob := mustProblem(t, fleetOf(8), 3, 2)
	cfg := DefaultNSGA2Config()
	cfg.Population = 20
	cfg.Generations = 25
	s, err := NewNSGA2(cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Solve(context.Background(), prob)
	if err != nil {
		t.Fatal(err)
	}
	if res.Best != nil {
		t.Error("multi-objective solver should leave Best for the coordinator")
	}
	if len(res.Front) == 0 {
		t.Fatal("empty front")
	}
	// front members must be mutually non-dominating
	inds := make([]nsgaInd, len(res.Front))
	for i, pt := range res.Front {
		inds[i] = nsgaInd{cand: pt.Candidate, objs: pt.Objectives, hard: pt.Hard}
	}
	for i := range inds {
		for j := range inds {
			if i != j && dominates(&inds[i], &inds[j]) {
				t.Fatalf("front member %d dominates member %d", i, j)
			}
		}
	}
	for _, pt := range res.Front {
		checkCandidate(t, prob, pt.Candidate)
	}
}

func TestConstrainedDominance(t *testing.T) {
	clean := &nsgaInd{objs: [objectiveCount]float64{0.1, 0.1, 0.1, 0.1}, hard: 0}
	dirty := &nsgaInd{objs: [objectiveCount]float64{0.9, 0.9, 0.9, 0.9}, hard: 1}
	if !dominates(clean, dirty) {
		t.Error("feasible must dominate infeasible regardless of objectives")
	}
	if dominates(dirty, clean) {
		t.Error("infeasible dominated feasible")
	}

	a := &nsgaInd{objs: [objectiveCount]float64{0.5, 0.5, 0.5, 0.5}}
	b := &nsgaInd{objs: [objectiveCount]float64{0.5, 0.4, 0.5, 0.5}}
	if !dominates(a, b) {
		t.Error("a weakly dominates b")
	}
	if dominates(b, a) || dominates(a, a) {
		t.Error("dominance not strict")
	}
}

func TestCrowdingBoundariesInfinite(t *testing.T) {
	pop := []nsgaInd{
		{objs: [objectiveCount]float64{0.1, 0.9, 0.5, 0.5}},
		{objs: [objectiveCount]float64{0.5, 0.5, 0.5, 0.5}},
		{objs: [objectiveCount]float64{0.9, 0.1, 0.5, 0.5}},
	}
	crowding(pop, []int{0, 1, 2})
	if !math.IsInf(pop[0].crowd, 1) || !math.IsInf(pop[2].crowd, 1) {
		t.Errorf("extremes not infinite: %v %v", pop[0].crowd, pop[2].crowd)
	}
	if math.IsInf(pop[1].crowd, 1) {
		t.Error("interior point should have finite crowding")
	}
}

func TestNSGA2DeterministicSeed(t *testing.T) {
	prob := mustProblem(t, fleetOf(6), 2, 1)
	cfg := DefaultNSGA2Config()
	cfg.Population = 12
	cfg.Generations = 10
	run := func() int {
		s, _ := NewNSGA2(cfg, rand.New(rand.NewSource(5)))
		res, _ := s.Solve(context.Background(), prob)
		return len(res.Front)
	}
	if a, b := run(), run(); a != b {
		t.Errorf("front sizes diverged: %d vs %d", a, b)
	}
}
