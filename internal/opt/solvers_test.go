package opt

import (
	"context"
	"math/rand"
	"reflect"
	"testing"

	"metrosched/internal/model"
)

func smallGA(t *testing.T, seed int64) *GA {
	t.Helper()
	cfg := DefaultGAConfig()
	cfg.Population = 20
	cfg.Generations = 40
	cfg.PlateauGens = 0
	s, err := NewGA(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func checkCandidate(t *testing.T, prob *Problem, c *Candidate) {
	t.Helper()
	if c == nil {
		t.Fatal("nil candidate")
	}
	if len(c.Assign) != prob.Size() {
		t.Fatalf("candidate size %d, fleet %d", len(c.Assign), prob.Size())
	}
	for i := range c.Assign {
		switch c.Assign[i].Status {
		case model.StatusRevenueService, model.StatusStandby, model.StatusMaintenance:
		default:
			t.Fatalf("trainset %d: bad status %q", i, c.Assign[i].Status)
		}
		if c.Assign[i].DailyKM < 0 {
			t.Fatalf("trainset %d: negative km", i)
		}
	}
}

func TestGASolve(t *testing.T) {
	prob := mustProblem(t, fleetOf(8), 3, 2)
	res, err := smallGA(t, 1).Solve(context.Background(), prob)
	if err != nil {
		t.Fatal(err)
	}
	checkCandidate(t, prob, res.Best)
	if !res.Fitness.Feasible() {
		t.Errorf("greedy-seeded GA should stay feasible: %+v", res.Fitness)
	}
	// never worse than the seed
	base, _ := Greedy{}.Solve(context.Background(), prob)
	if res.Fitness.Total < base.Fitness.Total {
		t.Errorf("GA %v below greedy %v", res.Fitness.Total, base.Fitness.Total)
	}
	if res.Evaluations == 0 || res.Iterations == 0 {
		t.Errorf("counters: %+v", res)
	}
}

func TestGADeterministicSeed(t *testing.T) {
	prob := mustProblem(t, fleetOf(8), 3, 2)
	a, _ := smallGA(t, 7).Solve(context.Background(), prob)
	b, _ := smallGA(t, 7).Solve(context.Background(), prob)
	if a.Fitness.Total != b.Fitness.Total || !reflect.DeepEqual(a.Best, b.Best) {
		t.Error("same seed produced different results")
	}
}

func TestSASolve(t *testing.T) {
	prob := mustProblem(t, fleetOf(8), 3, 2)
	cfg := DefaultSAConfig()
	cfg.Iterations = 800
	s, err := NewSA(cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Solve(context.Background(), prob)
	if err != nil {
		t.Fatal(err)
	}
	checkCandidate(t, prob, res.Best)
	if !res.Fitness.Feasible() {
		t.Errorf("greedy-started SA should stay feasible: %+v", res.Fitness)
	}
	base, _ := Greedy{}.Solve(context.Background(), prob)
	if res.Fitness.Total < base.Fitness.Total {
		t.Errorf("SA %v below greedy %v", res.Fitness.Total, base.Fitness.Total)
	}
}

func TestPSOSolve(t *testing.T) {
	prob := mustProblem(t, fleetOf(8), 3, 2)
	cfg := DefaultPSOConfig()
	cfg.Particles = 20
	cfg.Iterations = 60
	cfg.StallIters = 0
	s, err := NewPSO(cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Solve(context.Background(), prob)
	if err != nil {
		t.Fatal(err)
	}
	checkCandidate(t, prob, res.Best)
	// decode guarantee: damaged units never run service
	for i := range res.Best.Assign {
		if res.Best.Assign[i].Status == model.StatusRevenueService && !prob.Eligible(i) {
			t.Errorf("ineligible trainset %d in service", i)
		}
	}
}

func TestPSODeterministicSeed(t *testing.T) {
	prob := mustProblem(t, fleetOf(6), 2, 1)
	cfg := DefaultPSOConfig()
	cfg.Particles = 12
	cfg.Iterations = 30
	run := func() Result {
		s, _ := NewPSO(cfg, rand.New(rand.NewSource(11)))
		res, _ := s.Solve(context.Background(), prob)
		return res
	}
	a, b := run(), run()
	if a.Fitness.Total != b.Fitness.Total {
		t.Errorf("same seed diverged: %v vs %v", a.Fitness.Total, b.Fitness.Total)
	}
}

func TestCMAESSolve(t *testing.T) {
	prob := mustProblem(t, fleetOf(8), 3, 2)
	cfg := DefaultCMAESConfig()
	cfg.Lambda = 16
	cfg.Generations = 40
	s, err := NewCMAES(cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Solve(context.Background(), prob)
	if err != nil {
		t.Fatal(err)
	}
	checkCandidate(t, prob, res.Best)
	for i := range res.Best.Assign {
		if res.Best.Assign[i].Status == model.StatusRevenueService && !prob.Eligible(i) {
			t.Errorf("ineligible trainset %d in service", i)
		}
	}
}

func TestSolversReturnBestOnCancel(t *testing.T) {
	prob := mustProblem(t, fleetOf(6), 2, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ga := smallGA(t, 1)
	res, err := ga.Solve(ctx, prob)
	if err == nil {
		t.Fatal("GA: expected context error")
	}
	if res.Best == nil {
		t.Error("GA: cancelled solve should still report best-so-far")
	}

	sa, _ := NewSA(DefaultSAConfig(), rand.New(rand.NewSource(1)))
	res, err = sa.Solve(ctx, prob)
	if err == nil {
		t.Fatal("SA: expected context error")
	}
	if res.Best == nil {
		t.Error("SA: cancelled solve should still report best-so-far")
	}

	pso, _ := NewPSO(DefaultPSOConfig(), rand.New(rand.NewSource(1)))
	res, err = pso.Solve(ctx, prob)
	if err == nil {
		t.Fatal("PSO: expected context error")
	}
	if res.Best == nil {
		t.Error("PSO: cancelled solve should still report best-so-far")
	}
}

func TestConfigValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := NewGA(GAConfig{Population: 1}, rng); err == nil {
		t.Error("GA accepted population 1")
	}
	if _, err := NewSA(SAConfig{Iterations: 0}, rng); err == nil {
		t.Error("SA accepted zero iterations")
	}
	cfg := DefaultSAConfig()
	cfg.Alpha = 1.5
	if _, err := NewSA(cfg, rng); err == nil {
		t.Error("SA accepted alpha > 1")
	}
	if _, err := NewPSO(PSOConfig{}, rng); err == nil {
		t.Error("PSO accepted zero config")
	}
	ccfg := DefaultCMAESConfig()
	ccfg.SigmaFloor = 1
	if _, err := NewCMAES(ccfg, rng); err == nil {
		t.Error("CMA-ES accepted sigma floor above sigma0")
	}
	if _, err := NewGA(DefaultGAConfig(), nil); err == nil {
		t.Error("nil rng accepted")
	}
}
