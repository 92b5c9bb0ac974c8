package opt

import (
	"context"
	"errors"
	"testing"
	"time"

	"metrosched/internal/model"
)

func smallParams() map[string]model.AlgorithmParams {
	return map[string]model.AlgorithmParams{
		MethodGA:    {Population: 16, Generations: 20},
		MethodSA:    {Iterations: 400},
		MethodPSO:   {Particles: 12, Iterations: 20},
		MethodCMAES: {Population: 12, Generations: 15},
		MethodNSGA2: {Population: 12, Generations: 10},
	}
}

func TestCoordinatorRun(t *testing.T) {
	prob := mustProblem(t, fleetOf(8), 3, 2)
	co := NewCoordinator(EnsembleConfig{
		Algorithms: []string{MethodGA, MethodSA},
		TimeBudget: 10 * time.Second,
		Seed:       3,
		Params:     smallParams(),
	})
	out, err := co.Run(context.Background(), prob)
	if err != nil {
		t.Fatal(err)
	}
	if out.RunID == "" {
		t.Error("missing run id")
	}
	if out.Best.Best == nil || !out.Best.Fitness.Feasible() {
		t.Fatalf("best: %+v", out.Best)
	}
	if out.Infeasible || out.Degraded {
		t.Errorf("flags: %+v", out)
	}
	// baseline plus both configured methods reported
	if len(out.Methods) != 3 {
		t.Fatalf("methods = %+v", out.Methods)
	}
	if out.Methods[0].Method != MethodGreedy {
		t.Errorf("baseline not first: %s", out.Methods[0].Method)
	}
	// per-run metrics recorded
	if got := GetRunMetrics(out.RunID); len(got) != 3 {
		t.Errorf("run metrics = %+v", got)
	}
}

func TestCoordinatorCollapsesParetoFront(t *testing.T) {
	prob := mustProblem(t, fleetOf(6), 2, 1)
	co := NewCoordinator(EnsembleConfig{
		Algorithms: []string{MethodNSGA2},
		TimeBudget: 10 * time.Second,
		Seed:       1,
		Params:     smallParams(),
	})
	out, err := co.Run(context.Background(), prob)
	if err != nil {
		t.Fatal(err)
	}
	if out.Best.Best == nil {
		t.Fatal("front not collapsed to a candidate")
	}
	for _, m := range out.Methods {
		if m.Method == MethodNSGA2 && m.Err != "" {
			t.Errorf("nsga2 failed: %s", m.Err)
		}
	}
}

func TestCoordinatorStructuralInfeasibility(t *testing.T) {
	fleet := fleetOf(4)
	for i := range fleet {
		fleet[i].BlockingJobs = []string{"JC-1"}
	}
	prob := mustProblem(t, fleet, 2, 1)
	co := NewCoordinator(EnsembleConfig{})
	_, err := co.Run(context.Background(), prob)
	var inf *InfeasibleError
	if !errors.As(err, &inf) {
		t.Fatalf("want InfeasibleError, got %v", err)
	}
}

func TestCoordinatorCancelled(t *testing.T) {
	prob := mustProblem(t, fleetOf(6), 2, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	co := NewCoordinator(EnsembleConfig{Params: smallParams()})
	_, err := co.Run(ctx, prob)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("want ErrCancelled, got %v", err)
	}
}

func TestCoordinatorDeterministicSeed(t *testing.T) {
	prob := mustProblem(t, fleetOf(8), 3, 2)
	run := func() *Outcome {
		co := NewCoordinator(EnsembleConfig{
			Algorithms: []string{MethodGA, MethodSA},
			TimeBudget: 10 * time.Second,
			Seed:       42,
			Params:     smallParams(),
		})
		out, err := co.Run(context.Background(), prob)
		if err != nil {
			t.Fatal(err)
		}
		return out
	}
	a, b := run(), run()
	if a.Best.Method != b.Best.Method || a.Best.Fitness.Total != b.Best.Fitness.Total {
		t.Errorf("seeded runs diverged: %s %v vs %s %v",
			a.Best.Method, a.Best.Fitness.Total, b.Best.Method, b.Best.Fitness.Total)
	}
}

func TestCoordinatorBaselineOnly(t *testing.T) {
	prob := mustProblem(t, fleetOf(6), 2, 1)
	co := NewCoordinator(EnsembleConfig{Algorithms: []string{MethodGreedy}})
	out, err := co.Run(context.Background(), prob)
	if err != nil {
		t.Fatal(err)
	}
	if out.Best.Method != MethodGreedy {
		t.Errorf("best method = %s", out.Best.Method)
	}
	if out.Best.Best == nil || !out.Best.Fitness.Feasible() {
		t.Fatalf("baseline-only run not feasible: %+v", out.Best)
	}
	if out.Degraded {
		t.Error("baseline-only configuration is not a degraded run")
	}
	if len(out.Methods) != 1 || out.Methods[0].Method != MethodGreedy {
		t.Errorf("methods = %+v", out.Methods)
	}
}

func TestCoordinatorUnknownAlgorithmDegrades(t *testing.T) {
	prob := mustProblem(t, fleetOf(6), 2, 1)
	co := NewCoordinator(EnsembleConfig{Algorithms: []string{"tabu"}})
	out, err := co.Run(context.Background(), prob)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Degraded {
		t.Error("all methods failed; run should be degraded")
	}
	if out.Best.Method != MethodGreedy {
		t.Errorf("best should fall back to baseline, got %s", out.Best.Method)
	}
}

func TestBetterTieBreak(t *testing.T) {
	c2 := NewCandidate(4)
	c2.Assign[0].Status = "REVENUE_SERVICE"
	c2.Assign[1].Status = "REVENUE_SERVICE"
	c1 := NewCandidate(4)
	c1.Assign[0].Status = "REVENUE_SERVICE"

	hi := Result{Method: "ga", Best: c1, Fitness: Fitness{Total: 0.8}}
	lo := Result{Method: "sa", Best: c1, Fitness: Fitness{Total: 0.6}}
	if !Better(hi, lo) || Better(lo, hi) {
		t.Error("higher fitness must win")
	}

	clean := Result{Method: "ga", Best: c1, Fitness: Fitness{Total: 0.5}}
	dirty := Result{Method: "sa", Best: c1, Fitness: Fitness{Total: 0.5, HardViolations: 1}}
	if !Better(clean, dirty) {
		t.Error("fewer hard violations must win at equal fitness")
	}

	calm := Result{Method: "sa", Best: c1, Fitness: Fitness{Total: 0.5}}
	busy := Result{Method: "ga", Best: c2, Fitness: Fitness{Total: 0.5}}
	if !Better(calm, busy) {
		t.Error("smaller deviation must win at equal fitness and violations")
	}

	a := Result{Method: "cmaes", Best: c1, Fitness: Fitness{Total: 0.5}}
	b := Result{Method: "pso", Best: c1.Clone(), Fitness: Fitness{Total: 0.5}}
	if !Better(a, b) || Better(b, a) {
		t.Error("method name is the final tie-break")
	}

	if Better(Result{}, lo) {
		t.Error("nil best never wins")
	}
	if !Better(lo, Result{}) {
		t.Error("any candidate beats nil best")
	}
}
