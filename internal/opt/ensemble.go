package opt

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"metrosched/internal/model"
)

// DefaultTimeBudget bounds a run when the caller does not set one.
const DefaultTimeBudget = 3 * time.Second

// DefaultAlgorithms is the full ensemble.
var DefaultAlgorithms = []string{MethodGA, MethodPSO, MethodSA, MethodCMAES, MethodNSGA2}

// EnsembleConfig configures one coordinator run.
type EnsembleConfig struct {
	Algorithms []string
	TimeBudget time.Duration
	Seed       int64
	Adaptive   bool
	Params     map[string]model.AlgorithmParams
}

// MethodOutcome summarizes one algorithm's contribution to a run.
type MethodOutcome struct {
	Method      string  `json:"method"`
	Fitness     Fitness `json:"fitness"`
	Feasible    bool    `json:"feasible"`
	Evaluations int     `json:"evaluations"`
	Iterations  int     `json:"iterations"`
	RuntimeMs   int64   `json:"runtimeMs"`
	Err         string  `json:"error,omitempty"`
}

// Outcome is the coordinator's final report for one run.
type Outcome struct {
	RunID      string
	Best       Result
	Violations []Violation
	Methods    []MethodOutcome
	Degraded   bool
	Infeasible bool
	Runtime    time.Duration
}

// Coordinator runs the configured solvers in parallel against one shared
// evaluator and selects the final candidate deterministically.
type Coordinator struct {
	Cfg EnsembleConfig
}

func NewCoordinator(cfg EnsembleConfig) *Coordinator {
	if len(cfg.Algorithms) == 0 {
		cfg.Algorithms = append([]string(nil), DefaultAlgorithms...)
	}
	if cfg.TimeBudget <= 0 {
		cfg.TimeBudget = DefaultTimeBudget
	}
	return &Coordinator{Cfg: cfg}
}

// Run executes the ensemble. It returns an InfeasibleError when the fleet
// cannot satisfy the configured minimums, and ErrCancelled when the caller
// cancels mid-search. Individual algorithm failures are absorbed: the greedy
// baseline always provides a floor result.
func (co *Coordinator) Run(ctx context.Context, prob *Problem) (*Outcome, error) {
	start := time.Now()
	if err := prob.CheckStructural(); err != nil {
		return nil, err
	}

	// canonical method order makes seeds and selection order deterministic
	methods := dedupeMethods(co.Cfg.Algorithms)

	// baseline first: cheap, deterministic, and the adaptive-mode probe
	greedyStart := time.Now()
	baseline, err := Greedy{}.Solve(ctx, prob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	greedyDur := time.Since(greedyStart)

	perAlg := co.Cfg.TimeBudget
	if co.Cfg.Adaptive && len(methods) > 0 {
		remaining := co.Cfg.TimeBudget - greedyDur
		if remaining < co.Cfg.TimeBudget/10 {
			remaining = co.Cfg.TimeBudget / 10
		}
		perAlg = remaining / time.Duration(len(methods))
	}

	type methodResult struct {
		method  string
		res     Result
		err     error
		runtime time.Duration
	}
	results := make([]methodResult, len(methods))
	var wg sync.WaitGroup
	for i, name := range methods {
		solver, serr := co.newSolver(name, co.Cfg.Seed+int64(i)+1)
		if serr != nil {
			results[i] = methodResult{method: name, err: serr}
			continue
		}
		wg.Add(1)
		go func(i int, name string, solver Optimizer) {
			defer wg.Done()
			algCtx, cancel := context.WithTimeout(ctx, perAlg)
			defer cancel()
			t0 := time.Now()
			res, err := solver.Solve(algCtx, prob)
			// a deadline hit still yields the best-so-far candidate
			if err != nil && algCtx.Err() != nil && ctx.Err() == nil && res.Best != nil {
				err = nil
				if res.Meta == nil {
					res.Meta = map[string]any{}
				}
				res.Meta["truncated"] = true
			}
			results[i] = methodResult{method: name, res: res, err: err, runtime: time.Since(t0)}
		}(i, name, solver)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}

	eval := NewEvaluator(prob)
	outcome := &Outcome{RunID: uuid.New().String()}
	best := baseline
	outcome.Methods = append(outcome.Methods, methodOutcome(baseline.Method, baseline, nil, greedyDur))

	failed := 0
	for _, mr := range results {
		if mr.err != nil {
			failed++
			outcome.Methods = append(outcome.Methods, methodOutcome(mr.method, Result{}, mr.err, mr.runtime))
			continue
		}
		res := mr.res
		if len(res.Front) > 0 && res.Best == nil {
			res = collapseFront(eval, res)
		}
		if res.Best == nil {
			failed++
			outcome.Methods = append(outcome.Methods, methodOutcome(mr.method, Result{}, fmt.Errorf("no candidate produced"), mr.runtime))
			continue
		}
		outcome.Methods = append(outcome.Methods, methodOutcome(mr.method, res, nil, mr.runtime))
		if Better(res, best) {
			best = res
		}
	}

	outcome.Best = best
	outcome.Degraded = len(methods) > 0 && failed == len(methods)
	outcome.Infeasible = !best.Fitness.Feasible()
	_, outcome.Violations = eval.Evaluate(best.Best)
	outcome.Runtime = time.Since(start)

	for _, m := range outcome.Methods {
		RecordRunMetrics(outcome.RunID, m.Method, m)
	}
	return outcome, nil
}

// collapseFront scalarizes a Pareto front with the run's weights, applying
// the shared tie-break across front members.
func collapseFront(eval *Evaluator, res Result) Result {
	out := res
	for _, pt := range res.Front {
		fit := eval.Score(pt.Candidate)
		cand := Result{Method: res.Method, Best: pt.Candidate, Fitness: fit}
		if out.Best == nil || Better(cand, Result{Method: out.Method, Best: out.Best, Fitness: out.Fitness}) {
			out.Best = pt.Candidate
			out.Fitness = fit
		}
	}
	return out
}

func (co *Coordinator) newSolver(name string, seed int64) (Optimizer, error) {
	rng := rand.New(rand.NewSource(seed))
	params := co.Cfg.Params[name]
	switch name {
	case MethodGA:
		cfg := DefaultGAConfig()
		if params.Population > 0 {
			cfg.Population = params.Population
		}
		if params.Generations > 0 {
			cfg.Generations = params.Generations
		}
		if params.CrossoverRate > 0 {
			cfg.CrossoverRate = params.CrossoverRate
		}
		if params.MutationRate > 0 {
			cfg.MutationRate = params.MutationRate
		}
		return NewGA(cfg, rng)
	case MethodPSO:
		cfg := DefaultPSOConfig()
		if params.Particles > 0 {
			cfg.Particles = params.Particles
		}
		if params.Iterations > 0 {
			cfg.Iterations = params.Iterations
		}
		return NewPSO(cfg, rng)
	case MethodSA:
		cfg := DefaultSAConfig()
		if params.Iterations > 0 {
			cfg.Iterations = params.Iterations
		}
		if params.InitialTemp > 0 {
			cfg.InitialTemp = params.InitialTemp
		}
		if params.Cooling > 0 && params.Cooling < 1 {
			cfg.Alpha = params.Cooling
		}
		return NewSA(cfg, rng)
	case MethodCMAES:
		cfg := DefaultCMAESConfig()
		if params.Population > 0 {
			cfg.Lambda = params.Population
		}
		if params.Generations > 0 {
			cfg.Generations = params.Generations
		}
		return NewCMAES(cfg, rng)
	case MethodNSGA2:
		cfg := DefaultNSGA2Config()
		if params.Population > 0 {
			cfg.Population = params.Population
		}
		if params.Generations > 0 {
			cfg.Generations = params.Generations
		}
		if params.CrossoverRate > 0 {
			cfg.CrossoverRate = params.CrossoverRate
		}
		if params.MutationRate > 0 {
			cfg.MutationRate = params.MutationRate
		}
		return NewNSGA2(cfg, rng)
	case MethodGreedy:
		return Greedy{}, nil
	}
	return nil, fmt.Errorf("unknown algorithm %q", name)
}

func methodOutcome(name string, res Result, err error, runtime time.Duration) MethodOutcome {
	out := MethodOutcome{
		Method:      name,
		RuntimeMs:   runtime.Milliseconds(),
		Evaluations: res.Evaluations,
		Iterations:  res.Iterations,
	}
	if err != nil {
		out.Err = err.Error()
		return out
	}
	out.Fitness = res.Fitness
	out.Feasible = res.Fitness.Feasible()
	return out
}

func dedupeMethods(names []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == MethodGreedy || seen[n] {
			// greedy always runs as the baseline
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
