package opt

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// SAConfig tunes the simulated annealing solver. Fitness totals live in
// roughly [-penalty*k, 1], so temperatures are small.
type SAConfig struct {
	Iterations  int
	InitialTemp float64
	FinalTemp   float64
	Alpha       float64
}

func DefaultSAConfig() SAConfig {
	return SAConfig{
		Iterations:  4000,
		InitialTemp: 0.5,
		FinalTemp:   0.001,
		Alpha:       0.9985,
	}
}

func (c SAConfig) Validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be > 0 (got %d)", c.Iterations)
	}
	if c.InitialTemp <= 0 {
		return fmt.Errorf("initial temperature must be > 0 (got %f)", c.InitialTemp)
	}
	if c.FinalTemp <= 0 || c.FinalTemp >= c.InitialTemp {
		return fmt.Errorf("final temperature must be in (0, initial) (got %f)", c.FinalTemp)
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0,1) (got %f)", c.Alpha)
	}
	return nil
}

// SA is the simulated annealing solver: single current candidate, random
// single-train perturbation, Metropolis acceptance.
type SA struct {
	Cfg SAConfig
	Rng *rand.Rand
}

func NewSA(cfg SAConfig, rng *rand.Rand) (*SA, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("nil rng")
	}
	return &SA{Cfg: cfg, Rng: rng}, nil
}

func (s *SA) Name() string { return MethodSA }

func (s *SA) Solve(ctx context.Context, prob *Problem) (Result, error) {
	start := time.Now()
	if err := s.Cfg.Validate(); err != nil {
		return Result{Method: MethodSA}, err
	}
	eval := NewEvaluator(prob)

	curr := greedyCandidate(prob)
	currFit := eval.Score(curr)
	best := curr.Clone()
	bestFit := currFit
	evals := 1

	T := s.Cfg.InitialTemp
	iter := 0
	for ; iter < s.Cfg.Iterations && T > s.Cfg.FinalTemp; iter++ {
		if err := ctx.Err(); err != nil {
			return s.result(best, bestFit, evals, iter, start, T, "context"), err
		}

		cand := curr.Clone()
		mutate(prob, cand, s.Rng)
		candFit := eval.Score(cand)
		evals++

		delta := candFit.Total - currFit.Total
		if delta >= 0 || s.Rng.Float64() < math.Exp(delta/T) {
			curr = cand
			currFit = candFit
			if currFit.Total > bestFit.Total {
				best = curr.Clone()
				bestFit = currFit
			}
		}
		T *= s.Cfg.Alpha
	}

	return s.result(best, bestFit, evals, iter, start, T, ""), nil
}

func (s *SA) result(best *Candidate, fit Fitness, evals, iters int, start time.Time, temp float64, stopped string) Result {
	meta := map[string]any{
		"initial_temp": s.Cfg.InitialTemp,
		"final_temp":   s.Cfg.FinalTemp,
		"alpha":        s.Cfg.Alpha,
		"temp":         temp,
	}
	if stopped != "" {
		meta["stopped"] = stopped
	}
	return Result{
		Method:      MethodSA,
		Best:        best,
		Fitness:     fit,
		Evaluations: evals,
		Iterations:  iters,
		Duration:    time.Since(start),
		Meta:        meta,
	}
}
