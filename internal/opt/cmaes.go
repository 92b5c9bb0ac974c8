package opt

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// CMAESConfig tunes the covariance-matrix-adaptation solver. The covariance
// is kept diagonal: assignment dimensions are only weakly coupled and the
// diagonal variant stays O(dim) per sample.
type CMAESConfig struct {
	Lambda      int // samples per generation
	MuFrac      float64
	Generations int
	Sigma0      float64
	SigmaFloor  float64 // collapse threshold
	CMu         float64 // covariance learning rate
}

func DefaultCMAESConfig() CMAESConfig {
	return CMAESConfig{
		Lambda:      30,
		MuFrac:      0.5,
		Generations: 120,
		Sigma0:      0.3,
		SigmaFloor:  1e-4,
		CMu:         0.2,
	}
}

func (c CMAESConfig) Validate() error {
	if c.Lambda <= 1 {
		return fmt.Errorf("lambda must be > 1 (got %d)", c.Lambda)
	}
	if c.MuFrac <= 0 || c.MuFrac > 1 {
		return fmt.Errorf("mu fraction must be in (0,1] (got %f)", c.MuFrac)
	}
	if c.Generations <= 0 {
		return fmt.Errorf("generations must be > 0 (got %d)", c.Generations)
	}
	if c.Sigma0 <= 0 {
		return fmt.Errorf("sigma0 must be > 0 (got %f)", c.Sigma0)
	}
	if c.SigmaFloor <= 0 || c.SigmaFloor >= c.Sigma0 {
		return fmt.Errorf("sigma floor must be in (0, sigma0) (got %f)", c.SigmaFloor)
	}
	if c.CMu <= 0 || c.CMu >= 1 {
		return fmt.Errorf("covariance learning rate must be in (0,1) (got %f)", c.CMu)
	}
	return nil
}

// CMAES samples positions from a mean plus diagonal covariance, recombines
// the top-ranked samples into a new mean and adapts the per-dimension
// variances. Positions decode through the same random-keys rule as PSO.
type CMAES struct {
	Cfg CMAESConfig
	Rng *rand.Rand
}

func NewCMAES(cfg CMAESConfig, rng *rand.Rand) (*CMAES, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("nil rng")
	}
	return &CMAES{Cfg: cfg, Rng: rng}, nil
}

func (s *CMAES) Name() string { return MethodCMAES }

func (s *CMAES) Solve(ctx context.Context, prob *Problem) (Result, error) {
	start := time.Now()
	if err := s.Cfg.Validate(); err != nil {
		return Result{Method: MethodCMAES}, err
	}
	eval := NewEvaluator(prob)
	dim := vectorLen(prob)
	lambda := s.Cfg.Lambda
	mu := int(float64(lambda) * s.Cfg.MuFrac)
	if mu < 1 {
		mu = 1
	}

	// log-rank recombination weights
	weights := make([]float64, mu)
	wSum := 0.0
	for k := 0; k < mu; k++ {
		weights[k] = math.Log(float64(mu)+0.5) - math.Log(float64(k+1))
		wSum += weights[k]
	}
	for k := range weights {
		weights[k] /= wSum
	}

	mean := initVector(prob, s.Rng)
	cov := make([]float64, dim)
	for d := range cov {
		cov[d] = 1
	}
	sigma := s.Cfg.Sigma0

	type sample struct {
		x    []float64
		cost float64
	}
	samples := make([]sample, lambda)
	for i := range samples {
		samples[i].x = make([]float64, dim)
	}

	var best *Candidate
	var bestFit Fitness
	bestCost := math.Inf(-1)
	evals := 0
	collapsed := false

	gen := 0
	for ; gen < s.Cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return s.result(best, bestFit, evals, gen, start, sigma, "context"), err
		}
		maxVar := 0.0
		for _, v := range cov {
			if v > maxVar {
				maxVar = v
			}
		}
		if sigma*math.Sqrt(maxVar) < s.Cfg.SigmaFloor {
			collapsed = true
			break
		}

		genImproved := false
		for i := 0; i < lambda; i++ {
			for d := 0; d < dim; d++ {
				samples[i].x[d] = mean[d] + sigma*math.Sqrt(cov[d])*s.Rng.NormFloat64()
			}
			cand := decodeVector(prob, samples[i].x)
			fit := eval.Score(cand)
			evals++
			samples[i].cost = fit.Total
			if fit.Total > bestCost {
				bestCost = fit.Total
				best = cand
				bestFit = fit
				genImproved = true
			}
		}

		sort.SliceStable(samples, func(a, b int) bool { return samples[a].cost > samples[b].cost })

		oldMean := append([]float64(nil), mean...)
		for d := 0; d < dim; d++ {
			m := 0.0
			for k := 0; k < mu; k++ {
				m += weights[k] * samples[k].x[d]
			}
			mean[d] = m
		}
		for d := 0; d < dim; d++ {
			rankMu := 0.0
			for k := 0; k < mu; k++ {
				z := (samples[k].x[d] - oldMean[d]) / sigma
				rankMu += weights[k] * z * z
			}
			cov[d] = (1-s.Cfg.CMu)*cov[d] + s.Cfg.CMu*rankMu
		}
		if genImproved {
			sigma *= 1.05
		} else {
			sigma *= 0.92
		}
	}

	stopped := ""
	if collapsed {
		stopped = "covariance_collapse"
	}
	return s.result(best, bestFit, evals, gen, start, sigma, stopped), nil
}

func (s *CMAES) result(best *Candidate, fit Fitness, evals, gens int, start time.Time, sigma float64, stopped string) Result {
	meta := map[string]any{
		"lambda": s.Cfg.Lambda,
		"sigma":  sigma,
	}
	if stopped != "" {
		meta["stopped"] = stopped
	}
	return Result{
		Method:      MethodCMAES,
		Best:        best,
		Fitness:     fit,
		Evaluations: evals,
		Iterations:  gens,
		Duration:    time.Since(start),
		Meta:        meta,
	}
}
