package opt

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// PSOConfig tunes the particle swarm solver.
type PSOConfig struct {
	Particles  int
	Iterations int
	W          float64 // inertia
	C1         float64 // cognitive pull
	C2         float64 // social pull
	VMax       float64
	StallIters int // stop after this many iterations without improvement
}

func DefaultPSOConfig() PSOConfig {
	return PSOConfig{
		Particles:  40,
		Iterations: 200,
		W:          0.729,
		C1:         1.49445,
		C2:         1.49445,
		VMax:       0.25,
		StallIters: 50,
	}
}

func (c PSOConfig) Validate() error {
	if c.Particles <= 0 {
		return fmt.Errorf("particles must be > 0 (got %d)", c.Particles)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be > 0 (got %d)", c.Iterations)
	}
	if c.W < 0 || c.C1 < 0 || c.C2 < 0 {
		return fmt.Errorf("w, c1, c2 must be >= 0")
	}
	return nil
}

type particle struct {
	pos      []float64
	vel      []float64
	bestPos  []float64
	bestCost float64
}

// PSO searches a continuous position space decoded to discrete assignments
// through the shared random-keys decode.
type PSO struct {
	Cfg PSOConfig
	Rng *rand.Rand
}

func NewPSO(cfg PSOConfig, rng *rand.Rand) (*PSO, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("nil rng")
	}
	return &PSO{Cfg: cfg, Rng: rng}, nil
}

func (s *PSO) Name() string { return MethodPSO }

func (s *PSO) Solve(ctx context.Context, prob *Problem) (Result, error) {
	start := time.Now()
	if err := s.Cfg.Validate(); err != nil {
		return Result{Method: MethodPSO}, err
	}
	eval := NewEvaluator(prob)
	dim := vectorLen(prob)

	ps := make([]particle, s.Cfg.Particles)
	gBestPos := make([]float64, dim)
	gBestCost := math.Inf(-1)
	var gBest *Candidate
	var gBestFit Fitness

	for i := range ps {
		pos := initVector(prob, s.Rng)
		vel := make([]float64, dim)
		for d := range vel {
			vel[d] = (s.Rng.Float64()*2 - 1) * s.Cfg.VMax
		}
		cand := decodeVector(prob, pos)
		fit := eval.Score(cand)
		ps[i] = particle{pos: pos, vel: vel, bestPos: append([]float64(nil), pos...), bestCost: fit.Total}
		if fit.Total > gBestCost {
			gBestCost = fit.Total
			copy(gBestPos, pos)
			gBest = cand
			gBestFit = fit
		}
	}
	evals := s.Cfg.Particles

	stall := 0
	iter := 0
	for ; iter < s.Cfg.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return s.result(gBest, gBestFit, evals, iter, start, "context"), err
		}
		if s.Cfg.StallIters > 0 && stall >= s.Cfg.StallIters {
			break
		}
		improved := false
		for i := range ps {
			p := &ps[i]
			for d := 0; d < dim; d++ {
				r1 := s.Rng.Float64()
				r2 := s.Rng.Float64()
				v := s.Cfg.W*p.vel[d] +
					s.Cfg.C1*r1*(p.bestPos[d]-p.pos[d]) +
					s.Cfg.C2*r2*(gBestPos[d]-p.pos[d])
				if s.Cfg.VMax > 0 {
					if v > s.Cfg.VMax {
						v = s.Cfg.VMax
					} else if v < -s.Cfg.VMax {
						v = -s.Cfg.VMax
					}
				}
				p.vel[d] = v
				x := p.pos[d] + v
				if x < 0 {
					x, p.vel[d] = 0, 0
				} else if x > 1 {
					x, p.vel[d] = 1, 0
				}
				p.pos[d] = x
			}
			cand := decodeVector(prob, p.pos)
			fit := eval.Score(cand)
			evals++
			if fit.Total > p.bestCost {
				p.bestCost = fit.Total
				copy(p.bestPos, p.pos)
			}
			if fit.Total > gBestCost {
				gBestCost = fit.Total
				copy(gBestPos, p.pos)
				gBest = cand
				gBestFit = fit
				improved = true
			}
		}
		if improved {
			stall = 0
		} else {
			stall++
		}
	}

	return s.result(gBest, gBestFit, evals, iter, start, ""), nil
}

func (s *PSO) result(best *Candidate, fit Fitness, evals, iters int, start time.Time, stopped string) Result {
	meta := map[string]any{
		"particles": s.Cfg.Particles,
		"w":         s.Cfg.W,
		"c1":        s.Cfg.C1,
		"c2":        s.Cfg.C2,
	}
	if stopped != "" {
		meta["stopped"] = stopped
	}
	return Result{
		Method:      MethodPSO,
		Best:        best,
		Fitness:     fit,
		Evaluations: evals,
		Iterations:  iters,
		Duration:    time.Since(start),
		Meta:        meta,
	}
}
