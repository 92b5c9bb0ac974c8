package opt

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"
)

// GAConfig tunes the genetic solver.
type GAConfig struct {
	Population     int
	Generations    int
	Elite          int
	TournamentSize int
	CrossoverRate  float64
	MutationRate   float64
	PlateauGens    int // stop after this many generations without improvement
}

func DefaultGAConfig() GAConfig {
	return GAConfig{
		Population:     80,
		Generations:    150,
		Elite:          2,
		TournamentSize: 4,
		CrossoverRate:  0.90,
		MutationRate:   0.25,
		PlateauGens:    30,
	}
}

func (c GAConfig) Validate() error {
	if c.Population <= 1 {
		return fmt.Errorf("population must be > 1 (got %d)", c.Population)
	}
	if c.Generations <= 0 {
		return fmt.Errorf("generations must be > 0 (got %d)", c.Generations)
	}
	if c.Elite < 0 || c.Elite >= c.Population {
		return fmt.Errorf("elite must be in [0, population) (got %d)", c.Elite)
	}
	if c.TournamentSize <= 0 {
		return fmt.Errorf("tournament size must be > 0 (got %d)", c.TournamentSize)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("crossover rate must be in [0,1] (got %f)", c.CrossoverRate)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("mutation rate must be in [0,1] (got %f)", c.MutationRate)
	}
	return nil
}

// GA is the genetic solver: tournament selection, uniform assignment
// crossover, status/allocation/rank mutation, elitism.
type GA struct {
	Cfg GAConfig
	Rng *rand.Rand
}

func NewGA(cfg GAConfig, rng *rand.Rand) (*GA, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("nil rng")
	}
	return &GA{Cfg: cfg, Rng: rng}, nil
}

func (s *GA) Name() string { return MethodGA }

func (s *GA) Solve(ctx context.Context, prob *Problem) (Result, error) {
	start := time.Now()
	if err := s.Cfg.Validate(); err != nil {
		return Result{Method: MethodGA}, err
	}
	eval := NewEvaluator(prob)
	popSize := s.Cfg.Population

	pop := make([]*Candidate, popSize)
	scores := make([]float64, popSize)
	pop[0] = greedyCandidate(prob)
	for i := 1; i < popSize; i++ {
		pop[i] = randomCandidate(prob, s.Rng)
	}
	var best *Candidate
	var bestFit Fitness
	for i := range pop {
		fit := eval.Score(pop[i])
		scores[i] = fit.Total
		if best == nil || fit.Total > bestFit.Total {
			best = pop[i].Clone()
			bestFit = fit
		}
	}
	evals := popSize

	next := make([]*Candidate, popSize)
	nextScores := make([]float64, popSize)
	for i := range next {
		next[i] = NewCandidate(prob.Size())
	}
	idxs := make([]int, popSize)
	sinceImproved := 0

	gen := 0
	for ; gen < s.Cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return s.result(best, bestFit, evals, gen, start, "context"), err
		}
		if s.Cfg.PlateauGens > 0 && sinceImproved >= s.Cfg.PlateauGens {
			break
		}

		for i := range idxs {
			idxs[i] = i
		}
		sort.Slice(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })

		write := 0
		for e := 0; e < s.Cfg.Elite; e++ {
			src := idxs[e]
			copy(next[write].Assign, pop[src].Assign)
			nextScores[write] = scores[src]
			write++
		}

		improved := false
		for write < popSize {
			p1 := tournamentSelect(scores, s.Cfg.TournamentSize, s.Rng)
			p2 := tournamentSelect(scores, s.Cfg.TournamentSize, s.Rng)
			c1 := next[write]
			hasSecond := write+1 < popSize
			c2 := NewCandidate(prob.Size())
			if hasSecond {
				c2 = next[write+1]
			}

			if s.Rng.Float64() < s.Cfg.CrossoverRate {
				crossoverUniform(pop[p1], pop[p2], c1, c2, s.Rng)
			} else {
				copy(c1.Assign, pop[p1].Assign)
				copy(c2.Assign, pop[p2].Assign)
			}
			if s.Rng.Float64() < s.Cfg.MutationRate {
				mutate(prob, c1, s.Rng)
			}
			if hasSecond && s.Rng.Float64() < s.Cfg.MutationRate {
				mutate(prob, c2, s.Rng)
			}

			fit := eval.Score(c1)
			nextScores[write] = fit.Total
			evals++
			if fit.Total > bestFit.Total {
				best = c1.Clone()
				bestFit = fit
				improved = true
			}
			write++
			if hasSecond {
				fit2 := eval.Score(c2)
				nextScores[write] = fit2.Total
				evals++
				if fit2.Total > bestFit.Total {
					best = c2.Clone()
					bestFit = fit2
					improved = true
				}
				write++
			}
		}

		pop, next = next, pop
		scores, nextScores = nextScores, scores
		if improved {
			sinceImproved = 0
		} else {
			sinceImproved++
		}
	}

	return s.result(best, bestFit, evals, gen, start, ""), nil
}

func (s *GA) result(best *Candidate, fit Fitness, evals, gens int, start time.Time, stopped string) Result {
	meta := map[string]any{
		"population": s.Cfg.Population,
		"elite":      s.Cfg.Elite,
	}
	if stopped != "" {
		meta["stopped"] = stopped
	}
	return Result{
		Method:      MethodGA,
		Best:        best,
		Fitness:     fit,
		Evaluations: evals,
		Iterations:  gens,
		Duration:    time.Since(start),
		Meta:        meta,
	}
}
