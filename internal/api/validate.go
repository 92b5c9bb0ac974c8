package api

import (
	"fmt"

	"metrosched/internal/model"
	"metrosched/internal/opt"
)

func validateConfigUpdate(cfg *model.OptimizerConfig) error {
	if cfg.MinServiceTrains < 0 || cfg.MinStandbyTrains < 0 {
		return fmt.Errorf("minimum train counts must be >= 0")
	}
	if cfg.MaxDailyKM < 0 {
		return fmt.Errorf("maxDailyKm must be >= 0")
	}
	if cfg.TimeBudgetMs < 0 {
		return fmt.Errorf("timeBudgetMs must be >= 0")
	}
	known := map[string]bool{
		opt.MethodGreedy: true, opt.MethodGA: true, opt.MethodPSO: true,
		opt.MethodSA: true, opt.MethodCMAES: true, opt.MethodNSGA2: true,
	}
	for _, a := range cfg.Algorithms {
		if !known[a] {
			return fmt.Errorf("unknown algorithm: %s", a)
		}
	}
	for name, p := range cfg.Params {
		if !known[name] {
			return fmt.Errorf("params for unknown algorithm: %s", name)
		}
		if p.CrossoverRate < 0 || p.CrossoverRate > 1 {
			return fmt.Errorf("%s: crossoverRate must be in [0,1]", name)
		}
		if p.MutationRate < 0 || p.MutationRate > 1 {
			return fmt.Errorf("%s: mutationRate must be in [0,1]", name)
		}
		if p.Cooling != 0 && (p.Cooling <= 0 || p.Cooling >= 1) {
			return fmt.Errorf("%s: cooling must be in (0,1)", name)
		}
	}
	w := cfg.Weights
	for name, v := range map[string]float64{
		"readiness": w.Readiness, "mileageBalance": w.MileageBalance,
		"branding": w.Branding, "cost": w.Cost,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must be >= 0", name)
		}
	}
	return nil
}
