package opt

import (
	"errors"
	"fmt"

	"metrosched/internal/model"
)

// ErrCancelled is returned when the caller cancels an in-flight run. A
// cancelled run yields no schedule.
var ErrCancelled = errors.New("optimization cancelled")

// InfeasibleError reports that the fleet cannot satisfy the configured
// minimum service and standby counts no matter the assignment.
type InfeasibleError struct {
	Eligible  int
	Required  int
	Shortfall int
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("structurally infeasible: %d eligible trainsets, %d required (shortfall %d)",
		e.Eligible, e.Required, e.Shortfall)
}

// Problem binds the read-only input dataset to the constraint configuration
// for one optimization run. It is never mutated after construction and is
// safe to share across concurrent solver instances.
type Problem struct {
	Fleet []model.Trainset
	Route model.Route

	MinService    int
	MinStandby    int
	MaxDailyKM    float64
	TargetDailyKM float64
	Weights       model.Weights

	eligible []bool
}

// NewProblem validates constraint configuration and precomputes revenue
// eligibility. The fleet and route are assumed to have passed input
// validation already.
func NewProblem(fleet []model.Trainset, route model.Route, cfg model.OptimizerConfig) (*Problem, error) {
	if len(fleet) == 0 {
		return nil, fmt.Errorf("%w: empty fleet", model.ErrInvalidInput)
	}
	if cfg.MinServiceTrains < 0 || cfg.MinStandbyTrains < 0 {
		return nil, fmt.Errorf("%w: negative minimum counts", model.ErrInvalidInput)
	}
	if cfg.MaxDailyKM <= 0 {
		return nil, fmt.Errorf("%w: max daily km must be > 0", model.ErrInvalidInput)
	}
	ws := cfg.Weights
	if ws.Readiness == 0 && ws.MileageBalance == 0 && ws.Branding == 0 && ws.Cost == 0 {
		ws = model.DefaultWeights()
	}
	target := cfg.TargetDailyKM
	if target <= 0 || target > cfg.MaxDailyKM {
		target = cfg.MaxDailyKM * 0.85
	}
	p := &Problem{
		Fleet:         fleet,
		Route:         route,
		MinService:    cfg.MinServiceTrains,
		MinStandby:    cfg.MinStandbyTrains,
		MaxDailyKM:    cfg.MaxDailyKM,
		TargetDailyKM: target,
		Weights:       ws,
		eligible:      make([]bool, len(fleet)),
	}
	for i := range fleet {
		p.eligible[i] = fleet[i].RevenueEligible()
	}
	return p, nil
}

// Size returns the fleet size.
func (p *Problem) Size() int { return len(p.Fleet) }

// Eligible reports whether trainset i may run revenue service.
func (p *Problem) Eligible(i int) bool { return p.eligible[i] }

// EligibleCount counts revenue-eligible trainsets.
func (p *Problem) EligibleCount() int {
	n := 0
	for _, ok := range p.eligible {
		if ok {
			n++
		}
	}
	return n
}

// CheckStructural returns an InfeasibleError when fewer healthy trainsets
// exist than the configured service+standby minimums. Standby slots may be
// filled by non-eligible but undamaged units, so only the service minimum
// binds on eligibility; the combined minimum binds on fleet size.
func (p *Problem) CheckStructural() error {
	elig := p.EligibleCount()
	if elig < p.MinService {
		return &InfeasibleError{Eligible: elig, Required: p.MinService, Shortfall: p.MinService - elig}
	}
	required := p.MinService + p.MinStandby
	if len(p.Fleet) < required {
		return &InfeasibleError{Eligible: len(p.Fleet), Required: required, Shortfall: required - len(p.Fleet)}
	}
	return nil
}
