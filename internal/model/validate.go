package model

import (
	"errors"
	"fmt"
)

// ErrInvalidInput wraps all pre-search validation failures.
var ErrInvalidInput = errors.New("invalid input")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ValidateRequest rejects malformed inputs before they reach the optimizer.
func ValidateRequest(req *OptimizeRequest) error {
	if req == nil {
		return invalidf("nil request")
	}
	if len(req.Fleet) == 0 {
		return invalidf("fleet is empty")
	}
	seen := make(map[string]bool, len(req.Fleet))
	for i := range req.Fleet {
		t := &req.Fleet[i]
		if t.ID == "" {
			return invalidf("fleet[%d]: missing trainset id", i)
		}
		if seen[t.ID] {
			return invalidf("duplicate trainset id %q", t.ID)
		}
		seen[t.ID] = true
		if t.Readiness < 0 || t.Readiness > 1 {
			return invalidf("trainset %s: readiness %.3f outside [0,1]", t.ID, t.Readiness)
		}
		if t.CumulativeKM < 0 {
			return invalidf("trainset %s: negative cumulative km", t.ID)
		}
		if t.JobCardCount < 0 {
			return invalidf("trainset %s: negative job card count", t.ID)
		}
		for _, c := range t.Certificates {
			switch c.Status {
			case CertValid, CertExpiringSoon, CertExpired:
			default:
				return invalidf("trainset %s: unknown certificate status %q", t.ID, c.Status)
			}
		}
		for comp, h := range t.ComponentHealth {
			switch h {
			case HealthGood, HealthFair, HealthWarning, HealthCritical:
			default:
				return invalidf("trainset %s: component %s has unknown health %q", t.ID, comp, h)
			}
		}
		if b := t.Branding; b != nil {
			switch b.Priority {
			case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
			default:
				return invalidf("trainset %s: unknown branding priority %q", t.ID, b.Priority)
			}
			if b.RequiredHours < 0 || b.RemainingHours < 0 {
				return invalidf("trainset %s: negative branding hours", t.ID)
			}
		}
	}
	if err := validateRoute(&req.Route); err != nil {
		return err
	}
	if req.Config != nil {
		if err := validateConfig(req.Config); err != nil {
			return err
		}
	}
	return nil
}

func validateRoute(r *Route) error {
	if len(r.Stations) < 2 {
		return invalidf("route needs at least 2 stations (got %d)", len(r.Stations))
	}
	prev := -1.0
	for i, s := range r.Stations {
		if s.Code == "" {
			return invalidf("route station[%d]: missing code", i)
		}
		if s.DistanceKM < prev {
			return invalidf("route station %s: distance %.3f not monotonic", s.Code, s.DistanceKM)
		}
		prev = s.DistanceKM
	}
	if r.TotalKM <= 0 {
		return invalidf("route total km must be > 0 (got %.3f)", r.TotalKM)
	}
	if r.AvgSpeedKPH <= 0 {
		return invalidf("route average speed must be > 0 (got %.3f)", r.AvgSpeedKPH)
	}
	if r.TurnaroundMin < 0 {
		return invalidf("route turnaround must be >= 0 (got %d)", r.TurnaroundMin)
	}
	return nil
}

func validateConfig(c *OptimizerConfig) error {
	if c.MinServiceTrains < 0 || c.MinStandbyTrains < 0 {
		return invalidf("minimum train counts must be >= 0")
	}
	if c.MaxDailyKM < 0 {
		return invalidf("max daily km must be >= 0")
	}
	if c.TimeBudgetMs < 0 {
		return invalidf("time budget must be >= 0")
	}
	w := c.Weights
	for name, v := range map[string]float64{
		"readiness": w.Readiness, "mileageBalance": w.MileageBalance,
		"branding": w.Branding, "cost": w.Cost,
	} {
		if v < 0 {
			return invalidf("weight %s must be >= 0", name)
		}
	}
	return nil
}

// BrandingWeight maps a priority tier to its exposure weight.
func BrandingWeight(priority string) float64 {
	switch priority {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}
