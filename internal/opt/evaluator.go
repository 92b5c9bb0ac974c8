package opt

import (
	"fmt"
	"math"
	"sort"

	"metrosched/internal/model"
)

// Violation kinds.
const (
	ViolationHard = "hard"
	ViolationSoft = "soft"
)

// HardPenalty is subtracted per hard violation. The soft objective sum is
// bounded by 1.0, so a single hard violation always outranks any soft
// quality gap.
const HardPenalty = 100.0

const objectiveCount = 4

// Violation is one constraint finding produced by the evaluator.
type Violation struct {
	Kind        string  `json:"kind"`
	TrainsetID  string  `json:"trainsetId,omitempty"`
	Description string  `json:"description"`
	Penalty     float64 `json:"penalty"`
}

// Fitness is the scalar score plus its per-objective breakdown. Created
// fresh per evaluation and never mutated afterwards.
type Fitness struct {
	Total          float64 `json:"total"`
	Readiness      float64 `json:"readiness"`
	MileageBalance float64 `json:"mileageBalance"`
	Branding       float64 `json:"branding"`
	Cost           float64 `json:"cost"`
	Penalty        float64 `json:"penalty"`
	HardViolations int     `json:"hardViolations"`
}

// Feasible reports whether the scored candidate satisfied every hard
// constraint.
func (f Fitness) Feasible() bool { return f.HardViolations == 0 }

// Evaluator maps candidates to fitness against one read-only Problem. It
// holds no mutable state, so a single instance is safe for concurrent use
// by every solver in a run.
type Evaluator struct {
	prob *Problem
}

// NewEvaluator binds an evaluator to a problem.
func NewEvaluator(prob *Problem) *Evaluator {
	return &Evaluator{prob: prob}
}

// Score is the allocation-light scoring used inside search loops.
func (e *Evaluator) Score(c *Candidate) Fitness {
	f, _ := e.evaluate(c, false)
	return f
}

// Evaluate returns the fitness together with the full violation list,
// including soft findings used for alert derivation.
func (e *Evaluator) Evaluate(c *Candidate) (Fitness, []Violation) {
	return e.evaluate(c, true)
}

// Objectives returns the raw soft-objective vector (maximized) and the hard
// violation count, without scalar weighting. Multi-objective solvers rank on
// this directly.
func (e *Evaluator) Objectives(c *Candidate) ([objectiveCount]float64, int) {
	f, _ := e.evaluate(c, false)
	return [objectiveCount]float64{f.Readiness, f.MileageBalance, f.Branding, f.Cost}, f.HardViolations
}

func (e *Evaluator) evaluate(c *Candidate, record bool) (Fitness, []Violation) {
	p := e.prob
	var viols []Violation
	hard := 0
	addHard := func(id, desc string) {
		hard++
		if record {
			viols = append(viols, Violation{Kind: ViolationHard, TrainsetID: id, Description: desc, Penalty: HardPenalty})
		}
	}

	service, standby, maintenance := 0, 0, 0
	readinessSum := 0.0
	totalKM := 0.0
	for i := range c.Assign {
		a := &c.Assign[i]
		t := &p.Fleet[i]
		switch a.Status {
		case model.StatusRevenueService:
			service++
			readinessSum += t.Readiness
			totalKM += a.DailyKM
			if !p.eligible[i] {
				addHard(t.ID, ineligibleReason(t))
			}
			if a.DailyKM > p.MaxDailyKM {
				addHard(t.ID, fmt.Sprintf("daily allocation %.0f km exceeds cap %.0f km", a.DailyKM, p.MaxDailyKM))
			}
		case model.StatusMaintenance:
			maintenance++
		default:
			standby++
		}
	}
	for k := service; k < p.MinService; k++ {
		addHard("", fmt.Sprintf("revenue service count %d below minimum %d", service, p.MinService))
	}
	for k := standby; k < p.MinStandby; k++ {
		addHard("", fmt.Sprintf("standby count %d below minimum %d", standby, p.MinStandby))
	}

	f := Fitness{HardViolations: hard, Penalty: float64(hard) * HardPenalty}
	f.Readiness = 0
	if service > 0 {
		f.Readiness = readinessSum / float64(service)
	}
	f.MileageBalance = e.mileageBalance(c, service)
	f.Branding = e.brandingScore(c, record, &viols)
	f.Cost = e.costScore(totalKM, maintenance)

	if record {
		e.recordServiceSoft(c, &viols)
	}

	w := p.Weights
	sum := w.Readiness + w.MileageBalance + w.Branding + w.Cost
	f.Total = (w.Readiness*f.Readiness+w.MileageBalance*f.MileageBalance+
		w.Branding*f.Branding+w.Cost*f.Cost)/sum - f.Penalty
	return f, viols
}

// mileageBalance rewards equalized wear: 1 - coefficient of variation of
// cumulative km plus today's allocation across service trains.
func (e *Evaluator) mileageBalance(c *Candidate, service int) float64 {
	if service <= 1 {
		return 1
	}
	mean := 0.0
	for i := range c.Assign {
		if c.Assign[i].Status == model.StatusRevenueService {
			mean += e.prob.Fleet[i].CumulativeKM + c.Assign[i].DailyKM
		}
	}
	mean /= float64(service)
	if mean <= 0 {
		return 1
	}
	variance := 0.0
	for i := range c.Assign {
		if c.Assign[i].Status == model.StatusRevenueService {
			d := e.prob.Fleet[i].CumulativeKM + c.Assign[i].DailyKM - mean
			variance += d * d
		}
	}
	variance /= float64(service)
	cv := math.Sqrt(variance) / mean
	return clamp01(1 - cv)
}

// brandingScore is the priority-weighted fraction of contracted exposure
// hours satisfied by trains actually placed in service.
func (e *Evaluator) brandingScore(c *Candidate, record bool, viols *[]Violation) float64 {
	p := e.prob
	totalW, satW := 0.0, 0.0
	for i := range p.Fleet {
		b := p.Fleet[i].Branding
		if b == nil {
			continue
		}
		w := model.BrandingWeight(b.Priority)
		totalW += w
		sat := 0.0
		if c.Assign[i].Status == model.StatusRevenueService {
			if b.RemainingHours <= 0 {
				sat = 1
			} else {
				hours := c.Assign[i].DailyKM / p.Route.AvgSpeedKPH
				sat = math.Min(1, hours/b.RemainingHours)
			}
		}
		satW += w * sat
		if record && sat < 1 {
			*viols = append(*viols, Violation{
				Kind:       ViolationSoft,
				TrainsetID: p.Fleet[i].ID,
				Description: fmt.Sprintf("branding exposure for %s at %.0f%% of contracted hours (%s priority)",
					b.AdvertiserID, sat*100, b.Priority),
				Penalty: w * (1 - sat),
			})
		}
	}
	if totalW == 0 {
		return 1
	}
	return satW / totalW
}

// costScore decreases with total planned kilometers and with the number of
// maintenance assignments, a proxy for operating cost.
func (e *Evaluator) costScore(totalKM float64, maintenance int) float64 {
	n := float64(e.prob.Size())
	kmTerm := totalKM / (n * e.prob.MaxDailyKM)
	maintTerm := float64(maintenance) / n
	return clamp01(1 - 0.7*kmTerm - 0.3*maintTerm)
}

// recordServiceSoft adds advisory findings for service trains: expiring
// certificates and warning-grade components. These never affect fitness.
func (e *Evaluator) recordServiceSoft(c *Candidate, viols *[]Violation) {
	for i := range c.Assign {
		if c.Assign[i].Status != model.StatusRevenueService {
			continue
		}
		t := &e.prob.Fleet[i]
		for _, cert := range t.Certificates {
			if cert.Status == model.CertExpiringSoon {
				*viols = append(*viols, Violation{
					Kind:        ViolationSoft,
					TrainsetID:  t.ID,
					Description: fmt.Sprintf("%s certificate expiring soon", cert.Department),
				})
			}
		}
		comps := make([]string, 0, len(t.ComponentHealth))
		for name, h := range t.ComponentHealth {
			if h == model.HealthWarning {
				comps = append(comps, name)
			}
		}
		sort.Strings(comps)
		for _, name := range comps {
			*viols = append(*viols, Violation{
				Kind:        ViolationSoft,
				TrainsetID:  t.ID,
				Description: fmt.Sprintf("component %s in warning state", name),
			})
		}
	}
}

func ineligibleReason(t *model.Trainset) string {
	for _, c := range t.Certificates {
		if c.Status == model.CertExpired {
			return fmt.Sprintf("assigned revenue service with expired %s certificate", c.Department)
		}
	}
	if len(t.BlockingJobs) > 0 {
		return fmt.Sprintf("assigned revenue service with blocking job card (%s)", t.BlockingJobs[0])
	}
	comps := make([]string, 0, len(t.ComponentHealth))
	for name, h := range t.ComponentHealth {
		if h == model.HealthCritical {
			comps = append(comps, name)
		}
	}
	sort.Strings(comps)
	if len(comps) > 0 {
		return fmt.Sprintf("assigned revenue service with critical component %s", comps[0])
	}
	return "assigned revenue service while ineligible"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
