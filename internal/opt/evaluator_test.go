package opt

import (
	"strings"
	"testing"

	"metrosched/internal/model"
)

// serviceCandidate puts the first k trains in service with the given km and
// leaves the rest standby.
func serviceCandidate(n, k int, km float64) *Candidate {
	c := NewCandidate(n)
	for i := 0; i < k; i++ {
		c.Assign[i] = Assignment{Status: model.StatusRevenueService, DailyKM: km, Rank: i + 1}
	}
	return c
}

func TestEvaluateFeasibleRange(t *testing.T) {
	prob := mustProblem(t, fleetOf(6), 2, 1)
	eval := NewEvaluator(prob)
	fit := eval.Score(serviceCandidate(6, 2, 200))
	if !fit.Feasible() {
		t.Fatalf("expected feasible, got %+v", fit)
	}
	if fit.Total <= 0 || fit.Total > 1 {
		t.Errorf("total %v outside (0,1]", fit.Total)
	}
	for name, v := range map[string]float64{
		"readiness": fit.Readiness, "mileageBalance": fit.MileageBalance,
		"branding": fit.Branding, "cost": fit.Cost,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v outside [0,1]", name, v)
		}
	}
}

func TestHardViolationDominatesSoftQuality(t *testing.T) {
	prob := mustProblem(t, fleetOf(6), 2, 1)
	eval := NewEvaluator(prob)
	feasible := eval.Score(serviceCandidate(6, 2, 200))
	infeasible := eval.Score(serviceCandidate(6, 1, 200)) // one service slot short
	if infeasible.HardViolations != 1 {
		t.Fatalf("violations = %d", infeasible.HardViolations)
	}
	if infeasible.Total >= feasible.Total {
		t.Errorf("infeasible %v should score below feasible %v", infeasible.Total, feasible.Total)
	}
	if infeasible.Total > -HardPenalty+1 {
		t.Errorf("penalty not applied: %v", infeasible.Total)
	}
}

func TestIneligibleServiceIsHardViolation(t *testing.T) {
	fleet := fleetOf(4)
	fleet[0].Certificates = []model.Certificate{{Department: "SIGNALLING", Status: model.CertExpired}}
	prob := mustProblem(t, fleet, 1, 0)
	eval := NewEvaluator(prob)

	fit, viols := eval.Evaluate(serviceCandidate(4, 1, 200))
	if fit.HardViolations == 0 {
		t.Fatal("expired cert in service not flagged")
	}
	found := false
	for _, v := range viols {
		if v.Kind == ViolationHard && v.TrainsetID == "TS-01" && strings.Contains(v.Description, "expired") {
			found = true
		}
	}
	if !found {
		t.Errorf("violations = %+v", viols)
	}
}

func TestKmCapIsHardViolation(t *testing.T) {
	prob := mustProblem(t, fleetOf(4), 1, 0)
	eval := NewEvaluator(prob)
	fit := eval.Score(serviceCandidate(4, 1, 450)) // cap is 400
	if fit.HardViolations != 1 {
		t.Errorf("violations = %d", fit.HardViolations)
	}
}

func TestMissingSlotsCountedIndividually(t *testing.T) {
	prob := mustProblem(t, fleetOf(8), 4, 2)
	eval := NewEvaluator(prob)
	// one service train, everything else maintenance: 3 missing service
	// slots plus 2 missing standby slots
	c := serviceCandidate(8, 1, 200)
	for i := 1; i < 8; i++ {
		c.Assign[i].Status = model.StatusMaintenance
	}
	fit := eval.Score(c)
	if fit.HardViolations != 5 {
		t.Errorf("violations = %d, want 5", fit.HardViolations)
	}
}

func TestMileageBalancePrefersEqualWear(t *testing.T) {
	balanced := fleetOf(4)
	for i := range balanced {
		balanced[i].CumulativeKM = 1000
	}
	skewed := fleetOf(4)
	skewed[0].CumulativeKM = 200
	skewed[1].CumulativeKM = 2600

	c := serviceCandidate(4, 2, 200)
	fitBal := NewEvaluator(mustProblem(t, balanced, 2, 1)).Score(c)
	fitSkew := NewEvaluator(mustProblem(t, skewed, 2, 1)).Score(c)
	if fitBal.MileageBalance <= fitSkew.MileageBalance {
		t.Errorf("balanced %v should beat skewed %v", fitBal.MileageBalance, fitSkew.MileageBalance)
	}
}

func TestBrandingRewardsExposedContracts(t *testing.T) {
	fleet := fleetOf(4)
	fleet[0].Branding = &model.BrandingContract{
		AdvertiserID: "ACME", Priority: model.PriorityCritical,
		RequiredHours: 100, RemainingHours: 4,
	}
	prob := mustProblem(t, fleet, 1, 0)
	eval := NewEvaluator(prob)

	// 200 km at 35 km/h is well over 4 exposure hours
	inService := eval.Score(serviceCandidate(4, 1, 200))
	parked := NewCandidate(4)
	parked.Assign[1] = Assignment{Status: model.StatusRevenueService, DailyKM: 200, Rank: 1}
	benched := eval.Score(parked)
	if inService.Branding <= benched.Branding {
		t.Errorf("exposed %v should beat benched %v", inService.Branding, benched.Branding)
	}
	if inService.Branding != 1 {
		t.Errorf("fully exposed contract should score 1, got %v", inService.Branding)
	}
}

func TestCostDecreasesWithKilometers(t *testing.T) {
	prob := mustProblem(t, fleetOf(4), 1, 0)
	eval := NewEvaluator(prob)
	cheap := eval.Score(serviceCandidate(4, 1, 100))
	dear := eval.Score(serviceCandidate(4, 1, 390))
	if cheap.Cost <= dear.Cost {
		t.Errorf("cost should fall with km: %v vs %v", cheap.Cost, dear.Cost)
	}
}

func TestEvaluateRecordsSoftFindings(t *testing.T) {
	fleet := fleetOf(4)
	fleet[0].Certificates = []model.Certificate{{Department: "TELECOM", Status: model.CertExpiringSoon}}
	fleet[0].ComponentHealth = map[string]string{"hvac": model.HealthWarning}
	prob := mustProblem(t, fleet, 1, 0)
	eval := NewEvaluator(prob)

	fit, viols := eval.Evaluate(serviceCandidate(4, 1, 200))
	if !fit.Feasible() {
		t.Fatalf("unexpected hard violations: %+v", fit)
	}
	var soft int
	for _, v := range viols {
		if v.Kind == ViolationSoft {
			soft++
		}
	}
	if soft < 2 {
		t.Errorf("want expiring cert and warning component recorded, got %+v", viols)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	fleet := fleetOf(6)
	fleet[2].ComponentHealth = map[string]string{"doors": model.HealthWarning, "brakes": model.HealthWarning}
	prob := mustProblem(t, fleet, 2, 1)
	eval := NewEvaluator(prob)
	c := serviceCandidate(6, 3, 250)
	first := eval.Score(c)
	for i := 0; i < 10; i++ {
		if got := eval.Score(c); got != first {
			t.Fatalf("score drifted: %+v vs %+v", got, first)
		}
	}
}
