package plan

import (
	"reflect"
	"testing"
	"time"

	"metrosched/internal/model"
	"metrosched/internal/opt"
)

func testRoute() model.Route {
	return model.Route{
		Stations: []model.Station{
			{Code: "ALVA", Name: "Aluva", DistanceKM: 0, DwellSec: 30},
			{Code: "TPHT", Name: "Tripunithura", DistanceKM: 25.6, DwellSec: 30},
		},
		TotalKM:       25.6,
		AvgSpeedKPH:   35,
		TurnaroundMin: 10,
	}
}

func testOutcome(fleet []model.Trainset) *opt.Outcome {
	cand := opt.NewCandidate(len(fleet))
	cand.Assign[0] = opt.Assignment{Status: model.StatusRevenueService, DailyKM: 200, Rank: 1}
	cand.Assign[1] = opt.Assignment{Status: model.StatusRevenueService, DailyKM: 150, Rank: 2}
	cand.Assign[3].Status = model.StatusMaintenance
	return &opt.Outcome{
		RunID: "run-1",
		Best: opt.Result{
			Method:  opt.MethodGA,
			Best:    cand,
			Fitness: opt.Fitness{Total: 0.8},
		},
		Runtime: 42 * time.Millisecond,
	}
}

func testFleet() []model.Trainset {
	return []model.Trainset{
		{ID: "TS-01", Readiness: 0.95, CumulativeKM: 1000},
		{ID: "TS-02", Readiness: 0.90, CumulativeKM: 1200},
		{ID: "TS-03", Readiness: 0.80, CumulativeKM: 900},
		{ID: "TS-04", Readiness: 0.40, CumulativeKM: 1500},
	}
}

func TestBuildSchedule(t *testing.T) {
	fleet := testFleet()
	req := &model.OptimizeRequest{Depot: "MUTTOM", PlanDate: "2026-09-01", Fleet: fleet, Route: testRoute()}
	outcome := testOutcome(fleet)
	now := time.Date(2026, 8, 31, 21, 0, 0, 0, time.UTC)

	sched := Build(req, outcome, DefaultParams(), now)

	if sched.ID != "run-1" || sched.Depot != "MUTTOM" {
		t.Fatalf("unexpected identity: %+v", sched)
	}
	if sched.ValidFrom != "2026-09-01T05:00:00" || sched.ValidTo != "2026-09-01T23:00:00" {
		t.Errorf("validity window = %s .. %s", sched.ValidFrom, sched.ValidTo)
	}
	if got := sched.Summary; got.Total != 4 || got.InService != 2 || got.Standby != 1 || got.Maintenance != 1 {
		t.Errorf("summary = %+v", got)
	}
	if sched.Summary.AvailabilityPct != 75.0 {
		t.Errorf("availability = %v, want 75", sched.Summary.AvailabilityPct)
	}

	// service trains first, ordered by rank
	if sched.Trainsets[0].TrainsetID != "TS-01" || sched.Trainsets[1].TrainsetID != "TS-02" {
		t.Errorf("service ordering: %s, %s", sched.Trainsets[0].TrainsetID, sched.Trainsets[1].TrainsetID)
	}
	if len(sched.Trainsets[0].Blocks) == 0 {
		t.Fatal("lead service train has no blocks")
	}
	for _, ta := range sched.Trainsets[2:] {
		if len(ta.Blocks) != 0 {
			t.Errorf("%s (%s) has blocks", ta.TrainsetID, ta.Status)
		}
	}

	if sched.Optimization.Method != opt.MethodGA || sched.Optimization.TotalPlannedKM != 350.0 {
		t.Errorf("meta = %+v", sched.Optimization)
	}
}

func TestBuildBlocksTiming(t *testing.T) {
	route := testRoute()
	params := DefaultParams()
	a := opt.Assignment{Status: model.StatusRevenueService, DailyKM: 200, Rank: 1}

	blocks := buildBlocks(route, a, params)
	if len(blocks) == 0 {
		t.Fatal("no blocks")
	}
	if blocks[0].Departure != "05:00" {
		t.Errorf("first departure = %s, want 05:00", blocks[0].Departure)
	}
	dayEnd := parseHM(params.DayEnd)
	prevEnd := -1
	trips := 0
	for _, b := range blocks {
		dep := parseHM(b.Departure)
		if dep >= dayEnd {
			t.Errorf("block departs at %s after close of service", b.Departure)
		}
		if prevEnd >= 0 && dep-prevEnd < route.TurnaroundMin {
			t.Errorf("gap before %s is %d min, want >= %d", b.Departure, dep-prevEnd, route.TurnaroundMin)
		}
		trips += b.Trips
		dur := float64(b.Trips)*(route.TotalKM/route.AvgSpeedKPH*60+1) + float64(b.Trips-1)*float64(route.TurnaroundMin)
		prevEnd = dep + int(dur)
	}
	// 200 km on a 25.6 km line is 8 one-way trips
	if trips != 8 {
		t.Errorf("total trips = %d, want 8", trips)
	}
}

func TestBuildBlocksPeakTagging(t *testing.T) {
	params := DefaultParams()
	if inPeak(parseHM("07:30"), params) != true {
		t.Error("07:30 should be peak")
	}
	if inPeak(parseHM("12:00"), params) {
		t.Error("12:00 should be off-peak")
	}
	if inPeak(parseHM("17:00"), params) != true {
		t.Error("17:00 should be peak")
	}
	if inPeak(parseHM("20:00"), params) {
		t.Error("20:00 is the exclusive peak end")
	}
}

func TestBuildDeterministic(t *testing.T) {
	fleet := testFleet()
	req := &model.OptimizeRequest{Depot: "MUTTOM", PlanDate: "2026-09-01", Fleet: fleet, Route: testRoute()}
	now := time.Date(2026, 8, 31, 21, 0, 0, 0, time.UTC)

	a := Build(req, testOutcome(fleet), DefaultParams(), now)
	b := Build(req, testOutcome(fleet), DefaultParams(), now)
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs produced different schedules")
	}
}

func TestDeriveAlerts(t *testing.T) {
	fleet := testFleet()
	fleet[2].Certificates = []model.Certificate{
		{Department: "SIGNALLING", Status: model.CertExpiringSoon, ExpiresAt: "2026-09-03"},
	}
	outcome := testOutcome(fleet)
	outcome.Infeasible = true
	outcome.Best.Fitness.HardViolations = 2
	outcome.Violations = []opt.Violation{
		{Kind: opt.ViolationSoft, TrainsetID: "TS-02", Description: "branding exposure for ACME at 60% of contracted hours (HIGH priority)"},
		{Kind: opt.ViolationHard, TrainsetID: "TS-01", Description: "daily allocation 500 km exceeds cap 400 km"},
	}

	alerts := deriveAlerts(fleet, outcome)
	if len(alerts) != 3 {
		t.Fatalf("got %d alerts: %+v", len(alerts), alerts)
	}
	if alerts[0].Type != model.AlertInfeasibleRun || alerts[0].Severity != model.SeverityCritical {
		t.Errorf("first alert = %+v", alerts[0])
	}
	if alerts[1].TrainsetID != "TS-02" || alerts[1].Type != model.AlertSoftConstraint {
		t.Errorf("soft alert = %+v", alerts[1])
	}
	if alerts[2].TrainsetID != "TS-03" || alerts[2].Type != model.AlertCertExpiring {
		t.Errorf("cert alert = %+v", alerts[2])
	}
}

func TestDeriveAlertsDegraded(t *testing.T) {
	outcome := testOutcome(testFleet())
	outcome.Degraded = true
	alerts := deriveAlerts(testFleet(), outcome)
	if len(alerts) != 1 || alerts[0].Type != model.AlertDegradedRun {
		t.Fatalf("alerts = %+v", alerts)
	}
}
