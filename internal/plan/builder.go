package plan

import (
	"fmt"
	"math"
	"sort"
	"time"

	"metrosched/internal/model"
	"metrosched/internal/opt"
)

// Params fixes the operating day the builder expands candidates into.
// Defaults match the operated line: 05:00-23:00 service day with morning
// and evening peaks.
type Params struct {
	DayStart          string      `yaml:"day_start"`
	DayEnd            string      `yaml:"day_end"`
	PeakWindows       [][2]string `yaml:"peak_windows"`
	PeakHeadwayMin    int         `yaml:"peak_headway_min"`
	OffPeakHeadwayMin int         `yaml:"offpeak_headway_min"`
	MaxTripsPerBlock  int         `yaml:"max_trips_per_block"`
}

func DefaultParams() Params {
	return Params{
		DayStart:          "05:00",
		DayEnd:            "23:00",
		PeakWindows:       [][2]string{{"07:00", "10:00"}, {"17:00", "20:00"}},
		PeakHeadwayMin:    5,
		OffPeakHeadwayMin: 10,
		MaxTripsPerBlock:  4,
	}
}

// Build expands the winning candidate into the full output schedule. The
// expansion is deterministic: no randomness, ordering fixed by service rank
// then fleet order.
func Build(req *model.OptimizeRequest, outcome *opt.Outcome, params Params, now time.Time) *model.Schedule {
	cand := outcome.Best.Best
	route := req.Route

	sched := &model.Schedule{
		ID:          outcome.RunID,
		Depot:       req.Depot,
		PlanDate:    req.PlanDate,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		ValidFrom:   req.PlanDate + "T" + params.DayStart + ":00",
		ValidTo:     req.PlanDate + "T" + params.DayEnd + ":00",
	}

	order := assignmentOrder(cand)
	totalKM := 0.0
	for _, i := range order {
		a := cand.Assign[i]
		t := req.Fleet[i]
		ta := model.TrainsetAssignment{
			TrainsetID:   t.ID,
			Status:       a.Status,
			Readiness:    t.Readiness,
			DailyKM:      round1(a.DailyKM),
			CumulativeKM: t.CumulativeKM,
			Rank:         a.Rank,
		}
		if a.Status == model.StatusRevenueService {
			ta.Blocks = buildBlocks(route, a, params)
			totalKM += a.DailyKM
		}
		sched.Trainsets = append(sched.Trainsets, ta)
	}

	svc, stb, mnt := cand.Counts()
	total := len(cand.Assign)
	sched.Summary = model.FleetSummary{
		Total:       total,
		InService:   svc,
		Standby:     stb,
		Maintenance: mnt,
	}
	if total > 0 {
		sched.Summary.AvailabilityPct = round1(float64(svc+stb) / float64(total) * 100)
	}

	sched.Optimization = model.OptimizationMeta{
		Method:         outcome.Best.Method,
		Fitness:        outcome.Best.Fitness.Total,
		MileageCV:      mileageCV(req.Fleet, cand),
		TotalPlannedKM: round1(totalKM),
		RuntimeMs:      outcome.Runtime.Milliseconds(),
		Degraded:       outcome.Degraded,
		Infeasible:     outcome.Infeasible,
	}
	sched.Alerts = deriveAlerts(req.Fleet, outcome)
	return sched
}

// buildBlocks partitions one train's kilometer allocation into timed service
// blocks. Blocks are separated by at least the route turnaround, departures
// are staggered by service rank at the prevailing headway, and trips
// alternate direction so a block with an even trip count returns to its
// origin.
func buildBlocks(route model.Route, a opt.Assignment, params Params) []model.ServiceBlock {
	trips := int(math.Round(a.DailyKM / route.TotalKM))
	if trips < 1 {
		trips = 1
	}
	dwellMin := 0.0
	for _, s := range route.Stations {
		dwellMin += float64(s.DwellSec) / 60
	}
	tripMin := route.TotalKM/route.AvgSpeedKPH*60 + dwellMin
	turnMin := float64(route.TurnaroundMin)

	dayStart := parseHM(params.DayStart)
	dayEnd := parseHM(params.DayEnd)
	headway := params.OffPeakHeadwayMin
	if inPeak(dayStart, params) {
		headway = params.PeakHeadwayMin
	}

	origin := route.Stations[0].Code
	terminus := route.Stations[len(route.Stations)-1].Code

	var blocks []model.ServiceBlock
	depart := dayStart + (a.Rank-1)*headway
	remaining := trips
	atOrigin := true
	for remaining > 0 {
		n := remaining
		if params.MaxTripsPerBlock > 0 && n > params.MaxTripsPerBlock {
			n = params.MaxTripsPerBlock
		}
		durMin := float64(n)*tripMin + float64(n-1)*turnMin
		if depart >= dayEnd || float64(depart)+durMin > float64(dayEnd)+tripMin {
			break
		}
		from, to := origin, terminus
		if !atOrigin {
			from, to = terminus, origin
		}
		if n%2 == 0 {
			to = from
		}
		blocks = append(blocks, model.ServiceBlock{
			Departure:   formatHM(depart),
			FromStation: from,
			ToStation:   to,
			Trips:       n,
			EstimatedKM: round1(float64(n) * route.TotalKM),
			Peak:        inPeak(depart, params),
		})
		if n%2 == 1 {
			atOrigin = !atOrigin
		}
		remaining -= n
		depart += int(math.Ceil(durMin + turnMin))
	}
	return blocks
}

// assignmentOrder lists fleet indices with service trains first by rank,
// then the rest in fleet order.
func assignmentOrder(cand *opt.Candidate) []int {
	order := make([]int, len(cand.Assign))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := cand.Assign[order[a]].Rank, cand.Assign[order[b]].Rank
		if (ra > 0) != (rb > 0) {
			return ra > 0
		}
		if ra != rb {
			return ra < rb
		}
		return order[a] < order[b]
	})
	return order
}

// mileageCV is the coefficient of variation of cumulative km plus daily
// allocation across service trains, reported in schedule metadata.
func mileageCV(fleet []model.Trainset, cand *opt.Candidate) float64 {
	var vals []float64
	for i := range cand.Assign {
		if cand.Assign[i].Status == model.StatusRevenueService {
			vals = append(vals, fleet[i].CumulativeKM+cand.Assign[i].DailyKM)
		}
	}
	if len(vals) <= 1 {
		return 0
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	if mean <= 0 {
		return 0
	}
	variance := 0.0
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals))
	return math.Sqrt(variance) / mean
}

func parseHM(s string) int {
	var h, m int
	fmt.Sscanf(s, "%d:%d", &h, &m)
	return h*60 + m
}

func formatHM(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func inPeak(minutes int, params Params) bool {
	for _, w := range params.PeakWindows {
		if minutes >= parseHM(w[0]) && minutes < parseHM(w[1]) {
			return true
		}
	}
	return false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
