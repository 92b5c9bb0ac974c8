package model

// Daily operating status assigned to a trainset.
const (
	StatusRevenueService = "REVENUE_SERVICE"
	StatusStandby        = "STANDBY"
	StatusMaintenance    = "MAINTENANCE"
)

// Fitness certificate states per department.
const (
	CertValid        = "VALID"
	CertExpiringSoon = "EXPIRING_SOON"
	CertExpired      = "EXPIRED"
)

// Component health grades.
const (
	HealthGood     = "GOOD"
	HealthFair     = "FAIR"
	HealthWarning  = "WARNING"
	HealthCritical = "CRITICAL"
)

// Branding contract priority tiers.
const (
	PriorityCritical = "CRITICAL"
	PriorityHigh     = "HIGH"
	PriorityMedium   = "MEDIUM"
	PriorityLow      = "LOW"
)

// Certificate is one department's fitness certificate for a trainset.
type Certificate struct {
	Department string `json:"department"`
	Status     string `json:"status"`
	ExpiresAt  string `json:"expiresAt,omitempty"` // RFC3339 date
}

// BrandingContract describes an advertiser wrap and its exposure commitment.
type BrandingContract struct {
	AdvertiserID   string  `json:"advertiserId"`
	Priority       string  `json:"priority"`
	RequiredHours  float64 `json:"requiredHours"`
	RemainingHours float64 `json:"remainingHours"`
}

// Trainset is one physical unit of the fleet as reported by the data store.
type Trainset struct {
	ID              string            `json:"id"`
	Certificates    []Certificate     `json:"certificates"`
	JobCardCount    int               `json:"jobCardCount"`
	BlockingJobs    []string          `json:"blockingJobs,omitempty"`
	ComponentHealth map[string]string `json:"componentHealth"`
	CumulativeKM    float64           `json:"cumulativeKm"`
	Branding        *BrandingContract `json:"branding,omitempty"`
	Readiness       float64           `json:"readinessScore"`
}

// RevenueEligible reports whether the unit may be assigned revenue service:
// no expired certificate, no blocking job card, no critical component.
func (t *Trainset) RevenueEligible() bool {
	for _, c := range t.Certificates {
		if c.Status == CertExpired {
			return false
		}
	}
	if len(t.BlockingJobs) > 0 {
		return false
	}
	for _, h := range t.ComponentHealth {
		if h == HealthCritical {
			return false
		}
	}
	return true
}

// Station is one stop on the operated line.
type Station struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	DistanceKM float64 `json:"distanceKm"` // from origin
	DwellSec   int     `json:"dwellSec"`
}

// Route is the operated line with its timing parameters.
type Route struct {
	Stations      []Station `json:"stations"`
	TotalKM       float64   `json:"totalKm"`
	AvgSpeedKPH   float64   `json:"avgSpeedKph"`
	TurnaroundMin int       `json:"turnaroundMin"`
}

// Weights are the soft-objective weights used by the scalar fitness.
type Weights struct {
	Readiness      float64 `json:"readiness" yaml:"readiness"`
	MileageBalance float64 `json:"mileageBalance" yaml:"mileage_balance"`
	Branding       float64 `json:"branding" yaml:"branding"`
	Cost           float64 `json:"cost" yaml:"cost"`
}

// DefaultWeights returns the operational default split. A starting point,
// not a law; deployments override via config.
func DefaultWeights() Weights {
	return Weights{Readiness: 0.35, MileageBalance: 0.25, Branding: 0.20, Cost: 0.20}
}

// AlgorithmParams carries optional per-algorithm overrides. Zero values mean
// "use the algorithm default".
type AlgorithmParams struct {
	Population    int     `json:"population,omitempty" yaml:"population"`
	Generations   int     `json:"generations,omitempty" yaml:"generations"`
	Iterations    int     `json:"iterations,omitempty" yaml:"iterations"`
	CrossoverRate float64 `json:"crossoverRate,omitempty" yaml:"crossover_rate"`
	MutationRate  float64 `json:"mutationRate,omitempty" yaml:"mutation_rate"`
	InitialTemp   float64 `json:"initTemp,omitempty" yaml:"init_temp"`
	Cooling       float64 `json:"cooling,omitempty" yaml:"cooling"`
	Particles     int     `json:"particles,omitempty" yaml:"particles"`
}

// OptimizerConfig bounds one optimization run.
type OptimizerConfig struct {
	MinServiceTrains int                        `json:"minServiceTrains" yaml:"min_service_trains"`
	MinStandbyTrains int                        `json:"minStandbyTrains" yaml:"min_standby_trains"`
	MaxDailyKM       float64                    `json:"maxDailyKm" yaml:"max_daily_km"`
	TargetDailyKM    float64                    `json:"targetDailyKm" yaml:"target_daily_km"`
	Weights          Weights                    `json:"weights" yaml:"weights"`
	Algorithms       []string                   `json:"algorithms,omitempty" yaml:"algorithms"`
	Params           map[string]AlgorithmParams `json:"params,omitempty" yaml:"params"`
	TimeBudgetMs     int                        `json:"timeBudgetMs,omitempty" yaml:"time_budget_ms"`
	Seed             int64                      `json:"seed,omitempty" yaml:"seed"`
	Adaptive         bool                       `json:"adaptive,omitempty" yaml:"adaptive"`
}

// OptimizeRequest is the input for one optimization run.
type OptimizeRequest struct {
	Depot    string           `json:"depot"`
	PlanDate string           `json:"planDate"`
	Fleet    []Trainset       `json:"fleet"`
	Route    Route            `json:"route"`
	Config   *OptimizerConfig `json:"config,omitempty"`
}

// ServiceBlock is one contiguous operating period for a service trainset.
type ServiceBlock struct {
	Departure   string  `json:"departure"` // HH:MM local
	FromStation string  `json:"fromStation"`
	ToStation   string  `json:"toStation"`
	Trips       int     `json:"trips"`
	EstimatedKM float64 `json:"estimatedKm"`
	Peak        bool    `json:"peak"`
}

// TrainsetAssignment is one fleet unit's line in the output schedule.
type TrainsetAssignment struct {
	TrainsetID   string         `json:"trainsetId"`
	Status       string         `json:"status"`
	Readiness    float64        `json:"readinessScore"`
	DailyKM      float64        `json:"dailyKm"`
	CumulativeKM float64        `json:"cumulativeKm"`
	Rank         int            `json:"rank,omitempty"`
	Blocks       []ServiceBlock `json:"blocks,omitempty"`
}

// FleetSummary aggregates the assignment counts.
type FleetSummary struct {
	Total           int     `json:"total"`
	InService       int     `json:"inService"`
	Standby         int     `json:"standby"`
	Maintenance     int     `json:"maintenance"`
	AvailabilityPct float64 `json:"availabilityPct"`
}

// OptimizationMeta reports how the schedule was produced.
type OptimizationMeta struct {
	Method         string  `json:"method"`
	Fitness        float64 `json:"fitness"`
	MileageCV      float64 `json:"mileageCv"`
	TotalPlannedKM float64 `json:"totalPlannedKm"`
	RuntimeMs      int64   `json:"runtimeMs"`
	Degraded       bool    `json:"degraded,omitempty"`
	Infeasible     bool    `json:"infeasible,omitempty"`
}

// Alert severities and kinds surfaced with a schedule.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"

	AlertCertExpiring   = "certificate_expiring"
	AlertSoftConstraint = "soft_constraint"
	AlertInfeasibleRun  = "infeasible_run"
	AlertDegradedRun    = "degraded_run"
)

// Alert is one advisory attached to a schedule.
type Alert struct {
	TrainsetID string `json:"trainsetId,omitempty"`
	Severity   string `json:"severity"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

// ScheduleSummary is the listing row for stored schedules.
type ScheduleSummary struct {
	ID          string  `json:"id"`
	Depot       string  `json:"depot"`
	PlanDate    string  `json:"planDate"`
	GeneratedAt string  `json:"generatedAt"`
	Method      string  `json:"method"`
	Fitness     float64 `json:"fitness"`
	Infeasible  bool    `json:"infeasible,omitempty"`
}

// Schedule is the single long-lived output of one optimization run.
type Schedule struct {
	ID           string               `json:"id"`
	Depot        string               `json:"depot"`
	PlanDate     string               `json:"planDate"`
	GeneratedAt  string               `json:"generatedAt"`
	ValidFrom    string               `json:"validFrom"`
	ValidTo      string               `json:"validTo"`
	Trainsets    []TrainsetAssignment `json:"trainsets"`
	Summary      FleetSummary         `json:"summary"`
	Optimization OptimizationMeta     `json:"optimization"`
	Alerts       []Alert              `json:"alerts,omitempty"`
}
