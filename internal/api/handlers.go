package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"metrosched/internal/metrics"
	"metrosched/internal/model"
	"metrosched/internal/opt"
	"metrosched/internal/plan"
	"metrosched/internal/store"
)

// OptimizeHandler handles POST /v1/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow() {
		writeProblem(w, http.StatusTooManyRequests, "Rate limited", "optimize request rate exceeded", r.URL.Path)
		return
	}
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := model.ValidateRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}

	cfg := s.effectiveConfig(r, &req)
	prob, err := opt.NewProblem(req.Fleet, req.Route, cfg)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}

	s.Broker.Publish(req.Depot, RunEvent{Type: "run.started", Data: map[string]any{
		"depot": req.Depot, "planDate": req.PlanDate, "fleet": len(req.Fleet),
	}})

	budget := opt.DefaultTimeBudget
	if cfg.TimeBudgetMs > 0 {
		budget = time.Duration(cfg.TimeBudgetMs) * time.Millisecond
	}
	co := opt.NewCoordinator(opt.EnsembleConfig{
		Algorithms: cfg.Algorithms,
		TimeBudget: budget,
		Seed:       cfg.Seed,
		Adaptive:   cfg.Adaptive,
		Params:     cfg.Params,
	})
	outcome, err := co.Run(r.Context(), prob)
	if err != nil {
		var inf *opt.InfeasibleError
		switch {
		case errors.As(err, &inf):
			s.Broker.Publish(req.Depot, RunEvent{Type: "run.infeasible", Data: map[string]any{
				"eligible": inf.Eligible, "required": inf.Required, "shortfall": inf.Shortfall,
			}})
			writeProblem(w, http.StatusUnprocessableEntity, "Structurally infeasible", err.Error(), r.URL.Path)
		case errors.Is(err, opt.ErrCancelled):
			writeProblem(w, http.StatusServiceUnavailable, "Cancelled", err.Error(), r.URL.Path)
		default:
			writeProblem(w, http.StatusInternalServerError, "Optimization failed", err.Error(), r.URL.Path)
		}
		return
	}

	sched := plan.Build(&req, outcome, s.Cfg.Plan, time.Now())
	if err := s.Store.SaveSchedule(r.Context(), sched); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save schedule failed", err.Error(), r.URL.Path)
		return
	}
	_ = s.Store.SaveRunMetrics(r.Context(), outcome.RunID, outcome.Methods)

	for _, m := range outcome.Methods {
		out := "ok"
		if m.Err != "" {
			out = "error"
		} else if !m.Feasible {
			out = "infeasible"
		}
		metrics.OptimizeRuns.WithLabelValues(m.Method, out).Inc()
		metrics.OptimizeDuration.WithLabelValues(m.Method).Observe(float64(m.RuntimeMs) / 1000)
		s.publishRunEvent(outcome.RunID, req.Depot, RunEvent{Type: "method.completed", Data: map[string]any{
			"runId": outcome.RunID, "method": m.Method, "fitness": m.Fitness.Total,
			"feasible": m.Feasible, "runtimeMs": m.RuntimeMs,
		}})
	}
	metrics.ScheduleFitness.WithLabelValues(req.Depot, outcome.Best.Method).Set(outcome.Best.Fitness.Total)
	s.publishRunEvent(outcome.RunID, req.Depot, RunEvent{Type: "run.completed", Data: map[string]any{
		"runId": outcome.RunID, "scheduleId": sched.ID, "method": outcome.Best.Method,
		"fitness": outcome.Best.Fitness.Total, "infeasible": outcome.Infeasible, "degraded": outcome.Degraded,
	}})

	writeJSON(w, http.StatusOK, sched)
}

// publishRunEvent publishes to both the run channel and the depot channel,
// so subscribers can follow either key.
func (s *Server) publishRunEvent(runID, depot string, evt RunEvent) {
	s.Broker.Publish(runID, evt)
	if depot != "" && depot != runID {
		s.Broker.Publish(depot, evt)
	}
}

// effectiveConfig layers service defaults, the depot override stored via the
// admin endpoint, and the per-request config, in that order.
func (s *Server) effectiveConfig(r *http.Request, req *model.OptimizeRequest) model.OptimizerConfig {
	cfg := s.Cfg.Optimizer
	if stored, err := s.Store.GetOptimizerConfig(r.Context(), req.Depot); err == nil {
		cfg = mergeConfig(cfg, *stored)
	}
	if req.Config != nil {
		cfg = mergeConfig(cfg, *req.Config)
	}
	return cfg
}

func mergeConfig(base, over model.OptimizerConfig) model.OptimizerConfig {
	out := base
	if over.MinServiceTrains > 0 {
		out.MinServiceTrains = over.MinServiceTrains
	}
	if over.MinStandbyTrains > 0 {
		out.MinStandbyTrains = over.MinStandbyTrains
	}
	if over.MaxDailyKM > 0 {
		out.MaxDailyKM = over.MaxDailyKM
	}
	if over.TargetDailyKM > 0 {
		out.TargetDailyKM = over.TargetDailyKM
	}
	w := over.Weights
	if w.Readiness+w.MileageBalance+w.Branding+w.Cost > 0 {
		out.Weights = w
	}
	if len(over.Algorithms) > 0 {
		out.Algorithms = over.Algorithms
	}
	if len(over.Params) > 0 {
		out.Params = over.Params
	}
	if over.TimeBudgetMs > 0 {
		out.TimeBudgetMs = over.TimeBudgetMs
	}
	if over.Seed != 0 {
		out.Seed = over.Seed
	}
	if over.Adaptive {
		out.Adaptive = true
	}
	return out
}

// SchedulesHandler handles GET /v1/schedules
func (s *Server) SchedulesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	depot := r.URL.Query().Get("depot")
	cursor := r.URL.Query().Get("cursor")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListSchedules(r.Context(), depot, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List schedules failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// ScheduleByIDHandler handles GET /v1/schedules/{id} and /v1/schedules/latest
func (s *Server) ScheduleByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/schedules/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	var (
		sched *model.Schedule
		err   error
	)
	if id == "latest" {
		depot := r.URL.Query().Get("depot")
		if depot == "" {
			writeProblem(w, http.StatusBadRequest, "Missing depot", "depot query parameter required", r.URL.Path)
			return
		}
		sched, err = s.Store.LatestSchedule(r.Context(), depot, r.URL.Query().Get("planDate"))
	} else {
		sched, err = s.Store.GetSchedule(r.Context(), id)
	}
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no such schedule", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get schedule failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// OptimizerConfigHandler handles GET/PUT /v1/optimizer/config for a depot
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	depot := r.URL.Query().Get("depot")
	switch r.Method {
	case http.MethodGet:
		cfg := s.Cfg.Optimizer
		if depot != "" {
			if stored, err := s.Store.GetOptimizerConfig(r.Context(), depot); err == nil {
				cfg = mergeConfig(cfg, *stored)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"defaults": cfg})
	case http.MethodPut:
		if depot == "" {
			writeProblem(w, http.StatusBadRequest, "Missing depot", "depot query parameter required", r.URL.Path)
			return
		}
		var body model.OptimizerConfig
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateConfigUpdate(&body); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid config", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.SaveOptimizerConfig(r.Context(), depot, body); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Save failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// RunMetricsHandler handles GET /v1/runs/{id}/metrics
func (s *Server) RunMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "metrics" || parts[0] == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	runID := parts[0]
	items, err := s.Store.ListRunMetrics(r.Context(), runID)
	if errors.Is(err, store.ErrNotFound) {
		// fall back to the process-local tracker for very recent runs
		if local := opt.GetRunMetrics(runID); len(local) > 0 {
			writeJSON(w, http.StatusOK, map[string]any{"runId": runID, "methods": local})
			return
		}
		writeProblem(w, http.StatusNotFound, "Not Found", "no such run", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List run metrics failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runId": runID, "methods": items})
}

// HealthHandler handles /healthz
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler handles /readyz
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
