package store

import (
	"context"
	"sync"

	"metrosched/internal/model"
	"metrosched/internal/opt"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu        sync.Mutex
	schedules map[string]*model.Schedule    // id -> schedule
	byDepot   map[string][]string           // depot -> schedule ids, insertion order
	optCfg    map[string]model.OptimizerConfig
	runMx     map[string][]opt.MethodOutcome // runId -> per-method outcomes
}

func NewMemory() *Memory {
	return &Memory{
		schedules: map[string]*model.Schedule{},
		byDepot:   map[string][]string{},
		optCfg:    map[string]model.OptimizerConfig{},
		runMx:     map[string][]opt.MethodOutcome{},
	}
}

func (m *Memory) SaveSchedule(ctx context.Context, s *model.Schedule) error {
	m.mu.Lock(); defer m.mu.Unlock()
	cp := *s
	m.schedules[s.ID] = &cp
	m.byDepot[s.Depot] = append(m.byDepot[s.Depot], s.ID)
	return nil
}

func (m *Memory) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// ListSchedules pages newest-first; the cursor is the last returned id.
func (m *Memory) ListSchedules(ctx context.Context, depot, cursor string, limit int) ([]model.ScheduleSummary, string, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var ids []string
	if depot != "" {
		ids = m.byDepot[depot]
	} else {
		for _, v := range m.byDepot {
			ids = append(ids, v...)
		}
	}
	start := len(ids) - 1
	if cursor != "" {
		for i := len(ids) - 1; i >= 0; i-- {
			if ids[i] == cursor {
				start = i - 1
				break
			}
		}
	}
	out := []model.ScheduleSummary{}
	var next string
	for i := start; i >= 0 && len(out) < limit; i-- {
		s := m.schedules[ids[i]]
		out = append(out, summarize(s))
		next = s.ID
	}
	if len(out) < limit {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) LatestSchedule(ctx context.Context, depot, planDate string) (*model.Schedule, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	ids := m.byDepot[depot]
	for i := len(ids) - 1; i >= 0; i-- {
		s := m.schedules[ids[i]]
		if planDate == "" || s.PlanDate == planDate {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetOptimizerConfig(ctx context.Context, depot string) (*model.OptimizerConfig, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	cfg, ok := m.optCfg[depot]
	if !ok {
		return nil, ErrNotFound
	}
	return &cfg, nil
}

func (m *Memory) SaveOptimizerConfig(ctx context.Context, depot string, cfg model.OptimizerConfig) error {
	m.mu.Lock(); defer m.mu.Unlock()
	m.optCfg[depot] = cfg
	return nil
}

func (m *Memory) SaveRunMetrics(ctx context.Context, runID string, items []opt.MethodOutcome) error {
	m.mu.Lock(); defer m.mu.Unlock()
	m.runMx[runID] = append([]opt.MethodOutcome(nil), items...)
	return nil
}

func (m *Memory) ListRunMetrics(ctx context.Context, runID string) ([]opt.MethodOutcome, error) {
	m.mu.Lock(); defer m.mu.Unlock()
	items, ok := m.runMx[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]opt.MethodOutcome(nil), items...), nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func summarize(s *model.Schedule) model.ScheduleSummary {
	return model.ScheduleSummary{
		ID:          s.ID,
		Depot:       s.Depot,
		PlanDate:    s.PlanDate,
		GeneratedAt: s.GeneratedAt,
		Method:      s.Optimization.Method,
		Fitness:     s.Optimization.Fitness,
		Infeasible:  s.Optimization.Infeasible,
	}
}
