package store

import (
	"context"
	"errors"

	"metrosched/internal/model"
	"metrosched/internal/opt"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Schedules
	SaveSchedule(ctx context.Context, s *model.Schedule) error
	GetSchedule(ctx context.Context, id string) (*model.Schedule, error)
	ListSchedules(ctx context.Context, depot, cursor string, limit int) ([]model.ScheduleSummary, string, error)
	LatestSchedule(ctx context.Context, depot, planDate string) (*model.Schedule, error)

	// Optimizer config per depot
	GetOptimizerConfig(ctx context.Context, depot string) (*model.OptimizerConfig, error)
	SaveOptimizerConfig(ctx context.Context, depot string, cfg model.OptimizerConfig) error

	// Per-run search metrics
	SaveRunMetrics(ctx context.Context, runID string, items []opt.MethodOutcome) error
	ListRunMetrics(ctx context.Context, runID string) ([]opt.MethodOutcome, error)

	// Ping reports backend health for readiness checks.
	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")
