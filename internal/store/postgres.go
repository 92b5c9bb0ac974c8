package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	_ "github.com/jackc/pgx/v5/stdlib"

	"metrosched/internal/model"
	"metrosched/internal/opt"
)

// Postgres persists schedules as jsonb documents keyed by identity columns.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the schema when absent. Dev helper; production deployments
// run migrations out of band.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schedules (
			id TEXT PRIMARY KEY,
			depot TEXT NOT NULL,
			plan_date TEXT NOT NULL,
			generated_at TEXT NOT NULL,
			doc JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS schedules_depot_date ON schedules (depot, plan_date, generated_at DESC)`,
		`CREATE TABLE IF NOT EXISTS optimizer_configs (
			depot TEXT PRIMARY KEY,
			doc JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_metrics (
			run_id TEXT NOT NULL,
			method TEXT NOT NULL,
			doc JSONB NOT NULL,
			PRIMARY KEY (run_id, method)
		)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) SaveSchedule(ctx context.Context, s *model.Schedule) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO schedules (id, depot, plan_date, generated_at, doc) VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`,
		s.ID, s.Depot, s.PlanDate, s.GeneratedAt, doc)
	return err
}

func (p *Postgres) GetSchedule(ctx context.Context, id string) (*model.Schedule, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM schedules WHERE id=$1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s model.Schedule
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSchedules pages newest-first; the cursor is the last returned id.
func (p *Postgres) ListSchedules(ctx context.Context, depot, cursor string, limit int) ([]model.ScheduleSummary, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows *sql.Rows
	var err error
	switch {
	case depot != "" && cursor != "":
		rows, err = p.db.QueryContext(ctx, `SELECT doc FROM schedules WHERE depot=$1 AND generated_at < (SELECT generated_at FROM schedules WHERE id=$2) ORDER BY generated_at DESC LIMIT $3`, depot, cursor, limit)
	case depot != "":
		rows, err = p.db.QueryContext(ctx, `SELECT doc FROM schedules WHERE depot=$1 ORDER BY generated_at DESC LIMIT $2`, depot, limit)
	case cursor != "":
		rows, err = p.db.QueryContext(ctx, `SELECT doc FROM schedules WHERE generated_at < (SELECT generated_at FROM schedules WHERE id=$1) ORDER BY generated_at DESC LIMIT $2`, cursor, limit)
	default:
		rows, err = p.db.QueryContext(ctx, `SELECT doc FROM schedules ORDER BY generated_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.ScheduleSummary{}
	var last string
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, "", err
		}
		var s model.Schedule
		if err := json.Unmarshal(doc, &s); err != nil {
			return nil, "", err
		}
		out = append(out, summarize(&s))
		last = s.ID
	}
	var next string
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (p *Postgres) LatestSchedule(ctx context.Context, depot, planDate string) (*model.Schedule, error) {
	var row *sql.Row
	if planDate != "" {
		row = p.db.QueryRowContext(ctx, `SELECT doc FROM schedules WHERE depot=$1 AND plan_date=$2 ORDER BY generated_at DESC LIMIT 1`, depot, planDate)
	} else {
		row = p.db.QueryRowContext(ctx, `SELECT doc FROM schedules WHERE depot=$1 ORDER BY generated_at DESC LIMIT 1`, depot)
	}
	var doc []byte
	err := row.Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s model.Schedule
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *Postgres) GetOptimizerConfig(ctx context.Context, depot string) (*model.OptimizerConfig, error) {
	var doc []byte
	err := p.db.QueryRowContext(ctx, `SELECT doc FROM optimizer_configs WHERE depot=$1`, depot).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg model.OptimizerConfig
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (p *Postgres) SaveOptimizerConfig(ctx context.Context, depot string, cfg model.OptimizerConfig) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO optimizer_configs (depot, doc) VALUES ($1,$2)
		 ON CONFLICT (depot) DO UPDATE SET doc = EXCLUDED.doc`, depot, doc)
	return err
}

func (p *Postgres) SaveRunMetrics(ctx context.Context, runID string, items []opt.MethodOutcome) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, it := range items {
		doc, err := json.Marshal(it)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_metrics (run_id, method, doc) VALUES ($1,$2,$3)
			 ON CONFLICT (run_id, method) DO UPDATE SET doc = EXCLUDED.doc`, runID, it.Method, doc); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) ListRunMetrics(ctx context.Context, runID string) ([]opt.MethodOutcome, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM run_metrics WHERE run_id=$1 ORDER BY method`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []opt.MethodOutcome{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var it opt.MethodOutcome
		if err := json.Unmarshal(doc, &it); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }
