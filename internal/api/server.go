package api

import (
	"context"
	"log"
	"os"
	"strings"

	"golang.org/x/time/rate"

	"metrosched/internal/config"
	"metrosched/internal/store"
)

type Server struct {
	Store   store.Store
	Broker  EventBroker
	Cfg     config.Config
	limiter *rate.Limiter
}

// NewServer creates a Server from the environment. If DATABASE_URL is unset,
// uses the in-memory store; if REDIS_URL is unset, the in-process broker.
func NewServer() (*Server, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return NewServerWith(cfg)
}

func NewServerWith(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		// dev helper; set DB_MIGRATE=false in production
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.Migrate(context.Background()); err != nil {
				return nil, err
			}
		}
		s = sp
	}
	var broker EventBroker
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL)
		if err != nil {
			log.Printf("redis broker unavailable, using in-memory: %v", err)
			broker = NewBroker()
		} else {
			broker = rb
		}
	} else {
		broker = NewBroker()
	}
	return &Server{
		Store:   s,
		Broker:  broker,
		Cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst),
	}, nil
}
