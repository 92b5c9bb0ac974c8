package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"metrosched/internal/model"
	"metrosched/internal/plan"
)

// RateLimit bounds request admission on the optimize endpoint.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Config is the full service configuration. Values come from an optional
// YAML file with environment variables taking precedence.
type Config struct {
	Port        string                `yaml:"port"`
	DatabaseURL string                `yaml:"database_url"`
	RedisURL    string                `yaml:"redis_url"`
	RateLimit   RateLimit             `yaml:"rate_limit"`
	Optimizer   model.OptimizerConfig `yaml:"optimizer"`
	Plan        plan.Params           `yaml:"plan"`
}

// Default returns the shipped configuration: Muttom depot fleet minimums
// with a 400 km daily cap.
func Default() Config {
	return Config{
		Port:      "8080",
		RateLimit: RateLimit{RPS: 10, Burst: 20},
		Optimizer: model.OptimizerConfig{
			MinServiceTrains: 13,
			MinStandbyTrains: 3,
			MaxDailyKM:       400,
			Weights:          model.DefaultWeights(),
		},
		Plan: plan.DefaultParams(),
	}
}

// Load reads the YAML file at path into the defaults, then applies
// environment overrides. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// FromEnv loads the file named by CONFIG_PATH, or just the defaults plus
// environment overrides when unset.
func FromEnv() (Config, error) {
	return Load(os.Getenv("CONFIG_PATH"))
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("OPTIMIZER_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Optimizer.Seed = n
		}
	}
}
