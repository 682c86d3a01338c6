package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "magnus.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Matching.Threshold != 60 {
		t.Errorf("threshold = %d, want 60", cfg.Matching.Threshold)
	}
	if cfg.Filter.LopsidedLow != 0.15 || cfg.Filter.LopsidedHigh != 0.85 {
		t.Errorf("lopsided bounds = [%v, %v], want [0.15, 0.85]", cfg.Filter.LopsidedLow, cfg.Filter.LopsidedHigh)
	}
	if w := cfg.Scoring.Weights; w.EV != 0.40 || w.Confidence != 0.30 || w.Liquidity != 0.20 || w.Edge != 0.10 {
		t.Errorf("default weights = %+v", w)
	}
	if cfg.Cache.TTL.Duration != 5*time.Minute {
		t.Errorf("cache ttl = %v, want 5m", cfg.Cache.TTL.Duration)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
[feeds]
schedule_url = "http://schedule.internal"
market_url = "http://market.internal"
model_url = "http://model.internal"

[matching]
threshold = 72

[cache]
ttl = "90s"

[filter]
min_liquidity = 2500.0

[scoring.weights]
ev = 0.5
confidence = 0.3
liquidity = 0.1
edge = 0.1

[ranking]
top_n = 5
min_confidence = 40.0
min_ev = 0.05

[cycle]
sports = ["nba"]
interval = "30s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Feeds.ScheduleURL != "http://schedule.internal" {
		t.Errorf("schedule_url = %q", cfg.Feeds.ScheduleURL)
	}
	if cfg.Matching.Threshold != 72 {
		t.Errorf("threshold = %d, want 72", cfg.Matching.Threshold)
	}
	if cfg.Cache.TTL.Duration != 90*time.Second {
		t.Errorf("ttl = %v, want 90s", cfg.Cache.TTL.Duration)
	}
	if cfg.Scoring.Weights.EV != 0.5 {
		t.Errorf("weights.ev = %v, want 0.5", cfg.Scoring.Weights.EV)
	}
	if got := cfg.RunnerConfig(); got.Interval != 30*time.Second || got.Rank.TopN != 5 || got.Rank.MinEV != 0.05 {
		t.Errorf("RunnerConfig = %+v", got)
	}
	// Unset file keys keep their defaults.
	if cfg.Filter.LopsidedHigh != 0.85 {
		t.Errorf("lopsided_high = %v, want default 0.85", cfg.Filter.LopsidedHigh)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[feeds]
schedule_url = "http://from-file"
`)
	t.Setenv("MAGNUS_SCHEDULE_URL", "http://from-env")
	t.Setenv("MAGNUS_REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Feeds.ScheduleURL != "http://from-env" {
		t.Errorf("schedule_url = %q, env must win over file", cfg.Feeds.ScheduleURL)
	}
	if cfg.Cache.RedisAddr != "redis.internal:6379" {
		t.Errorf("redis_addr = %q", cfg.Cache.RedisAddr)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, `
[matching]
treshold = 70
`)
	if _, err := Load(path); err == nil {
		t.Fatal("misspelled key must fail loading, not be ignored")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"defaults pass", func(c *Config) {}, true},
		{"threshold above 100", func(c *Config) { c.Matching.Threshold = 150 }, false},
		{"inverted lopsided bounds", func(c *Config) { c.Filter.LopsidedLow = 0.9 }, false},
		{"negative weight", func(c *Config) { c.Scoring.Weights.Edge = -0.1 }, false},
		{"weights not summing to one", func(c *Config) { c.Scoring.Weights.EV = 0.9 }, false},
		{"no sports", func(c *Config) { c.Cycle.Sports = nil }, false},
		{"zero ttl", func(c *Config) { c.Cache.TTL.Duration = 0 }, false},
		{"negative top_n", func(c *Config) { c.Ranking.TopN = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.wantOK {
				t.Errorf("Validate = %v, wantOK %v", err, tt.wantOK)
			}
		})
	}
}
