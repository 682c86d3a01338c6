// Package config loads and validates the daemon configuration from a
// TOML file with environment overrides.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/adamdoherty-arc/magnus/pkg/engine"
)

// Duration wraps time.Duration so TOML values can be written as "5m" or
// "90s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Feeds configures the upstream feed clients.
type Feeds struct {
	ScheduleURL string `toml:"schedule_url"`
	MarketURL   string `toml:"market_url"`
	ModelURL    string `toml:"model_url"`
	// Requests per second granted to each client's limiter.
	ScheduleRPS float64 `toml:"schedule_rps"`
	MarketRPS   float64 `toml:"market_rps"`
}

// Matching configures identity resolution.
type Matching struct {
	// Threshold is the minimum similarity score (0-100) for a title side
	// to resolve to an event participant.
	Threshold int `toml:"threshold"`
	// RosterPath optionally points to a JSON alias roster.
	RosterPath string `toml:"roster_path"`
}

// Cache configures snapshot caching.
type Cache struct {
	// TTL is how long a snapshot short-circuits a feed fetch.
	TTL Duration `toml:"ttl"`
	// Retention is how long stale snapshots stay usable as a fallback.
	Retention Duration `toml:"retention"`
	// RedisAddr switches the cache from in-process memory to Redis.
	RedisAddr string `toml:"redis_addr"`
}

// Filter configures the tradeability filter.
type Filter struct {
	LopsidedLow  float64 `toml:"lopsided_low"`
	LopsidedHigh float64 `toml:"lopsided_high"`
	MinLiquidity float64 `toml:"min_liquidity"`
}

// Scoring configures the composite scorer.
type Scoring struct {
	Weights      engine.ScoreWeights `toml:"weights"`
	EVCap        float64             `toml:"ev_cap"`
	EdgeCap      float64             `toml:"edge_cap"`
	LiquidityCap float64             `toml:"liquidity_cap"`
}

// Ranking configures the final ordering served to consumers.
type Ranking struct {
	TopN          int     `toml:"top_n"`
	MinConfidence float64 `toml:"min_confidence"`
	MinEV         float64 `toml:"min_ev"`
}

// Cycle configures the scan loop.
type Cycle struct {
	Sports          []string `toml:"sports"`
	WindowAhead     Duration `toml:"window_ahead"`
	Interval        Duration `toml:"interval"`
	Timeout         Duration `toml:"timeout"`
	MaxFeedFailures int      `toml:"max_feed_failures"`
	Concurrency     int      `toml:"concurrency"`
}

// Server configures the HTTP surface.
type Server struct {
	ListenAddr string `toml:"listen_addr"`
}

// Config is the full daemon configuration.
type Config struct {
	Feeds    Feeds    `toml:"feeds"`
	Matching Matching `toml:"matching"`
	Cache    Cache    `toml:"cache"`
	Filter   Filter   `toml:"filter"`
	Scoring  Scoring  `toml:"scoring"`
	Ranking  Ranking  `toml:"ranking"`
	Cycle    Cycle    `toml:"cycle"`
	Server   Server   `toml:"server"`
}

// Defaults returns the configuration the daemon runs with when no file or
// environment overrides are present.
func Defaults() Config {
	return Config{
		Feeds: Feeds{
			ScheduleRPS: 5,
			MarketRPS:   10,
		},
		Matching: Matching{Threshold: 60},
		Cache: Cache{
			TTL:       Duration{5 * time.Minute},
			Retention: Duration{24 * time.Hour},
		},
		Filter: Filter{
			LopsidedLow:  0.15,
			LopsidedHigh: 0.85,
			MinLiquidity: 1000,
		},
		Scoring: Scoring{
			Weights:      engine.DefaultScoreWeights(),
			EVCap:        1.0,
			EdgeCap:      0.25,
			LiquidityCap: 100_000,
		},
		Ranking: Ranking{TopN: 20},
		Cycle: Cycle{
			Sports:          []string{"nba", "ncaab"},
			WindowAhead:     Duration{48 * time.Hour},
			Interval:        Duration{2 * time.Minute},
			Timeout:         Duration{90 * time.Second},
			MaxFeedFailures: 5,
			Concurrency:     4,
		},
		Server: Server{ListenAddr: ":8090"},
	}
}

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 100 {
		return fmt.Errorf("matching.threshold %d outside [0,100]", c.Matching.Threshold)
	}
	if c.Filter.LopsidedLow < 0 || c.Filter.LopsidedHigh > 1 || c.Filter.LopsidedLow >= c.Filter.LopsidedHigh {
		return fmt.Errorf("filter bounds [%v, %v] invalid", c.Filter.LopsidedLow, c.Filter.LopsidedHigh)
	}
	if c.Filter.MinLiquidity < 0 {
		return fmt.Errorf("filter.min_liquidity %v negative", c.Filter.MinLiquidity)
	}
	w := c.Scoring.Weights
	for name, v := range map[string]float64{
		"ev": w.EV, "confidence": w.Confidence, "liquidity": w.Liquidity, "edge": w.Edge,
	} {
		if v < 0 {
			return fmt.Errorf("scoring.weights.%s %v negative", name, v)
		}
	}
	if sum := w.EV + w.Confidence + w.Liquidity + w.Edge; math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("scoring.weights sum to %v, want 1", sum)
	}
	if c.Ranking.TopN < 0 {
		return fmt.Errorf("ranking.top_n %d negative", c.Ranking.TopN)
	}
	if c.Ranking.MinConfidence < 0 || c.Ranking.MinConfidence > 100 {
		return fmt.Errorf("ranking.min_confidence %v outside [0,100]", c.Ranking.MinConfidence)
	}
	if len(c.Cycle.Sports) == 0 {
		return fmt.Errorf("cycle.sports is empty")
	}
	if c.Cache.TTL.Duration <= 0 {
		return fmt.Errorf("cache.ttl %v must be positive", c.Cache.TTL.Duration)
	}
	if c.Cycle.Interval.Duration <= 0 {
		return fmt.Errorf("cycle.interval %v must be positive", c.Cycle.Interval.Duration)
	}
	return nil
}

// SyncConfig maps the configuration onto the synchronizer.
func (c *Config) SyncConfig() engine.SyncConfig {
	return engine.SyncConfig{
		MatchThreshold:  c.Matching.Threshold,
		CacheTTL:        c.Cache.TTL.Duration,
		MaxFeedFailures: c.Cycle.MaxFeedFailures,
		Concurrency:     c.Cycle.Concurrency,
	}
}

// FilterConfig maps the configuration onto the filter.
func (c *Config) FilterConfig() engine.FilterConfig {
	return engine.FilterConfig{
		LopsidedLow:  c.Filter.LopsidedLow,
		LopsidedHigh: c.Filter.LopsidedHigh,
		MinLiquidity: c.Filter.MinLiquidity,
	}
}

// ScorerConfig maps the configuration onto the scorer.
func (c *Config) ScorerConfig() engine.ScorerConfig {
	return engine.ScorerConfig{
		Weights:      c.Scoring.Weights,
		EVCap:        c.Scoring.EVCap,
		EdgeCap:      c.Scoring.EdgeCap,
		LiquidityCap: c.Scoring.LiquidityCap,
	}
}

// RunnerConfig maps the configuration onto the cycle runner.
func (c *Config) RunnerConfig() engine.RunnerConfig {
	return engine.RunnerConfig{
		Sports:       c.Cycle.Sports,
		WindowAhead:  c.Cycle.WindowAhead.Duration,
		Interval:     c.Cycle.Interval.Duration,
		CycleTimeout: c.Cycle.Timeout.Duration,
		Rank: engine.RankConfig{
			TopN:          c.Ranking.TopN,
			MinConfidence: c.Ranking.MinConfidence,
			MinEV:         c.Ranking.MinEV,
		},
	}
}
