package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load builds the configuration by layering, lowest precedence first:
// defaults, the TOML file at path (optional when path is empty), a .env
// file in the working directory, and MAGNUS_* environment variables.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("config: unknown key %q in %s", undecoded[0], path)
		}
	}

	// .env is developer convenience; a missing file is not an error.
	_ = godotenv.Load()
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides the deployment-specific settings. Tunables (weights,
// thresholds, bounds) are file-only so a stray variable cannot silently
// reshape scoring.
func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("MAGNUS_SCHEDULE_URL", &cfg.Feeds.ScheduleURL)
	setString("MAGNUS_MARKET_URL", &cfg.Feeds.MarketURL)
	setString("MAGNUS_MODEL_URL", &cfg.Feeds.ModelURL)
	setString("MAGNUS_REDIS_ADDR", &cfg.Cache.RedisAddr)
	setString("MAGNUS_LISTEN_ADDR", &cfg.Server.ListenAddr)
	setString("MAGNUS_ROSTER_PATH", &cfg.Matching.RosterPath)
}
