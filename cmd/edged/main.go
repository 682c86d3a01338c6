// edged is the opportunity scanning daemon. It periodically joins
// schedule events with market contracts, scores the disagreement between
// the prediction model and the market, and serves the ranked result over
// HTTP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adamdoherty-arc/magnus/pkg/config"
	"github.com/adamdoherty-arc/magnus/pkg/engine"
	"github.com/adamdoherty-arc/magnus/pkg/feed"
	"github.com/adamdoherty-arc/magnus/pkg/identity"
)

var (
	configPath = flag.String("config", "", "Path to TOML config file")
	httpAddr   = flag.String("http", "", "HTTP listen address (overrides config)")
	verbose    = flag.Bool("verbose", false, "Log every cycle, not just failures")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("Starting opportunity scanner")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *httpAddr != "" {
		cfg.Server.ListenAddr = *httpAddr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d, err := newDaemon(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	d.runner.OnCycle = func(opps []engine.Opportunity, diag engine.Diagnostics, err error) {
		switch {
		case err != nil:
			log.Printf("[CYCLE] failed: %v", err)
		case *verbose || diag.Stale:
			log.Printf("[CYCLE] %d opportunities (matched %d/%d contracts, stale=%v)",
				len(opps), diag.MatchedPairs, diag.ContractsFetched, diag.Stale)
		}
		for _, o := range opps {
			if *verbose {
				log.Printf("  [%s] %s score=%.1f ev=%+.3f edge=%+.3f conf=%.0f",
					o.Sport, o.Title, o.CompositeScore, o.ExpectedValue, o.Edge, o.Confidence)
			}
		}
	}

	server := d.httpServer(cfg.Server.ListenAddr)
	go func() {
		log.Printf("HTTP server listening on %s", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	go func() {
		if err := d.runner.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Runner stopped: %v", err)
		}
	}()

	log.Printf("Scanning %v every %s", cfg.Cycle.Sports, cfg.Cycle.Interval.Duration)

	<-sigCh
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	log.Println("Goodbye!")
}

type daemon struct {
	runner  *engine.Runner
	metrics *engine.Metrics
}

func newDaemon(cfg config.Config) (*daemon, error) {
	schedule := feed.NewScheduleClient(cfg.Feeds.ScheduleURL,
		feed.WithScheduleRateLimit(cfg.Feeds.ScheduleRPS, 2))
	market := feed.NewMarketClient(cfg.Feeds.MarketURL,
		feed.WithMarketRateLimit(cfg.Feeds.MarketRPS, 5))
	model := feed.NewModelClient(cfg.Feeds.ModelURL)

	var cache feed.SnapshotCache
	if cfg.Cache.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		cache = feed.NewRedisCache(rdb, cfg.Cache.Retention.Duration)
		log.Printf("Snapshot cache on Redis at %s", cfg.Cache.RedisAddr)
	} else {
		cache = feed.NewMemoryCache(cfg.Cache.Retention.Duration)
	}

	matcher := identity.NewMatcher()
	sync := engine.NewSynchronizer(schedule, market, cache, matcher, cfg.SyncConfig())

	if cfg.Matching.RosterPath != "" {
		roster, err := identity.LoadDirectory(cfg.Matching.RosterPath)
		if err != nil {
			return nil, err
		}
		sync.SetRoster(roster)
		log.Printf("Loaded alias roster from %s", cfg.Matching.RosterPath)
	}

	metrics := engine.NewMetrics()
	runner := engine.NewRunner(
		cfg.RunnerConfig(),
		sync,
		engine.NewAnalyzer(0),
		engine.NewFilter(cfg.FilterConfig()),
		engine.NewScorer(cfg.ScorerConfig()),
		engine.ModelFunc(func(ctx context.Context, ev feed.Event, c feed.MarketContract) (float64, float64, error) {
			q, err := model.Predict(ctx, ev.EventID, c.ContractID)
			if err != nil {
				return 0, 0, err
			}
			return q.Probability, q.Confidence, nil
		}),
		metrics,
	)

	return &daemon{runner: runner, metrics: metrics}, nil
}

func (d *daemon) httpServer(addr string) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/opportunities", func(w http.ResponseWriter, r *http.Request) {
		opps, diag, updatedAt := d.runner.Latest()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"opportunities": opps,
			"diagnostics":   diag,
			"updated_at":    updatedAt,
		})
	})

	mux.Handle("/metrics", d.metrics.Handler())

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
