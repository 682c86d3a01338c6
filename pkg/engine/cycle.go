package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adamdoherty-arc/magnus/pkg/feed"
)

// RunnerConfig configures the periodic scan loop.
type RunnerConfig struct {
	// Sports are the pools scanned each cycle.
	Sports []string
	// WindowAhead is how far forward the schedule query looks.
	WindowAhead time.Duration
	// Interval is the time between cycle starts.
	Interval time.Duration
	// CycleTimeout is the overall deadline for one cycle; a cycle that
	// exceeds it is abandoned and the previous ranked set keeps serving.
	CycleTimeout time.Duration
	// Rank holds the caller minimums and truncation applied to the
	// merged cross-pool set.
	Rank RankConfig
}

// DefaultRunnerConfig returns the standard loop settings.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WindowAhead:  48 * time.Hour,
		Interval:     2 * time.Minute,
		CycleTimeout: 90 * time.Second,
		Rank:         RankConfig{TopN: 20},
	}
}

// Runner drives synchronization cycles and holds the latest ranked
// opportunity set. A failed or abandoned cycle never clears the previous
// set; consumers always see the most recent successful result.
type Runner struct {
	cfg      RunnerConfig
	sync     *Synchronizer
	analyzer *Analyzer
	filter   *Filter
	scorer   *Scorer
	model    ProbabilityModel
	metrics  *Metrics

	// OnCycle, when set, is invoked after every cycle with its outcome.
	OnCycle func(opps []Opportunity, diag Diagnostics, err error)

	mu        sync.RWMutex
	latest    []Opportunity
	diag      Diagnostics
	updatedAt time.Time

	now func() time.Time
}

// NewRunner wires the engine components into a cycle loop. metrics may be
// nil.
func NewRunner(cfg RunnerConfig, s *Synchronizer, analyzer *Analyzer, filter *Filter, scorer *Scorer, model ProbabilityModel, metrics *Metrics) *Runner {
	def := DefaultRunnerConfig()
	if cfg.WindowAhead <= 0 {
		cfg.WindowAhead = def.WindowAhead
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = def.CycleTimeout
	}
	return &Runner{
		cfg:      cfg,
		sync:     s,
		analyzer: analyzer,
		filter:   filter,
		scorer:   scorer,
		model:    model,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Latest returns the most recent successful ranked set, its diagnostics,
// and when it was produced.
func (r *Runner) Latest() ([]Opportunity, Diagnostics, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	opps := make([]Opportunity, len(r.latest))
	copy(opps, r.latest)
	return opps, r.diag, r.updatedAt
}

// Run executes cycles at the configured interval until ctx is canceled.
// The first cycle runs immediately.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		opps, diag, err := r.RunCycle(ctx)
		if r.OnCycle != nil {
			r.OnCycle(opps, diag, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle executes one synchronization cycle: fetch and join all sports,
// analyze, filter, score, and rank. The latest set is replaced only when
// the cycle finishes inside its deadline.
func (r *Runner) RunCycle(ctx context.Context) ([]Opportunity, Diagnostics, error) {
	start := r.now()
	cctx, cancel := context.WithTimeout(ctx, r.cfg.CycleTimeout)
	defer cancel()

	window := feed.Window{From: start, To: start.Add(r.cfg.WindowAhead)}
	results := r.sync.SynchronizeAll(cctx, r.cfg.Sports, window)

	var (
		diag     Diagnostics
		pairs    []JoinedPair
		feedErrs []error
	)
	for sport, res := range results {
		if res.Err != nil {
			feedErrs = append(feedErrs, res.Err)
			continue
		}
		if r.metrics != nil {
			r.metrics.observeDiagnostics(sport, res.Diag)
		}
		diag.Merge(res.Diag)
		pairs = append(pairs, res.Pairs...)
	}

	opps := r.scorePairs(cctx, pairs, &diag)
	opps = Rank(opps, r.cfg.Rank)

	if err := cctx.Err(); err != nil {
		// Cycle abandoned: keep serving the previous set.
		r.observeCycle("abandoned", start)
		return nil, diag, fmt.Errorf("cycle abandoned: %w", err)
	}
	if len(results) > 0 && len(feedErrs) == len(results) {
		r.observeCycle("feed_error", start)
		return nil, diag, errors.Join(feedErrs...)
	}

	r.mu.Lock()
	r.latest = opps
	r.diag = diag
	r.updatedAt = r.now()
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.OpportunitiesHeld.Set(float64(len(opps)))
		for _, o := range opps {
			r.metrics.OpportunityEV.Observe(o.ExpectedValue)
		}
	}
	status := "ok"
	if diag.Stale {
		status = "stale"
	}
	r.observeCycle(status, start)

	return opps, diag, errors.Join(feedErrs...)
}

// scorePairs turns joined pairs into scored opportunities. Faults in the
// model, analyzer, or filter become diagnostics; nothing here aborts the
// cycle.
func (r *Runner) scorePairs(ctx context.Context, pairs []JoinedPair, diag *Diagnostics) []Opportunity {
	opps := make([]Opportunity, 0, len(pairs))
	for _, pair := range pairs {
		if ctx.Err() != nil {
			break
		}

		// A broken quote must surface as malformed, not as lopsided.
		if err := r.analyzer.ValidateQuote(pair.Contract); err != nil {
			diag.MalformedQuotes++
			continue
		}

		if ok, reason := r.filter.Admit(pair.Contract); !ok {
			switch reason {
			case RejectLopsided:
				diag.FilteredLopsided++
			case RejectIlliquid:
				diag.FilteredIlliquid++
			}
			continue
		}

		prob, confidence, err := r.model.Predict(ctx, pair.Event, pair.Contract)
		if err != nil {
			diag.ModelErrors++
			continue
		}

		analysis, err := r.analyzer.Analyze(pair.Contract, prob, confidence)
		if err != nil {
			diag.MalformedQuotes++
			continue
		}

		if r.metrics != nil {
			r.metrics.MatchScore.Observe(float64(pair.ScoreA))
			r.metrics.MatchScore.Observe(float64(pair.ScoreB))
		}

		liquidity := pair.Contract.Volume
		opps = append(opps, Opportunity{
			ID:                uuid.NewString(),
			EventID:           pair.Event.EventID,
			ContractID:        pair.Contract.ContractID,
			Sport:             pair.Event.Sport,
			Title:             pair.Contract.Title,
			MarketProbability: analysis.MarketProbability,
			ModelProbability:  analysis.ModelProbability,
			Edge:              analysis.Edge,
			ExpectedValue:     analysis.ExpectedValue,
			Confidence:        analysis.Confidence,
			Liquidity:         liquidity,
			CompositeScore:    r.scorer.Score(analysis, liquidity),
			Stale:             pair.Stale,
			GeneratedAt:       r.now(),
		})
	}
	return opps
}

func (r *Runner) observeCycle(status string, start time.Time) {
	if r.metrics == nil {
		return
	}
	r.metrics.CyclesTotal.WithLabelValues(status).Inc()
	r.metrics.CycleDuration.Observe(r.now().Sub(start).Seconds())
}
