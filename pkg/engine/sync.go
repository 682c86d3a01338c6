package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adamdoherty-arc/magnus/pkg/feed"
	"github.com/adamdoherty-arc/magnus/pkg/identity"
)

// SyncConfig configures the synchronizer.
type SyncConfig struct {
	// MatchThreshold is the minimum similarity score (0-100) for a
	// participant name to resolve to an event side.
	MatchThreshold int
	// CacheTTL is how long a feed snapshot short-circuits the fetch.
	CacheTTL time.Duration
	// MaxFeedFailures is the consecutive-failure streak after which a
	// sport's feed is declared down (fatal for that sport only).
	MaxFeedFailures int
	// Concurrency bounds the parallel per-sport synchronize calls.
	Concurrency int
}

// DefaultSyncConfig returns the standard synchronizer settings.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		MatchThreshold:  identity.DefaultThreshold,
		CacheTTL:        5 * time.Minute,
		MaxFeedFailures: 5,
		Concurrency:     4,
	}
}

// Synchronizer pulls events and contracts for a sport and window and
// joins them via identity matching. It has no observable side effects
// beyond the matcher's memo cache and the snapshot cache; given the same
// feed responses it always produces the same pairs.
type Synchronizer struct {
	schedule ScheduleFeed
	market   MarketFeed
	cache    feed.SnapshotCache
	matcher  *identity.Matcher
	cfg      SyncConfig

	mu       sync.Mutex
	roster   *identity.Directory
	failures map[string]int

	now func() time.Time
}

// NewSynchronizer creates a Synchronizer.
func NewSynchronizer(schedule ScheduleFeed, market MarketFeed, cache feed.SnapshotCache, matcher *identity.Matcher, cfg SyncConfig) *Synchronizer {
	def := DefaultSyncConfig()
	if cfg.MatchThreshold <= 0 {
		cfg.MatchThreshold = def.MatchThreshold
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.MaxFeedFailures <= 0 {
		cfg.MaxFeedFailures = def.MaxFeedFailures
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	return &Synchronizer{
		schedule: schedule,
		market:   market,
		cache:    cache,
		matcher:  matcher,
		cfg:      cfg,
		failures: make(map[string]int),
		now:      time.Now,
	}
}

// SetRoster installs an optional alias roster. Participants resolving
// into the roster inherit its aliases when the per-cycle directory is
// built, widening what a contract title can match.
func (s *Synchronizer) SetRoster(dir *identity.Directory) {
	s.mu.Lock()
	s.roster = dir
	s.mu.Unlock()
}

func (s *Synchronizer) currentRoster() *identity.Directory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster
}

// Synchronize fetches both feeds for one sport and joins contracts to
// events. Contracts whose title sides do not both resolve to the same
// event are dropped and counted, never surfaced as errors.
func (s *Synchronizer) Synchronize(ctx context.Context, sport string, window feed.Window) ([]JoinedPair, Diagnostics, error) {
	var diag Diagnostics

	events, eventsStale, err := s.fetchEvents(ctx, sport, window)
	if err != nil {
		return nil, diag, err
	}
	contracts, contractsStale, err := s.fetchContracts(ctx, sport)
	if err != nil {
		return nil, diag, err
	}

	diag.EventsFetched = len(events)
	diag.ContractsFetched = len(contracts)
	diag.Stale = eventsStale || contractsStale

	pairs := s.join(events, contracts, diag.Stale, &diag)
	return pairs, diag, nil
}

// SyncResult is one sport's synchronization outcome.
type SyncResult struct {
	Pairs []JoinedPair
	Diag  Diagnostics
	Err   error
}

// SynchronizeAll runs Synchronize for each sport concurrently. Sports
// share only the read-only roster and the matcher cache, so they
// parallelize safely. A sport whose feed is down carries its error in
// its own result and never blocks the other sports.
func (s *Synchronizer) SynchronizeAll(ctx context.Context, sports []string, window feed.Window) map[string]SyncResult {
	var mu sync.Mutex
	results := make(map[string]SyncResult, len(sports))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, sport := range sports {
		sport := sport
		g.Go(func() error {
			p, d, err := s.Synchronize(ctx, sport, window)
			mu.Lock()
			results[sport] = SyncResult{Pairs: p, Diag: d, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// fetchEvents returns the sport's events, serving a fresh cached snapshot
// when available and falling back to a stale one on feed failure.
func (s *Synchronizer) fetchEvents(ctx context.Context, sport string, window feed.Window) ([]feed.Event, bool, error) {
	key := "events:" + sport

	if snap, err := s.cache.Get(ctx, key); err == nil && snap.FreshWithin(s.cfg.CacheTTL, s.now()) {
		return filterWindow(snap.Events, window), false, nil
	}

	events, err := s.schedule.ListEvents(ctx, sport, window)
	if err != nil {
		return s.eventsFallback(ctx, key, window, err)
	}

	s.resetFailures(key)
	_ = s.cache.Set(ctx, key, &feed.Snapshot{Events: events, FetchedAt: s.now()})
	return events, false, nil
}

func (s *Synchronizer) eventsFallback(ctx context.Context, key string, window feed.Window, cause error) ([]feed.Event, bool, error) {
	if streak := s.recordFailure(key); streak >= s.cfg.MaxFeedFailures {
		return nil, false, fmt.Errorf("%w: %s failed %d consecutive times: %v", ErrFeedDown, key, streak, cause)
	}
	if snap, err := s.cache.Get(ctx, key); err == nil {
		return filterWindow(snap.Events, window), true, nil
	}
	return nil, false, fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, key, cause)
}

// fetchContracts mirrors fetchEvents for the market feed.
func (s *Synchronizer) fetchContracts(ctx context.Context, sport string) ([]feed.MarketContract, bool, error) {
	key := "contracts:" + sport

	if snap, err := s.cache.Get(ctx, key); err == nil && snap.FreshWithin(s.cfg.CacheTTL, s.now()) {
		return snap.Contracts, false, nil
	}

	contracts, err := s.market.ListContracts(ctx, sport)
	if err != nil {
		if streak := s.recordFailure(key); streak >= s.cfg.MaxFeedFailures {
			return nil, false, fmt.Errorf("%w: %s failed %d consecutive times: %v", ErrFeedDown, key, streak, err)
		}
		if snap, cerr := s.cache.Get(ctx, key); cerr == nil {
			return snap.Contracts, true, nil
		}
		return nil, false, fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, key, err)
	}

	s.resetFailures(key)
	_ = s.cache.Set(ctx, key, &feed.Snapshot{Contracts: contracts, FetchedAt: s.now()})
	return contracts, false, nil
}

func (s *Synchronizer) recordFailure(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[key]++
	return s.failures[key]
}

func (s *Synchronizer) resetFailures(key string) {
	s.mu.Lock()
	delete(s.failures, key)
	s.mu.Unlock()
}

// join resolves each contract title's two sides against the events'
// participants and pairs the contract with the event both sides landed
// on, in either orientation.
func (s *Synchronizer) join(events []feed.Event, contracts []feed.MarketContract, stale bool, diag *Diagnostics) []JoinedPair {
	if len(events) == 0 || len(contracts) == 0 {
		diag.UnmatchedContracts += len(contracts)
		return nil
	}

	dir := s.eventDirectory(events)
	byPair := make(map[[2]string]*feed.Event, len(events))
	for i := range events {
		ev := &events[i]
		byPair[[2]string{ev.ParticipantA, ev.ParticipantB}] = ev
		byPair[[2]string{ev.ParticipantB, ev.ParticipantA}] = ev
	}

	matchedAt := s.now()
	var pairs []JoinedPair
	for _, c := range contracts {
		if c.Status == feed.ContractClosed {
			continue
		}
		sideA, sideB, ok := splitTitle(c.Title)
		if !ok {
			diag.UnmatchedContracts++
			continue
		}

		matchA, okA := s.matcher.Resolve(sideA, dir, s.cfg.MatchThreshold)
		matchB, okB := s.matcher.Resolve(sideB, dir, s.cfg.MatchThreshold)
		if !okA || !okB {
			diag.UnmatchedContracts++
			continue
		}

		ev, found := byPair[[2]string{matchA.Canonical, matchB.Canonical}]
		if !found {
			// Both sides resolved, but to different events.
			diag.UnmatchedContracts++
			continue
		}

		pairs = append(pairs, JoinedPair{
			Event:     *ev,
			Contract:  c,
			ScoreA:    matchA.Score,
			ScoreB:    matchB.Score,
			Stale:     stale,
			MatchedAt: matchedAt,
		})
		diag.MatchedPairs++
	}
	return pairs
}

// eventDirectory builds the per-cycle matching directory from the
// events' participant names, enriched with roster aliases where the
// participant resolves into the roster. The directory version hashes the
// contents, so rebuilding it from an unchanged schedule reuses the
// matcher's memo entries.
func (s *Synchronizer) eventDirectory(events []feed.Event) *identity.Directory {
	roster := s.currentRoster()
	seen := make(map[string]struct{}, 2*len(events))
	var ids []identity.CanonicalIdentity

	add := func(name string) {
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}

		var aliases []string
		if roster != nil {
			if m, ok := s.matcher.Resolve(name, roster, s.cfg.MatchThreshold); ok {
				aliases = roster.FormsOf(m.Canonical)
			}
		}
		ids = append(ids, identity.CanonicalIdentity{Name: name, Aliases: aliases})
	}

	for _, ev := range events {
		add(ev.ParticipantA)
		add(ev.ParticipantB)
	}
	return identity.NewDirectory(ids)
}

// separators a contract title uses between its two participants, most
// specific first.
var titleSeparators = []string{" vs. ", " vs ", " v. ", " v ", " @ ", " at "}

// splitTitle extracts the two participant names embedded in a contract
// title.
func splitTitle(title string) (a, b string, ok bool) {
	lower := strings.ToLower(title)
	for _, sep := range titleSeparators {
		if idx := strings.Index(lower, sep); idx > 0 {
			a = strings.TrimSpace(title[:idx])
			b = trimTitleTail(strings.TrimSpace(title[idx+len(sep):]))
			if a != "" && b != "" {
				return a, b, true
			}
		}
	}
	return "", "", false
}

// trimTitleTail cuts trailing market qualifiers from the second side,
// e.g. "Miami Hurricanes - Winner?" or "Miami (Mar 1)".
func trimTitleTail(s string) string {
	for _, cut := range []string{"?", " - ", ": ", " ("} {
		if idx := strings.Index(s, cut); idx > 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

func filterWindow(events []feed.Event, window feed.Window) []feed.Event {
	if window.From.IsZero() && window.To.IsZero() {
		return events
	}
	kept := make([]feed.Event, 0, len(events))
	for _, ev := range events {
		if window.Contains(ev.StartTime) {
			kept = append(kept, ev)
		}
	}
	return kept
}
