package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/adamdoherty-arc/magnus/pkg/feed"
)

func newTestRunner(schedule *fakeSchedule, market *fakeMarket, model ProbabilityModel) *Runner {
	return NewRunner(
		RunnerConfig{Sports: []string{"ncaab"}, Rank: RankConfig{TopN: 10}},
		newTestSynchronizer(schedule, market),
		NewAnalyzer(0.05),
		NewFilter(DefaultFilterConfig()),
		NewScorer(DefaultScorerConfig()),
		model,
		nil,
	)
}

func TestRunner_RunCycle(t *testing.T) {
	schedule := &fakeSchedule{events: map[string][]feed.Event{"ncaab": ncaabEvents()}}

	malformed := contract("c4", "Miami vs Florida State", 0.50, 9000)
	malformed.NoPrice = 0.20
	market := &fakeMarket{contracts: map[string][]feed.MarketContract{"ncaab": {
		contract("c1", "Florida State vs Miami", 0.45, 12000),
		contract("c2", "Duke vs North Carolina", 0.95, 50000),
		contract("c3", "Duke vs North Carolina", 0.50, 50),
		malformed,
		contract("c5", "Florida State vs Miami", 0.40, 20000),
		// Zero price: malformed, and must be counted as such rather than
		// slipping out as a lopsided rejection.
		contract("c6", "Duke vs North Carolina", 0.00, 40000),
	}}}

	model := ModelFunc(func(ctx context.Context, ev feed.Event, c feed.MarketContract) (float64, float64, error) {
		if c.ContractID == "c5" {
			return 0, 0, errors.New("model offline")
		}
		return 0.60, 80, nil
	})

	r := newTestRunner(schedule, market, model)
	opps, diag, err := r.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if diag.EventsFetched != 2 || diag.ContractsFetched != 6 {
		t.Errorf("fetch counts = %d/%d, want 2/6", diag.EventsFetched, diag.ContractsFetched)
	}
	if diag.MatchedPairs != 6 {
		t.Errorf("MatchedPairs = %d, want 6", diag.MatchedPairs)
	}
	if diag.FilteredLopsided != 1 || diag.FilteredIlliquid != 1 {
		t.Errorf("filtered = %d lopsided / %d illiquid, want 1/1", diag.FilteredLopsided, diag.FilteredIlliquid)
	}
	if diag.MalformedQuotes != 2 {
		t.Errorf("MalformedQuotes = %d, want 2", diag.MalformedQuotes)
	}
	if diag.ModelErrors != 1 {
		t.Errorf("ModelErrors = %d, want 1", diag.ModelErrors)
	}

	if len(opps) != 1 {
		t.Fatalf("opportunities = %d, want 1 (got %+v)", len(opps), opps)
	}
	o := opps[0]
	if o.ContractID != "c1" || o.EventID != "e1" || o.Sport != "ncaab" {
		t.Errorf("opportunity = %+v, want c1 on e1/ncaab", o)
	}
	if o.ID == "" {
		t.Error("opportunity must carry a generated ID")
	}
	if !almostEqual(o.ExpectedValue, 0.3333, 0.001) {
		t.Errorf("ExpectedValue = %v, want ~0.333", o.ExpectedValue)
	}
	if o.CompositeScore <= 0 || o.CompositeScore > 100 {
		t.Errorf("CompositeScore = %v, want within (0,100]", o.CompositeScore)
	}

	latest, latestDiag, updatedAt := r.Latest()
	if len(latest) != 1 || latest[0].ID != o.ID {
		t.Errorf("Latest = %+v, want the cycle's ranked set", latest)
	}
	if latestDiag != diag {
		t.Errorf("Latest diagnostics = %+v, want %+v", latestDiag, diag)
	}
	if updatedAt.IsZero() {
		t.Error("Latest timestamp not set after a successful cycle")
	}
}

func TestRunner_AbandonedCycleKeepsPrevious(t *testing.T) {
	schedule := &fakeSchedule{events: map[string][]feed.Event{"ncaab": ncaabEvents()}}
	market := &fakeMarket{contracts: map[string][]feed.MarketContract{"ncaab": {
		contract("c1", "Florida State vs Miami", 0.45, 12000),
	}}}
	model := ModelFunc(func(ctx context.Context, ev feed.Event, c feed.MarketContract) (float64, float64, error) {
		return 0.60, 80, nil
	})

	r := newTestRunner(schedule, market, model)
	if _, _, err := r.RunCycle(context.Background()); err != nil {
		t.Fatalf("first RunCycle: %v", err)
	}
	before, _, _ := r.Latest()
	if len(before) != 1 {
		t.Fatalf("latest = %d opportunities, want 1", len(before))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := r.RunCycle(ctx); err == nil {
		t.Fatal("RunCycle with canceled context must fail")
	}

	after, _, _ := r.Latest()
	if len(after) != 1 || after[0].ID != before[0].ID {
		t.Errorf("abandoned cycle replaced the previous set: %+v", after)
	}
}

func TestRunner_AllFeedsFailed(t *testing.T) {
	schedule := &fakeSchedule{err: errors.New("boom")}
	market := &fakeMarket{}
	model := ModelFunc(func(ctx context.Context, ev feed.Event, c feed.MarketContract) (float64, float64, error) {
		return 0.60, 80, nil
	})

	r := newTestRunner(schedule, market, model)
	opps, _, err := r.RunCycle(context.Background())
	if !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("err = %v, want ErrFeedUnavailable when every sport fails", err)
	}
	if len(opps) != 0 {
		t.Errorf("opportunities = %+v, want none", opps)
	}
	if latest, _, _ := r.Latest(); len(latest) != 0 {
		t.Errorf("latest = %+v, want empty with no successful cycle yet", latest)
	}
}

func TestRunner_RunInvokesOnCycle(t *testing.T) {
	schedule := &fakeSchedule{events: map[string][]feed.Event{"ncaab": ncaabEvents()}}
	market := &fakeMarket{contracts: map[string][]feed.MarketContract{"ncaab": {
		contract("c1", "Florida State vs Miami", 0.45, 12000),
	}}}
	model := ModelFunc(func(ctx context.Context, ev feed.Event, c feed.MarketContract) (float64, float64, error) {
		return 0.60, 80, nil
	})

	r := newTestRunner(schedule, market, model)

	ctx, cancel := context.WithCancel(context.Background())
	cycles := 0
	r.OnCycle = func(opps []Opportunity, diag Diagnostics, err error) {
		cycles++
		if err != nil {
			t.Errorf("cycle error: %v", err)
		}
		if len(opps) != 1 {
			t.Errorf("cycle produced %d opportunities, want 1", len(opps))
		}
		cancel()
	}

	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if cycles != 1 {
		t.Errorf("OnCycle invoked %d times, want 1", cycles)
	}
}
