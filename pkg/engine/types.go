// Package engine joins schedule-feed events with market-feed contracts,
// analyzes model-vs-market probability disagreement, and produces a
// ranked list of actionable opportunities.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/adamdoherty-arc/magnus/pkg/feed"
)

var (
	// ErrMalformedQuote marks a contract whose prices cannot be valid
	// probabilities. It indicates an upstream feed or adapter bug and is
	// counted for alerting, never silently defaulted.
	ErrMalformedQuote = errors.New("engine: malformed quote")

	// ErrFeedUnavailable marks a feed fetch failure with no cached
	// snapshot to fall back on.
	ErrFeedUnavailable = errors.New("engine: feed unavailable")

	// ErrFeedDown marks a sport whose feed has failed too many
	// consecutive cycles; the condition is fatal for that sport only.
	ErrFeedDown = errors.New("engine: feed down")
)

// JoinedPair is a market contract resolved to its real-world event. Both
// participants embedded in the contract title resolved to the event's two
// participants above the match threshold.
type JoinedPair struct {
	Event    feed.Event
	Contract feed.MarketContract
	// Similarity scores for each side of the title, 0-100.
	ScoreA int
	ScoreB int
	// Stale is set when either underlying snapshot came from the cache
	// after a feed failure.
	Stale bool
	// MatchedAt is when the pair was joined.
	MatchedAt time.Time
}

// OddsAnalysis is the probabilistic comparison of one joined pair.
type OddsAnalysis struct {
	MarketProbability float64 `json:"market_probability"`
	ModelProbability  float64 `json:"model_probability"`
	// Edge is model minus market probability.
	Edge float64 `json:"edge"`
	// PotentialProfit is the payout per unit staked if the outcome
	// occurs at the market's implied price.
	PotentialProfit float64 `json:"potential_profit"`
	// ExpectedValue is the expected per-unit return of taking the
	// position at the current price given the model probability.
	ExpectedValue float64 `json:"expected_value"`
	// Confidence is the model's own reliability signal, 0-100. It is
	// independent of liquidity and never derived from price or volume.
	Confidence float64 `json:"confidence"`
}

// Opportunity is one ranked, actionable disagreement between model and
// market. Opportunities are ephemeral: rebuilt every cycle, never
// persisted by the engine.
type Opportunity struct {
	ID                string    `json:"id"`
	EventID           string    `json:"event_id"`
	ContractID        string    `json:"contract_id"`
	Sport             string    `json:"sport"`
	Title             string    `json:"title"`
	MarketProbability float64   `json:"market_probability"`
	ModelProbability  float64   `json:"model_probability"`
	Edge              float64   `json:"edge"`
	ExpectedValue     float64   `json:"expected_value"`
	Confidence        float64   `json:"confidence"`
	Liquidity         float64   `json:"liquidity"`
	CompositeScore    float64   `json:"composite_score"`
	Stale             bool      `json:"stale"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// Diagnostics counts what happened during one synchronization cycle.
// Expected conditions (unmatched contracts, filtered markets) are counted
// here rather than surfaced as errors; one bad record never aborts a
// cycle.
type Diagnostics struct {
	EventsFetched      int  `json:"events_fetched"`
	ContractsFetched   int  `json:"contracts_fetched"`
	MatchedPairs       int  `json:"matched_pairs"`
	UnmatchedContracts int  `json:"unmatched_contracts"`
	MalformedQuotes    int  `json:"malformed_quotes"`
	FilteredLopsided   int  `json:"filtered_lopsided"`
	FilteredIlliquid   int  `json:"filtered_illiquid"`
	ModelErrors        int  `json:"model_errors"`
	Stale              bool `json:"stale"`
}

// Merge folds other into d, for combining per-sport diagnostics.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.EventsFetched += other.EventsFetched
	d.ContractsFetched += other.ContractsFetched
	d.MatchedPairs += other.MatchedPairs
	d.UnmatchedContracts += other.UnmatchedContracts
	d.MalformedQuotes += other.MalformedQuotes
	d.FilteredLopsided += other.FilteredLopsided
	d.FilteredIlliquid += other.FilteredIlliquid
	d.ModelErrors += other.ModelErrors
	d.Stale = d.Stale || other.Stale
}

// ScheduleFeed is the schedule/score feed dependency of the synchronizer.
type ScheduleFeed interface {
	ListEvents(ctx context.Context, sport string, window feed.Window) ([]feed.Event, error)
}

// MarketFeed is the market feed dependency of the synchronizer.
type MarketFeed interface {
	ListContracts(ctx context.Context, sportHint string) ([]feed.MarketContract, error)
}

// ProbabilityModel supplies the external model probability and confidence
// for a joined pair.
type ProbabilityModel interface {
	Predict(ctx context.Context, ev feed.Event, c feed.MarketContract) (prob, confidence float64, err error)
}

// ModelFunc adapts a function to the ProbabilityModel interface.
type ModelFunc func(ctx context.Context, ev feed.Event, c feed.MarketContract) (float64, float64, error)

// Predict implements ProbabilityModel.
func (f ModelFunc) Predict(ctx context.Context, ev feed.Event, c feed.MarketContract) (float64, float64, error) {
	return f(ctx, ev, c)
}
