package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/adamdoherty-arc/magnus/pkg/feed"
)

// DefaultQuoteSumTolerance is how far yes+no may drift from 1 before the
// quote is treated as malformed.
const DefaultQuoteSumTolerance = 0.05

var one = decimal.NewFromInt(1)

// Analyzer converts a market quote into an implied probability and
// combines it with the externally supplied model probability.
//
// The contract's YesPrice is treated directly as a probability: the feed
// adapter has already converted cent quotes, and this component assuming
// probabilities is what keeps a stray cent value from being read as a
// probability fifty times too large.
type Analyzer struct {
	sumTolerance decimal.Decimal
}

// NewAnalyzer creates an Analyzer. A non-positive tolerance falls back to
// DefaultQuoteSumTolerance.
func NewAnalyzer(quoteSumTolerance float64) *Analyzer {
	if quoteSumTolerance <= 0 {
		quoteSumTolerance = DefaultQuoteSumTolerance
	}
	return &Analyzer{sumTolerance: decimal.NewFromFloat(quoteSumTolerance)}
}

// ValidateQuote returns ErrMalformedQuote when the market price is not
// strictly inside (0,1) or yes+no strays outside tolerance. Callers run
// it before any tradeability filtering so a broken quote is flagged for
// alerting rather than mistaken for a lopsided market.
func (a *Analyzer) ValidateQuote(c feed.MarketContract) error {
	p := decimal.NewFromFloat(c.YesPrice)
	if !p.IsPositive() || p.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: yes price %s outside (0,1)", ErrMalformedQuote, p)
	}
	sum := p.Add(decimal.NewFromFloat(c.NoPrice))
	if sum.Sub(one).Abs().GreaterThan(a.sumTolerance) {
		return fmt.Errorf("%w: yes+no = %s, want ~1", ErrMalformedQuote, sum)
	}
	return nil
}

// Analyze computes edge, potential profit, expected value, and confidence
// for one contract. It returns ErrMalformedQuote when the quote fails
// ValidateQuote or the model probability itself is out of range; the
// caller excludes the pair with a diagnostic rather than propagating the
// error.
func (a *Analyzer) Analyze(c feed.MarketContract, modelProb, confidence float64) (*OddsAnalysis, error) {
	if err := a.ValidateQuote(c); err != nil {
		return nil, err
	}
	p := decimal.NewFromFloat(c.YesPrice)

	q := decimal.NewFromFloat(modelProb)
	if q.IsNegative() || q.GreaterThan(one) {
		return nil, fmt.Errorf("%w: model probability %s outside [0,1]", ErrMalformedQuote, q)
	}

	// Payout per unit staked if the outcome occurs: 1/p - 1.
	profit := one.Div(p).Sub(one)

	// EV = q*profit - (1-q)*1, the expected per-unit return.
	ev := q.Mul(profit).Sub(one.Sub(q))

	edge := q.Sub(p)

	if confidence < 0 {
		confidence = 0
	} else if confidence > 100 {
		confidence = 100
	}

	return &OddsAnalysis{
		MarketProbability: c.YesPrice,
		ModelProbability:  modelProb,
		Edge:              edge.InexactFloat64(),
		PotentialProfit:   profit.InexactFloat64(),
		ExpectedValue:     ev.InexactFloat64(),
		Confidence:        confidence,
	}, nil
}
