package engine

import "github.com/adamdoherty-arc/magnus/pkg/feed"

// RejectReason explains why the filter refused a pair.
type RejectReason string

const (
	RejectNone     RejectReason = ""
	RejectLopsided RejectReason = "lopsided"
	RejectIlliquid RejectReason = "illiquid"
)

// FilterConfig bounds which markets are economically tradeable. All
// fields are configuration, not constants; tests and operators tune them.
type FilterConfig struct {
	// LopsidedLow and LopsidedHigh bound the admissible implied
	// probability. Markets outside offer negligible realizable profit
	// regardless of edge.
	LopsidedLow  float64
	LopsidedHigh float64
	// MinLiquidity is the volume / open-interest floor. A correct edge
	// on an illiquid market cannot be realized.
	MinLiquidity float64
}

// DefaultFilterConfig returns the standard bounds.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		LopsidedLow:  0.15,
		LopsidedHigh: 0.85,
		MinLiquidity: 1000,
	}
}

// Filter rejects untradeable pairs before scoring.
type Filter struct {
	cfg FilterConfig
}

// NewFilter creates a Filter.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Admit reports whether the contract should reach the scorer, and the
// reason when it should not. Lopsidedness is checked on the implied
// probability alone; liquidity on volume and, when the feed reports it,
// open interest.
func (f *Filter) Admit(c feed.MarketContract) (bool, RejectReason) {
	if c.YesPrice < f.cfg.LopsidedLow || c.YesPrice > f.cfg.LopsidedHigh {
		return false, RejectLopsided
	}
	if c.Volume < f.cfg.MinLiquidity {
		return false, RejectIlliquid
	}
	if c.OpenInterest != nil && *c.OpenInterest < f.cfg.MinLiquidity {
		return false, RejectIlliquid
	}
	return true, RejectNone
}
