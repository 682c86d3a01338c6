package engine

import (
	"math"
	"sort"
)

// ScoreWeights are the relative contributions of each signal to the
// composite score. They should sum to 1; Config.Validate enforces it.
type ScoreWeights struct {
	EV         float64 `toml:"ev" json:"ev"`
	Confidence float64 `toml:"confidence" json:"confidence"`
	Liquidity  float64 `toml:"liquidity" json:"liquidity"`
	Edge       float64 `toml:"edge" json:"edge"`
}

// DefaultScoreWeights returns the standard weighting: EV dominates,
// confidence second, liquidity and edge magnitude round it out.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{EV: 0.40, Confidence: 0.30, Liquidity: 0.20, Edge: 0.10}
}

// ScorerConfig configures composite scoring.
type ScorerConfig struct {
	Weights ScoreWeights
	// EVCap is the expected value that maps to a full EV contribution.
	EVCap float64
	// EdgeCap is the absolute edge that maps to a full edge contribution.
	EdgeCap float64
	// LiquidityCap is the volume that maps to a full liquidity
	// contribution; scaling is logarithmic below it.
	LiquidityCap float64
}

// DefaultScorerConfig returns standard caps and weights.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Weights:      DefaultScoreWeights(),
		EVCap:        1.0,
		EdgeCap:      0.25,
		LiquidityCap: 100_000,
	}
}

// Scorer combines EV, confidence, liquidity, and edge magnitude into one
// composite rank score in [0,100].
type Scorer struct {
	cfg ScorerConfig
}

// NewScorer creates a Scorer, falling back to default caps where the
// config leaves them zero.
func NewScorer(cfg ScorerConfig) *Scorer {
	def := DefaultScorerConfig()
	if cfg.EVCap <= 0 {
		cfg.EVCap = def.EVCap
	}
	if cfg.EdgeCap <= 0 {
		cfg.EdgeCap = def.EdgeCap
	}
	if cfg.LiquidityCap <= 0 {
		cfg.LiquidityCap = def.LiquidityCap
	}
	zero := ScoreWeights{}
	if cfg.Weights == zero {
		cfg.Weights = def.Weights
	}
	return &Scorer{cfg: cfg}
}

// Score computes the composite score for an analysis and its liquidity.
// Each signal is normalized into [0,1] before weighting, so the result is
// bounded regardless of input scale. Holding the other signals fixed, the
// score is monotonic in each input.
func (s *Scorer) Score(a *OddsAnalysis, liquidity float64) float64 {
	evNorm := clamp01(a.ExpectedValue / s.cfg.EVCap)
	confNorm := clamp01(a.Confidence / 100)
	liqNorm := logScale(liquidity, s.cfg.LiquidityCap)
	edgeNorm := clamp01(math.Abs(a.Edge) / s.cfg.EdgeCap)

	w := s.cfg.Weights
	composite := w.EV*evNorm + w.Confidence*confNorm + w.Liquidity*liqNorm + w.Edge*edgeNorm
	return 100 * clamp01(composite)
}

// logScale maps v into [0,1] logarithmically against ceil, so the first
// thousand dollars of depth matters more than the hundredth.
func logScale(v, ceil float64) float64 {
	if v <= 0 {
		return 0
	}
	return clamp01(math.Log10(1+v) / math.Log10(1+ceil))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RankConfig carries the caller-supplied minimums applied before
// truncation.
type RankConfig struct {
	TopN          int
	MinConfidence float64
	MinEV         float64
}

// Rank merges opportunities from any number of sports or pools into a
// single ordering: a stable sort descending by composite score, with the
// caller's minimums applied first and the result truncated to TopN. The
// sort key is the composite score alone, so no pool receives positional
// bias beyond its scores.
func Rank(opps []Opportunity, cfg RankConfig) []Opportunity {
	kept := make([]Opportunity, 0, len(opps))
	for _, o := range opps {
		if o.Confidence < cfg.MinConfidence {
			continue
		}
		if o.ExpectedValue < cfg.MinEV {
			continue
		}
		kept = append(kept, o)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].CompositeScore > kept[j].CompositeScore
	})

	if cfg.TopN > 0 && len(kept) > cfg.TopN {
		kept = kept[:cfg.TopN]
	}
	return kept
}
