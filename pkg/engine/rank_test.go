package engine

import (
	"reflect"
	"testing"
)

func TestScorer_MonotonicInEV(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())

	base := &OddsAnalysis{
		ExpectedValue: 0.10,
		Edge:          0.05,
		Confidence:    70,
	}
	better := &OddsAnalysis{
		ExpectedValue: 0.30,
		Edge:          0.05,
		Confidence:    70,
	}

	lo := s.Score(base, 5000)
	hi := s.Score(better, 5000)
	if hi <= lo {
		t.Errorf("score with higher EV = %v, must exceed %v with all else fixed", hi, lo)
	}
}

func TestScorer_Bounded(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())

	extreme := &OddsAnalysis{ExpectedValue: 50, Edge: 3, Confidence: 100}
	if got := s.Score(extreme, 1e12); got < 0 || got > 100 {
		t.Errorf("score = %v, want within [0,100]", got)
	}

	hopeless := &OddsAnalysis{ExpectedValue: -5, Edge: 0, Confidence: 0}
	if got := s.Score(hopeless, 0); got < 0 || got > 100 {
		t.Errorf("score = %v, want within [0,100]", got)
	}
}

func TestScorer_WeightsAreConfiguration(t *testing.T) {
	evOnly := NewScorer(ScorerConfig{Weights: ScoreWeights{EV: 1}})
	confOnly := NewScorer(ScorerConfig{Weights: ScoreWeights{Confidence: 1}})

	a := &OddsAnalysis{ExpectedValue: 0.5, Confidence: 20}
	b := &OddsAnalysis{ExpectedValue: 0.1, Confidence: 90}

	if evOnly.Score(a, 1000) <= evOnly.Score(b, 1000) {
		t.Error("EV-weighted scorer should prefer the higher-EV analysis")
	}
	if confOnly.Score(a, 1000) >= confOnly.Score(b, 1000) {
		t.Error("confidence-weighted scorer should prefer the higher-confidence analysis")
	}
}

func opp(id string, score, conf, ev float64) Opportunity {
	return Opportunity{
		ID:             id,
		CompositeScore: score,
		Confidence:     conf,
		ExpectedValue:  ev,
	}
}

func ids(opps []Opportunity) []string {
	out := make([]string, len(opps))
	for i, o := range opps {
		out[i] = o.ID
	}
	return out
}

func TestRank(t *testing.T) {
	opps := []Opportunity{
		opp("low", 20, 80, 0.10),
		opp("high", 90, 80, 0.40),
		opp("mid", 55, 80, 0.20),
		opp("lowconf", 99, 10, 0.50),
		opp("lowev", 95, 80, -0.10),
	}

	got := Rank(opps, RankConfig{TopN: 2, MinConfidence: 50, MinEV: 0})
	want := []string{"high", "mid"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Errorf("Rank = %v, want %v", ids(got), want)
	}
}

func TestRank_Stable(t *testing.T) {
	opps := []Opportunity{
		opp("first", 50, 80, 0.1),
		opp("second", 50, 80, 0.1),
		opp("third", 50, 80, 0.1),
	}

	got := Rank(opps, RankConfig{})
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(ids(got), want) {
		t.Errorf("equal scores must keep input order: got %v", ids(got))
	}
}

func TestRank_CrossPoolMerge(t *testing.T) {
	nba := []Opportunity{
		opp("nba-1", 80, 70, 0.3),
		opp("nba-2", 40, 70, 0.1),
	}
	ncaab := []Opportunity{
		opp("ncaab-1", 95, 70, 0.4),
		opp("ncaab-2", 60, 70, 0.2),
	}

	cfg := RankConfig{TopN: 4}
	merged := Rank(append(append([]Opportunity{}, nba...), ncaab...), cfg)
	reversed := Rank(append(append([]Opportunity{}, ncaab...), nba...), cfg)

	want := []string{"ncaab-1", "nba-1", "ncaab-2", "nba-2"}
	if !reflect.DeepEqual(ids(merged), want) {
		t.Errorf("merged order = %v, want %v", ids(merged), want)
	}
	if !reflect.DeepEqual(ids(merged), ids(reversed)) {
		t.Errorf("ordering depends on pool concatenation order: %v vs %v", ids(merged), ids(reversed))
	}
}
