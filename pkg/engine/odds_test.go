package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/adamdoherty-arc/magnus/pkg/feed"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestAnalyzer_Analyze(t *testing.T) {
	a := NewAnalyzer(0)

	contract := feed.MarketContract{
		ContractID: "c1",
		YesPrice:   0.45,
		NoPrice:    0.55,
		Volume:     10000,
	}

	got, err := a.Analyze(contract, 0.60, 80)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// Payout at 0.45 implied: 1/0.45 - 1 ~ 1.222.
	if !almostEqual(got.PotentialProfit, 1.2222, 0.001) {
		t.Errorf("PotentialProfit = %v, want ~1.222", got.PotentialProfit)
	}
	// EV = 0.60*1.222 - 0.40*1.0 ~ 0.333.
	if !almostEqual(got.ExpectedValue, 0.3333, 0.001) {
		t.Errorf("ExpectedValue = %v, want ~0.333", got.ExpectedValue)
	}
	if !almostEqual(got.Edge, 0.15, 1e-9) {
		t.Errorf("Edge = %v, want 0.15", got.Edge)
	}
	if got.Confidence != 80 {
		t.Errorf("Confidence = %v, want 80", got.Confidence)
	}

	for name, v := range map[string]float64{
		"profit": got.PotentialProfit,
		"ev":     got.ExpectedValue,
		"edge":   got.Edge,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s is not finite: %v", name, v)
		}
	}
}

func TestAnalyzer_MalformedQuotes(t *testing.T) {
	a := NewAnalyzer(0.05)

	tests := []struct {
		name      string
		yes, no   float64
		modelProb float64
	}{
		{"zero price", 0.0, 1.0, 0.5},
		{"certain price", 1.0, 0.0, 0.5},
		{"negative price", -0.1, 1.1, 0.5},
		{"sum far from one", 0.45, 0.30, 0.5},
		{"model prob above one", 0.45, 0.55, 1.5},
		{"model prob negative", 0.45, 0.55, -0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := feed.MarketContract{YesPrice: tt.yes, NoPrice: tt.no}
			got, err := a.Analyze(c, tt.modelProb, 50)
			if !errors.Is(err, ErrMalformedQuote) {
				t.Fatalf("err = %v, want ErrMalformedQuote", err)
			}
			if got != nil {
				t.Errorf("analysis = %+v, want nil on malformed input", got)
			}
		})
	}
}

func TestAnalyzer_ConfidenceClamped(t *testing.T) {
	a := NewAnalyzer(0)
	c := feed.MarketContract{YesPrice: 0.5, NoPrice: 0.5}

	high, err := a.Analyze(c, 0.6, 150)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if high.Confidence != 100 {
		t.Errorf("Confidence = %v, want clamped to 100", high.Confidence)
	}

	low, err := a.Analyze(c, 0.6, -10)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if low.Confidence != 0 {
		t.Errorf("Confidence = %v, want clamped to 0", low.Confidence)
	}
}
