package monitor

import (
	"strings"
	"testing"

	"farewatch/internal/models"
)

func TestClassify(t *testing.T) {
	th := DefaultThresholds()
	defined := Statistics{Mean: 100, Min: 40, Max: 160}

	tests := []struct {
		name  string
		price float64
		stats Statistics
		ok    bool
		score float64
		want  models.AlertTier
	}{
		{"undefined stats", 50, Statistics{}, false, 5, models.TierNone},
		{"zero mean guard", 50, Statistics{Mean: 0, Min: 0, Max: 10}, true, 5, models.TierNone},
		{"no discount no score", 100, defined, true, 5, models.TierNone},
		{"discount 20 good", 80, defined, true, 5, models.TierGood},
		{"discount 35 excellent", 65, defined, true, 5, models.TierExcellent},
		{"discount 50 critical", 50, defined, true, 5, models.TierCritical},
		{"discount just below good", 81, defined, true, 5, models.TierNone},
		{"score 7 good despite no discount", 100, defined, true, 7, models.TierGood},
		{"score 8 excellent", 100, defined, true, 8, models.TierExcellent},
		{"score 9 critical", 100, defined, true, 9.2, models.TierCritical},
		{"discount and score take the stronger", 80, defined, true, 9, models.TierCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.price, tt.stats, tt.ok, tt.score, th)
			if got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassify_MonotonicInDiscount(t *testing.T) {
	th := DefaultThresholds()
	stats := Statistics{Mean: 100, Min: 10, Max: 190}
	prev := models.TierCritical
	// Walking price upward (discount downward) must never raise the tier.
	for price := 10.0; price <= 190; price += 1 {
		tier := Classify(price, stats, true, 5, th)
		if tier > prev {
			t.Fatalf("tier rose from %s to %s as discount shrank (price %v)", prev, tier, price)
		}
		prev = tier
	}
}

func TestClassify_DeepDropScenario(t *testing.T) {
	// History [100,100,100,100,50]: mean 90, min 50, max 100. Price 50 scores
	// 10 and discounts ~44.4%, but tier evaluation with score 10 hits
	// CRITICAL via the score rule first. With the score rule isolated off
	// (score 5), discount alone lands EXCELLENT.
	stats, ok := ComputeStatistics([]float64{100, 100, 100, 100, 50})
	if !ok {
		t.Fatal("statistics should be defined")
	}
	discount := DiscountPct(50, stats, ok)
	if !almostEqual(discount, 44.44, 0.01) {
		t.Errorf("discount = %v, want ≈44.44", discount)
	}
	if tier := Classify(50, stats, ok, 5, DefaultThresholds()); tier != models.TierExcellent {
		t.Errorf("discount-only tier = %s, want EXCELLENT", tier)
	}
	score := ComputeScore(50, stats, ok)
	if score != 10 {
		t.Errorf("score = %v, want 10", score)
	}
	if tier := Classify(50, stats, ok, score, DefaultThresholds()); tier != models.TierCritical {
		t.Errorf("full tier = %s, want CRITICAL (score 10 ≥ 9)", tier)
	}
}

func TestDiscountPct_Guards(t *testing.T) {
	if got := DiscountPct(100, Statistics{}, false); got != 0 {
		t.Errorf("undefined stats discount = %v, want 0", got)
	}
	if got := DiscountPct(100, Statistics{Mean: 0}, true); got != 0 {
		t.Errorf("zero mean discount = %v, want 0", got)
	}
}

func TestUrgency(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		trend    models.TrendDirection
		contains string
	}{
		{"historical minimum", 9.5, models.TrendStable, "BUY NOW"},
		{"excellent stable", 8.2, models.TrendStable, "Excellent price!"},
		{"excellent rising", 8.2, models.TrendRising, "rising"},
		{"good", 7.1, models.TrendFalling, "Good opportunity"},
		{"ok falling", 6.3, models.TrendFalling, "FALLING"},
		{"ok stable", 6.3, models.TrendStable, "You can wait"},
		{"average", 5.5, models.TrendRising, "Average price"},
		{"high", 2.0, models.TrendFalling, "Do NOT buy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Urgency(tt.score, tt.trend)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("Urgency(%v, %s) = %q, want substring %q", tt.score, tt.trend, got, tt.contains)
			}
		})
	}
}

func TestUrgency_Deterministic(t *testing.T) {
	for _, trend := range []models.TrendDirection{models.TrendStable, models.TrendRising, models.TrendFalling} {
		for score := 0.0; score <= 10; score += 0.5 {
			a := Urgency(score, trend)
			b := Urgency(score, trend)
			if a == "" || a != b {
				t.Fatalf("Urgency(%v, %s) unstable or empty", score, trend)
			}
		}
	}
}
