package monitor

import "farewatch/internal/models"

// Thresholds are the discount percentages (vs. historical mean) that gate each
// alert tier. Zero values fall back to the defaults 20/35/50.
type Thresholds struct {
	GoodPct      float64
	ExcellentPct float64
	CriticalPct  float64
}

// DefaultThresholds returns the stock tier thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{GoodPct: 20, ExcellentPct: 35, CriticalPct: 50}
}

// DiscountPct is the percentage the current price sits below the historical
// mean. Returns 0 when statistics are undefined or the mean is zero.
func DiscountPct(price float64, stats Statistics, ok bool) float64 {
	if !ok || stats.Mean == 0 {
		return 0
	}
	return (stats.Mean - price) / stats.Mean * 100
}

// Classify maps a price observation onto an alert tier. Undefined statistics
// or a zero mean always classify as TierNone. Otherwise the first matching
// rule wins, most severe first, on either discount percentage or score.
func Classify(price float64, stats Statistics, ok bool, score float64, th Thresholds) models.AlertTier {
	if !ok || stats.Mean == 0 {
		return models.TierNone
	}
	discount := (stats.Mean - price) / stats.Mean * 100

	switch {
	case discount >= th.CriticalPct || score >= 9:
		return models.TierCritical
	case discount >= th.ExcellentPct || score >= 8:
		return models.TierExcellent
	case discount >= th.GoodPct || score >= 7:
		return models.TierGood
	default:
		return models.TierNone
	}
}

// Urgency returns the buy/wait recommendation for a score band. The trend
// direction only disambiguates the 8 band (rising excellent prices are about
// to get worse) and the 6 band (falling average prices reward waiting).
func Urgency(score float64, trend models.TrendDirection) string {
	switch {
	case score >= 9:
		return "🔥 BUY NOW! Historical minimum price!"
	case score >= 8:
		if trend == models.TrendRising {
			return "⚡ BUY TODAY! Excellent price and rising!"
		}
		return "⚡ BUY TODAY! Excellent price!"
	case score >= 7:
		return "✅ Good opportunity. Worth buying."
	case score >= 6:
		if trend == models.TrendFalling {
			return "⏰ Price OK but FALLING. Wait a little longer."
		}
		return "⏰ Price OK. You can wait."
	case score >= 5:
		return "📊 Average price. Wait for better."
	default:
		return "❌ HIGH price. Do NOT buy now!"
	}
}
