package monitor

import (
	"math"

	"farewatch/internal/models"
)

// trendWindow is the number of trailing observations the trend looks at. The
// early and recent halves share the middle element.
const trendWindow = 5

// Statistics are the descriptive statistics over one route's full history.
type Statistics struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// ComputeStatistics derives mean, sample standard deviation, min, and max over
// a route's prices. It requires at least 2 observations; below that the
// statistics are undefined and ok is false.
func ComputeStatistics(prices []float64) (stats Statistics, ok bool) {
	if len(prices) < 2 {
		return Statistics{}, false
	}

	sum := 0.0
	min, max := prices[0], prices[0]
	for _, p := range prices {
		sum += p
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	mean := sum / float64(len(prices))

	var m2 float64
	for _, p := range prices {
		d := p - mean
		m2 += d * d
	}
	stdev := math.Sqrt(m2 / float64(len(prices)-1))

	return Statistics{Mean: mean, StdDev: stdev, Min: min, Max: max}, true
}

// ComputeScore maps the current price onto a 0–10 desirability scale relative
// to the historical range: 10 at the historical minimum, 0 at the maximum.
// When statistics are undefined or the range is degenerate (max == min) the
// neutral score 5 is returned; this also covers the division-by-zero guard.
func ComputeScore(price float64, stats Statistics, ok bool) float64 {
	if !ok || stats.Max == stats.Min {
		return 5
	}
	score := 10 - (price-stats.Min)/(stats.Max-stats.Min)*10
	return math.Max(0, math.Min(10, score))
}

// ComputeTrend classifies the short-window trend over the last 5 prices:
// the mean of the first 3 against the mean of the last 3 (overlapping at the
// middle element), as a signed percentage. More than ±5% moves the direction
// off STABLE. Below 5 observations the trend is (STABLE, 0).
func ComputeTrend(prices []float64) (models.TrendDirection, float64) {
	if len(prices) < trendWindow {
		return models.TrendStable, 0
	}

	last := prices[len(prices)-trendWindow:]
	early := (last[0] + last[1] + last[2]) / 3
	recent := (last[2] + last[3] + last[4]) / 3
	if early == 0 {
		return models.TrendStable, 0
	}

	pct := (recent - early) / early * 100
	switch {
	case pct < -5:
		return models.TrendFalling, pct
	case pct > 5:
		return models.TrendRising, pct
	default:
		return models.TrendStable, pct
	}
}
