package monitor

import (
	"time"

	"farewatch/internal/models"
)

// Cadence thresholds and intervals. A single ≥40% drop from the mean puts the
// whole process into ULTRA; otherwise the count of ≥25% drops picks the mode.
const (
	ultraDropPct  = 40
	hunterDropPct = 25

	ultraInterval  = 15 * time.Minute
	hunterInterval = 30 * time.Minute
	activeInterval = 2 * time.Hour
)

// SelectCadence inspects every route's history (in configured route order) and
// picks the polling mode plus the delay until the next cycle. Routes with
// fewer than 3 observations or undefined statistics are ignored. The first
// route with an ULTRA-grade drop short-circuits the scan; the big-drop count
// otherwise decides between HUNTER, ACTIVE, and NORMAL with the base interval.
func SelectCadence(routes []models.Route, histories map[string][]models.Observation, base time.Duration) (models.CadenceMode, time.Duration) {
	bigDrops := 0

	for _, route := range routes {
		history := histories[route.ID()]
		if len(history) < 3 {
			continue
		}

		prices := Prices(history)
		stats, ok := ComputeStatistics(prices)
		if !ok || stats.Mean == 0 {
			continue
		}

		last := prices[len(prices)-1]
		drop := (stats.Mean - last) / stats.Mean * 100

		if drop >= ultraDropPct {
			return models.CadenceUltra, ultraInterval
		}
		if drop >= hunterDropPct {
			bigDrops++
		}
	}

	switch {
	case bigDrops >= 2:
		return models.CadenceHunter, hunterInterval
	case bigDrops == 1:
		return models.CadenceActive, activeInterval
	default:
		return models.CadenceNormal, base
	}
}

// Prices extracts the price series from a route history, oldest first.
func Prices(history []models.Observation) []float64 {
	prices := make([]float64, len(history))
	for i, obs := range history {
		prices[i] = obs.Price
	}
	return prices
}
