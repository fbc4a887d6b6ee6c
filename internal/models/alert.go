package models

import "time"

// TrendDirection is the coarse direction of a route's short-window trend.
type TrendDirection int

const (
	TrendStable TrendDirection = iota
	TrendRising
	TrendFalling
)

func (d TrendDirection) String() string {
	switch d {
	case TrendRising:
		return "RISING"
	case TrendFalling:
		return "FALLING"
	default:
		return "STABLE"
	}
}

// AlertTier is the discrete severity of a price alert.
type AlertTier int

const (
	TierNone AlertTier = iota
	TierGood
	TierExcellent
	TierCritical
)

func (t AlertTier) String() string {
	switch t {
	case TierGood:
		return "GOOD"
	case TierExcellent:
		return "EXCELLENT"
	case TierCritical:
		return "CRITICAL"
	default:
		return "NONE"
	}
}

// CadenceMode is the process-wide polling cadence, recomputed at the start of
// every monitoring cycle.
type CadenceMode int

const (
	CadenceNormal CadenceMode = iota
	CadenceActive
	CadenceHunter
	CadenceUltra
)

func (m CadenceMode) String() string {
	switch m {
	case CadenceActive:
		return "ACTIVE"
	case CadenceHunter:
		return "HUNTER"
	case CadenceUltra:
		return "ULTRA"
	default:
		return "NORMAL"
	}
}

// Alert is the payload delivered to the notification sink when a route's
// current price classifies above TierNone.
type Alert struct {
	Route       Route
	Price       float64
	Mean        float64
	Min         float64
	Max         float64
	DiscountPct float64
	Score       float64
	Tier        AlertTier
	Trend       TrendDirection
	TrendPct    float64
	Urgency     string
	Mode        CadenceMode
	DetectedAt  time.Time
}

// PersonalAlert is the payload for a user's price-threshold subscription match.
type PersonalAlert struct {
	UserID   string
	Route    Route
	Price    float64
	MaxPrice float64
}

// RouteAnalysis is the on-demand summary of a route's current standing,
// served to user queries outside the monitoring cycle.
type RouteAnalysis struct {
	Route    Route
	Price    float64
	Mean     float64
	StdDev   float64
	Min      float64
	Max      float64
	Score    float64
	Trend    TrendDirection
	TrendPct float64
	Urgency  string
}

// Promotion is one entry in the daily summary's top-promotions ranking.
type Promotion struct {
	Route       Route
	Price       float64
	DiscountPct float64
	Score       float64
}

// RouteTrend pairs a route with its trend percentage for the daily summary.
type RouteTrend struct {
	Route    Route
	TrendPct float64
}

// DailySummary is the once-a-day digest payload.
type DailySummary struct {
	Date           time.Time
	TopPromotions  []Promotion
	Rising         []RouteTrend
	Falling        []RouteTrend
	RouteCount     int
	ChecksPerRoute int
	Mode           CadenceMode
}
