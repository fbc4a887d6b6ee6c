// Package monitor implements the price-evaluation core: per-route statistics,
// alert classification, polling cadence selection, and the monitoring cycle
// that ties the price source, notification sink, and state store together.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"farewatch/internal/logger"
	"farewatch/internal/models"
	"farewatch/internal/storage"
)

// PriceSource returns the current price for an origin/destination pair, or an
// error when no price is available. A failed fetch only skips that route for
// the current cycle.
type PriceSource interface {
	FetchPrice(ctx context.Context, origin, destination string) (float64, error)
}

// NotificationSink receives alert, personal-alert, and daily-summary payloads.
// Delivery failures must not abort the cycle; the monitor logs and moves on.
type NotificationSink interface {
	SendAlert(alert models.Alert) error
	SendPersonalAlert(alert models.PersonalAlert) error
	SendSummary(summary models.DailySummary) error
}

// Config holds monitoring behavior configuration.
type Config struct {
	BaseInterval       time.Duration
	FetchPause         time.Duration
	LearningDays       int
	Thresholds         Thresholds
	SummaryHour        int
	TopPromotions      int
	SummaryMinDiscount float64
}

// DefaultConfig returns the stock monitoring configuration.
func DefaultConfig() Config {
	return Config{
		BaseInterval:       6 * time.Hour,
		FetchPause:         2 * time.Second,
		LearningDays:       0,
		Thresholds:         DefaultThresholds(),
		SummaryHour:        20,
		TopPromotions:      5,
		SummaryMinDiscount: 15,
	}
}

// Monitor owns the route set, histories, and subscriptions, and runs the
// monitoring cycle. The cycle is the single writer; the mutex serializes its
// mutations against concurrently served user commands.
type Monitor struct {
	store   *storage.Storage
	source  PriceSource
	sink    NotificationSink
	config  Config
	limiter *rate.Limiter

	mu            sync.Mutex
	routes        []models.Route
	histories     map[string][]models.Observation
	subscriptions map[string][]models.Subscription
	mode          models.CadenceMode
	testMode      bool
	lastSummary   time.Time
}

// New constructs a Monitor, seeds missing configured routes into the store,
// and loads persisted histories and subscriptions. Malformed or missing
// persisted state degrades to empty collections, never a startup failure.
func New(store *storage.Storage, source PriceSource, sink NotificationSink, config Config, seed []models.Route) (*Monitor, error) {
	if config.BaseInterval <= 0 {
		config.BaseInterval = 6 * time.Hour
	}
	if config.FetchPause <= 0 {
		config.FetchPause = 2 * time.Second
	}
	if config.TopPromotions <= 0 {
		config.TopPromotions = 5
	}
	if config.Thresholds == (Thresholds{}) {
		config.Thresholds = DefaultThresholds()
	}

	m := &Monitor{
		store:         store,
		source:        source,
		sink:          sink,
		config:        config,
		limiter:       rate.NewLimiter(rate.Every(config.FetchPause), 1),
		histories:     make(map[string][]models.Observation),
		subscriptions: make(map[string][]models.Subscription),
	}

	routes, err := store.GetAllRoutes()
	if err != nil {
		return nil, fmt.Errorf("failed to load routes: %w", err)
	}
	known := make(map[string]bool, len(routes))
	for _, r := range routes {
		known[r.ID()] = true
	}
	for _, r := range seed {
		if known[r.ID()] {
			continue
		}
		r.CreatedAt = time.Now()
		if err := store.AddRoute(&r); err != nil {
			return nil, fmt.Errorf("failed to seed route %s: %w", r.ID(), err)
		}
		routes = append(routes, r)
		known[r.ID()] = true
	}
	m.routes = routes

	histories, err := store.LoadAllHistories()
	if err != nil {
		logger.Warn("Failed to load persisted histories, starting empty: %v", err)
	} else {
		m.histories = histories
	}
	subs, err := store.LoadAllSubscriptions()
	if err != nil {
		logger.Warn("Failed to load persisted subscriptions, starting empty: %v", err)
	} else {
		m.subscriptions = subs
	}

	total := 0
	for _, h := range m.histories {
		total += len(h)
	}
	logger.Info("Loaded %d routes, %d observations, %d users with subscriptions",
		len(m.routes), total, len(m.subscriptions))

	return m, nil
}

// RunCycle executes one monitoring cycle and returns the delay until the next
// one. The cadence mode is selected from the histories before any fetch and
// controls only that delay, not behavior within the cycle. Appended
// observations are persisted exactly once, at the end of the cycle.
func (m *Monitor) RunCycle(ctx context.Context) (time.Duration, error) {
	start := time.Now()

	m.mu.Lock()
	mode, interval := SelectCadence(m.routes, m.histories, m.config.BaseInterval)
	if mode != m.mode {
		logger.Info("Cadence mode changed: %s → %s (interval %v)", m.mode, mode, interval)
	}
	m.mode = mode
	routes := make([]models.Route, len(m.routes))
	copy(routes, m.routes)
	m.mu.Unlock()

	logger.Info("Starting monitoring cycle [%s] with %d routes", mode, len(routes))

	var pending []models.Observation
	skipped := 0
	for _, route := range routes {
		if err := m.limiter.Wait(ctx); err != nil {
			return interval, err
		}

		price, err := m.source.FetchPrice(ctx, route.Origin, route.Destination)
		if err != nil {
			skipped++
			logger.Warn("No price for %s this cycle: %v", route.ID(), err)
			continue
		}

		obs := models.Observation{
			ID:         uuid.New().String(),
			RouteID:    route.ID(),
			Price:      price,
			ObservedAt: time.Now(),
		}
		pending = append(pending, obs)
		m.observe(route, obs)
	}

	if err := m.store.AppendObservations(pending); err != nil {
		return interval, fmt.Errorf("failed to persist cycle observations: %w", err)
	}

	logger.Info("Monitoring cycle completed in %v: %d observed, %d skipped, next in %v",
		time.Since(start), len(pending), skipped, interval)
	return interval, nil
}

// observe appends one observation, evaluates it, and emits notifications.
func (m *Monitor) observe(route models.Route, obs models.Observation) {
	m.mu.Lock()
	routeID := route.ID()
	m.histories[routeID] = append(m.histories[routeID], obs)
	history := m.histories[routeID]

	prices := Prices(history)
	stats, ok := ComputeStatistics(prices)
	score := ComputeScore(obs.Price, stats, ok)
	trend, trendPct := ComputeTrend(prices)
	tier := Classify(obs.Price, stats, ok, score, m.config.Thresholds)
	learning := m.inLearningLocked(routeID, obs.ObservedAt)
	testMode := m.testMode
	matches := m.matchSubscriptionsLocked(route, obs.Price)
	mode := m.mode
	m.mu.Unlock()

	if !ok {
		logger.Info("%s: %.2f (collecting data, %d observations)", route.Name, obs.Price, len(history))
	} else {
		if testMode && tier == models.TierNone {
			tier = models.TierGood
		}
		if tier != models.TierNone && (!learning || testMode) {
			alert := models.Alert{
				Route:       route,
				Price:       obs.Price,
				Mean:        stats.Mean,
				Min:         stats.Min,
				Max:         stats.Max,
				DiscountPct: DiscountPct(obs.Price, stats, ok),
				Score:       score,
				Tier:        tier,
				Trend:       trend,
				TrendPct:    trendPct,
				Urgency:     Urgency(score, trend),
				Mode:        mode,
				DetectedAt:  obs.ObservedAt,
			}
			logger.Info("ALERT [%s] %s: %.2f (score %.1f/10, discount %.1f%%)",
				tier, route.Name, obs.Price, score, alert.DiscountPct)
			if err := m.sink.SendAlert(alert); err != nil {
				logger.Error("Failed to send alert for %s: %v", routeID, err)
			}
		} else {
			logger.Debug("%s: %.2f | score %.1f/10 | %s", route.Name, obs.Price, score, trend)
		}
	}

	// Personal subscriptions fire on every qualifying observation, alert or
	// not, and are never consumed. A per-recipient delivery failure is logged
	// and ignored.
	for _, pa := range matches {
		if err := m.sink.SendPersonalAlert(pa); err != nil {
			logger.Warn("Failed to notify user %s: %v", pa.UserID, err)
		}
	}
}

func (m *Monitor) inLearningLocked(routeID string, now time.Time) bool {
	if m.config.LearningDays <= 0 {
		return false
	}
	history := m.histories[routeID]
	if len(history) == 0 {
		return true
	}
	span := now.Sub(history[0].ObservedAt)
	return span < time.Duration(m.config.LearningDays)*24*time.Hour
}

func (m *Monitor) matchSubscriptionsLocked(route models.Route, price float64) []models.PersonalAlert {
	var matches []models.PersonalAlert
	routeID := route.ID()
	for _, subs := range m.subscriptions {
		for _, sub := range subs {
			if sub.RouteID == routeID && price <= sub.MaxPrice {
				matches = append(matches, models.PersonalAlert{
					UserID:   sub.UserID,
					Route:    route,
					Price:    price,
					MaxPrice: sub.MaxPrice,
				})
			}
		}
	}
	return matches
}

// AddRoute registers a new monitored route. Codes are upper-cased; duplicate
// (origin, destination) pairs are rejected. An empty name defaults to
// "ORIGIN → DESTINATION".
func (m *Monitor) AddRoute(origin, destination, name string) (models.Route, error) {
	origin = strings.ToUpper(strings.TrimSpace(origin))
	destination = strings.ToUpper(strings.TrimSpace(destination))
	if name == "" {
		name = fmt.Sprintf("%s → %s", origin, destination)
	}
	route := models.Route{Origin: origin, Destination: destination, Name: name, CreatedAt: time.Now()}
	if err := route.Validate(); err != nil {
		return models.Route{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.routes {
		if r.ID() == route.ID() {
			return models.Route{}, fmt.Errorf("route %s already exists", route.ID())
		}
	}
	if err := m.store.AddRoute(&route); err != nil {
		return models.Route{}, err
	}
	m.routes = append(m.routes, route)
	return route, nil
}

// RemoveRoute deletes a monitored route along with its persisted history.
func (m *Monitor) RemoveRoute(origin, destination string) (models.Route, error) {
	routeID := models.RouteID(strings.ToUpper(strings.TrimSpace(origin)), strings.ToUpper(strings.TrimSpace(destination)))

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.routes {
		if r.ID() != routeID {
			continue
		}
		if err := m.store.RemoveRoute(routeID); err != nil {
			return models.Route{}, err
		}
		m.routes = append(m.routes[:i], m.routes[i+1:]...)
		delete(m.histories, routeID)
		return r, nil
	}
	return models.Route{}, fmt.Errorf("route %s not found", routeID)
}

// Routes returns a snapshot of the monitored routes in configured order.
func (m *Monitor) Routes() []models.Route {
	m.mu.Lock()
	defer m.mu.Unlock()
	routes := make([]models.Route, len(m.routes))
	copy(routes, m.routes)
	return routes
}

// CreateSubscription registers a personal price-threshold alert for a user.
func (m *Monitor) CreateSubscription(userID, origin, destination string, maxPrice float64) (models.Subscription, error) {
	routeID := models.RouteID(strings.ToUpper(strings.TrimSpace(origin)), strings.ToUpper(strings.TrimSpace(destination)))
	sub := models.Subscription{
		ID:        uuid.New().String(),
		UserID:    userID,
		RouteID:   routeID,
		MaxPrice:  maxPrice,
		CreatedAt: time.Now(),
	}
	if err := sub.Validate(); err != nil {
		return models.Subscription{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.AddSubscription(&sub); err != nil {
		return models.Subscription{}, err
	}
	m.subscriptions[userID] = append(m.subscriptions[userID], sub)
	return sub, nil
}

// ErrInsufficientData is returned by Analyze when a route has too few
// observations for a meaningful summary.
var ErrInsufficientData = errors.New("insufficient data for analysis")

// Analyze serves an on-demand summary of a route's current standing. It
// requires at least 5 observations.
func (m *Monitor) Analyze(origin, destination string) (models.RouteAnalysis, error) {
	routeID := models.RouteID(strings.ToUpper(strings.TrimSpace(origin)), strings.ToUpper(strings.TrimSpace(destination)))

	m.mu.Lock()
	defer m.mu.Unlock()

	var route models.Route
	found := false
	for _, r := range m.routes {
		if r.ID() == routeID {
			route, found = r, true
			break
		}
	}
	if !found {
		return models.RouteAnalysis{}, fmt.Errorf("route %s not found", routeID)
	}

	history := m.histories[routeID]
	if len(history) < trendWindow {
		return models.RouteAnalysis{}, ErrInsufficientData
	}

	prices := Prices(history)
	stats, ok := ComputeStatistics(prices)
	last := prices[len(prices)-1]
	score := ComputeScore(last, stats, ok)
	trend, trendPct := ComputeTrend(prices)

	return models.RouteAnalysis{
		Route:    route,
		Price:    last,
		Mean:     stats.Mean,
		StdDev:   stats.StdDev,
		Min:      stats.Min,
		Max:      stats.Max,
		Score:    score,
		Trend:    trend,
		TrendPct: trendPct,
		Urgency:  Urgency(score, trend),
	}, nil
}

// TopPromotions ranks the current best-scoring routes among those with enough
// history and a discount above the summary floor.
func (m *Monitor) TopPromotions(n int) []models.Promotion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.topPromotionsLocked(n)
}

func (m *Monitor) topPromotionsLocked(n int) []models.Promotion {
	var promos []models.Promotion
	for _, route := range m.routes {
		history := m.histories[route.ID()]
		if len(history) < trendWindow {
			continue
		}
		prices := Prices(history)
		stats, ok := ComputeStatistics(prices)
		if !ok {
			continue
		}
		last := prices[len(prices)-1]
		discount := DiscountPct(last, stats, ok)
		if discount <= m.config.SummaryMinDiscount {
			continue
		}
		promos = append(promos, models.Promotion{
			Route:       route,
			Price:       last,
			DiscountPct: discount,
			Score:       ComputeScore(last, stats, ok),
		})
	}
	sort.Slice(promos, func(i, j int) bool { return promos[i].Score > promos[j].Score })
	if len(promos) > n {
		promos = promos[:n]
	}
	return promos
}

// SetTestMode toggles the mode that bypasses the learning period and forces
// alert emission on every observation.
func (m *Monitor) SetTestMode(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.testMode = on
}

// TestMode reports whether test mode is active.
func (m *Monitor) TestMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.testMode
}

// Mode returns the cadence mode selected at the start of the current cycle.
func (m *Monitor) Mode() models.CadenceMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// BuildSummary assembles the daily digest from the current histories.
func (m *Monitor) BuildSummary(now time.Time) models.DailySummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := models.DailySummary{
		Date:          now,
		TopPromotions: m.topPromotionsLocked(m.config.TopPromotions),
		RouteCount:    len(m.routes),
		Mode:          m.mode,
	}

	total := 0
	for _, route := range m.routes {
		history := m.histories[route.ID()]
		total += len(history)
		if len(history) < trendWindow {
			continue
		}
		trend, pct := ComputeTrend(Prices(history))
		switch {
		case trend == models.TrendRising && len(summary.Rising) < 3:
			summary.Rising = append(summary.Rising, models.RouteTrend{Route: route, TrendPct: pct})
		case trend == models.TrendFalling && len(summary.Falling) < 3:
			summary.Falling = append(summary.Falling, models.RouteTrend{Route: route, TrendPct: pct})
		}
	}
	if len(m.routes) > 0 {
		summary.ChecksPerRoute = total / len(m.routes)
	}
	return summary
}

// MaybeSendSummary sends the daily digest when the configured hour is reached,
// at most once per day. Safe to call on a coarse ticker.
func (m *Monitor) MaybeSendSummary(now time.Time) {
	m.mu.Lock()
	if now.Hour() != m.config.SummaryHour || sameDay(m.lastSummary, now) {
		m.mu.Unlock()
		return
	}
	m.lastSummary = now
	m.mu.Unlock()

	summary := m.BuildSummary(now)
	if err := m.sink.SendSummary(summary); err != nil {
		logger.Error("Failed to send daily summary: %v", err)
	} else {
		logger.Info("Daily summary sent (%d promotions)", len(summary.TopPromotions))
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
