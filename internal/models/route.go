// Package models defines the core domain entities: routes, price observations,
// and personal alert subscriptions.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Route is a monitored origin/destination city pair. The ID is the
// "ORIGIN-DESTINATION" pair; no two routes may share it.
type Route struct {
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}

// RouteID builds the canonical identifier for an origin/destination pair.
func RouteID(origin, destination string) string {
	return fmt.Sprintf("%s-%s", origin, destination)
}

// ID returns the route's canonical identifier.
func (r *Route) ID() string {
	return RouteID(r.Origin, r.Destination)
}

// Validate checks route field constraints. Airport codes are expected as
// 3-letter IATA codes, already upper-cased by the caller.
func (r *Route) Validate() error {
	if len(r.Origin) != 3 {
		return errors.New("route origin must be a 3-letter IATA code")
	}
	if len(r.Destination) != 3 {
		return errors.New("route destination must be a 3-letter IATA code")
	}
	if r.Origin == r.Destination {
		return errors.New("route origin and destination must differ")
	}
	if r.Name == "" {
		return errors.New("route name must not be empty")
	}
	return nil
}

// Observation is a single recorded price for a route. Immutable once recorded;
// a route's history is the insertion-ordered sequence of its observations.
type Observation struct {
	ID         string    `json:"id"`
	RouteID    string    `json:"route_id"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// Validate checks observation field constraints.
func (o *Observation) Validate() error {
	if o.ID == "" {
		return errors.New("observation ID must not be empty")
	}
	if o.RouteID == "" {
		return errors.New("observation route ID must not be empty")
	}
	if o.Price <= 0 {
		return errors.New("observation price must be positive")
	}
	if o.ObservedAt.IsZero() {
		return errors.New("observation timestamp must be set")
	}
	return nil
}

// Subscription is a personal price-threshold alert. It never expires and
// re-fires on every cycle where the route's price is at or below MaxPrice.
// A user may hold several subscriptions for the same route; each is evaluated
// independently.
type Subscription struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	RouteID   string    `json:"route_id"`
	MaxPrice  float64   `json:"max_price"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks subscription field constraints.
func (s *Subscription) Validate() error {
	if s.ID == "" {
		return errors.New("subscription ID must not be empty")
	}
	if s.UserID == "" {
		return errors.New("subscription user ID must not be empty")
	}
	if s.RouteID == "" {
		return errors.New("subscription route ID must not be empty")
	}
	if s.MaxPrice <= 0 {
		return errors.New("subscription max price must be positive")
	}
	return nil
}
