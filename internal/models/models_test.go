package models

import (
	"testing"
	"time"
)

func TestRouteValidate(t *testing.T) {
	tests := []struct {
		name    string
		route   Route
		wantErr bool
	}{
		{
			name:    "valid route",
			route:   Route{Origin: "GRU", Destination: "SSA", Name: "Sao Paulo → Salvador"},
			wantErr: false,
		},
		{
			name:    "short origin",
			route:   Route{Origin: "GR", Destination: "SSA", Name: "x"},
			wantErr: true,
		},
		{
			name:    "short destination",
			route:   Route{Origin: "GRU", Destination: "SS", Name: "x"},
			wantErr: true,
		},
		{
			name:    "same origin and destination",
			route:   Route{Origin: "GRU", Destination: "GRU", Name: "x"},
			wantErr: true,
		},
		{
			name:    "empty name",
			route:   Route{Origin: "GRU", Destination: "SSA"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.route.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Route.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRouteID(t *testing.T) {
	if got := RouteID("GRU", "JFK"); got != "GRU-JFK" {
		t.Errorf("RouteID = %q, want GRU-JFK", got)
	}
	r := Route{Origin: "GRU", Destination: "LIS", Name: "x"}
	if r.ID() != "GRU-LIS" {
		t.Errorf("Route.ID = %q, want GRU-LIS", r.ID())
	}
}

func TestObservationValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		obs     Observation
		wantErr bool
	}{
		{
			name:    "valid",
			obs:     Observation{ID: "obs-1", RouteID: "GRU-SSA", Price: 899.90, ObservedAt: now},
			wantErr: false,
		},
		{
			name:    "zero price",
			obs:     Observation{ID: "obs-1", RouteID: "GRU-SSA", Price: 0, ObservedAt: now},
			wantErr: true,
		},
		{
			name:    "negative price",
			obs:     Observation{ID: "obs-1", RouteID: "GRU-SSA", Price: -10, ObservedAt: now},
			wantErr: true,
		},
		{
			name:    "missing route",
			obs:     Observation{ID: "obs-1", Price: 100, ObservedAt: now},
			wantErr: true,
		},
		{
			name:    "zero timestamp",
			obs:     Observation{ID: "obs-1", RouteID: "GRU-SSA", Price: 100},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.obs.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Observation.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscriptionValidate(t *testing.T) {
	tests := []struct {
		name    string
		sub     Subscription
		wantErr bool
	}{
		{
			name:    "valid",
			sub:     Subscription{ID: "s-1", UserID: "42", RouteID: "GRU-SSA", MaxPrice: 150},
			wantErr: false,
		},
		{
			name:    "missing user",
			sub:     Subscription{ID: "s-1", RouteID: "GRU-SSA", MaxPrice: 150},
			wantErr: true,
		},
		{
			name:    "non-positive max price",
			sub:     Subscription{ID: "s-1", UserID: "42", RouteID: "GRU-SSA", MaxPrice: 0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Subscription.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnumStrings(t *testing.T) {
	if TrendRising.String() != "RISING" || TrendFalling.String() != "FALLING" || TrendStable.String() != "STABLE" {
		t.Error("unexpected TrendDirection strings")
	}
	if TierNone.String() != "NONE" || TierGood.String() != "GOOD" ||
		TierExcellent.String() != "EXCELLENT" || TierCritical.String() != "CRITICAL" {
		t.Error("unexpected AlertTier strings")
	}
	if CadenceNormal.String() != "NORMAL" || CadenceActive.String() != "ACTIVE" ||
		CadenceHunter.String() != "HUNTER" || CadenceUltra.String() != "ULTRA" {
		t.Error("unexpected CadenceMode strings")
	}
}
