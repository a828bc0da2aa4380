package domain

import (
	"testing"
	"time"
)

func TestPlanByName(t *testing.T) {
	tests := []struct {
		name     string
		wantTier Tier
		wantOK   bool
	}{
		{name: "Monthly", wantTier: TierMonthly, wantOK: true},
		{name: "Yearly", wantTier: TierYearly, wantOK: true},
		{name: "Lifetime", wantTier: TierLifetime, wantOK: true},
		{name: "monthly"},
		{name: "Quarterly"},
		{name: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, ok := PlanByName(tt.name)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if plan.Tier != tt.wantTier {
				t.Fatalf("tier = %q, want %q", plan.Tier, tt.wantTier)
			}
		})
	}
}

func TestTierForAmount(t *testing.T) {
	tests := []struct {
		amount int64
		want   Tier
	}{
		{399, TierMonthly},
		{2999, TierYearly},
		{8900, TierLifetime},
		{100, TierNone},
		{0, TierNone},
	}

	for _, tt := range tests {
		if got := TierForAmount(tt.amount); got != tt.want {
			t.Fatalf("TierForAmount(%d) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestIsActiveAt(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{
			name: "active with future period end",
			sub:  Subscription{Status: SubscriptionStatusActive, Tier: TierMonthly, CurrentPeriodEnd: &future},
			want: true,
		},
		{
			name: "active with past period end",
			sub:  Subscription{Status: SubscriptionStatusActive, Tier: TierMonthly, CurrentPeriodEnd: &past},
		},
		{
			name: "active recurring without period end",
			sub:  Subscription{Status: SubscriptionStatusActive, Tier: TierYearly},
		},
		{
			name: "lifetime never expires",
			sub:  Subscription{Status: SubscriptionStatusActive, Tier: TierLifetime},
			want: true,
		},
		{
			name: "cancelled lifetime",
			sub:  Subscription{Status: SubscriptionStatusCancelled, Tier: TierLifetime},
		},
		{
			name: "lapsed",
			sub:  Subscription{Status: SubscriptionStatusLapsed, Tier: TierMonthly, CurrentPeriodEnd: &future},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.IsActiveAt(now); got != tt.want {
				t.Fatalf("IsActiveAt = %v, want %v", got, tt.want)
			}
		})
	}
}
