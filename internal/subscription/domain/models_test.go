package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
)

func TestNewSubscriptionValidation(t *testing.T) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		subName string
		price   int64
		curr    string
		cycle   BillingCycle
		next    time.Time
		wantErr error
	}{
		{name: "valid", subName: "Netflix", price: 1500, curr: "USD", cycle: BillingCycleMonthly, next: now},
		{name: "empty name", subName: "   ", price: 1500, curr: "USD", cycle: BillingCycleMonthly, next: now, wantErr: ErrInvalidName},
		{name: "negative price", subName: "Netflix", price: -1, curr: "USD", cycle: BillingCycleMonthly, next: now, wantErr: ErrInvalidPrice},
		{name: "zero price allowed", subName: "Trial", price: 0, curr: "USD", cycle: BillingCycleMonthly, next: now},
		{name: "empty currency", subName: "Netflix", price: 1500, curr: " ", cycle: BillingCycleMonthly, next: now, wantErr: ErrInvalidCurrency},
		{name: "unknown cycle", subName: "Netflix", price: 1500, curr: "USD", cycle: BillingCycle("weekly"), next: now, wantErr: ErrInvalidBillingCycle},
		{name: "past billing date", subName: "Netflix", price: 1500, curr: "USD", cycle: BillingCycleMonthly, next: now.AddDate(0, 0, -1), wantErr: ErrPastBillingDate},
		{name: "same-day billing date", subName: "Netflix", price: 1500, curr: "USD", cycle: BillingCycleMonthly, next: now.Add(-2 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := NewSubscription(node.Generate(), node.Generate(), tt.subName, tt.price, tt.curr, tt.cycle, tt.next, "", now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sub.Status != SubscriptionStatusActive {
				t.Fatalf("expected new subscription active, got %s", sub.Status)
			}
		})
	}
}

func TestNewSubscriptionNormalizesFields(t *testing.T) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	sub, err := NewSubscription(node.Generate(), node.Generate(), "  Spotify  ", 999, " usd ", BillingCycleMonthly, now.Add(3*time.Hour), "  music  ", now)
	if err != nil {
		t.Fatalf("new subscription: %v", err)
	}
	if sub.Name != "Spotify" {
		t.Fatalf("expected trimmed name, got %q", sub.Name)
	}
	if sub.Currency != "USD" {
		t.Fatalf("expected uppercased currency, got %q", sub.Currency)
	}
	if sub.Category != "music" {
		t.Fatalf("expected trimmed category, got %q", sub.Category)
	}
	want := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	if !sub.NextBillingDate.Equal(want) {
		t.Fatalf("expected billing date at UTC midnight, got %s", sub.NextBillingDate)
	}
}

func TestStatusTransitions(t *testing.T) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	sub, err := NewSubscription(node.Generate(), node.Generate(), "Netflix", 1500, "USD", BillingCycleMonthly, now, "", now)
	if err != nil {
		t.Fatalf("new subscription: %v", err)
	}

	if err := sub.Pause(now); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if sub.Status != SubscriptionStatusPaused {
		t.Fatalf("expected paused, got %s", sub.Status)
	}
	if sub.UpdatedAt == nil {
		t.Fatal("expected updated_at set after pause")
	}

	if err := sub.Resume(now); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if sub.Status != SubscriptionStatusActive {
		t.Fatalf("expected active, got %s", sub.Status)
	}

	sub.Cancel(now)
	if sub.Status != SubscriptionStatusCancelled {
		t.Fatalf("expected cancelled, got %s", sub.Status)
	}

	// Cancellation is terminal.
	if err := sub.Pause(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on pause after cancel, got %v", err)
	}
	if err := sub.Resume(now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on resume after cancel, got %v", err)
	}
}

func TestChangeNextBillingDateRejectsPast(t *testing.T) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	sub, err := NewSubscription(node.Generate(), node.Generate(), "Netflix", 1500, "USD", BillingCycleMonthly, now, "", now)
	if err != nil {
		t.Fatalf("new subscription: %v", err)
	}

	if err := sub.ChangeNextBillingDate(now.AddDate(0, 0, -1), now); !errors.Is(err, ErrPastBillingDate) {
		t.Fatalf("expected ErrPastBillingDate, got %v", err)
	}

	// The billing pipeline's advancement path has no past-date guard.
	past := time.Date(2026, 7, 28, 0, 0, 0, 0, time.UTC)
	sub.AdvanceBillingDate(past, now)
	if !sub.NextBillingDate.Equal(past) {
		t.Fatalf("expected advancement to accept %s, got %s", past, sub.NextBillingDate)
	}
}
