package subscription

import (
	"testing"
	"time"

	"github.com/quayside/bazaar/plan"
	"github.com/quayside/bazaar/spec"
)

func TestComputeSchedule(t *testing.T) {
	now := time.Date(2021, time.July, 1, 12, 0, 0, 0, time.UTC)

	t.Run("minutes", func(t *testing.T) {
		start, end, grace := computeSchedule(now, plan.Duration{Value: 30, Unit: plan.UnitMinutes})
		if !start.Equal(now) {
			t.Errorf("start: got %v, want %v", start, now)
		}
		wantEnd := now.Add(30 * time.Minute)
		if !end.Equal(wantEnd) {
			t.Errorf("end: got %v, want %v", end, wantEnd)
		}
		if !grace.Equal(wantEnd.Add(spec.GracePeriod)) {
			t.Errorf("grace: got %v, want %v", grace, wantEnd.Add(spec.GracePeriod))
		}
	})

	t.Run("months", func(t *testing.T) {
		_, end, _ := computeSchedule(now, plan.Duration{Value: 1, Unit: plan.UnitMonths})
		wantEnd := time.Date(2021, time.August, 1, 12, 0, 0, 0, time.UTC)
		if !end.Equal(wantEnd) {
			t.Errorf("end: got %v, want %v", end, wantEnd)
		}
	})
}

func TestDuplicateConfirmation(t *testing.T) {
	sub := &Subscription{
		PaymentDetails: PaymentDetails{GatewaySessionID: "pi_123"},
	}

	cases := []struct {
		name      string
		sub       *Subscription
		sessionID string
		want      bool
	}{
		{"same session replayed", sub, "pi_123", true},
		{"different session", sub, "pi_456", false},
		{"no subscription yet", nil, "pi_123", false},
		{"empty session never matches", &Subscription{}, "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := duplicateConfirmation(c.sub, c.sessionID); got != c.want {
				t.Errorf("got %t, want %t", got, c.want)
			}
		})
	}
}

func TestApplyExpiry(t *testing.T) {
	cases := []struct {
		name       string
		status     State
		want       bool
		wantStatus State
	}{
		{"active transitions to expired", StateActive, true, StateExpired},
		{"already expired is left alone", StateExpired, false, StateExpired},
		{"pending is left alone", StatePending, false, StatePending},
		{"cancelled is left alone", StateNone, false, StateNone},
		{"rejected is left alone", StateRejected, false, StateRejected},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sub := &Subscription{Status: c.status}
			if got := applyExpiry(sub); got != c.want {
				t.Errorf("got %t, want %t", got, c.want)
			}
			if sub.Status != c.wantStatus {
				t.Errorf("status: got %s, want %s", sub.Status, c.wantStatus)
			}
		})
	}
}

func TestRenewalLogEntry(t *testing.T) {
	now := time.Date(2021, time.July, 1, 12, 0, 0, 0, time.UTC)
	details := PaymentDetails{
		AmountInCents:    2000,
		Currency:         "usd",
		GatewaySessionID: "pi_123",
		PaymentStatus:    "succeeded",
	}

	t.Run("first purchase logs nothing", func(t *testing.T) {
		if entry := renewalLogEntry(false, "sub-1", details, now); entry != nil {
			t.Errorf("got %+v, want nil", entry)
		}
	})

	t.Run("renewal logs exactly the paid amount and session", func(t *testing.T) {
		entry := renewalLogEntry(true, "sub-1", details, now)
		if entry == nil {
			t.Fatal("renewal should produce a log entry")
		}
		if entry.ID == "" {
			t.Error("entry should carry its own id")
		}
		if entry.SubscriptionID != "sub-1" {
			t.Errorf("subscription id: got %s, want sub-1", entry.SubscriptionID)
		}
		if entry.AmountInCents != 2000 {
			t.Errorf("amount: got %d, want 2000", entry.AmountInCents)
		}
		if entry.TransactionID != "pi_123" {
			t.Errorf("transaction id: got %s, want pi_123", entry.TransactionID)
		}
		if entry.PaymentDetails != details {
			t.Errorf("payment details: got %+v, want %+v", entry.PaymentDetails, details)
		}
		if !entry.RenewalDate.Equal(now) {
			t.Errorf("renewal date: got %v, want %v", entry.RenewalDate, now)
		}
	})
}

func TestBlocksNewRequest(t *testing.T) {
	cases := []struct {
		name string
		sub  *Subscription
		want bool
	}{
		{"no subscription", nil, false},
		{"active blocks", &Subscription{Status: StateActive}, true},
		{"pending blocks", &Subscription{Status: StatePending}, true},
		{"expired allows", &Subscription{Status: StateExpired}, false},
		{"rejected allows", &Subscription{Status: StateRejected}, false},
		{"cancelled allows", &Subscription{Status: StateNone}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := blocksNewRequest(c.sub); got != c.want {
				t.Errorf("got %t, want %t", got, c.want)
			}
		})
	}
}
