package seller

import (
	"testing"

	"github.com/quayside/bazaar/plan"
)

func TestEffectiveConditions(t *testing.T) {
	basic := plan.Conditions{MaxCatalogs: 1, MaxProductsPerCatalog: 10}
	premium := plan.Conditions{MaxCatalogs: 5, MaxProductsPerCatalog: 100}

	cases := []struct {
		name   string
		seller *Seller
		want   plan.Conditions
	}{
		{
			name: "active subscription with snapshot",
			seller: &Seller{
				SubscriptionStatus: SubscriptionActive,
				Current:            Snapshot{Name: "Premium", Conditions: premium},
				Basic:              basic,
			},
			want: premium,
		},
		{
			name: "active but no snapshot falls back to basic",
			seller: &Seller{
				SubscriptionStatus: SubscriptionActive,
				Basic:              basic,
			},
			want: basic,
		},
		{
			name: "archived snapshot falls back to basic",
			seller: &Seller{
				SubscriptionStatus: SubscriptionActive,
				Current:            Snapshot{Name: "Premium", Conditions: premium, IsArchived: true},
				Basic:              basic,
			},
			want: basic,
		},
		{
			name: "expired status ignores snapshot",
			seller: &Seller{
				SubscriptionStatus: SubscriptionExpired,
				Current:            Snapshot{Name: "Premium", Conditions: premium},
				Basic:              basic,
			},
			want: basic,
		},
		{
			name: "no subscription at all",
			seller: &Seller{
				SubscriptionStatus: SubscriptionNone,
				Basic:              basic,
			},
			want: basic,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := EffectiveConditions(c.seller); got != c.want {
				t.Errorf("got %+v, want %+v", got, c.want)
			}
		})
	}
}

func TestSnapshotExists(t *testing.T) {
	var empty Snapshot
	if empty.Exists() {
		t.Error("zero snapshot should not exist")
	}
	named := Snapshot{Name: "Premium"}
	if !named.Exists() {
		t.Error("named snapshot should exist")
	}
}
