package seller

import (
	"testing"

	"github.com/quayside/bazaar/plan"
)

func TestSnapshotScan(t *testing.T) {
	t.Run("null column yields the zero snapshot", func(t *testing.T) {
		var s Snapshot
		if err := s.Scan(nil); err != nil {
			t.Fatalf("scan of null column returned error: %v", err)
		}
		if s.Exists() {
			t.Errorf("got %+v, want zero snapshot", s)
		}
	})

	t.Run("jsonb bytes round-trip", func(t *testing.T) {
		orig := Snapshot{
			Name:       "Premium",
			Conditions: plan.Conditions{MaxCatalogs: 5, MaxProductsPerCatalog: 100},
		}
		value, err := orig.Value()
		if err != nil {
			t.Fatalf("value returned error: %v", err)
		}
		var got Snapshot
		if err := got.Scan(value); err != nil {
			t.Fatalf("scan returned error: %v", err)
		}
		if got != orig {
			t.Errorf("got %+v, want %+v", got, orig)
		}
	})

	t.Run("empty snapshot stores null", func(t *testing.T) {
		var empty Snapshot
		value, err := empty.Value()
		if err != nil {
			t.Fatalf("value returned error: %v", err)
		}
		if value != nil {
			t.Errorf("got %v, want nil driver value", value)
		}
	})
}

func TestSnapshotArchive(t *testing.T) {
	premium := plan.Conditions{MaxCatalogs: 5, MaxProductsPerCatalog: 100}

	t.Run("archiving flags the snapshot and drops the entitlement", func(t *testing.T) {
		s := &Seller{
			SubscriptionStatus: SubscriptionExpired,
			Current:            Snapshot{Name: "Premium", Conditions: premium}.Archive(),
			Basic:              plan.Conditions{MaxCatalogs: 1, MaxProductsPerCatalog: 10},
		}
		if !s.Current.IsArchived {
			t.Error("snapshot should be archived")
		}
		if got := EffectiveConditions(s); got != s.Basic {
			t.Errorf("got %+v, want basic fallback %+v", got, s.Basic)
		}
	})

	t.Run("archived snapshot keeps its conditions for audit", func(t *testing.T) {
		got := Snapshot{Name: "Premium", Conditions: premium}.Archive()
		if got.Conditions != premium {
			t.Errorf("got %+v, want %+v", got.Conditions, premium)
		}
		if got.Name != "Premium" {
			t.Errorf("got %q, want Premium", got.Name)
		}
	})

	t.Run("archiving the zero snapshot is a no-op", func(t *testing.T) {
		got := Snapshot{}.Archive()
		if got.IsArchived {
			t.Error("zero snapshot should stay unflagged")
		}
		if got.Exists() {
			t.Errorf("got %+v, want zero snapshot", got)
		}
	})
}
