package seller

import "github.com/quayside/bazaar/plan"

// EffectiveConditions resolves the entitlement actually enforced right now.
// The paid snapshot is honored only while the cached subscription status is
// active and the snapshot has not been archived; in every other case the
// seller falls back to the basic (free-tier) conditions. Pure function, no I/O.
func EffectiveConditions(s *Seller) plan.Conditions {
	if s.SubscriptionStatus == SubscriptionActive && s.Current.Exists() && !s.Current.IsArchived {
		return s.Current.Conditions
	}
	return s.Basic
}
