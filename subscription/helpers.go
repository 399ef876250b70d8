package subscription

import (
	"time"

	"github.com/quayside/bazaar/plan"
	"github.com/quayside/bazaar/spec"

	"github.com/google/uuid"
)

// computeSchedule derives the billing window for an activation or renewal.
// GracePeriodEnd is stored for a future dunning flow; expiration keys off
// EndDate only.
func computeSchedule(now time.Time, d plan.Duration) (startDate, endDate, gracePeriodEnd time.Time) {
	startDate = now
	endDate = d.AddTo(now)
	gracePeriodEnd = endDate.Add(spec.GracePeriod)
	return
}

// duplicateConfirmation reports whether the incoming gateway session has
// already been applied to the subscription. Gateway webhooks retry; without
// this guard a replayed confirmation would re-extend dates and append a
// second renewal entry.
func duplicateConfirmation(sub *Subscription, sessionID string) bool {
	return sub != nil && len(sessionID) > 0 && sub.PaymentDetails.GatewaySessionID == sessionID
}

// blocksNewRequest reports whether an existing subscription prevents the
// seller from opening another manual request
func blocksNewRequest(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	return sub.Status == StateActive || sub.Status == StatePending
}

// applyExpiry flips an active subscription to expired in place. Callers hold
// the row lock; false means another actor already moved the subscription out
// of Active and no expiry side effects should run.
func applyExpiry(sub *Subscription) bool {
	if sub.Status != StateActive {
		return false
	}
	sub.Status = StateExpired
	return true
}

// renewalLogEntry builds the log entry for a repeat payment. A first purchase
// returns nil: the renewal log records repeat payments only, the initial
// charge already lives on the subscription's own payment details.
func renewalLogEntry(renewal bool, subscriptionID string, details PaymentDetails, now time.Time) *Renewal {
	if !renewal {
		return nil
	}
	return &Renewal{
		ID:             uuid.New().String(),
		SubscriptionID: subscriptionID,
		AmountInCents:  details.AmountInCents,
		TransactionID:  details.GatewaySessionID,
		PaymentDetails: details,
		RenewalDate:    now,
	}
}
