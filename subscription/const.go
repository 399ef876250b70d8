package subscription

import "errors"

// State is the custom type to define the current state of a subscription
type State string

// Lifecycle: None -> Active (first purchase or free assignment),
// Active -> Expired (time-based), Expired -> Active (renewal),
// Active -> None (explicit cancellation). Pending/Rejected exist only for the
// manual request path where an admin approves or rejects without payment.
const (
	StateActive   State = "Active"
	StateExpired  State = "Expired"
	StateNone     State = "None"
	StatePending  State = "Pending"
	StateRejected State = "Rejected"
)

// adminInbox is the shared notification target for admin-facing events; the
// notification store keys on user id and admins read one common feed
const adminInbox = "admin"

// Errors surfaced to the service layer for translation into client responses
var (
	ErrSellerNotFound    = errors.New("seller not found")
	ErrPlanNotFound      = errors.New("plan not found")
	ErrNoSubscription    = errors.New("seller has no subscription")
	ErrAlreadySubscribed = errors.New("seller already has an active or pending subscription")
	ErrNotActive         = errors.New("subscription is not active")
	ErrNotPending        = errors.New("subscription is not pending approval")
	ErrPaymentIncomplete = errors.New("gateway has not confirmed the payment")
)
