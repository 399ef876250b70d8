package subscription

import "time"

// PaymentDetails records the gateway's view of a charge
type PaymentDetails struct {
	AmountInCents    int64  `json:"amountInCents"`
	Currency         string `json:"currency"`
	GatewaySessionID string `json:"gatewaySessionId"` // idempotency key for confirmations
	PaymentStatus    string `json:"paymentStatus"`
}

// Subscription is a seller's current plan. There is at most one row per
// seller; renewals mutate it in place and append to the renewal log. Rows are
// never deleted.
type Subscription struct {
	ID            string `json:"id" gorm:"primaryKey"`
	SellerID      string `json:"userId" gorm:"uniqueIndex"`
	PlanID        string `json:"packageId" gorm:"index"`
	TransactionID string `json:"transactionId"`

	// RequestedPlanID is only set while a manual request is pending; PlanID
	// stays on the last plan that was actually granted
	RequestedPlanID string `json:"requestedPackageId"`

	Status State `json:"status" gorm:"index:idx_subscriptions_status_end"`

	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate" gorm:"index:idx_subscriptions_status_end"`
	GracePeriodEnd time.Time `json:"gracePeriodEnd"` // stored but inert, see spec.GracePeriod

	PaymentDetails PaymentDetails `json:"paymentDetails" gorm:"embedded;embeddedPrefix:payment_"`
	Renewals       []Renewal      `json:"renewals"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Renewal is one entry in the embedded log of past payment events
type Renewal struct {
	ID             string         `json:"id" gorm:"primaryKey"`
	SubscriptionID string         `json:"subscriptionId" gorm:"index"`
	AmountInCents  int64          `json:"amountInCents"`
	TransactionID  string         `json:"transactionId"`
	PaymentDetails PaymentDetails `json:"paymentDetails" gorm:"embedded;embeddedPrefix:payment_"`
	RenewalDate    time.Time      `json:"renewalDate"`
}
