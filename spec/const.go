package spec

import "time"

// Define constants shared between the API and the task runner
const (
	// GracePeriod is added to a subscription's EndDate to compute GracePeriodEnd.
	// The field is stored for a future dunning flow; expiration is keyed off EndDate.
	GracePeriod time.Duration = time.Hour * 72

	// SweepInterval is how often the expiration sweep runs. The sweep also looks
	// one interval ahead and arms one-shot timers for subscriptions expiring
	// within that window.
	SweepInterval time.Duration = time.Minute

	// SweepBatchSize bounds how many expired subscriptions a single sweep tick
	// will process per page, so a backlog cannot pin the task runner.
	SweepBatchSize int = 100
)

type TaskType string

const (
	SubscriptionTask TaskType = "subscription"
	NotificationTask TaskType = "notification"
)
