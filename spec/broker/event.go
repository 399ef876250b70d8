package broker

import "time"

// Event is a fire-and-forget notification emitted on subscription and catalog
// state transitions. Events are published to the broker and persisted by the
// task runner for user-facing listings; losing one is acceptable.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`   // seller/buyer/admin
	Kind      string    `json:"kind"`   // info/success/error
	Module    string    `json:"module"` // e.g. "subscription", "catalog"
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	EmittedAt time.Time `json:"emittedAt"`
}

// Event kinds
const (
	KindInfo    string = "info"
	KindSuccess        = "success"
	KindError          = "error"
)
