package notification

import "time"

// Notification is a persisted copy of a broker event, kept for user-facing
// listings. Delivery is best-effort end to end.
type Notification struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"userId" gorm:"index"`
	Role      string    `json:"role"`
	Kind      string    `json:"kind"`
	Module    string    `json:"module"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
