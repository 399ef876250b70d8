package seller

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quayside/bazaar/plan"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// SubscriptionStatus is the seller-side cached mirror of the subscription's
// status, kept for fast entitlement reads. The expiration sweep is the
// reconciliation mechanism if the two drift.
type SubscriptionStatus string

// Defining constants
const (
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
	SubscriptionNone    SubscriptionStatus = "none"
)

// Snapshot is the paid plan's conditions copied onto the seller at activation
// time. The seller holds its own copy, not a live reference: deactivating or
// editing the plan later does not change what this seller was granted. On
// expiry the snapshot is flagged IsArchived instead of being wiped, which is
// what signals "fall back to basic".
type Snapshot struct {
	Name       string          `json:"name"`
	Conditions plan.Conditions `json:"conditions"`
	IsArchived bool            `json:"isArchived"`
}

// Exists reports whether a snapshot has ever been taken
func (s *Snapshot) Exists() bool {
	return s != nil && s.Name != ""
}

// Archive returns a copy flagged as archived, which is what makes
// EffectiveConditions fall back to basic. Archiving the zero snapshot is a
// no-op so a seller who never activated a plan stays with a NULL column.
func (s Snapshot) Archive() Snapshot {
	if !s.Exists() {
		return s
	}
	s.IsArchived = true
	return s
}

func (s *Snapshot) Scan(value interface{}) error {
	// a seller who never activated a plan has a NULL snapshot column
	if value == nil {
		*s = Snapshot{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("Failed to unmarshal jsonb value: %s", value)
	}
	return json.Unmarshal(bytes, &s)
}

func (s *Snapshot) Value() (driver.Value, error) {
	if !s.Exists() {
		return nil, nil
	}
	return json.Marshal(s)
}

func (*Snapshot) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql", "sqlite":
		return "JSON"
	case "postgres":
		return "JSONB"
	}
	return ""
}

// Seller describes the entitlement-relevant slice of a marketplace seller
type Seller struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Email       string `json:"email" gorm:"uniqueIndex"`
	CompanyName string `json:"companyName"`

	StripeCustomerID string `json:"-"` // created lazily on first checkout

	SubscriptionID     string             `json:"subscriptionId"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	CurrentPlanID      string             `json:"currentPackage"`

	Current Snapshot        `json:"current"`
	Basic   plan.Conditions `json:"basic" gorm:"embedded;embeddedPrefix:basic_"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
