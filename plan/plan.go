package plan

import (
	"time"

	"github.com/quayside/bazaar/spec"
)

// Type separates the always-free fallback plan from purchasable ones
type Type string

// Defining constants
const (
	TypeFree Type = "free"
	TypePaid Type = "paid"
)

// DurationUnit is the calendar unit of a plan's billing period. Minutes exists
// so that expiration can be exercised end-to-end without waiting a month.
type DurationUnit string

const (
	UnitMinutes DurationUnit = "minutes"
	UnitMonths  DurationUnit = "months"
	UnitYears   DurationUnit = "years"
)

// Duration is how long a single purchase of the plan lasts
type Duration struct {
	Value int          `json:"value"`
	Unit  DurationUnit `json:"unit"`
}

// AddTo returns t advanced by the duration. Months and years use calendar
// arithmetic, not fixed-length approximations.
func (d Duration) AddTo(t time.Time) time.Time {
	switch d.Unit {
	case UnitMinutes:
		return t.Add(time.Duration(d.Value) * time.Minute)
	case UnitMonths:
		return t.AddDate(0, d.Value, 0)
	case UnitYears:
		return t.AddDate(d.Value, 0, 0)
	default:
		return t
	}
}

// Conditions are the entitlement limits granted by a plan. Zero means unlimited.
type Conditions struct {
	MaxCatalogs           int `json:"maxCatalogs"`
	MaxProductsPerCatalog int `json:"maxProductsPerCatalog"`
}

// Plan describes a purchasable subscription tier.
// Conditions are snapshotted onto the Seller at activation time, so editing a
// Plan never retroactively changes an already-active subscription.
type Plan struct {
	ID              string          `json:"id" gorm:"primaryKey"`
	Name            string          `json:"name" gorm:"uniqueIndex"`
	Description     string          `json:"description"`
	PriceInCents    int64           `json:"priceInCents"` // minor currency units
	Currency        string          `json:"currency"`     // ISO currency code (e.g. usd)
	DiscountPercent int64           `json:"discountPercent"`
	Features        spec.StringList `json:"features"`
	Conditions      Conditions      `json:"conditions" gorm:"embedded;embeddedPrefix:conditions_"`
	Duration        Duration        `json:"duration" gorm:"embedded;embeddedPrefix:duration_"`
	Type            Type            `json:"type"`
	IsActive        bool            `json:"isActive"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// ChargeAmount is the discounted price in minor currency units
func (p *Plan) ChargeAmount() int64 {
	return p.PriceInCents * (100 - p.DiscountPercent) / 100
}
