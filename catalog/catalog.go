package catalog

import "time"

// Define the valid approval status of a catalog
const (
	StatusPending  string = "Pending"
	StatusApproved        = "Approved"
	StatusRejected        = "Rejected"
)

// Catalog describes a seller-owned grouping of products. Archival hides a
// catalog (and, via the product listing filters, its products) from
// buyer-facing queries without deleting anything, so plan downgrades are
// reversible.
type Catalog struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	SellerID   string     `json:"sellerId" gorm:"index"`
	StoreID    string     `json:"storeId"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	IsArchived bool       `json:"isArchived"`
	ArchivedAt *time.Time `json:"archivedAt"` // ordering key for restoration
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}
