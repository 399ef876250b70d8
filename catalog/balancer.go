package catalog

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// The archival balancer reconciles a seller's visible catalog count against
// the effective maxCatalogs. Both directions are idempotent with respect to
// the count invariant: running them again with no count change is a no-op.

// pickForArchive selects which visible catalogs to archive so that at most
// max remain, oldest created first (id as tie-break). max of 0 means
// unlimited, so nothing is selected.
func pickForArchive(visible []Catalog, max int) []string {
	if max == 0 || len(visible) <= max {
		return nil
	}
	sorted := make([]Catalog, len(visible))
	copy(sorted, visible)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	ids := make([]string, 0, len(sorted)-max)
	for _, c := range sorted[:len(sorted)-max] {
		ids = append(ids, c.ID)
	}
	return ids
}

// pickForRestore selects which archived catalogs to bring back, most recently
// archived first (id as tie-break), until the visible count reaches max. max
// of 0 means unlimited and restores everything.
func pickForRestore(archived []Catalog, visible int, max int) []string {
	quota := len(archived)
	if max != 0 {
		quota = max - visible
		if quota <= 0 {
			return nil
		}
		if quota > len(archived) {
			quota = len(archived)
		}
	}
	sorted := make([]Catalog, len(archived))
	copy(sorted, archived)
	sort.Slice(sorted, func(i, j int) bool {
		ti, tj := sorted[i].ArchivedAt, sorted[j].ArchivedAt
		if ti == nil || tj == nil || ti.Equal(*tj) {
			return sorted[i].ID < sorted[j].ID
		}
		return ti.After(*tj)
	})
	ids := make([]string, 0, quota)
	for _, c := range sorted[:quota] {
		ids = append(ids, c.ID)
	}
	return ids
}

// ReconcileDowngrade archives the seller's excess visible catalogs after a
// downgrade or expiry. Never deletes anything.
func (m *Manager) ReconcileDowngrade(ctx context.Context, sellerID string, maxCatalogs int) error {
	if maxCatalogs == 0 {
		return nil
	}
	visible, err := m.List(ctx, ListOption{SellerID: sellerID})
	if err != nil {
		return err
	}
	for _, id := range pickForArchive(visible, maxCatalogs) {
		if err := m.setArchived(ctx, id, true); err != nil {
			return err
		}
		m.logger.Info("Archived catalog over entitlement limit",
			zap.String("CatalogID", id),
			zap.String("SellerID", sellerID),
		)
	}
	return nil
}

// ReconcileUpgrade restores previously archived catalogs after an upgrade or
// renewal, up to the new limit
func (m *Manager) ReconcileUpgrade(ctx context.Context, sellerID string, maxCatalogs int) error {
	archived, err := m.List(ctx, ListOption{SellerID: sellerID, Archived: true})
	if err != nil {
		return err
	}
	if len(archived) == 0 {
		return nil
	}
	visibleCount, err := m.CountVisible(ctx, sellerID)
	if err != nil {
		return err
	}
	for _, id := range pickForRestore(archived, visibleCount, maxCatalogs) {
		if err := m.setArchived(ctx, id, false); err != nil {
			return err
		}
		m.logger.Info("Restored archived catalog",
			zap.String("CatalogID", id),
			zap.String("SellerID", sellerID),
		)
	}
	return nil
}
