package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	extErrors "github.com/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager handles the database operations relating to Catalogs
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for catalogs
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if db == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if err := db.AutoMigrate(&Catalog{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize catalog.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// Create will persist a new catalog pending approval
func (m *Manager) Create(ctx context.Context, c *Catalog) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	result := m.db.WithContext(ctx).Create(c)
	if result.Error != nil {
		m.logger.Error("Unable to create new catalog in database",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot create catalog")
	}
	return nil
}

// GetByID will try to return the catalog in the database by id
func (m *Manager) GetByID(ctx context.Context, id string) (*Catalog, error) {
	var c Catalog

	result := m.db.WithContext(ctx).First(&c, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get catalog by id")
	}

	return &c, nil
}

// ListOption filters catalog listings
type ListOption struct {
	SellerID string
	Archived bool
	Limit    int
}

// List returns a seller's catalogs. Archived listings come back most recently
// archived first; visible listings newest first.
func (m *Manager) List(ctx context.Context, opt ListOption) ([]Catalog, error) {
	if len(opt.SellerID) == 0 {
		return nil, fmt.Errorf("ListOption.SellerID is required")
	}
	baseQuery := m.db.WithContext(ctx).
		Where("seller_id = ?", opt.SellerID).
		Where("is_archived = ?", opt.Archived)
	if opt.Archived {
		baseQuery = baseQuery.Order("archived_at desc")
	} else {
		baseQuery = baseQuery.Order("created_at desc")
	}
	if opt.Limit > 0 {
		baseQuery = baseQuery.Limit(opt.Limit)
	}

	results := make([]Catalog, 0, 4)
	result := baseQuery.Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// CountVisible returns how many non-archived catalogs the seller has
func (m *Manager) CountVisible(ctx context.Context, sellerID string) (int, error) {
	var count int64
	result := m.db.WithContext(ctx).Model(&Catalog{}).
		Where("seller_id = ?", sellerID).
		Where("is_archived = ?", false).
		Count(&count)
	if result.Error != nil {
		return 0, extErrors.Wrap(result.Error, "Cannot count catalogs")
	}
	return int(count), nil
}

func (m *Manager) setArchived(ctx context.Context, id string, archived bool) error {
	updates := map[string]interface{}{
		"is_archived": archived,
		"updated_at":  time.Now(),
	}
	if archived {
		now := time.Now()
		updates["archived_at"] = &now
	} else {
		updates["archived_at"] = nil
	}
	result := m.db.WithContext(ctx).Model(&Catalog{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return extErrors.Wrap(result.Error, "Cannot flip catalog archival flag")
	}
	return nil
}
