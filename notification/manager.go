package notification

import (
	"context"
	"fmt"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager handles the database operations relating to Notifications
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for notifications
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if db == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if err := db.AutoMigrate(&Notification{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize notification.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// Create will persist a notification row
func (m *Manager) Create(ctx context.Context, n *Notification) error {
	result := m.db.WithContext(ctx).Create(n)
	if result.Error != nil {
		m.logger.Error("Unable to create notification in database",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot create notification")
	}
	return nil
}

// ListByUser returns a user's notifications, newest first
func (m *Manager) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if len(userID) == 0 {
		return nil, fmt.Errorf("userID is required")
	}
	baseQuery := m.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc")
	if limit > 0 {
		baseQuery = baseQuery.Limit(limit)
	}

	results := make([]Notification, 0, 10)
	result := baseQuery.Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// MarkRead flags a user's notification as read
func (m *Manager) MarkRead(ctx context.Context, userID, id string) error {
	result := m.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Update("read", true)
	if result.Error != nil {
		return extErrors.Wrap(result.Error, "Cannot mark notification as read")
	}
	return nil
}
