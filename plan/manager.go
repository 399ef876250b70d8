package plan

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

// ErrDuplicateName is returned when a plan name is already taken
var ErrDuplicateName = errors.New("plan name must be unique")

// Manager handles the database operations relating to Plans
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for plans
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if db == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if err := db.AutoMigrate(&Plan{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize plan.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// Create will persist a new Plan with a unique name
func (m *Manager) Create(ctx context.Context, p *Plan) error {
	existing, err := m.GetByName(ctx, p.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateName
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.IsActive = true
	result := m.db.WithContext(ctx).Create(p)
	if result.Error != nil {
		m.logger.Error("Unable to create new plan in database",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot create plan")
	}
	return nil
}

// Update will persist plan edits. Edits do not rewrite conditions snapshots
// already taken by active subscriptions.
func (m *Manager) Update(ctx context.Context, p *Plan) error {
	var conflict Plan
	result := m.db.WithContext(ctx).
		Where("name = ?", p.Name).
		Where("id <> ?", p.ID).
		First(&conflict)
	if result.Error == nil {
		return ErrDuplicateName
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return extErrors.Wrap(result.Error, "Cannot check plan name uniqueness")
	}
	p.UpdatedAt = time.Now()
	if saveRes := m.db.WithContext(ctx).Save(p); saveRes.Error != nil {
		m.logger.Error("Unable to update plan in database",
			zap.Error(saveRes.Error),
		)
		return extErrors.Wrap(saveRes.Error, "Cannot update plan")
	}
	return nil
}

// Deactivate will soft-delete a plan so it no longer appears in listings.
// Existing subscriptions keep their snapshots.
func (m *Manager) Deactivate(ctx context.Context, id string) error {
	result := m.db.WithContext(ctx).Model(&Plan{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return extErrors.Wrap(result.Error, "Cannot deactivate plan")
	}
	return nil
}

// GetByID will try to return the plan in the database by id
func (m *Manager) GetByID(ctx context.Context, id string) (*Plan, error) {
	var p Plan

	result := m.db.WithContext(ctx).First(&p, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get plan by id")
	}

	return &p, nil
}

// GetByName will try to return the plan in the database by name
func (m *Manager) GetByName(ctx context.Context, name string) (*Plan, error) {
	var p Plan

	result := m.db.WithContext(ctx).First(&p, "name = ?", name)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get plan by name")
	}

	return &p, nil
}

// List returns plans, optionally including deactivated ones
func (m *Manager) List(ctx context.Context, includeInactive bool) ([]Plan, error) {
	results := make([]Plan, 0, 4)
	baseQuery := m.db.WithContext(ctx).Order("price_in_cents asc")
	if !includeInactive {
		baseQuery = baseQuery.Where("is_active = ?", true)
	}
	result := baseQuery.Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, result.Error
	}
	return results, nil
}

// FreePlan returns the active free-tier plan, or nil if none is defined.
// Its conditions seed every seller's basic fallback entitlement.
func (m *Manager) FreePlan(ctx context.Context) (*Plan, error) {
	var p Plan

	result := m.db.WithContext(ctx).
		Where("type = ?", TypeFree).
		Where("is_active = ?", true).
		First(&p)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		return nil, extErrors.Wrap(result.Error, "Cannot get free plan")
	}

	return &p, nil
}
