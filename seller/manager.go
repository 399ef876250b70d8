package seller

import (
	"context"
	"errors"
	"fmt"

	"github.com/quayside/bazaar/plan"

	extErrors "github.com/pkg/errors"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ManagerOptions contains the configuration for seller.Manager
type ManagerOptions struct {
	StripeClient *client.API
	DB           *gorm.DB
	Logger       *zap.Logger
}

// Manager handles the database operations relating to Sellers
type Manager struct {
	ManagerOptions
}

// NewManager returns a new Manager for sellers
func NewManager(option ManagerOptions) (*Manager, error) {
	if option.StripeClient == nil {
		return nil, fmt.Errorf("nil StripeClient is invalid")
	}
	if option.DB == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if err := option.DB.AutoMigrate(&Seller{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize seller.Manager")
	}
	return &Manager{
		ManagerOptions: option,
	}, nil
}

// NewSeller will create a new seller profile with the basic fallback
// entitlement seeded from the active free plan
func (m *Manager) NewSeller(ctx context.Context, email, companyName string, basic plan.Conditions) (*Seller, error) {
	newSeller := &Seller{
		ID:                 uuid.New().String(),
		Email:              email,
		CompanyName:        companyName,
		SubscriptionStatus: SubscriptionNone,
		Basic:              basic,
	}

	result := m.DB.WithContext(ctx).Create(newSeller)
	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot create a new Seller")
	}

	return newSeller, nil
}

// GetByID will try to return the seller in the database by id
func (m *Manager) GetByID(ctx context.Context, id string) (*Seller, error) {
	var s Seller

	result := m.DB.WithContext(ctx).First(&s, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get seller by id")
	}

	return &s, nil
}

// GetByEmail will try to return the seller in the database by email address
func (m *Manager) GetByEmail(ctx context.Context, email string) (*Seller, error) {
	var s Seller

	result := m.DB.WithContext(ctx).First(&s, "email = ?", email)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get seller by email")
	}

	return &s, nil
}

// EnsureStripeCustomer will lazily create the seller's gateway customer record
// and cache its id on the seller row
func (m *Manager) EnsureStripeCustomer(ctx context.Context, s *Seller) (string, error) {
	if len(s.StripeCustomerID) > 0 {
		return s.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Email: stripe.String(s.Email),
		Name:  stripe.String(s.CompanyName),
	}
	c, err := m.StripeClient.Customers.New(params)
	if err != nil {
		m.Logger.Error("Stripe returned error",
			zap.Error(err),
		)
		return "", extErrors.Wrap(err, "Cannot create gateway customer")
	}

	result := m.DB.WithContext(ctx).Model(&Seller{}).
		Where("id = ?", s.ID).
		Update("stripe_customer_id", c.ID)
	if result.Error != nil {
		return "", extErrors.Wrap(result.Error, "Cannot cache gateway customer id")
	}
	s.StripeCustomerID = c.ID

	return c.ID, nil
}

// ActivatePlan rewrites the seller's cached entitlement after a successful
// activation or renewal: fresh snapshot, active mirror, current plan reference
func (m *Manager) ActivatePlan(ctx context.Context, sellerID, subscriptionID string, p *plan.Plan) error {
	snapshot := Snapshot{
		Name:       p.Name,
		Conditions: p.Conditions,
		IsArchived: false,
	}
	result := m.DB.WithContext(ctx).Model(&Seller{}).
		Where("id = ?", sellerID).
		Updates(map[string]interface{}{
			"subscription_id":     subscriptionID,
			"subscription_status": SubscriptionActive,
			"current_plan_id":     p.ID,
			"current":             &snapshot,
		})
	if result.Error != nil {
		m.Logger.Error("Unable to activate plan on seller",
			zap.Error(result.Error),
			zap.String("SellerID", sellerID),
		)
		return extErrors.Wrap(result.Error, "Cannot update seller entitlement")
	}
	return nil
}

// MarkExpired flips the mirror to expired, clears the current plan reference,
// and archives the snapshot in place (the flag, not a wipe, signals fallback)
func (m *Manager) MarkExpired(ctx context.Context, sellerID string) error {
	s, err := m.GetByID(ctx, sellerID)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("no seller with id %s", sellerID)
	}
	snapshot := s.Current.Archive()
	result := m.DB.WithContext(ctx).Model(&Seller{}).
		Where("id = ?", sellerID).
		Updates(map[string]interface{}{
			"subscription_status": SubscriptionExpired,
			"current_plan_id":     "",
			"current":             &snapshot,
		})
	if result.Error != nil {
		m.Logger.Error("Unable to mark seller as expired",
			zap.Error(result.Error),
			zap.String("SellerID", sellerID),
		)
		return extErrors.Wrap(result.Error, "Cannot update seller entitlement")
	}
	return nil
}

// MarkCancelled flips the mirror to none and clears the current plan
// reference. The snapshot is deliberately left in place; the status check in
// EffectiveConditions is what stops it from being honored.
func (m *Manager) MarkCancelled(ctx context.Context, sellerID string) error {
	result := m.DB.WithContext(ctx).Model(&Seller{}).
		Where("id = ?", sellerID).
		Updates(map[string]interface{}{
			"subscription_status": SubscriptionNone,
			"current_plan_id":     "",
		})
	if result.Error != nil {
		m.Logger.Error("Unable to mark seller as cancelled",
			zap.Error(result.Error),
			zap.String("SellerID", sellerID),
		)
		return extErrors.Wrap(result.Error, "Cannot update seller entitlement")
	}
	return nil
}

// RefreshBasicConditions copies the free plan's conditions onto every seller's
// basic fallback columns. Run at boot after seeding or editing the free plan.
func (m *Manager) RefreshBasicConditions(ctx context.Context, basic plan.Conditions) error {
	result := m.DB.WithContext(ctx).Model(&Seller{}).
		Where("1 = 1").
		Updates(map[string]interface{}{
			"basic_max_catalogs":             basic.MaxCatalogs,
			"basic_max_products_per_catalog": basic.MaxProductsPerCatalog,
		})
	if result.Error != nil {
		return extErrors.Wrap(result.Error, "Cannot refresh basic conditions")
	}
	return nil
}
