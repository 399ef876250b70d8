package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quayside/bazaar/auth"
	"github.com/quayside/bazaar/catalog"
	"github.com/quayside/bazaar/notification"
	"github.com/quayside/bazaar/plan"
	"github.com/quayside/bazaar/seller"
	"github.com/quayside/bazaar/spec/broker"

	extErrors "github.com/pkg/errors"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ManagerOptions contains the configuration for subscription.Manager
type ManagerOptions struct {
	StripeClient   *client.API
	DB             *gorm.DB
	Logger         *zap.Logger
	PlanManager    *plan.Manager
	SellerManager  *seller.Manager
	CatalogManager *catalog.Manager
	Notifier       *notification.Sink
}

// Manager orchestrates the subscription lifecycle: purchase, renewal, manual
// requests, cancellation, and expiration
type Manager struct {
	ManagerOptions
}

// NewManager returns a new Manager for subscriptions
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
	if option.PlanManager == nil {
		return nil, fmt.Errorf("nil PlanManager is invalid")
	}
	if option.SellerManager == nil {
		return nil, fmt.Errorf("nil SellerManager is invalid")
	}
	if option.CatalogManager == nil {
		return nil, fmt.Errorf("nil CatalogManager is invalid")
	}
	if option.Notifier == nil {
		return nil, fmt.Errorf("nil Notifier is invalid")
	}
	if err := option.DB.AutoMigrate(&Subscription{}, &Renewal{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize subscription.Manager")
	}
	return &Manager{
		ManagerOptions: option,
	}, nil
}

// GetBySeller will try to return the seller's subscription with its renewal log
func (m *Manager) GetBySeller(ctx context.Context, sellerID string) (*Subscription, error) {
	var sub Subscription

	result := m.DB.WithContext(ctx).
		Preload("Renewals").
		First(&sub, "seller_id = ?", sellerID)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get subscription by seller")
	}

	return &sub, nil
}

// GetByID will try to return the subscription in the database by id
func (m *Manager) GetByID(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription

	result := m.DB.WithContext(ctx).First(&sub, "id = ?", id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get subscription by id")
	}

	return &sub, nil
}

// ListPending returns the manual requests awaiting an admin decision
func (m *Manager) ListPending(ctx context.Context) ([]Subscription, error) {
	subs := make([]Subscription, 0)

	result := m.DB.WithContext(ctx).
		Order("created_at asc").
		Find(&subs, "status = ?", StatePending)

	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot list pending subscriptions")
	}

	return subs, nil
}

// Request opens a manual subscription request for admin review. No payment is
// involved; the subscription sits in Pending until an admin decides.
func (m *Manager) Request(ctx context.Context, sellerID, planID string) (*Subscription, error) {
	s, err := m.SellerManager.GetByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSellerNotFound
	}

	p, err := m.PlanManager.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.IsActive {
		return nil, ErrPlanNotFound
	}

	existing, err := m.GetBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if blocksNewRequest(existing) {
		return nil, ErrAlreadySubscribed
	}

	var sub *Subscription
	if existing != nil {
		// reuse the seller's single row so the unique index holds
		existing.RequestedPlanID = p.ID
		existing.Status = StatePending
		result := m.DB.WithContext(ctx).Save(existing)
		if result.Error != nil {
			return nil, extErrors.Wrap(result.Error, "Cannot reopen subscription request")
		}
		sub = existing
	} else {
		sub = &Subscription{
			ID:              uuid.New().String(),
			SellerID:        sellerID,
			RequestedPlanID: p.ID,
			Status:          StatePending,
		}
		result := m.DB.WithContext(ctx).Create(sub)
		if result.Error != nil {
			m.Logger.Error("Database returned error",
				zap.Error(result.Error),
			)
			return nil, extErrors.Wrap(result.Error, "Cannot create subscription request")
		}
	}

	m.Notifier.Notify(sellerID, string(auth.RoleSeller), broker.KindInfo, "subscription",
		fmt.Sprintf("Your request for the %s package was submitted for review", p.Name), "/subscription")
	m.Notifier.Notify(adminInbox, string(auth.RoleAdmin), broker.KindInfo, "subscription",
		fmt.Sprintf("A seller requested the %s package", p.Name), "/admin/requests")

	return sub, nil
}

// Manage resolves a pending manual request. Approval activates the plan as if
// it had been paid for; rejection only flips the status.
func (m *Manager) Manage(ctx context.Context, subscriptionID string, approve bool) (*Subscription, error) {
	sub, err := m.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoSubscription
	}
	if sub.Status != StatePending {
		return nil, ErrNotPending
	}

	if !approve {
		sub.Status = StateRejected
		if result := m.DB.WithContext(ctx).Save(sub); result.Error != nil {
			return nil, extErrors.Wrap(result.Error, "Cannot reject subscription request")
		}
		m.Notifier.Notify(sub.SellerID, string(auth.RoleSeller), broker.KindError, "subscription",
			"Your subscription request was rejected", "/subscription")
		return sub, nil
	}

	p, err := m.PlanManager.GetByID(ctx, sub.RequestedPlanID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPlanNotFound
	}

	start, end, grace := computeSchedule(time.Now(), p.Duration)
	sub.PlanID = p.ID
	sub.RequestedPlanID = ""
	sub.Status = StateActive
	sub.StartDate = start
	sub.EndDate = end
	sub.GracePeriodEnd = grace
	if result := m.DB.WithContext(ctx).Save(sub); result.Error != nil {
		return nil, extErrors.Wrap(result.Error, "Cannot approve subscription request")
	}

	if err := m.SellerManager.ActivatePlan(ctx, sub.SellerID, sub.ID, p); err != nil {
		return nil, err
	}
	if err := m.CatalogManager.ReconcileUpgrade(ctx, sub.SellerID, p.Conditions.MaxCatalogs); err != nil {
		m.Logger.Error("Unable to restore archived catalogs after approval",
			zap.Error(err),
			zap.String("SellerID", sub.SellerID),
		)
	}

	m.Notifier.Notify(sub.SellerID, string(auth.RoleSeller), broker.KindSuccess, "subscription",
		fmt.Sprintf("Your request for the %s package was approved", p.Name), "/subscription")

	return sub, nil
}

// AssignFree activates the free plan for a seller without touching the
// payment gateway
func (m *Manager) AssignFree(ctx context.Context, sellerID string) (*Subscription, error) {
	s, err := m.SellerManager.GetByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSellerNotFound
	}

	existing, err := m.GetBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadySubscribed
	}

	p, err := m.PlanManager.FreePlan(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPlanNotFound
	}

	start, end, grace := computeSchedule(time.Now(), p.Duration)
	sub := &Subscription{
		ID:             uuid.New().String(),
		SellerID:       sellerID,
		PlanID:         p.ID,
		Status:         StateActive,
		StartDate:      start,
		EndDate:        end,
		GracePeriodEnd: grace,
	}
	result := m.DB.WithContext(ctx).Create(sub)
	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot create free subscription")
	}

	if err := m.SellerManager.ActivatePlan(ctx, sellerID, sub.ID, p); err != nil {
		return nil, err
	}

	m.Notifier.Notify(sellerID, string(auth.RoleSeller), broker.KindSuccess, "subscription",
		fmt.Sprintf("The %s package is now active", p.Name), "/subscription")

	return sub, nil
}

// CheckoutSession is what the frontend needs to collect payment
type CheckoutSession struct {
	SessionID     string `json:"sessionId"`
	ClientSecret  string `json:"clientSecret"`
	AmountInCents int64  `json:"amountInCents"`
	Currency      string `json:"currency"`
	Renewal       bool   `json:"renewal"`
}

// Checkout opens a payment intent with the gateway for the given plan. Nothing
// is persisted; activation happens in ConfirmPayment once the gateway reports
// the charge succeeded. Gateway errors are returned verbatim.
func (m *Manager) Checkout(ctx context.Context, sellerID, planID string) (*CheckoutSession, error) {
	s, err := m.SellerManager.GetByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSellerNotFound
	}

	p, err := m.PlanManager.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.IsActive || p.Type != plan.TypePaid {
		return nil, ErrPlanNotFound
	}

	customerID, err := m.SellerManager.EnsureStripeCustomer(ctx, s)
	if err != nil {
		return nil, err
	}

	existing, err := m.GetBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	renewal := existing != nil

	amount := p.ChargeAmount()
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context: ctx,
			Metadata: map[string]string{
				"sellerId": sellerID,
				"planId":   p.ID,
				"renewal":  fmt.Sprintf("%t", renewal),
			},
		},
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(p.Currency),
		Customer: stripe.String(customerID),
	}
	if renewal {
		params.Metadata["subscriptionId"] = existing.ID
	}

	intent, err := m.StripeClient.PaymentIntents.New(params)
	if err != nil {
		m.Logger.Error("Stripe returned error",
			zap.Error(err),
			zap.String("SellerID", sellerID),
		)
		return nil, err
	}

	return &CheckoutSession{
		SessionID:     intent.ID,
		ClientSecret:  intent.ClientSecret,
		AmountInCents: amount,
		Currency:      p.Currency,
		Renewal:       renewal,
	}, nil
}

// ConfirmPayment verifies the gateway session and activates or renews the
// subscription. Safe to call more than once with the same session id; replays
// return the already-updated subscription without side effects.
func (m *Manager) ConfirmPayment(ctx context.Context, sellerID, sessionID string) (*Subscription, error) {
	existing, err := m.GetBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if duplicateConfirmation(existing, sessionID) {
		return existing, nil
	}

	intent, err := m.StripeClient.PaymentIntents.Get(sessionID, &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context: ctx,
		},
	})
	if err != nil {
		m.Logger.Error("Stripe returned error",
			zap.Error(err),
			zap.String("SessionID", sessionID),
		)
		return nil, err
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, ErrPaymentIncomplete
	}
	if intent.Metadata["sellerId"] != sellerID {
		return nil, extErrors.New("gateway session does not belong to this seller")
	}

	p, err := m.PlanManager.GetByID(ctx, intent.Metadata["planId"])
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPlanNotFound
	}

	s, err := m.SellerManager.GetByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSellerNotFound
	}

	m.persistPaymentMethod(ctx, s, intent)

	details := PaymentDetails{
		AmountInCents:    intent.Amount,
		Currency:         string(intent.Currency),
		GatewaySessionID: intent.ID,
		PaymentStatus:    string(intent.Status),
	}
	now := time.Now()
	start, end, grace := computeSchedule(now, p.Duration)
	renewal := existing != nil

	var sub *Subscription
	if renewal {
		existing.PlanID = p.ID
		existing.TransactionID = intent.ID
		existing.Status = StateActive
		existing.StartDate = start
		existing.EndDate = end
		existing.GracePeriodEnd = grace
		existing.PaymentDetails = details
		if result := m.DB.WithContext(ctx).Save(existing); result.Error != nil {
			return nil, extErrors.Wrap(result.Error, "Cannot renew subscription")
		}
		sub = existing
	} else {
		sub = &Subscription{
			ID:             uuid.New().String(),
			SellerID:       sellerID,
			PlanID:         p.ID,
			TransactionID:  intent.ID,
			Status:         StateActive,
			StartDate:      start,
			EndDate:        end,
			GracePeriodEnd: grace,
			PaymentDetails: details,
		}
		if result := m.DB.WithContext(ctx).Create(sub); result.Error != nil {
			return nil, extErrors.Wrap(result.Error, "Cannot create subscription")
		}
	}

	if entry := renewalLogEntry(renewal, sub.ID, details, now); entry != nil {
		if result := m.DB.WithContext(ctx).Create(entry); result.Error != nil {
			return nil, extErrors.Wrap(result.Error, "Cannot record renewal")
		}
	}

	if err := m.SellerManager.ActivatePlan(ctx, sellerID, sub.ID, p); err != nil {
		return nil, err
	}
	if err := m.CatalogManager.ReconcileUpgrade(ctx, sellerID, p.Conditions.MaxCatalogs); err != nil {
		m.Logger.Error("Unable to restore archived catalogs after payment",
			zap.Error(err),
			zap.String("SellerID", sellerID),
		)
	}

	m.Notifier.Notify(sellerID, string(auth.RoleSeller), broker.KindSuccess, "subscription",
		fmt.Sprintf("Payment received, the %s package is now active", p.Name), "/subscription")

	return sub, nil
}

// persistPaymentMethod attaches the intent's payment method to the customer
// and makes it the default for future renewals. Retried confirmations may see
// an already-attached method, so failures here are logged, not fatal.
func (m *Manager) persistPaymentMethod(ctx context.Context, s *seller.Seller, intent *stripe.PaymentIntent) {
	if intent.PaymentMethod == nil || len(s.StripeCustomerID) == 0 {
		return
	}
	_, err := m.StripeClient.PaymentMethods.Attach(intent.PaymentMethod.ID, &stripe.PaymentMethodAttachParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Customer: stripe.String(s.StripeCustomerID),
	})
	if err != nil {
		m.Logger.Warn("Unable to attach payment method",
			zap.Error(err),
			zap.String("SellerID", s.ID),
		)
		return
	}
	_, err = m.StripeClient.Customers.Update(s.StripeCustomerID, &stripe.CustomerParams{
		Params: stripe.Params{
			Context: ctx,
		},
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(intent.PaymentMethod.ID),
		},
	})
	if err != nil {
		m.Logger.Warn("Unable to set default payment method",
			zap.Error(err),
			zap.String("SellerID", s.ID),
		)
	}
}

// Cancel ends an active subscription immediately. The row and its renewal log
// are kept for audit; only the status and dates change.
func (m *Manager) Cancel(ctx context.Context, sellerID string) error {
	sub, err := m.GetBySeller(ctx, sellerID)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrNoSubscription
	}
	if sub.Status != StateActive {
		return ErrNotActive
	}

	result := m.DB.WithContext(ctx).Model(&Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"status":           StateNone,
			"end_date":         time.Time{},
			"grace_period_end": time.Time{},
		})
	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot cancel subscription")
	}

	if err := m.SellerManager.MarkCancelled(ctx, sellerID); err != nil {
		return err
	}

	m.Notifier.Notify(sellerID, string(auth.RoleSeller), broker.KindInfo, "subscription",
		"Your subscription was cancelled", "/subscription")

	return nil
}

// Expire transitions a subscription to Expired if and only if it is still
// Active when the row lock is held. The sweep and the just-in-time timers can
// both race to expire the same subscription; the re-check under the lock makes
// the transition happen exactly once. The returned bool reports whether this
// call performed the transition.
func (m *Manager) Expire(ctx context.Context, subscriptionID string) (bool, error) {
	var (
		expired  bool
		sellerID string
	)
	err := m.lambdaUpdate(ctx, subscriptionID, func(sub *Subscription) error {
		if !applyExpiry(sub) {
			return nil
		}
		expired = true
		sellerID = sub.SellerID
		return nil
	})
	if err != nil {
		return false, err
	}
	if !expired {
		return false, nil
	}

	s, err := m.SellerManager.GetByID(ctx, sellerID)
	if err != nil {
		return true, err
	}
	if s == nil {
		return true, ErrSellerNotFound
	}

	if err := m.SellerManager.MarkExpired(ctx, sellerID); err != nil {
		return true, err
	}
	if err := m.CatalogManager.ReconcileDowngrade(ctx, sellerID, s.Basic.MaxCatalogs); err != nil {
		m.Logger.Error("Unable to archive catalogs after expiry",
			zap.Error(err),
			zap.String("SellerID", sellerID),
		)
	}

	m.Logger.Info("Subscription expired",
		zap.String("SubscriptionID", subscriptionID),
		zap.String("SellerID", sellerID),
	)
	m.Notifier.Notify(sellerID, string(auth.RoleSeller), broker.KindError, "subscription",
		"Your subscription has expired, your store is limited to the basic package", "/subscription")

	return true, nil
}

// ListDue returns active subscriptions whose end date has passed, oldest first
func (m *Manager) ListDue(ctx context.Context, now time.Time, limit int) ([]Subscription, error) {
	subs := make([]Subscription, 0)

	result := m.DB.WithContext(ctx).
		Where("status = ? AND end_date <= ?", StateActive, now).
		Order("end_date asc").
		Limit(limit).
		Find(&subs)

	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot list due subscriptions")
	}

	return subs, nil
}

// ListExpiringWithin returns active subscriptions ending inside the window,
// used to arm just-in-time expiration timers
func (m *Manager) ListExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]Subscription, error) {
	subs := make([]Subscription, 0)

	result := m.DB.WithContext(ctx).
		Where("status = ? AND end_date > ? AND end_date <= ?", StateActive, now, now.Add(window)).
		Order("end_date asc").
		Find(&subs)

	if result.Error != nil {
		m.Logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot list expiring subscriptions")
	}

	return subs, nil
}

// lambdaUpdate runs fn against the subscription under a serializable
// transaction with the row locked for update
func (m *Manager) lambdaUpdate(ctx context.Context, subscriptionID string, fn func(sub *Subscription) error) error {
	return m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub Subscription
		lookup := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&sub, "id = ?", subscriptionID)
		if errors.Is(lookup.Error, gorm.ErrRecordNotFound) {
			return ErrNoSubscription
		}
		if lookup.Error != nil {
			return lookup.Error
		}
		if err := fn(&sub); err != nil {
			return err
		}
		return tx.Save(&sub).Error
	}, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}
