package subscription

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quayside/bazaar/auth"
	resp "github.com/quayside/bazaar/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Auth                *auth.Auth
	SubscriptionManager *Manager
	Logger              *zap.Logger
}

// Service is the subscription API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the subscription API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.SubscriptionManager == nil {
		return nil, fmt.Errorf("nil SubscriptionManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// PlanSelection is the payload naming the plan to buy or request
type PlanSelection struct {
	PlanID string `json:"packageId" validate:"required"`
}

// ConfirmRequest is the payload completing a checkout
type ConfirmRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// DecisionRequest is the admin payload resolving a pending request
type DecisionRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
}

func (s *Service) getSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	sub, err := s.SubscriptionManager.GetBySeller(ctx, claims.ID)
	if err != nil {
		s.Logger.Error("Unable to query subscription",
			zap.Error(err),
			zap.String("SellerID", claims.ID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get subscription"))
		return
	}
	if sub == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("You have no subscription"))
		return
	}

	resp.WriteResponse(w, r, sub)
}

func (s *Service) assignFree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	sub, err := s.SubscriptionManager.AssignFree(ctx, claims.ID)
	if err != nil {
		switch err {
		case ErrAlreadySubscribed:
			resp.WriteError(w, r, resp.ErrConflict().AddMessages("You already have a subscription"))
		case ErrPlanNotFound:
			resp.WriteError(w, r, resp.ErrNotFound().AddMessages("No free package is available"))
		default:
			s.Logger.Error("Unable to assign free plan",
				zap.Error(err),
				zap.String("SellerID", claims.ID),
			)
			resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot assign free package"))
		}
		return
	}

	resp.WriteResponse(w, r, sub)
}

func (s *Service) requestSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	var req PlanSelection
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrValidation(err.Error()))
		return
	}

	sub, err := s.SubscriptionManager.Request(ctx, claims.ID, req.PlanID)
	if err != nil {
		switch err {
		case ErrAlreadySubscribed:
			resp.WriteError(w, r, resp.ErrConflict().AddMessages("You already have an active or pending subscription"))
		case ErrPlanNotFound:
			resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find the requested package"))
		default:
			s.Logger.Error("Unable to create subscription request",
				zap.Error(err),
				zap.String("SellerID", claims.ID),
			)
			resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot create subscription request"))
		}
		return
	}

	resp.WriteResponse(w, r, sub)
}

func (s *Service) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	var req PlanSelection
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrValidation(err.Error()))
		return
	}

	session, err := s.SubscriptionManager.Checkout(ctx, claims.ID, req.PlanID)
	if err != nil {
		switch err {
		case ErrPlanNotFound:
			resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find a purchasable package with specific ID"))
		case ErrSellerNotFound:
			resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find seller"))
		default:
			s.Logger.Error("Unable to start checkout",
				zap.Error(err),
				zap.String("SellerID", claims.ID),
			)
			resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot start checkout with the payment gateway"))
		}
		return
	}

	resp.WriteResponse(w, r, session)
}

func (s *Service) confirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrValidation(err.Error()))
		return
	}

	sub, err := s.SubscriptionManager.ConfirmPayment(ctx, claims.ID, req.SessionID)
	if err != nil {
		switch err {
		case ErrPaymentIncomplete:
			resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("The payment has not completed"))
		case ErrPlanNotFound:
			resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find the purchased package"))
		default:
			s.Logger.Error("Unable to confirm payment",
				zap.Error(err),
				zap.String("SellerID", claims.ID),
				zap.String("SessionID", req.SessionID),
			)
			resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot confirm payment"))
		}
		return
	}

	resp.WriteResponse(w, r, sub)
}

func (s *Service) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	if err := s.SubscriptionManager.Cancel(ctx, claims.ID); err != nil {
		switch err {
		case ErrNoSubscription:
			resp.WriteError(w, r, resp.ErrNotFound().AddMessages("You have no subscription"))
		case ErrNotActive:
			resp.WriteError(w, r, resp.ErrConflict().AddMessages("Only an active subscription can be cancelled"))
		default:
			s.Logger.Error("Unable to cancel subscription",
				zap.Error(err),
				zap.String("SellerID", claims.ID),
			)
			resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot cancel subscription"))
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) listRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subs, err := s.SubscriptionManager.ListPending(ctx)
	if err != nil {
		s.Logger.Error("Unable to list pending requests",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of pending requests"))
		return
	}

	resp.WriteResponse(w, r, subs)
}

func (s *Service) manageRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscriptionID := chi.URLParam(r, "id")

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrValidation(err.Error()))
		return
	}

	sub, err := s.SubscriptionManager.Manage(ctx, subscriptionID, req.Action == "approve")
	if err != nil {
		switch err {
		case ErrNoSubscription:
			resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find subscription with specific ID"))
		case ErrNotPending:
			resp.WriteError(w, r, resp.ErrConflict().AddMessages("The request has already been resolved"))
		default:
			s.Logger.Error("Unable to resolve subscription request",
				zap.Error(err),
				zap.String("SubscriptionID", subscriptionID),
			)
			resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot resolve subscription request"))
		}
		return
	}

	resp.WriteResponse(w, r, sub)
}

// Router will return the routes under subscription API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.Auth.Middleware())

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.RequireRole(auth.RoleSeller))
		r.Get("/", s.getSubscription)
		r.Post("/free", s.assignFree)
		r.Post("/request", s.requestSubscription)
		r.Post("/checkout", s.checkout)
		r.Post("/confirm", s.confirmPayment)
		r.Delete("/", s.cancelSubscription)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.RequireAdmin())
		r.Get("/requests", s.listRequests)
		r.Put("/requests/{id}", s.manageRequest)
	})

	return r
}
