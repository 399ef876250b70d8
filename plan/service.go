package plan

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quayside/bazaar/auth"
	resp "github.com/quayside/bazaar/response"
	"github.com/quayside/bazaar/spec"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Auth        *auth.Auth
	PlanManager *Manager
	Logger      *zap.Logger
}

// Service is the plan API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the plan API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.PlanManager == nil {
		return nil, fmt.Errorf("nil PlanManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// PlanRequest is the admin payload for creating or updating a plan
type PlanRequest struct {
	Name            string   `json:"name" validate:"required"`
	Description     string   `json:"description"`
	PriceInCents    int64    `json:"priceInCents" validate:"gte=0"`
	Currency        string   `json:"currency" validate:"required,len=3"`
	DiscountPercent int64    `json:"discountPercent" validate:"gte=0,lte=100"`
	Features        []string `json:"features"`
	Conditions      struct {
		MaxCatalogs           int `json:"maxCatalogs" validate:"gte=0"`
		MaxProductsPerCatalog int `json:"maxProductsPerCatalog" validate:"gte=0"`
	} `json:"conditions"`
	Duration struct {
		Value int    `json:"value" validate:"gte=1"`
		Unit  string `json:"unit" validate:"required,oneof=minutes months years"`
	} `json:"duration"`
	Type string `json:"type" validate:"required,oneof=free paid"`
}

func (req *PlanRequest) toPlan() *Plan {
	return &Plan{
		Name:            req.Name,
		Description:     req.Description,
		PriceInCents:    req.PriceInCents,
		Currency:        req.Currency,
		DiscountPercent: req.DiscountPercent,
		Features:        spec.StringList(req.Features),
		Conditions: Conditions{
			MaxCatalogs:           req.Conditions.MaxCatalogs,
			MaxProductsPerCatalog: req.Conditions.MaxProductsPerCatalog,
		},
		Duration: Duration{
			Value: req.Duration.Value,
			Unit:  DurationUnit(req.Duration.Unit),
		},
		Type: Type(req.Type),
	}
}

func (s *Service) listPlans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	plans, err := s.PlanManager.List(ctx, false)
	if err != nil {
		s.Logger.Error("Unable to list plans",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of plans"))
		return
	}

	resp.WriteResponse(w, r, plans)
}

func (s *Service) createPlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrValidation(err.Error()))
		return
	}

	p := req.toPlan()
	if err := s.PlanManager.Create(ctx, p); err != nil {
		if err == ErrDuplicateName {
			resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Plan name must be unique"))
			return
		}
		s.Logger.Error("Unable to create plan",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot create plan"))
		return
	}

	resp.WriteResponse(w, r, p)
}

func (s *Service) updatePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	planID := chi.URLParam(r, "id")

	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrValidation(err.Error()))
		return
	}

	existing, err := s.PlanManager.GetByID(ctx, planID)
	if err != nil {
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get plan"))
		return
	}
	if existing == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find plan with specific ID"))
		return
	}

	updated := req.toPlan()
	updated.ID = existing.ID
	updated.IsActive = existing.IsActive
	updated.CreatedAt = existing.CreatedAt
	if err := s.PlanManager.Update(ctx, updated); err != nil {
		if err == ErrDuplicateName {
			resp.WriteError(w, r, resp.ErrBadRequest().AddMessages("Plan name must be unique"))
			return
		}
		s.Logger.Error("Unable to update plan",
			zap.Error(err),
			zap.String("PlanID", planID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot update plan"))
		return
	}

	resp.WriteResponse(w, r, updated)
}

func (s *Service) deactivatePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	planID := chi.URLParam(r, "id")

	existing, err := s.PlanManager.GetByID(ctx, planID)
	if err != nil {
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get plan"))
		return
	}
	if existing == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find plan with specific ID"))
		return
	}

	if err := s.PlanManager.Deactivate(ctx, planID); err != nil {
		s.Logger.Error("Unable to deactivate plan",
			zap.Error(err),
			zap.String("PlanID", planID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot deactivate plan"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Router will return the routes under plan API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listPlans)

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.Middleware())
		r.Use(s.Auth.RequireAdmin())
		r.Post("/", s.createPlan)
		r.Put("/{id}", s.updatePlan)
		r.Delete("/{id}", s.deactivatePlan)
	})

	return r
}
