package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quayside/bazaar/auth"
	resp "github.com/quayside/bazaar/response"
	"github.com/quayside/bazaar/seller"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Auth           *auth.Auth
	SellerManager  *seller.Manager
	CatalogManager *Manager
	Logger         *zap.Logger
}

// Service is the catalog API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the catalog API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.SellerManager == nil {
		return nil, fmt.Errorf("nil SellerManager is invalid")
	}
	if option.CatalogManager == nil {
		return nil, fmt.Errorf("nil CatalogManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

// CreateRequest is the payload for creating a catalog
type CreateRequest struct {
	Name    string `json:"name" validate:"required"`
	StoreID string `json:"storeId"`
}

func (s *Service) createCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	logger := s.Logger.With(zap.String("SellerID", claims.ID))

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrValidation(err.Error()))
		return
	}

	sel, err := s.SellerManager.GetByID(ctx, claims.ID)
	if err != nil {
		logger.Error("Unable to query seller",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get seller profile"))
		return
	}
	if sel == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find seller"))
		return
	}

	// enforce the effective entitlement before creating
	conditions := seller.EffectiveConditions(sel)
	if conditions.MaxCatalogs != 0 {
		count, err := s.CatalogManager.CountVisible(ctx, claims.ID)
		if err != nil {
			logger.Error("Unable to count catalogs",
				zap.Error(err),
			)
			resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot check catalog limit"))
			return
		}
		if count >= conditions.MaxCatalogs {
			hint := "Subscribe to a plan for more."
			if sel.SubscriptionStatus == seller.SubscriptionActive {
				hint = "Upgrade your plan for more."
			}
			resp.WriteError(w, r, resp.ErrLimitReached(
				fmt.Sprintf("You've reached your catalog limit (%d). %s", conditions.MaxCatalogs, hint),
			))
			return
		}
	}

	c := &Catalog{
		SellerID: claims.ID,
		StoreID:  req.StoreID,
		Name:     req.Name,
	}
	if err := s.CatalogManager.Create(ctx, c); err != nil {
		logger.Error("Unable to create catalog",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot create catalog"))
		return
	}

	resp.WriteResponse(w, r, c)
}

func (s *Service) listCatalogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	sel, err := s.SellerManager.GetByID(ctx, claims.ID)
	if err != nil || sel == nil {
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get seller profile"))
		return
	}

	// bounded entitlements also bound the listing
	conditions := seller.EffectiveConditions(sel)
	results, err := s.CatalogManager.List(ctx, ListOption{
		SellerID: claims.ID,
		Limit:    conditions.MaxCatalogs,
	})
	if err != nil {
		s.Logger.Error("Unable to list catalogs",
			zap.Error(err),
			zap.String("SellerID", claims.ID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of catalogs"))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) listArchivedCatalogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	results, err := s.CatalogManager.List(ctx, ListOption{
		SellerID: claims.ID,
		Archived: true,
	})
	if err != nil {
		s.Logger.Error("Unable to list archived catalogs",
			zap.Error(err),
			zap.String("SellerID", claims.ID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of archived catalogs"))
		return
	}

	resp.WriteResponse(w, r, results)
}

// Router will return the routes under catalog API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.Auth.Middleware())
	r.Use(s.Auth.RequireRole(auth.RoleSeller))

	r.Post("/", s.createCatalog)
	r.Get("/", s.listCatalogs)
	r.Get("/archived", s.listArchivedCatalogs)

	return r
}
