package seller

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quayside/bazaar/auth"
	"github.com/quayside/bazaar/plan"
	resp "github.com/quayside/bazaar/response"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate *validator.Validate = validator.New()

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Auth          *auth.Auth
	SellerManager *Manager
	PlanManager   *plan.Manager
	Logger        *zap.Logger
}

// Service is the seller API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the seller API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.SellerManager == nil {
		return nil, fmt.Errorf("nil SellerManager is invalid")
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

// LoginRequest is the model of user request for login pin
type LoginRequest struct {
	Email       string `json:"email" validate:"required,email"`
	CompanyName string `json:"companyName"`
}

func (s *Service) requestLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.WriteError(w, r, resp.ErrInvalidJson())
		return
	}
	logger := s.Logger.With(zap.String("Email", req.Email))

	if err := validate.Struct(&req); err != nil {
		resp.WriteError(w, r, resp.ErrValidation(err.Error()))
		return
	}

	if err := s.Auth.Request(r.Context(), req.Email, req.Email); err != nil {
		logger.Error("Unable to send login PIN",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to send login token"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := chi.URLParam(r, "uid")
	token := chi.URLParam(r, "token")

	logger := s.Logger.With(zap.String("Email", email))

	valid, err := s.Auth.Verify(ctx, email, token)
	if err != nil {
		logger.Error("Unable to verify login PIN",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Unable to verify login token"))
		return
	}

	if !valid {
		resp.WriteError(w, r, resp.ErrUnauthorized())
		return
	}

	// "upsert" a seller, seeding the basic fallback from the free plan
	sel, err := s.SellerManager.GetByEmail(ctx, email)
	if err != nil {
		logger.Error("Unable to look up Seller",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	if sel == nil {
		var basic plan.Conditions
		freePlan, err := s.PlanManager.FreePlan(ctx)
		if err != nil {
			logger.Error("Unable to look up free plan",
				zap.Error(err),
			)
			resp.WriteError(w, r, resp.ErrUnexpected())
			return
		}
		if freePlan != nil {
			basic = freePlan.Conditions
		}
		sel, err = s.SellerManager.NewSeller(ctx, email, "", basic)
		if err != nil {
			logger.Error("Unable to create Seller",
				zap.Error(err),
			)
			resp.WriteError(w, r, resp.ErrUnexpected())
			return
		}
	}

	jwtToken, err := s.Auth.CreateTokenFromClaims(auth.Claims{
		ID:    sel.ID,
		Email: sel.Email,
		Role:  auth.RoleSeller,
	})
	if err != nil {
		logger.Error("Unable to generate token",
			zap.Error(err),
		)
		resp.WriteError(w, r, resp.ErrUnexpected())
		return
	}

	resp.WriteResponse(w, r, struct {
		Token string `json:"token"`
	}{
		Token: jwtToken,
	})
}

// EntitlementResponse is the seller's entitlement slice plus the resolved
// effective conditions
type EntitlementResponse struct {
	Seller    *Seller         `json:"seller"`
	Effective plan.Conditions `json:"effectiveConditions"`
}

func (s *Service) me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	sel, err := s.SellerManager.GetByID(ctx, claims.ID)
	if err != nil {
		s.Logger.Error("Unable to query seller",
			zap.Error(err),
			zap.String("SellerID", claims.ID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get seller profile"))
		return
	}
	if sel == nil {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find seller"))
		return
	}

	resp.WriteResponse(w, r, EntitlementResponse{
		Seller:    sel,
		Effective: EffectiveConditions(sel),
	})
}

// Router will return the routes under seller API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/login", s.requestLogin)
	r.Get("/login/{uid}/{token}", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.Middleware())
		r.Get("/me", s.me)
	})

	return r
}
