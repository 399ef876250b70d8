package notification

import (
	"fmt"
	"net/http"

	"github.com/quayside/bazaar/auth"
	resp "github.com/quayside/bazaar/response"

	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	Auth                *auth.Auth
	NotificationManager *Manager
	Logger              *zap.Logger
}

// Service is the notification API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the notification API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.Auth == nil {
		return nil, fmt.Errorf("nil Auth is invalid")
	}
	if option.NotificationManager == nil {
		return nil, fmt.Errorf("nil NotificationManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

func (s *Service) listNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)

	results, err := s.NotificationManager.ListByUser(ctx, claims.ID, 50)
	if err != nil {
		s.Logger.Error("Unable to list notifications",
			zap.Error(err),
			zap.String("UserID", claims.ID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot get the list of notifications"))
		return
	}

	resp.WriteResponse(w, r, results)
}

func (s *Service) markRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ctx.Value(auth.Context).(*auth.Claims)
	notificationID := chi.URLParam(r, "id")

	if err := s.NotificationManager.MarkRead(ctx, claims.ID, notificationID); err != nil {
		s.Logger.Error("Unable to mark notification as read",
			zap.Error(err),
			zap.String("NotificationID", notificationID),
		)
		resp.WriteError(w, r, resp.ErrUnexpected().AddMessages("Cannot update notification"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Router will return the routes under notification API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.Auth.Middleware())

	r.Get("/", s.listNotifications)
	r.Post("/{id}/read", s.markRead)

	return r
}
