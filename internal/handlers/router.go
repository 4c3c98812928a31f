package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/ruralpay/creditledger/internal/ledger"
	mW "github.com/ruralpay/creditledger/internal/middleware"
)

type RouterConfig struct {
	Service *ledger.Service
	Phones  PhoneBook
	Auth    *mW.Authenticator
	Logger  *zap.Logger

	// Health reports whether backing services are reachable. Nil means
	// always healthy.
	Health func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig) http.Handler {
	credit := NewCreditHandler(cfg.Service, cfg.Logger)
	admin := NewAdminHandler(cfg.Service, cfg.Phones, cfg.Logger)

	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				cfg.Logger.Warn("health check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.Auth.Middleware)

		// Seller self-service
		r.Group(func(r chi.Router) {
			r.Use(mW.RequireAccount)

			r.Get("/credit/balance", credit.GetBalance)
			r.Get("/ledger", credit.ListLedger)
			r.Get("/credit-requests/mine", credit.ListRequests)
			r.Post("/credit-requests", credit.SubmitRequest)
			r.Get("/transactions", credit.ListSpends)
			r.Post("/transactions", credit.Spend)
		})

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(mW.RequireAdmin)

			r.Get("/sellers", admin.ListSellers)
			r.Post("/sellers", admin.CreateSeller)
			r.Get("/sellers/{id}", admin.GetSeller)
			r.Put("/sellers/{id}", admin.UpdateSeller)
			r.Delete("/sellers/{id}", admin.DeleteSeller)
			r.Get("/sellers/{id}/ledger", admin.SellerLedger)
			r.Get("/sellers/{id}/reconcile", admin.Reconcile)

			r.Get("/credit-requests", admin.ListRequests)
			r.Post("/credit-requests/{id}/approve", admin.Approve)
			r.Post("/credit-requests/{id}/reject", admin.Reject)

			r.Post("/phone-numbers", admin.AddPhoneNumber)
			r.Delete("/phone-numbers/{phone}", admin.DeactivatePhoneNumber)
		})
	})

	return r
}
