package http

import (
	"net/http"

	"github.com/Will-hxw/1688/internal/platform/logger"
	"github.com/Will-hxw/1688/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	Orders   *OrderHandler
	Listings *ListingHandler
	Reviews  *ReviewHandler
	Users    *UserHandler

	JWTSecret string
	Log       logger.Logger
	Metrics   *metrics.Manager
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(deps.Log, deps.Metrics))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// Public routes.
	r.Post("/api/users/register", deps.Users.Register)
	r.Get("/api/listings", deps.Listings.Search)
	r.Get("/api/listings/{listingID}", deps.Listings.GetByID)
	r.Get("/api/listings/{listingID}/reviews", deps.Reviews.ListForListing)
	r.Get("/api/reviews/{reviewID}", deps.Reviews.GetByID)

	// Authenticated routes.
	r.Group(func(auth chi.Router) {
		auth.Use(JWTAuth(deps.JWTSecret))

		auth.Get("/api/users/me", deps.Users.GetProfile)

		auth.Post("/api/listings", deps.Listings.Create)
		auth.Delete("/api/listings/{listingID}", deps.Listings.Remove)

		auth.Post("/api/orders", deps.Orders.Create)
		auth.Get("/api/orders/{orderID}", deps.Orders.GetByID)
		auth.Post("/api/orders/{orderID}/ship", deps.Orders.Ship)
		auth.Post("/api/orders/{orderID}/receive", deps.Orders.Receive)
		auth.Post("/api/orders/{orderID}/cancel", deps.Orders.Cancel)
		auth.Get("/api/orders/purchases", deps.Orders.ListMineAsBuyer)
		auth.Get("/api/orders/sales", deps.Orders.ListMineAsSeller)

		auth.Post("/api/reviews", deps.Reviews.Create)
		auth.Get("/api/reviews/mine", deps.Reviews.ListMine)

		// Admin routes.
		auth.Group(func(admin chi.Router) {
			admin.Use(AdminOnly)

			admin.Get("/api/admin/orders", deps.Orders.ListAll)
			admin.Post("/api/admin/orders/{orderID}/status", deps.Orders.ForceStatus)
			admin.Get("/api/admin/listings", deps.Listings.AdminSearch)
			admin.Get("/api/admin/reviews", deps.Reviews.ListAll)
			admin.Delete("/api/admin/reviews/{reviewID}", deps.Reviews.Delete)
			admin.Post("/api/admin/users/{userID}/set-active", deps.Users.SetActive)
		})
	})

	return r
}
