package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mpspetcare/petcare-backend/api/controllers"
	"github.com/mpspetcare/petcare-backend/api/middleware"
	"github.com/mpspetcare/petcare-backend/internal/adoptions"
	"github.com/mpspetcare/petcare-backend/internal/orders"
	"github.com/mpspetcare/petcare-backend/internal/payments"
	payherewebhook "github.com/mpspetcare/petcare-backend/internal/webhooks/payhere"
	"github.com/mpspetcare/petcare-backend/pkg/config"
	"github.com/mpspetcare/petcare-backend/pkg/logger"
)

// Deps carries everything the HTTP surface needs wired in.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DBPinger        controllers.Pinger
	RedisPinger     controllers.Pinger
	OrdersService   *orders.Service
	PaymentsService *payments.Service
	WebhookService  *payherewebhook.Service
	AdoptionService *adoptions.Service
}

// NewRouter assembles the full route tree. The gateway callback stays outside
// the auth group since PayHere authenticates with its signature, not a token.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DBPinger, d.RedisPinger))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/payments/notify", controllers.PayHereNotify(d.WebhookService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			admin := middleware.RequireRole("admin", logg)

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.CreateOrder(d.OrdersService, logg))
				r.Get("/mine", controllers.ListMyOrders(d.OrdersService, logg))
				r.With(admin).Get("/", controllers.ListAllOrders(d.OrdersService, logg))
				r.Get("/{orderId}", controllers.GetOrder(d.OrdersService, logg))
				r.Put("/{orderId}/cancel", controllers.CancelOrder(d.OrdersService, logg))
				r.With(admin).Put("/{orderId}/status", controllers.UpdateOrderStatus(d.OrdersService, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/initiate", controllers.InitiatePayment(d.PaymentsService, logg))
				r.Get("/status/{orderId}", controllers.PaymentStatus(d.PaymentsService, logg))
			})

			r.Route("/adoptions", func(r chi.Router) {
				r.Post("/", controllers.CreateAdoptionRequest(d.AdoptionService, logg))
				r.Get("/mine", controllers.ListMyAdoptions(d.AdoptionService, logg))
				r.With(admin).Get("/", controllers.ListAdoptions(d.AdoptionService, logg))
				r.With(admin).Put("/{requestId}/approve", controllers.ApproveAdoption(d.AdoptionService, logg))
				r.With(admin).Put("/{requestId}/reject", controllers.RejectAdoption(d.AdoptionService, logg))
			})
		})
	})

	return r
}
