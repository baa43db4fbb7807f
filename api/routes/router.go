package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arjunmehra/swiftkart-backend/api/controllers"
	"github.com/arjunmehra/swiftkart-backend/api/middleware"
	"github.com/arjunmehra/swiftkart-backend/internal/audit"
	"github.com/arjunmehra/swiftkart-backend/internal/documents"
	"github.com/arjunmehra/swiftkart-backend/internal/orders"
	"github.com/arjunmehra/swiftkart-backend/internal/returns"
	"github.com/arjunmehra/swiftkart-backend/internal/users"
	pkgauth "github.com/arjunmehra/swiftkart-backend/pkg/auth"
	"github.com/arjunmehra/swiftkart-backend/pkg/auth/session"
	"github.com/arjunmehra/swiftkart-backend/pkg/config"
	"github.com/arjunmehra/swiftkart-backend/pkg/db"
	"github.com/arjunmehra/swiftkart-backend/pkg/logger"
	"github.com/arjunmehra/swiftkart-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    redis.Pinger
	Verifier pkgauth.TokenVerifier
	Sessions session.AccessSessionChecker
	Users    users.Repository

	Orders    orders.Service
	Returns   returns.Service
	Documents documents.Service
	Audit     audit.Repository

	ShiprocketWebhook controllers.TrackingProcessor
	RazorpayWebhook   controllers.RefundProcessor
	RazorpayVerifier  controllers.WebhookVerifier

	Metrics prometheus.Gatherer
}

// NewRouter assembles the full route tree. Webhook endpoints stay outside
// the authenticated groups; their authenticity comes from signatures and
// the idempotency guard, not bearer tokens.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/shiprocket/tracking", controllers.ShiprocketTracking(deps.ShiprocketWebhook, logg))
		r.Post("/razorpay", controllers.RazorpayRefund(deps.RazorpayVerifier, deps.RazorpayWebhook, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Verifier, deps.Sessions, deps.Users, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(deps.Orders, logg))
			r.Get("/", controllers.ListMyOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.GetMyOrder(deps.Orders, logg))
		})
		r.Post("/payments/confirm", controllers.ConfirmPayment(deps.Orders, logg))

		r.Route("/returns", func(r chi.Router) {
			r.Post("/", controllers.CreateReturn(deps.Returns, logg))
			r.Get("/", controllers.ListMyReturns(deps.Returns, logg))
			r.Get("/{returnId}", controllers.GetMyReturn(deps.Returns, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Verifier, deps.Sessions, deps.Users, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.AdminGetOrder(deps.Orders, logg))
			r.Put("/{orderId}/status", controllers.AdminOverrideOrderStatus(deps.Orders, logg))
			r.Post("/{orderId}/dispatch", controllers.AdminDispatchOrder(deps.Orders, logg))
			r.Get("/{orderId}/documents", controllers.AdminOrderDocuments(deps.Documents, logg))
		})

		r.Route("/returns", func(r chi.Router) {
			r.Get("/", controllers.AdminListReturns(deps.Returns, logg))
			r.Get("/{returnId}", controllers.AdminGetReturn(deps.Returns, logg))
			r.Put("/{returnId}/status", controllers.AdminUpdateReturnStatus(logg))
			r.Post("/{returnId}/exception", controllers.AdminReturnException(deps.Returns, logg))
			r.Post("/{returnId}/notes", controllers.AdminAppendReturnNote(deps.Returns, logg))
			r.Post("/{returnId}/pickup", controllers.AdminSchedulePickup(deps.Returns, logg))
			r.Get("/{returnId}/refund-status", controllers.AdminReturnRefundStatus(deps.Returns, logg))
		})

		r.Route("/webhook-events", func(r chi.Router) {
			r.Get("/", controllers.AdminListWebhookEvents(deps.Audit, logg))
			r.Delete("/", controllers.AdminClearWebhookEvents(deps.Audit, logg))
		})
	})

	return r
}
