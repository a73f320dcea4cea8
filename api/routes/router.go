package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kashvicreations/kashvi-backend/api/controllers"
	webhookcontrollers "github.com/kashvicreations/kashvi-backend/api/controllers/webhooks"
	"github.com/kashvicreations/kashvi-backend/api/middleware"
	"github.com/kashvicreations/kashvi-backend/internal/guest"
	"github.com/kashvicreations/kashvi-backend/internal/inventory"
	"github.com/kashvicreations/kashvi-backend/internal/orders"
	"github.com/kashvicreations/kashvi-backend/internal/payments"
	"github.com/kashvicreations/kashvi-backend/internal/pricing"
	"github.com/kashvicreations/kashvi-backend/pkg/config"
	"github.com/kashvicreations/kashvi-backend/pkg/db"
	"github.com/kashvicreations/kashvi-backend/pkg/logger"
	"github.com/kashvicreations/kashvi-backend/pkg/redis"
	"github.com/kashvicreations/kashvi-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersSvc orders.Service,
	inventorySvc inventory.Service,
	pricingSvc pricing.Service,
	guestSvc guest.Service,
	razorpaySvc *payments.RazorpayService,
	ccavenueSvc *payments.CCAvenueService,
	stripeClient *stripe.Client,
	stripeWebhookSvc *payments.StripeWebhookService,
	stripeGuard *payments.StripeEventGuard,
) http.Handler {
	var idemStore redis.IdempotencyStore
	if redisClient != nil {
		idemStore = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Gateway post-backs and guest checkout carry no bearer token.
		r.Post("/stripe/webhook", webhookcontrollers.StripeWebhook(stripeWebhookSvc, stripeClient, stripeGuard, logg))
		r.Post("/ccavenue/response-handler", controllers.CCAvenueResponseHandler(ccavenueSvc, logg))

		r.Route("/guest", func(r chi.Router) {
			if redisClient != nil {
				policy := middleware.NewAuthRateLimitPolicy(
					"guest_checkout",
					cfg.Guest.RateLimitWindow,
					cfg.Guest.RateLimitPerIP,
					cfg.Guest.RateLimitPerEmail,
				)
				r.Use(middleware.AuthRateLimit(policy, redisClient, logg))
			}
			r.Use(middleware.Idempotency(idemStore, logg))
			r.Post("/order/place", controllers.PlaceGuestOrder(guestSvc, logg))
			r.Post("/convert-to-user", controllers.ConvertGuestToUser(guestSvc, logg))
		})

		r.Group(func(r chi.Router) {
			// Idempotency scopes its keys per principal, so it sits inside auth.
			r.Use(middleware.Auth(cfg.JWT, logg), middleware.Idempotency(idemStore, logg))
			r.Get("/ping", controllers.PrivatePing())

			r.Route("/user", func(r chi.Router) {
				r.Post("/order/place", controllers.PlaceOrder(ordersSvc, logg))
				r.Get("/orders", controllers.ListOrders(ordersSvc, logg))
				r.Get("/order/{orderId}", controllers.OrderDetail(ordersSvc, logg))
				r.Put("/order/update/{orderId}", controllers.UpdateOrder(ordersSvc, logg))
			})

			r.Route("/rzp", func(r chi.Router) {
				r.Post("/create-order", controllers.CreateRazorpayOrder(razorpaySvc, ordersSvc, logg))
				r.Post("/payment-verification", controllers.VerifyRazorpayPayment(razorpaySvc, ordersSvc, logg))
			})

			r.Route("/ccavenue", func(r chi.Router) {
				r.Post("/create-order", controllers.CreateCCAvenueOrder(ordersSvc, logg))
				r.Post("/request-handler", controllers.CCAvenueRequestHandler(ccavenueSvc, ordersSvc, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Get("/ping", controllers.AdminPing())

				r.Put("/order/{orderId}/update", controllers.AdminUpdateOrder(ordersSvc, logg))

				r.Route("/inventory", func(r chi.Router) {
					r.Get("/", controllers.ListInventory(inventorySvc, logg))
					r.Post("/", controllers.EnsureInventoryItem(inventorySvc, logg))
					r.Get("/alerts", controllers.InventoryAlerts(inventorySvc, logg))
					r.Get("/{inventoryId}/movements", controllers.InventoryMovements(inventorySvc, logg))
					r.Put("/{inventoryId}/movement", controllers.ApplyInventoryMovement(inventorySvc, logg))
					r.Put("/{inventoryId}/thresholds", controllers.UpdateInventoryThresholds(inventorySvc, logg))
				})

				r.Route("/silver-price", func(r chi.Router) {
					r.Get("/", controllers.CurrentSilverPrice(pricingSvc, logg))
					r.Post("/refresh", controllers.RefreshSilverPrice(pricingSvc, logg))
				})
			})
		})
	})

	return r
}
