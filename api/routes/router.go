package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/eshop-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/eshop-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/eshop-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/eshop-backend/api/controllers/webhooks"
	"github.com/angelmondragon/eshop-backend/api/middleware"
	"github.com/angelmondragon/eshop-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/eshop-backend/internal/checkout"
	"github.com/angelmondragon/eshop-backend/internal/orders"
	stripewebhook "github.com/angelmondragon/eshop-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/eshop-backend/pkg/config"
	"github.com/angelmondragon/eshop-backend/pkg/enums"
	"github.com/angelmondragon/eshop-backend/pkg/logger"
	"github.com/angelmondragon/eshop-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/eshop-backend/pkg/redis"
	pkgstripe "github.com/angelmondragon/eshop-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	idempotencyStore pkgredis.IdempotencyStore,
	accounts middleware.AccountLoader,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	stripeClient *pkgstripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(map[string]controllers.Pinger{"db": dbP, "redis": redisP}, logg))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/webhook-checkout", stripeWebhookHandler(stripeClient, stripeWebhookService, stripeWebhookGuard, logg))

	idempotent := middleware.Idempotency(idempotencyStore, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, accounts, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleUser))
			r.With(idempotent).Post("/", cartcontrollers.AddItem(cartService, logg))
			r.Get("/", cartcontrollers.Get(cartService, logg))
			r.Delete("/", cartcontrollers.Clear(cartService, logg))
			r.With(idempotent).Put("/applyCoupon", cartcontrollers.ApplyCoupon(cartService, logg))
			r.Put("/{itemId}", cartcontrollers.UpdateItem(cartService, logg))
			r.Delete("/{itemId}", cartcontrollers.RemoveItem(cartService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleUser, enums.UserRoleAdmin, enums.UserRoleManager))
				r.Get("/", ordercontrollers.List(ordersService, logg))
				r.Get("/{id}", ordercontrollers.Detail(ordersService, logg))
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleUser))
				r.Get("/checkout-session/{cartId}", ordercontrollers.CheckoutSession(checkoutService, logg))
				r.With(idempotent).Post("/{id}", ordercontrollers.CreateCashOrder(checkoutService, logg))
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleManager))
				r.Put("/{id}/pay", ordercontrollers.MarkPaid(ordersService, logg))
				r.Put("/{id}/deliver", ordercontrollers.MarkDelivered(ordersService, logg))
			})
		})
	})

	return r
}

// stripeWebhookHandler keeps unset dependencies as untyped nils so the
// controller answers 500 instead of dereferencing them.
func stripeWebhookHandler(client *pkgstripe.Client, svc *stripewebhook.Service, guard *stripewebhook.IdempotencyGuard, logg *logger.Logger) http.HandlerFunc {
	var (
		service  webhookcontrollers.StripeWebhookService
		verifier webhookcontrollers.SigningSecretProvider
		dedupe   webhookcontrollers.StripeWebhookGuard
	)
	if svc != nil {
		service = svc
	}
	if client != nil {
		verifier = client
	}
	if guard != nil {
		dedupe = guard
	}
	return webhookcontrollers.StripeWebhook(service, verifier, dedupe, logg)
}
