package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kineticlab/physio-academy-backend/api/controllers"
	webhookcontrollers "github.com/kineticlab/physio-academy-backend/api/controllers/webhooks"
	"github.com/kineticlab/physio-academy-backend/api/middleware"
	checkoutsvc "github.com/kineticlab/physio-academy-backend/internal/checkout"
	"github.com/kineticlab/physio-academy-backend/internal/courses"
	"github.com/kineticlab/physio-academy-backend/internal/plans"
	"github.com/kineticlab/physio-academy-backend/internal/promocodes"
	"github.com/kineticlab/physio-academy-backend/internal/subscriptions"
	stripewebhook "github.com/kineticlab/physio-academy-backend/internal/webhooks/stripe"
	"github.com/kineticlab/physio-academy-backend/pkg/config"
	"github.com/kineticlab/physio-academy-backend/pkg/db"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
	"github.com/kineticlab/physio-academy-backend/pkg/redis"
)

const (
	promoValidateWindow = time.Minute
	promoValidateLimit  = 20
)

// Services bundles everything the HTTP surface dispatches to. Nil entries
// produce INTERNAL errors on their routes rather than panics.
type Services struct {
	Catalog       *plans.Catalog
	Promos        *promocodes.Service
	Checkout      checkoutsvc.Service
	Status        subscriptions.StatusService
	Courses       courses.Service
	StripeWebhook *stripewebhook.Service
	WebhookGuard  *stripewebhook.IdempotencyGuard
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["db"] = dbP
	}
	if redisClient != nil {
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	authed := middleware.Auth(cfg.JWT, logg)
	idempotency := passthrough
	rateLimit := passthrough
	if redisClient != nil {
		idempotency = middleware.Idempotency(redisClient, cfg.Billing.IdempotencyTTL, logg)
		rateLimit = middleware.RateLimit(middleware.NewRateLimitPolicy("promo-validate", promoValidateWindow, promoValidateLimit), redisClient, logg)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", controllers.ListPlans(svcs.Catalog, logg))

		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(webhookService(svcs.StripeWebhook), cfg.Stripe.Secret, webhookGuard(svcs.WebhookGuard), logg))

		r.With(middleware.OptionalAuth(cfg.JWT, logg)).Get("/subscriptions/status", controllers.SubscriptionStatus(svcs.Status, logg))

		r.Group(func(r chi.Router) {
			r.Use(authed)

			r.With(rateLimit).Post("/promo-codes/validate", controllers.ValidatePromoCode(promoPreviewer(svcs.Promos), logg))
			r.With(idempotency).Post("/checkout", controllers.Checkout(svcs.Checkout, logg))

			loc := cfg.Billing.Location()
			r.Get("/courses/{courseID}/lessons/access", controllers.LessonAccess(svcs.Courses, loc, logg))
			r.Get("/packages/{packageID}/courses/access", controllers.PackageAccess(svcs.Courses, loc, logg))
		})
	})

	return r
}

func passthrough(next http.Handler) http.Handler { return next }

// The helpers below keep typed nil pointers from becoming non-nil interfaces.

func webhookService(svc *stripewebhook.Service) webhookcontrollers.StripeWebhookService {
	if svc == nil {
		return nil
	}
	return svc
}

func webhookGuard(g *stripewebhook.IdempotencyGuard) webhookcontrollers.StripeWebhookGuard {
	if g == nil {
		return nil
	}
	return g
}

func promoPreviewer(svc *promocodes.Service) controllers.PromoPreviewer {
	if svc == nil {
		return nil
	}
	return svc
}
