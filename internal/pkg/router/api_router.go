package router

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/Plano3D/app/controllers"
	"github.com/ManuelReschke/Plano3D/internal/pkg/usercontext"
)

// ApiRouter wires the /api/v1 billing surface.
type ApiRouter struct {
	Auth           fiber.Handler
	Billing        *controllers.BillingController
	Memberships    *controllers.MembershipController
	Entitlements   *controllers.EntitlementController
	CheckoutLimit  int
	// LimiterStorage holds the checkout counters. Nil keeps them in memory,
	// per process.
	LimiterStorage fiber.Storage
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Stripe retries on its own schedule, so the webhook is not rate limited.
	v1.Post("/webhook", h.Billing.HandleStripeWebhook)

	v1.Post("/checkout-session", h.Auth, checkoutLimiter(h.CheckoutLimit, h.LimiterStorage), h.Billing.HandleCreateCheckoutSession)
	v1.Get("/dashboard", h.Auth, h.Billing.HandleDashboard)

	v1.Get("/entitlement/:user_id", h.Entitlements.HandleGetEntitlement)
	v1.Get("/memberships", h.Memberships.HandleList)
	v1.Get("/memberships/:id", h.Memberships.HandleGet)
}

// checkoutLimiter throttles session creation per authenticated user, falling
// back to the client address.
func checkoutLimiter(perMinute int, storage fiber.Storage) fiber.Handler {
	if perMinute <= 0 {
		perMinute = 10
	}
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id := usercontext.GetUserID(c); id != 0 {
				return "user:" + strconv.FormatUint(uint64(id), 10)
			}
			return "ip:" + controllers.ClientIP(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many checkout attempts, try again later",
			})
		},
	})
}

func NewApiRouter(auth fiber.Handler, billing *controllers.BillingController, memberships *controllers.MembershipController, ents *controllers.EntitlementController, checkoutLimit int, limiterStorage fiber.Storage) *ApiRouter {
	return &ApiRouter{
		Auth:           auth,
		Billing:        billing,
		Memberships:    memberships,
		Entitlements:   ents,
		CheckoutLimit:  checkoutLimit,
		LimiterStorage: limiterStorage,
	}
}
