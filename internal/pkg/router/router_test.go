package router

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/Plano3D/app/controllers"
	"github.com/ManuelReschke/Plano3D/app/models"
	"github.com/ManuelReschke/Plano3D/internal/pkg/billing"
	"github.com/ManuelReschke/Plano3D/internal/pkg/cache"
	"github.com/ManuelReschke/Plano3D/internal/pkg/entitlements"
	"github.com/ManuelReschke/Plano3D/internal/pkg/usercontext"
)

type fakeBilling struct{}

func (fakeBilling) StartCheckout(context.Context, billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	return &billing.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/pay/cs_1"}, nil
}

func (fakeBilling) HandleStripeWebhook(context.Context, []byte, string) (*billing.ReconcileResult, error) {
	return &billing.ReconcileResult{Status: billing.OutcomeIgnored}, nil
}

func (fakeBilling) Dashboard(context.Context, uint) (*billing.Dashboard, error) {
	return &billing.Dashboard{RecentPayments: []models.Payment{}}, nil
}

type fakeChecker struct{}

func (fakeChecker) Check(context.Context, uint) (*entitlements.Result, error) {
	return &entitlements.Result{}, nil
}

type fakeMemberships struct{}

func (fakeMemberships) List(context.Context) ([]models.Membership, error) {
	return []models.Membership{}, nil
}

func (fakeMemberships) GetByID(context.Context, uint) (*models.Membership, error) {
	return &models.Membership{ID: 1}, nil
}

// headerAuth treats any request carrying X-Test-User as user 7.
func headerAuth(c *fiber.Ctx) error {
	if c.Get("X-Test-User") == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	usercontext.Set(c, usercontext.UserContext{UserID: 7, Email: "ana@example.com", IsLoggedIn: true})
	return c.Next()
}

func newTestApp(checkoutLimit int, limiterStorage fiber.Storage) *fiber.App {
	app := fiber.New()
	health := controllers.NewHealthController(map[string]controllers.HealthCheck{
		"db": func(context.Context) error { return nil },
	})
	api := NewApiRouter(
		headerAuth,
		controllers.NewBillingController(fakeBilling{}, 0),
		controllers.NewMembershipController(fakeMemberships{}),
		controllers.NewEntitlementController(fakeChecker{}),
		checkoutLimit,
		limiterStorage,
	)
	InstallRouter(app, NewOpsRouter(health, true), api)
	return app
}

func TestRoutes(t *testing.T) {
	app := newTestApp(10, nil)

	tests := []struct {
		method string
		path   string
		body   string
		auth   bool
		status int
	}{
		{"POST", "/api/v1/webhook", `{}`, false, fiber.StatusOK},
		{"POST", "/api/v1/checkout-session", `{"membership_id":1}`, false, fiber.StatusUnauthorized},
		{"POST", "/api/v1/checkout-session", `{"membership_id":1}`, true, fiber.StatusOK},
		{"GET", "/api/v1/dashboard", "", false, fiber.StatusUnauthorized},
		{"GET", "/api/v1/dashboard", "", true, fiber.StatusOK},
		{"GET", "/api/v1/entitlement/7", "", false, fiber.StatusOK},
		{"GET", "/api/v1/memberships", "", false, fiber.StatusOK},
		{"GET", "/api/v1/memberships/1", "", false, fiber.StatusOK},
		{"GET", "/healthz", "", false, fiber.StatusOK},
		{"GET", "/metrics", "", false, fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.auth {
				req.Header.Set("X-Test-User", "7")
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func postCheckout(t *testing.T, app *fiber.App) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/checkout-session", strings.NewReader(`{"membership_id":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", "7")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestCheckoutRateLimit(t *testing.T) {
	app := newTestApp(2, nil)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		statuses = append(statuses, postCheckout(t, app))
	}
	assert.Equal(t, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}, statuses)
}

func TestCheckoutRateLimitIsSharedAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	storage, err := cache.NewStorage(cache.Config{Host: mr.Host(), Port: mr.Port()}, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	first := newTestApp(2, storage)
	second := newTestApp(2, storage)

	assert.Equal(t, fiber.StatusOK, postCheckout(t, first))
	assert.Equal(t, fiber.StatusOK, postCheckout(t, second))
	assert.Equal(t, fiber.StatusTooManyRequests, postCheckout(t, first))
	assert.Equal(t, fiber.StatusTooManyRequests, postCheckout(t, second))
}
