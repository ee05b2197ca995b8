package controllers

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/Plano3D/internal/pkg/billing"
	"github.com/ManuelReschke/Plano3D/internal/pkg/usercontext"
)

const (
	DefaultWebhookBodyLimit = 64 * 1024
	webhookTimeout          = 15 * time.Second
)

// BillingService is the part of billing.Service the HTTP layer drives.
type BillingService interface {
	StartCheckout(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error)
	HandleStripeWebhook(ctx context.Context, payload []byte, signatureHeader string) (*billing.ReconcileResult, error)
	Dashboard(ctx context.Context, userID uint) (*billing.Dashboard, error)
}

// CheckoutSessionRequest is the body of POST /checkout-session.
type CheckoutSessionRequest struct {
	MembershipID uint `json:"membership_id" validate:"required,gt=0"`
}

// BillingController exposes checkout, webhook and dashboard endpoints.
type BillingController struct {
	service          BillingService
	validate         *validator.Validate
	webhookBodyLimit int
}

// NewBillingController creates a billing controller. A non-positive limit
// falls back to DefaultWebhookBodyLimit.
func NewBillingController(service BillingService, webhookBodyLimit int) *BillingController {
	if webhookBodyLimit <= 0 {
		webhookBodyLimit = DefaultWebhookBodyLimit
	}
	return &BillingController{
		service:          service,
		validate:         validator.New(),
		webhookBodyLimit: webhookBodyLimit,
	}
}

// HandleCreateCheckoutSession starts a hosted checkout for the authenticated user.
func (bc *BillingController) HandleCreateCheckoutSession(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return respondStatus(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	var req CheckoutSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, billing.CodeInvalidPayload, "Request body must be JSON with membership_id")
	}
	if err := bc.validate.Struct(req); err != nil {
		return respondStatus(c, fiber.StatusUnprocessableEntity, billing.CodeInvalidPayload, "membership_id must be a positive integer")
	}

	sess, err := bc.service.StartCheckout(c.UserContext(), billing.CheckoutRequest{
		UserID:       userCtx.UserID,
		UserEmail:    userCtx.Email,
		MembershipID: req.MembershipID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sess)
}

// HandleStripeWebhook reconciles one Stripe delivery. The raw body is passed
// through untouched because the signature covers its exact bytes.
func (bc *BillingController) HandleStripeWebhook(c *fiber.Ctx) error {
	if c.Request().Header.ContentLength() > bc.webhookBodyLimit || len(c.Body()) > bc.webhookBodyLimit {
		return respondStatus(c, fiber.StatusRequestEntityTooLarge, billing.CodeInvalidPayload, "Webhook payload too large")
	}

	payload := append([]byte(nil), c.Body()...)
	signature := c.Get(billing.StripeSignatureHeader)

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	result, err := bc.service.HandleStripeWebhook(ctx, payload, signature)
	if err != nil {
		if billing.HTTPStatus(err) < fiber.StatusInternalServerError {
			fiberlog.Warnf("webhook from %s rejected: %v", ClientIP(c), err)
		}
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleDashboard returns the caller's active subscription and recent payments.
func (bc *BillingController) HandleDashboard(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return respondStatus(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
	}

	d, err := bc.service.Dashboard(c.UserContext(), userCtx.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":     userCtx.UserID,
			"nombre": userCtx.Name,
			"correo": userCtx.Email,
		},
		"subscription":    d.Subscription,
		"membership":      d.Membership,
		"recent_payments": d.RecentPayments,
	})
}
