package billing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

const defaultGatewayTimeout = 15 * time.Second

// Gateway creates hosted checkout sessions at a payment provider.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*CheckoutSession, error)
}

// StripeConfig configures the Stripe-backed gateway.
type StripeConfig struct {
	SecretKey  string
	SuccessURL string
	CancelURL  string
	Timeout    time.Duration
	// APIURL overrides the Stripe API base URL (tests, stripe-mock).
	APIURL string
}

// StripeGateway is the Gateway implementation backed by Stripe Checkout. It
// holds its own client instead of relying on the package-level stripe.Key.
type StripeGateway struct {
	sessions   *session.Client
	successURL string
	cancelURL  string
	timeout    time.Duration
}

// NewStripeGateway builds a gateway with a bounded HTTP timeout and SDK
// retries disabled; checkout creation is never retried.
func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		EnableTelemetry:   stripe.Bool(false),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if u := strings.TrimSpace(cfg.APIURL); u != "" {
		backendCfg.URL = stripe.String(u)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	return &StripeGateway{
		sessions:   &session.Client{B: backend, Key: cfg.SecretKey},
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		timeout:    timeout,
	}
}

// CreateCheckoutSession submits a one-off payment checkout for a single item.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	metadata := req.Metadata.Map()
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CustomerEmail:      stripe.String(req.CustomerEmail),
		SuccessURL:         stripe.String(g.successURL),
		CancelURL:          stripe.String(g.cancelURL),
		LineItems:          []*stripe.CheckoutSessionLineItemParams{lineItemParams(req.Item)},
		Metadata:           metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: req.Metadata.Map(),
		},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	s, err := g.sessions.New(params)
	if err != nil {
		return nil, mapGatewayError(err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func lineItemParams(item LineItem) *stripe.CheckoutSessionLineItemParams {
	if item.PriceRef != "" {
		return &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(item.PriceRef),
			Quantity: stripe.Int64(1),
		}
	}

	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(item.Name),
	}
	if strings.TrimSpace(item.Description) != "" {
		product.Description = stripe.String(item.Description)
	}
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:    stripe.String(item.Currency),
			ProductData: product,
			UnitAmount:  stripe.Int64(item.UnitAmount),
		},
		Quantity: stripe.Int64(1),
	}
}

// mapGatewayError translates Stripe and transport failures into the billing
// error taxonomy.
func mapGatewayError(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return newError(KindGateway, CodeGatewayUnavailable, "payment gateway unreachable", err)
	}

	msg := se.Msg
	if msg == "" {
		msg = "payment gateway error"
	}

	switch {
	case se.Type == stripe.ErrorTypeCard:
		return newError(KindGateway, CodeCardDeclined, msg, err)
	case se.HTTPStatusCode == http.StatusTooManyRequests || se.Code == stripe.ErrorCodeRateLimit:
		return newError(KindGateway, CodeRateLimited, msg, err)
	case se.HTTPStatusCode == http.StatusUnauthorized || se.HTTPStatusCode == http.StatusForbidden:
		return newError(KindGateway, CodeAuthenticationFailed, msg, err)
	case se.HTTPStatusCode >= http.StatusInternalServerError || se.Type == stripe.ErrorTypeAPI:
		return newError(KindGateway, CodeGatewayUnavailable, msg, err)
	case se.Type == stripe.ErrorTypeInvalidRequest:
		return newError(KindGateway, CodeInvalidRequest, msg, err)
	default:
		return newError(KindGateway, CodeGatewayUnavailable, msg, err)
	}
}
