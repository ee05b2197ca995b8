package billing

import (
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeSignatureHeader carries the timestamped HMAC of a Stripe delivery.
const StripeSignatureHeader = "Stripe-Signature"

// VerifyStripeWebhook checks the signature of a raw delivery and parses the
// event envelope. Any failure is an authenticity error: the caller must not
// touch the store.
func VerifyStripeWebhook(payload []byte, signatureHeader, webhookSecret string) (stripe.Event, error) {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" {
		return stripe.Event{}, newError(KindAuthenticity, CodeInvalidSignature, "missing signature header", nil)
	}
	if secret == "" {
		return stripe.Event{}, newError(KindAuthenticity, CodeInvalidSignature, "webhook secret not configured", nil)
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, newError(KindAuthenticity, CodeInvalidSignature, "signature verification failed", err)
	}
	return event, nil
}
