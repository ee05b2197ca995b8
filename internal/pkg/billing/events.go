package billing

import (
	"encoding/json"
	"strings"

	"github.com/stripe/stripe-go/v82"
)

// Stripe event types the reconciler acts on.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
)

// Event is a verified gateway notification decoded into one of the variants
// below.
type Event interface {
	EventID() string
	EventType() string
	// ObjectRef is the gateway object the event is about.
	ObjectRef() string
}

// CheckoutCompleted reports that a hosted checkout finished. It is the
// settlement record for a purchase.
type CheckoutCompleted struct {
	ID            string
	SessionID     string
	CustomerEmail string
	AmountTotal   int64
	Currency      string
	PaymentStatus string
	Metadata      map[string]string
}

func (e *CheckoutCompleted) EventID() string   { return e.ID }
func (e *CheckoutCompleted) EventType() string { return EventCheckoutSessionCompleted }
func (e *CheckoutCompleted) ObjectRef() string { return e.SessionID }

// Paid reports whether the gateway marked the session as settled.
func (e *CheckoutCompleted) Paid() bool {
	return e.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid)
}

// PaymentSucceeded is informational; the matching checkout event already
// carries everything needed to grant access.
type PaymentSucceeded struct {
	ID              string
	PaymentIntentID string
	Amount          int64
	Currency        string
	Metadata        map[string]string
}

func (e *PaymentSucceeded) EventID() string   { return e.ID }
func (e *PaymentSucceeded) EventType() string { return EventPaymentIntentSucceeded }
func (e *PaymentSucceeded) ObjectRef() string { return e.PaymentIntentID }

// Unhandled is any other event type. It is acknowledged and ignored.
type Unhandled struct {
	ID   string
	Type string
}

func (e *Unhandled) EventID() string   { return e.ID }
func (e *Unhandled) EventType() string { return e.Type }
func (e *Unhandled) ObjectRef() string { return "" }

// DecodeEvent turns a verified Stripe event into its typed variant.
func DecodeEvent(ev stripe.Event) (Event, error) {
	eventType := string(ev.Type)
	if ev.Data == nil {
		if eventType == EventCheckoutSessionCompleted || eventType == EventPaymentIntentSucceeded {
			return nil, newError(KindValidation, CodeInvalidPayload, "event has no data object", nil)
		}
		return &Unhandled{ID: ev.ID, Type: eventType}, nil
	}

	switch eventType {
	case EventCheckoutSessionCompleted:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
			return nil, newError(KindValidation, CodeInvalidPayload, "cannot decode checkout session", err)
		}
		email := strings.TrimSpace(cs.CustomerEmail)
		if email == "" && cs.CustomerDetails != nil {
			email = strings.TrimSpace(cs.CustomerDetails.Email)
		}
		return &CheckoutCompleted{
			ID:            ev.ID,
			SessionID:     cs.ID,
			CustomerEmail: email,
			AmountTotal:   cs.AmountTotal,
			Currency:      string(cs.Currency),
			PaymentStatus: string(cs.PaymentStatus),
			Metadata:      cs.Metadata,
		}, nil

	case EventPaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, newError(KindValidation, CodeInvalidPayload, "cannot decode payment intent", err)
		}
		return &PaymentSucceeded{
			ID:              ev.ID,
			PaymentIntentID: pi.ID,
			Amount:          pi.Amount,
			Currency:        string(pi.Currency),
			Metadata:        pi.Metadata,
		}, nil

	default:
		return &Unhandled{ID: ev.ID, Type: eventType}, nil
	}
}
