package billing

// CheckoutRequest is what the initiator needs from an authenticated caller.
// Email and user id come from the verified identity, never from the body.
type CheckoutRequest struct {
	UserID       uint
	UserEmail    string
	MembershipID uint
}

// CheckoutSession is the gateway-hosted payment page handed back to clients.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// LineItem describes the single product sold by a checkout session. When
// PriceRef is set the gateway's stored price is used and the inline amount
// fields are ignored.
type LineItem struct {
	Name        string
	Description string
	UnitAmount  int64
	Currency    string
	PriceRef    string
}

// SessionRequest is the provider-neutral checkout request passed to a Gateway.
type SessionRequest struct {
	Item           LineItem
	CustomerEmail  string
	Metadata       Metadata
	IdempotencyKey string
}

// Outcome is the status reported back to the webhook sender.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeReceived  Outcome = "received"
	OutcomeRejected  Outcome = "rejected"
)

// ReconcileResult is the acknowledgement body of a processed webhook.
type ReconcileResult struct {
	Status         Outcome `json:"status"`
	EventID        string  `json:"event_id,omitempty"`
	EventType      string  `json:"event_type,omitempty"`
	SubscriptionID uint    `json:"subscription_id,omitempty"`
	PaymentID      uint    `json:"payment_id,omitempty"`
	Reused         bool    `json:"reused,omitempty"`
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	ObjectRef       string
	PayloadJSON     string
}
