package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/ManuelReschke/Plano3D/app/models"
	"github.com/ManuelReschke/Plano3D/internal/pkg/metrics"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultCurrency = "usd"

// Invalidator drops cached entitlement state after the ledger changed.
type Invalidator interface {
	Invalidate(ctx context.Context, userID uint) error
}

// Config holds the gateway-independent settings of the service.
type Config struct {
	WebhookSecret string
	// Currency is the ISO code used for inline checkout prices.
	Currency string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for subscription windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithInvalidator registers the entitlement cache to clear after a grant.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// Service runs the checkout and webhook reconciliation flows. Ledger writes
// happen only while reconciling a verified webhook.
type Service struct {
	repo          Repository
	gateway       Gateway
	invalidator   Invalidator
	webhookSecret string
	currency      string
	now           func() time.Time
}

// NewService creates a billing service from an injected repository and gateway.
func NewService(repo Repository, gateway Gateway, cfg Config, opts ...Option) *Service {
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	s := &Service{
		repo:          repo,
		gateway:       gateway,
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartCheckout opens a hosted checkout for the caller's chosen membership.
// It writes nothing to the ledger; access is granted when the gateway
// confirms the payment through the webhook.
func (s *Service) StartCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	email := strings.TrimSpace(req.UserEmail)
	if req.UserID == 0 || email == "" {
		return nil, newError(KindValidation, CodeInvalidPayload, "authenticated user id and email are required", nil)
	}
	if req.MembershipID == 0 {
		return nil, newError(KindValidation, CodeInvalidPayload, "membership_id is required", nil)
	}
	if s.gateway == nil {
		return nil, newError(KindInternal, CodeInternal, "payment gateway not configured", nil)
	}

	membership, err := s.repo.FindMembership(ctx, req.MembershipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, CodeMembershipNotFound, "membership not found", err)
		}
		return nil, newError(KindPersistence, CodePersistenceFailed, "cannot load membership", err)
	}

	unitAmount, err := ToMinorUnits(membership.Price)
	if err != nil {
		return nil, newError(KindValidation, CodeInvalidPrice, "membership has an invalid price", err)
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, SessionRequest{
		Item: LineItem{
			Name:        membership.Name,
			Description: membership.Description,
			UnitAmount:  unitAmount,
			Currency:    s.currency,
			PriceRef:    membership.PriceRef(),
		},
		CustomerEmail: email,
		Metadata: Metadata{
			MembershipID:   membership.ID,
			MembershipName: membership.Name,
			UserID:         req.UserID,
			UserEmail:      email,
		},
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		if _, ok := AsError(err); !ok {
			err = newError(KindGateway, CodeGatewayUnavailable, "payment gateway unreachable", err)
		}
		metrics.CheckoutSessions.WithLabelValues(Code(err)).Inc()
		fiberlog.Warnf("billing: checkout for user=%d membership=%d failed: %v", req.UserID, membership.ID, err)
		return nil, err
	}

	metrics.CheckoutSessions.WithLabelValues("created").Inc()
	fiberlog.Infof("billing: checkout session %s created for user=%d membership=%d", sess.ID, req.UserID, membership.ID)
	return sess, nil
}

// HandleStripeWebhook verifies, journals and reconciles one raw delivery.
// Deliveries failing verification are rejected before the store is touched.
func (s *Service) HandleStripeWebhook(ctx context.Context, payload []byte, signatureHeader string) (*ReconcileResult, error) {
	raw, err := VerifyStripeWebhook(payload, signatureHeader, s.webhookSecret)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unverified", string(OutcomeRejected)).Inc()
		return nil, err
	}

	eventType := string(raw.Type)
	started := time.Now()
	defer func() {
		metrics.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(started).Seconds())
	}()

	ev, decodeErr := DecodeEvent(raw)
	objectRef := ""
	if decodeErr == nil {
		objectRef = ev.ObjectRef()
	}

	_, journal, err := s.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: raw.ID,
		EventType:       eventType,
		ObjectRef:       objectRef,
		PayloadJSON:     string(payload),
	})
	if err != nil {
		if _, ignored := ev.(*Unhandled); decodeErr == nil && ignored {
			fiberlog.Warnf("billing: cannot journal ignored event %s (%s): %v", raw.ID, eventType, err)
			metrics.WebhookEvents.WithLabelValues(eventType, string(OutcomeIgnored)).Inc()
			return &ReconcileResult{Status: OutcomeIgnored, EventID: raw.ID, EventType: eventType}, nil
		}
		metrics.WebhookEvents.WithLabelValues(eventType, string(OutcomeRejected)).Inc()
		return nil, newError(KindPersistence, CodePersistenceFailed, "cannot journal webhook event", err)
	}

	var result *ReconcileResult
	if decodeErr != nil {
		err = decodeErr
	} else {
		result, err = s.Reconcile(ctx, ev)
	}

	outcome := string(OutcomeRejected)
	if result != nil {
		outcome = string(result.Status)
	}
	if markErr := s.MarkWebhookProcessed(ctx, journal.ID, outcome, err); markErr != nil {
		fiberlog.Warnf("billing: cannot mark webhook event %s processed: %v", raw.ID, markErr)
	}
	metrics.WebhookEvents.WithLabelValues(eventType, outcome).Inc()

	if err != nil {
		fiberlog.Warnf("billing: webhook event %s (%s) rejected: %v", raw.ID, eventType, err)
		return nil, err
	}
	return result, nil
}

// Reconcile applies a decoded event to the ledgers.
func (s *Service) Reconcile(ctx context.Context, ev Event) (*ReconcileResult, error) {
	switch e := ev.(type) {
	case *CheckoutCompleted:
		return s.reconcileCheckout(ctx, e)
	case *PaymentSucceeded:
		fiberlog.Infof("billing: payment intent %s succeeded (%d %s)", e.PaymentIntentID, e.Amount, e.Currency)
		return &ReconcileResult{Status: OutcomeReceived, EventID: e.ID, EventType: e.EventType()}, nil
	default:
		return &ReconcileResult{Status: OutcomeIgnored, EventID: ev.EventID(), EventType: ev.EventType()}, nil
	}
}

func (s *Service) reconcileCheckout(ctx context.Context, e *CheckoutCompleted) (*ReconcileResult, error) {
	sessionID := strings.TrimSpace(e.SessionID)
	email := strings.TrimSpace(e.CustomerEmail)
	if sessionID == "" {
		return nil, newError(KindValidation, CodeInvalidPayload, "checkout session id is missing", nil)
	}
	if email == "" || strings.TrimSpace(e.Metadata[MetadataMembershipID]) == "" {
		return nil, newError(KindValidation, CodeMissingCorrelation, "customer email and metadata.membresia_id are required", nil)
	}
	meta, err := ParseMetadata(e.Metadata)
	if err != nil {
		return nil, err
	}

	user, err := s.resolveUser(ctx, email, meta.UserID)
	if err != nil {
		return nil, err
	}

	membership, err := s.repo.FindMembership(ctx, meta.MembershipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindValidation, CodeUnknownMembership, "membership referenced by the session does not exist", err)
		}
		return nil, newError(KindPersistence, CodePersistenceFailed, "cannot load membership", err)
	}
	if membership.DurationDays <= 0 {
		return nil, newError(KindValidation, CodeUnknownMembership, "membership has no duration", nil)
	}

	if existing, err := s.repo.FindPaymentByReference(ctx, sessionID); err == nil {
		return duplicateResult(e, existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindPersistence, CodePersistenceFailed, "cannot check payment ledger", err)
	}

	currency := strings.ToUpper(strings.TrimSpace(e.Currency))
	if currency == "" {
		currency = strings.ToUpper(s.currency)
	}
	status := models.PaymentStatusPending
	if e.Paid() {
		status = models.PaymentStatusSucceeded
	}

	// DATETIME columns keep whole seconds; a rounded-up start would hide the
	// new window from lookups made within the same second.
	now := s.now().UTC().Truncate(time.Second)
	result := &ReconcileResult{Status: OutcomeSuccess, EventID: e.ID, EventType: e.EventType()}
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.LockUser(ctx, user.ID); err != nil {
			return err
		}

		sub, err := tx.FindActiveSubscription(ctx, user.ID, now)
		switch {
		case err == nil:
			result.Reused = true
		case errors.Is(err, gorm.ErrRecordNotFound):
			sub = models.NewSubscription(user.ID, membership.ID, membership.DurationDays, now)
			if err := tx.CreateSubscription(ctx, sub); err != nil {
				return err
			}
		default:
			return err
		}

		payment := &models.Payment{
			SubscriptionID:   sub.ID,
			Amount:           FromMinorUnits(e.AmountTotal),
			Currency:         currency,
			Method:           models.PaymentMethodStripe,
			Status:           status,
			GatewayReference: sessionID,
			PaidAt:           now,
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		result.SubscriptionID = sub.ID
		result.PaymentID = payment.ID
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent delivery of the same session committed first.
			existing, findErr := s.repo.FindPaymentByReference(ctx, sessionID)
			if findErr == nil {
				return duplicateResult(e, existing), nil
			}
			return nil, newError(KindPersistence, CodePersistenceFailed, "cannot read concurrently recorded payment", findErr)
		}
		return nil, newError(KindPersistence, CodePersistenceFailed, "cannot record payment", err)
	}

	mode := "new"
	if result.Reused {
		mode = "reused"
	}
	metrics.SubscriptionsGranted.WithLabelValues(mode).Inc()
	fiberlog.Infof("billing: session %s recorded as payment=%d on subscription=%d for user=%d (reused=%t)",
		sessionID, result.PaymentID, result.SubscriptionID, user.ID, result.Reused)

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, user.ID); err != nil {
			fiberlog.Warnf("billing: cannot invalidate entitlement cache for user=%d: %v", user.ID, err)
		}
	}
	return result, nil
}

// resolveUser matches the paying customer by email, falling back to the user
// id echoed in the session metadata.
func (s *Service) resolveUser(ctx context.Context, email string, fallbackID uint) (*models.User, error) {
	user, err := s.repo.FindUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newError(KindPersistence, CodePersistenceFailed, "cannot load user", err)
	}

	if fallbackID != 0 {
		user, err = s.repo.FindUserByID(ctx, fallbackID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindPersistence, CodePersistenceFailed, "cannot load user", err)
		}
	}
	return nil, newError(KindValidation, CodeUnknownUser, "no user matches the checkout session", nil)
}

func duplicateResult(e *CheckoutCompleted, p *models.Payment) *ReconcileResult {
	fiberlog.Infof("billing: session %s already recorded as payment=%d", e.SessionID, p.ID)
	return &ReconcileResult{
		Status:         OutcomeDuplicate,
		EventID:        e.ID,
		EventType:      e.EventType(),
		SubscriptionID: p.SubscriptionID,
		PaymentID:      p.ID,
	}
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		ObjectRef:       strings.TrimSpace(in.ObjectRef),
		PayloadJSON:     in.PayloadJSON,
		Deliveries:      1,
	}
	return s.repo.CreateWebhookEventIfNotExists(ctx, event)
}

// MarkWebhookProcessed stores the outcome of a journaled event and an
// optional processing error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, outcome string, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(ctx, webhookEventID, outcome, errMsg)
}
