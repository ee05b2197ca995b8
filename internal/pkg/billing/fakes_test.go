package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ManuelReschke/Plano3D/app/models"
	"gorm.io/gorm"
)

// memoryStore is the shared state behind memoryRepository. Transactions are
// serialized and rolled back by removing the rows they created.
type memoryStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	nextID        uint
	users         map[uint]*models.User
	memberships   map[uint]*models.Membership
	subscriptions []*models.Subscription
	payments      []*models.Payment
	events        []*models.BillingWebhookEvent

	ledgerReads  int
	ledgerWrites int

	// beforeCreatePayment runs with mu held before the uniqueness check.
	beforeCreatePayment func(s *memoryStore)
	failCreatePayment   error
	failJournal         error
	// secondPrecision rounds stored datetimes to whole seconds like a
	// MySQL DATETIME column does.
	secondPrecision bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextID:      100,
		users:       map[uint]*models.User{},
		memberships: map[uint]*models.Membership{},
	}
}

func (s *memoryStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memoryStore) addUser(u *models.User)             { s.users[u.ID] = u }
func (s *memoryStore) addMembership(m *models.Membership) { s.memberships[m.ID] = m }

func (s *memoryStore) subscriptionsFor(userID uint) []*models.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Subscription
	for _, sub := range s.subscriptions {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out
}

func (s *memoryStore) paymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

type memoryRepository struct {
	store   *memoryStore
	created *[]interface{}
}

func newMemoryRepository(store *memoryStore) *memoryRepository {
	return &memoryRepository{store: store}
}

func (r *memoryRepository) track(row interface{}) {
	if r.created != nil {
		*r.created = append(*r.created, row)
	}
}

func (r *memoryRepository) FindMembership(_ context.Context, id uint) (*models.Membership, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.ledgerReads++
	m, ok := r.store.memberships[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memoryRepository) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.ledgerReads++
	for _, u := range r.store.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryRepository) FindUserByID(_ context.Context, id uint) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.ledgerReads++
	u, ok := r.store.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryRepository) LockUser(_ context.Context, userID uint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[userID]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *memoryRepository) FindPaymentByReference(_ context.Context, reference string) (*models.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.ledgerReads++
	for _, p := range r.store.payments {
		if p.GatewayReference == reference {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryRepository) FindActiveSubscription(_ context.Context, userID uint, at time.Time) (*models.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.ledgerReads++
	var best *models.Subscription
	for _, sub := range r.store.subscriptions {
		if sub.UserID != userID || !sub.IsActiveAt(at) {
			continue
		}
		if best == nil || sub.EndsAt.After(best.EndsAt) {
			best = sub
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *memoryRepository) CreateSubscription(_ context.Context, sub *models.Subscription) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.ledgerWrites++
	sub.ID = r.store.id()
	row := *sub
	if r.store.secondPrecision {
		row.StartsAt = row.StartsAt.Round(time.Second)
		row.EndsAt = row.EndsAt.Round(time.Second)
	}
	r.store.subscriptions = append(r.store.subscriptions, &row)
	r.track(&row)
	return nil
}

func (r *memoryRepository) CreatePayment(_ context.Context, payment *models.Payment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.ledgerWrites++
	if r.store.beforeCreatePayment != nil {
		r.store.beforeCreatePayment(r.store)
	}
	if r.store.failCreatePayment != nil {
		return r.store.failCreatePayment
	}
	for _, p := range r.store.payments {
		if p.GatewayReference == payment.GatewayReference {
			return gorm.ErrDuplicatedKey
		}
	}
	payment.ID = r.store.id()
	row := *payment
	r.store.payments = append(r.store.payments, &row)
	r.track(&row)
	return nil
}

func (r *memoryRepository) ListRecentPayments(_ context.Context, subscriptionID uint, limit int) ([]models.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Payment
	for _, p := range r.store.payments {
		if p.SubscriptionID == subscriptionID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepository) CreateWebhookEventIfNotExists(_ context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failJournal != nil {
		return false, nil, r.store.failJournal
	}
	for _, e := range r.store.events {
		if e.Provider == event.Provider && e.ProviderEventID == event.ProviderEventID {
			e.Deliveries++
			cp := *e
			return false, &cp, nil
		}
	}
	event.ID = r.store.id()
	row := *event
	r.store.events = append(r.store.events, &row)
	cp := row
	return true, &cp, nil
}

func (r *memoryRepository) MarkWebhookProcessed(_ context.Context, id uint, outcome, processingError string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.Outcome = outcome
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *memoryRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()

	var created []interface{}
	tx := &memoryRepository{store: r.store, created: &created}
	if err := fn(tx); err != nil {
		r.rollback(created)
		return err
	}
	return nil
}

func (r *memoryRepository) rollback(created []interface{}) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, row := range created {
		switch v := row.(type) {
		case *models.Subscription:
			r.store.subscriptions = removeRow(r.store.subscriptions, v)
		case *models.Payment:
			r.store.payments = removeRow(r.store.payments, v)
		}
	}
}

func removeRow[T any](rows []*T, target *T) []*T {
	out := rows[:0]
	for _, row := range rows {
		if row != target {
			out = append(out, row)
		}
	}
	return out
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []SessionRequest
	session  *CheckoutSession
	err      error
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req SessionRequest) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	if g.session != nil {
		return g.session, nil
	}
	return &CheckoutSession{ID: "cs_test_generated", URL: "https://checkout.stripe.com/c/pay/cs_test_generated"}, nil
}

type fakeInvalidator struct {
	mu    sync.Mutex
	users []uint
}

func (f *fakeInvalidator) Invalidate(_ context.Context, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return nil
}
