package entitlements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/Plano3D/app/models"
	"github.com/ManuelReschke/Plano3D/internal/pkg/cache"
	"github.com/ManuelReschke/Plano3D/internal/pkg/metrics"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

const DefaultCacheTTL = 60 * time.Second

// generationTTL bounds how long an idle user's invalidation counter lives.
const generationTTL = 24 * time.Hour

// ErrInvalidUser is returned for a zero user id.
var ErrInvalidUser = errors.New("entitlements: user id is required")

// SubscriptionFinder looks up the subscription granting access at a moment.
type SubscriptionFinder interface {
	FindActiveSubscription(ctx context.Context, userID uint, at time.Time) (*models.Subscription, error)
}

// Result answers whether a user currently has access.
type Result struct {
	Active       bool                 `json:"active"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

// IsActive reports whether sub grants access at t: status activa and t within
// [start, end], both ends inclusive.
func IsActive(sub *models.Subscription, t time.Time) bool {
	return sub.IsActiveAt(t)
}

// Option customizes a Checker.
type Option func(*Checker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

// Checker answers entitlement queries from the subscription ledger, caching
// results per user. A nil cache disables caching.
type Checker struct {
	finder SubscriptionFinder
	cache  *cache.Cache
	ttl    time.Duration
	now    func() time.Time
}

// NewChecker creates an entitlement checker.
func NewChecker(finder SubscriptionFinder, c *cache.Cache, ttl time.Duration, opts ...Option) *Checker {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	checker := &Checker{finder: finder, cache: c, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(checker)
	}
	return checker
}

func cacheKey(userID uint) string {
	return fmt.Sprintf("entitlement:user:%d", userID)
}

func generationKey(userID uint) string {
	return fmt.Sprintf("entitlement:gen:%d", userID)
}

// Check returns the entitlement of userID at the current time.
func (c *Checker) Check(ctx context.Context, userID uint) (*Result, error) {
	if userID == 0 {
		return nil, ErrInvalidUser
	}
	now := c.now()

	if cached, ok := c.lookup(ctx, userID, now); ok {
		metrics.EntitlementLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.EntitlementLookups.WithLabelValues("miss").Inc()

	// The generation is read before the ledger so a grant invalidated while
	// the read is in flight cannot be overwritten by the stale answer.
	gen, cacheable := c.generation(ctx, userID)

	res := &Result{}
	sub, err := c.finder.FindActiveSubscription(ctx, userID, now)
	switch {
	case err == nil:
		if IsActive(sub, now) {
			res.Active = true
			res.Subscription = sub
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, err
	}

	if cacheable {
		c.store(ctx, userID, gen, res, now)
	}
	return res, nil
}

// Invalidate drops the cached entitlement of userID and fences off results
// computed by checks that started before the call.
func (c *Checker) Invalidate(ctx context.Context, userID uint) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Bump(ctx, generationKey(userID), generationTTL, cacheKey(userID))
}

func (c *Checker) generation(ctx context.Context, userID uint) (int64, bool) {
	if c.cache == nil {
		return 0, false
	}
	gen, err := c.cache.Generation(ctx, generationKey(userID))
	if err != nil {
		fiberlog.Warnf("entitlements: cache generation for user=%d failed: %v", userID, err)
		return 0, false
	}
	return gen, true
}

func (c *Checker) lookup(ctx context.Context, userID uint, now time.Time) (*Result, bool) {
	if c.cache == nil {
		return nil, false
	}

	var res Result
	if err := c.cache.GetJSON(ctx, cacheKey(userID), &res); err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			fiberlog.Warnf("entitlements: cache read for user=%d failed: %v", userID, err)
		}
		return nil, false
	}
	// A cached grant is re-evaluated so it never outlives the window end.
	if res.Active && !IsActive(res.Subscription, now) {
		return nil, false
	}
	return &res, true
}

func (c *Checker) store(ctx context.Context, userID uint, gen int64, res *Result, now time.Time) {
	ttl := c.ttl
	if res.Active {
		if remaining := res.Subscription.EndsAt.Sub(now); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl < time.Millisecond {
		return
	}

	stored, err := c.cache.SetJSONIfGeneration(ctx, generationKey(userID), gen, cacheKey(userID), res, ttl)
	if err != nil {
		fiberlog.Warnf("entitlements: cache write for user=%d failed: %v", userID, err)
		return
	}
	if !stored {
		fiberlog.Debugf("entitlements: skipped stale cache write for user=%d", userID)
	}
}
