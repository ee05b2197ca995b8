package billing

import (
	"context"
	"errors"

	"github.com/ManuelReschke/Plano3D/app/models"
	"gorm.io/gorm"
)

const dashboardPaymentLimit = 5

// Dashboard summarizes a user's current access and latest payments.
type Dashboard struct {
	Subscription   *models.Subscription `json:"subscription"`
	Membership     *models.Membership   `json:"membership"`
	RecentPayments []models.Payment     `json:"recent_payments"`
}

// Dashboard loads the active subscription of userID with its membership and
// most recent payments. A user without access gets an empty dashboard.
func (s *Service) Dashboard(ctx context.Context, userID uint) (*Dashboard, error) {
	if userID == 0 {
		return nil, newError(KindValidation, CodeInvalidPayload, "user id is required", nil)
	}

	d := &Dashboard{RecentPayments: []models.Payment{}}
	sub, err := s.repo.FindActiveSubscription(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return d, nil
		}
		return nil, newError(KindPersistence, CodePersistenceFailed, "cannot load subscription", err)
	}
	d.Subscription = sub

	membership, err := s.repo.FindMembership(ctx, sub.MembershipID)
	switch {
	case err == nil:
		d.Membership = membership
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, newError(KindPersistence, CodePersistenceFailed, "cannot load membership", err)
	}

	payments, err := s.repo.ListRecentPayments(ctx, sub.ID, dashboardPaymentLimit)
	if err != nil {
		return nil, newError(KindPersistence, CodePersistenceFailed, "cannot load payments", err)
	}
	if payments != nil {
		d.RecentPayments = payments
	}
	return d, nil
}
