package models

import "time"

const (
	SubscriptionStatusActive    = "activa"
	SubscriptionStatusCancelled = "cancelada"
	SubscriptionStatusExpired   = "expirada"
	SubscriptionStatusPending   = "pendiente"
)

// Subscription grants a user access to a membership between StartsAt and
// EndsAt, both inclusive.
type Subscription struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"column:usuario_id;not null;index:idx_suscripciones_usuario_estado,priority:1" json:"usuario_id"`
	MembershipID uint      `gorm:"column:membresia_id;not null;index" json:"membresia_id"`
	StartsAt     time.Time `gorm:"column:fecha_inicio;type:datetime;not null" json:"fecha_inicio"`
	EndsAt       time.Time `gorm:"column:fecha_fin;type:datetime;not null" json:"fecha_fin"`
	Status       string    `gorm:"column:estado;type:varchar(20);not null;default:'pendiente';index:idx_suscripciones_usuario_estado,priority:2" json:"estado"`
}

func (Subscription) TableName() string { return "suscripciones" }

// NewSubscription builds an active subscription starting at start and
// lasting durationDays whole days.
func NewSubscription(userID, membershipID uint, durationDays int, start time.Time) *Subscription {
	return &Subscription{
		UserID:       userID,
		MembershipID: membershipID,
		StartsAt:     start,
		EndsAt:       start.Add(time.Duration(durationDays) * 24 * time.Hour),
		Status:       SubscriptionStatusActive,
	}
}

// IsActiveAt reports whether the subscription grants access at t.
func (s *Subscription) IsActiveAt(t time.Time) bool {
	if s == nil || s.Status != SubscriptionStatusActive {
		return false
	}
	return !t.Before(s.StartsAt) && !t.After(s.EndsAt)
}
