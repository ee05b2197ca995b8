package models

import "time"

const (
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusPending   = "pending"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

const PaymentMethodStripe = "stripe"

// Payment is one settled charge recorded against a subscription. The gateway
// reference is unique: a gateway session can be recorded at most once.
type Payment struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SubscriptionID   uint      `gorm:"column:suscripcion_id;not null;index" json:"suscripcion_id"`
	Amount           float64   `gorm:"column:monto;type:decimal(10,2);not null" json:"monto"`
	Currency         string    `gorm:"column:moneda;type:varchar(3);not null" json:"moneda"`
	Method           string    `gorm:"column:metodo;type:varchar(50);not null" json:"metodo"`
	Status           string    `gorm:"column:estado;type:varchar(20);not null;default:'pending'" json:"estado"`
	GatewayReference string    `gorm:"column:referencia_pasarela;type:varchar(191);uniqueIndex:ux_pagos_referencia_pasarela" json:"referencia_pasarela"`
	PaidAt           time.Time `gorm:"column:fecha_pago;type:datetime;not null" json:"fecha_pago"`
}

func (Payment) TableName() string { return "pagos" }
