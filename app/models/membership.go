package models

import "strings"

// Membership is a purchasable plan of the catalog. Price is expressed in
// major currency units; DurationDays is the length of the access window a
// single payment grants.
type Membership struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	Name          string  `gorm:"column:nombre;type:varchar(100);not null" json:"nombre"`
	Price         float64 `gorm:"column:precio;type:decimal(10,2);not null" json:"precio"`
	DurationDays  int     `gorm:"column:duracion;not null" json:"duracion"`
	Description   string  `gorm:"column:descripcion;type:text" json:"descripcion"`
	StripePriceID *string `gorm:"column:stripe_price_id;type:varchar(191);default:null" json:"stripe_price_id,omitempty"`
}

func (Membership) TableName() string { return "membresias" }

// PriceRef returns the pre-created gateway price, or "" when the catalog
// entry has to be sold with inline price data.
func (m *Membership) PriceRef() string {
	if m.StripePriceID == nil {
		return ""
	}
	return strings.TrimSpace(*m.StripePriceID)
}
