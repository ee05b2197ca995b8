package models

import "time"

// User is the billing view of an account. Credentials and profile data are
// owned by the identity service; billing only reads id, name and email.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"column:nombre;type:varchar(100);not null" json:"nombre"`
	Email     string    `gorm:"column:correo;type:varchar(191);not null;uniqueIndex" json:"correo"`
	CreatedAt time.Time `gorm:"column:fecha_creacion;autoCreateTime" json:"fecha_creacion"`
}

func (User) TableName() string { return "usuarios" }
