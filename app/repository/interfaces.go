package repository

import (
	"context"

	"github.com/ManuelReschke/Plano3D/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the read operations billing needs on accounts
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// MembershipRepository defines the catalog read operations
type MembershipRepository interface {
	List(ctx context.Context) ([]models.Membership, error)
	GetByID(ctx context.Context, id uint) (*models.Membership, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User       UserRepository
	Membership MembershipRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Membership: NewMembershipRepository(db),
	}
}
