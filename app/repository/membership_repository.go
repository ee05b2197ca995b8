package repository

import (
	"context"

	"github.com/ManuelReschke/Plano3D/app/models"
	"gorm.io/gorm"
)

// membershipRepository implements the MembershipRepository interface
type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new membership repository instance
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

// List returns the whole catalog, cheapest first
func (r *membershipRepository) List(ctx context.Context) ([]models.Membership, error) {
	var memberships []models.Membership
	err := r.db.WithContext(ctx).Order("precio ASC").Order("id ASC").Find(&memberships).Error
	return memberships, err
}

// GetByID retrieves a membership by its ID
func (r *membershipRepository) GetByID(ctx context.Context, id uint) (*models.Membership, error) {
	var m models.Membership
	err := r.db.WithContext(ctx).First(&m, id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
