package repository

import (
	"context"

	"storefront-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AffiliateRepository defines the interface for affiliate data access.
type AffiliateRepository interface {
	Create(ctx context.Context, affiliate *models.Affiliate) error
	FindByCode(ctx context.Context, code string) (*models.Affiliate, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Affiliate, error)
	CreditEarnings(ctx context.Context, id uuid.UUID, amount int) error
}

// GormAffiliateRepository implements AffiliateRepository using GORM.
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewGormAffiliateRepository creates a new GormAffiliateRepository.
func NewGormAffiliateRepository(db *gorm.DB) AffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// Create inserts a new affiliate. The unique index on user_id makes a
// concurrent double enrollment surface as a constraint error.
func (r *GormAffiliateRepository) Create(ctx context.Context, affiliate *models.Affiliate) error {
	return r.db.WithContext(ctx).Create(affiliate).Error
}

// FindByCode retrieves an affiliate by referral code.
func (r *GormAffiliateRepository) FindByCode(ctx context.Context, code string) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&affiliate).Error; err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// FindByUserID retrieves the affiliate identity of a user.
func (r *GormAffiliateRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&affiliate).Error; err != nil {
		return nil, err
	}
	return &affiliate, nil
}

// CreditEarnings atomically increments balance and total_earnings.
// A single UPDATE expression keeps concurrent settlements for the
// same affiliate from losing increments.
func (r *GormAffiliateRepository) CreditEarnings(ctx context.Context, id uuid.UUID, amount int) error {
	return r.db.WithContext(ctx).
		Model(&models.Affiliate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"balance":        gorm.Expr("balance + ?", amount),
			"total_earnings": gorm.Expr("total_earnings + ?", amount),
		}).Error
}
