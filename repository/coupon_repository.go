package repository

import (
	"context"
	"strings"

	"storefront-backend/models"

	"gorm.io/gorm"
)

// CouponRepository defines the interface for coupon data access.
type CouponRepository interface {
	Create(ctx context.Context, coupon *models.Coupon) error
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindFeatured(ctx context.Context) (*models.Coupon, error)
	IncrementUsedCount(ctx context.Context, code string) error
}

// GormCouponRepository implements CouponRepository using GORM.
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository.
func NewGormCouponRepository(db *gorm.DB) CouponRepository {
	return &GormCouponRepository{db: db}
}

// Create inserts a new coupon. The unique code index rejects
// duplicates.
func (r *GormCouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	coupon.Code = strings.ToLower(coupon.Code)
	return r.db.WithContext(ctx).Create(coupon).Error
}

// FindByCode retrieves an active coupon by its code (case-insensitive).
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("LOWER(code) = ? AND is_active = ?", strings.ToLower(code), true).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// FindFeatured retrieves at most one active featured coupon for the
// storefront promo popup.
func (r *GormCouponRepository) FindFeatured(ctx context.Context) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("is_featured = ? AND is_active = ?", true, true).
		Order("created_at DESC").
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// IncrementUsedCount atomically increments the used_count of a coupon.
func (r *GormCouponRepository) IncrementUsedCount(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("LOWER(code) = ?", strings.ToLower(code)).
		UpdateColumn("used_count", gorm.Expr("used_count + 1")).
		Error
}
