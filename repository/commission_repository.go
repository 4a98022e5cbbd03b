package repository

import (
	"context"
	"time"

	"storefront-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommissionRepository defines the interface for commission data access.
type CommissionRepository interface {
	Create(ctx context.Context, commission *models.Commission) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Commission, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (bool, error)
}

// GormCommissionRepository implements CommissionRepository using GORM.
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewGormCommissionRepository creates a new GormCommissionRepository.
func NewGormCommissionRepository(db *gorm.DB) CommissionRepository {
	return &GormCommissionRepository{db: db}
}

// Create inserts a pending commission. The unique (affiliate_id,
// order_id) index rejects a second accrual for the same order.
func (r *GormCommissionRepository) Create(ctx context.Context, commission *models.Commission) error {
	return r.db.WithContext(ctx).Create(commission).Error
}

// FindByOrderID retrieves the commission tied to an order, if any.
func (r *GormCommissionRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Commission, error) {
	var commission models.Commission
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&commission).Error; err != nil {
		return nil, err
	}
	return &commission, nil
}

// MarkPaid flips a pending commission to paid in one conditional
// update. Zero rows affected means the commission was already settled
// (or canceled) and the caller must not credit the affiliate again.
func (r *GormCommissionRepository) MarkPaid(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("id = ? AND status = ?", id, models.CommissionStatusPending).
		Updates(map[string]interface{}{
			"status":  models.CommissionStatusPaid,
			"paid_at": &now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
