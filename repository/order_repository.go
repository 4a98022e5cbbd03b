package repository

import (
	"context"
	"time"

	"storefront-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Order, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error)
	MarkPaid(ctx context.Context, id uuid.UUID, transactionID string, rawPayload string) (bool, error)
	MarkDelivered(ctx context.Context, id, userID uuid.UUID) (bool, error)
	SetProviderSession(ctx context.Context, id uuid.UUID, session string) error
}

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository.
func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

// Create persists an order together with its item snapshots in a
// single transaction.
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
}

// FindByID retrieves an order with its items.
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("OrderItems").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByTransactionID retrieves an order by the provider transaction id.
func (r *GormOrderRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("OrderItems").
		Where("external_transaction_id = ?", transactionID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByUserID retrieves orders for a specific user with pagination.
func (r *GormOrderRepository) FindByUserID(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Preload("OrderItems").
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// MarkPaid flips a pending order to paid in one conditional update.
// The WHERE on status is the idempotency boundary: a duplicate or
// concurrent webhook sees zero rows affected and must not re-run the
// paid cascade.
func (r *GormOrderRepository) MarkPaid(ctx context.Context, id uuid.UUID, transactionID string, rawPayload string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":                  models.OrderStatusPaid,
			"external_transaction_id": transactionID,
			"provider_payload":        rawPayload,
			"paid_at":                 &now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkDelivered lets the owning user confirm receipt of a paid order.
func (r *GormOrderRepository) MarkDelivered(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, models.OrderStatusPaid).
		Updates(map[string]interface{}{
			"status":       models.OrderStatusDelivered,
			"delivered_at": &now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetProviderSession stores the redirect URL or client secret the
// payment provider returned for this order.
func (r *GormOrderRepository) SetProviderSession(ctx context.Context, id uuid.UUID, session string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("provider_session", session).Error
}
