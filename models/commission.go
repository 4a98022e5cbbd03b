package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CommissionStatusPending  = "pending"
	CommissionStatusPaid     = "paid"
	CommissionStatusCanceled = "canceled"
)

// Commission is one accrual owed to an affiliate for a single order.
// The composite unique index guarantees at most one commission per
// (affiliate, order) pair. Amount is computed once from the order's
// item snapshots and never recomputed.
type Commission struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AffiliateID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_commission_affiliate_order" json:"affiliate_id"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_commission_affiliate_order" json:"order_id"`
	Amount      int       `gorm:"not null" json:"amount"` // minor units
	Status      string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Description string    `gorm:"type:varchar(255)" json:"description,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
