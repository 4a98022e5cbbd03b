package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CouponType represents the type of discount a coupon provides.
type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFlat       CouponType = "flat"
)

// Coupon is a promotional discount. Value is an integer percent for
// percentage coupons and minor currency units for flat coupons.
type Coupon struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code        string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Type        CouponType `gorm:"type:varchar(20);not null" json:"type"`
	Value       int        `gorm:"not null" json:"value"`
	Title       string     `gorm:"type:varchar(128)" json:"title,omitempty"`
	Description string     `gorm:"type:varchar(255)" json:"description,omitempty"`
	IsFeatured  bool       `gorm:"not null;default:false;index" json:"is_featured"`
	IsActive    bool       `gorm:"not null;default:true" json:"is_active"`
	UsageLimit  int        `gorm:"not null;default:0" json:"usage_limit"` // 0 = unlimited
	UsedCount   int        `gorm:"not null;default:0" json:"used_count"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
