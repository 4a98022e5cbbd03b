package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AffiliateStatusActive    = "active"
	AffiliateStatusSuspended = "suspended"
	AffiliateStatusBanned    = "banned"
)

// Affiliate is a user enrolled in the referral program. Balance and
// total earnings only grow through commission settlement, via atomic
// column increments.
type Affiliate struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Code          string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`
	Balance       int       `gorm:"not null;default:0" json:"balance"`        // minor units, withdrawable
	TotalEarnings int       `gorm:"not null;default:0" json:"total_earnings"` // minor units, lifetime
	Status        string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
