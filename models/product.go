package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// Product is a catalog entry. Stock is mutated only by the stock
// decrement path, and only when the product is not unlimited.
type Product struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name             string    `gorm:"type:varchar(255);not null" json:"name"`
	Price            int       `gorm:"not null" json:"price"` // minor units
	DiscountPrice    *int      `json:"discount_price,omitempty"`
	Stock            *int      `json:"stock,omitempty"`
	IsStockUnlimited bool      `gorm:"not null;default:false" json:"is_stock_unlimited"`
	AffiliateRate    *int      `json:"affiliate_rate,omitempty"` // integer percent; nil falls back to the platform default
	DownloadURL      string    `gorm:"type:text" json:"download_url,omitempty"`
	Image            string    `gorm:"type:text" json:"image,omitempty"`
	Status           string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}
