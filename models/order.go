package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusDelivered = "delivered"
	OrderStatusCanceled  = "canceled"
)

const (
	PaymentMethodInfinitePay = "infinitepay"
	PaymentMethodStripe      = "stripe"
)

// ShippingAddress is an optional structured address captured at checkout.
type ShippingAddress struct {
	Street     string `gorm:"type:varchar(255)" json:"street,omitempty"`
	Number     string `gorm:"type:varchar(32)" json:"number,omitempty"`
	Complement string `gorm:"type:varchar(128)" json:"complement,omitempty"`
	City       string `gorm:"type:varchar(128)" json:"city,omitempty"`
	State      string `gorm:"type:varchar(64)" json:"state,omitempty"`
	ZipCode    string `gorm:"type:varchar(16)" json:"zip_code,omitempty"`
	Country    string `gorm:"type:varchar(64)" json:"country,omitempty"`
}

// Order represents one purchase transaction. Amount and the item
// snapshots are frozen at creation time and never recomputed.
type Order struct {
	ID                    uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID                uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	CustomerEmail         string     `gorm:"type:varchar(255)" json:"customer_email,omitempty"`
	Amount                int        `gorm:"not null" json:"amount"` // minor currency units
	Status                string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentMethod         string     `gorm:"type:varchar(32);not null" json:"payment_method"`
	// Partial unique index: pending provider-A orders share the empty
	// value, so uniqueness only binds once a transaction id is set. A
	// second insert for the same provider transaction fails here, which
	// is what makes webhook order recording idempotent under races.
	ExternalTransactionID string `gorm:"type:varchar(128);uniqueIndex:uniq_orders_external_txn,where:external_transaction_id <> ''" json:"external_transaction_id,omitempty"`
	ProviderSession       string     `gorm:"type:text" json:"-"` // redirect URL or client secret returned by the provider
	ProviderPayload       string     `gorm:"type:text" json:"-"` // raw webhook payload kept for audit
	CouponID              *uuid.UUID `gorm:"type:uuid" json:"coupon_id,omitempty"`
	DiscountAmount        int        `gorm:"not null;default:0" json:"discount_amount"`
	ShippingAddress       *ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address,omitempty"`
	PaidAt                *time.Time `json:"paid_at,omitempty"`
	DeliveredAt           *time.Time `json:"delivered_at,omitempty"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
	OrderItems            []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items"`
}

// OrderItem is an immutable snapshot of one purchased line. Price and
// name are copied from the cart at order-creation time so historical
// orders survive future product changes.
type OrderItem struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	ProductName string    `gorm:"type:varchar(255);not null" json:"product_name"`
	Price       int       `gorm:"not null" json:"price"` // minor units, snapshot at purchase time
	Quantity    int       `gorm:"not null" json:"quantity"`
	Image       string    `gorm:"type:text" json:"image,omitempty"`
}
