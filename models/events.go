package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentConfirmed is the provider-independent "payment confirmed"
// event both webhook handlers reduce to. Only the provider-specific
// parsing and validation differ; the confirmation cascade runs once
// off this struct.
type PaymentConfirmed struct {
	OrderID               uuid.UUID
	ProviderTransactionID string
	RawPayload            []byte
}

// OrderEvent is the message published to Kafka/SNS after an order
// changes state.
type OrderEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Amount    int       `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// CartItem is one line of a cart as submitted at checkout or stored
// in the server-side cart.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Name      string    `json:"name" binding:"required"`
	Price     int       `json:"price" binding:"required,min=1"` // minor units
	Quantity  int       `json:"quantity" binding:"required,min=1"`
	Image     string    `json:"image"`
}

// Cart is the server-side cart stored per user in Redis.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}
