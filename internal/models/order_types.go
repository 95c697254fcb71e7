package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DeliveryTypePickup   = "pickup"
	DeliveryTypeDelivery = "delivery"
)

// Order is the model for the 'orders' table.
// Total is written once at creation and never recomputed.
type Order struct {
	ID           string          `json:"id" db:"id"`
	RestaurantID int64           `json:"restaurantId" db:"restaurant_id"`
	CustomerID   int64           `json:"customerId" db:"customer_id"`
	DeliveryType string          `json:"deliveryType" db:"delivery_type"`
	Subtotal     decimal.Decimal `json:"subtotal" db:"subtotal"`
	DeliveryFee  decimal.Decimal `json:"deliveryFee" db:"delivery_fee"`
	Total        decimal.Decimal `json:"total" db:"total"`
	Status       string          `json:"status" db:"status"`
	Notes        *string         `json:"notes,omitempty" db:"notes"`
	CancelReason *string         `json:"cancelReason,omitempty" db:"cancel_reason"`

	// Set once, by settlement.
	CommissionAmount decimal.NullDecimal `json:"commissionAmount" db:"commission_amount"`
	NetAmount        decimal.NullDecimal `json:"netAmount" db:"net_amount"`
	SettledAt        *time.Time          `json:"settledAt,omitempty" db:"settled_at"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Items []OrderItem `json:"items,omitempty"`
}

// OrderItem is the model for the 'order_items' table
type OrderItem struct {
	ID           int64           `json:"id" db:"id"`
	OrderID      string          `json:"orderId" db:"order_id"`
	RestaurantID int64           `json:"restaurantId" db:"restaurant_id"`
	Name         string          `json:"name" db:"name"`
	UnitPrice    decimal.Decimal `json:"unitPrice" db:"unit_price"` // Price at the time of purchase
	Quantity     int             `json:"quantity" db:"quantity"`
}
