package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is published to the kitchen when an order is created.
type OrderCreatedEvent struct {
	OrderNumber string           `json:"order_number"`
	OrderType   OrderType        `json:"order_type"`
	TableID     *int             `json:"table_id,omitempty"`
	Items       []OrderItemEvent `json:"items"`
	Total       decimal.Decimal  `json:"total"`
	CreatedAt   time.Time        `json:"created_at"`
}

// OrderItemEvent is the kitchen-facing view of an order line.
type OrderItemEvent struct {
	ProductID           int     `json:"product_id"`
	Quantity            int     `json:"quantity"`
	SpecialInstructions *string `json:"special_instructions,omitempty"`
}

// OrderStatusChangedEvent is published whenever an order changes status.
type OrderStatusChangedEvent struct {
	OrderNumber string      `json:"order_number"`
	OldStatus   OrderStatus `json:"old_status"`
	NewStatus   OrderStatus `json:"new_status"`
	ChangedAt   time.Time   `json:"changed_at"`
}
