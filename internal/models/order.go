package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderType represents the type of an order.
type OrderType string

const (
	DineIn   OrderType = "dine-in"
	Takeout  OrderType = "takeout"
	Delivery OrderType = "delivery"
)

// OrderStatus represents the status of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// ValidOrderStatus reports whether s is one of the five accepted statuses.
// Transitions between them are deliberately unrestricted.
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Order is the persisted order aggregate root. Money fields are
// fixed-point decimals rounded to cents; the invariant
// subtotal == sum(item subtotals), total == subtotal + tax - discount
// holds at every persisted state.
type Order struct {
	ID            int             `json:"id"`
	OrderNumber   string          `json:"order_number"`
	CustomerName  *string         `json:"customer_name,omitempty"`
	OrderType     OrderType       `json:"order_type"`
	TableID       *int            `json:"table_id,omitempty"`
	Status        OrderStatus     `json:"status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod *string         `json:"payment_method,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// OrderItem is a line of an order. UnitPrice is a snapshot of the product
// price at order time and never changes afterwards.
type OrderItem struct {
	ID                  int                 `json:"id"`
	OrderID             int                 `json:"order_id"`
	ProductID           int                 `json:"product_id"`
	ProductName         string              `json:"product_name,omitempty"`
	Quantity            int                 `json:"quantity"`
	UnitPrice           decimal.Decimal     `json:"unit_price"`
	Subtotal            decimal.Decimal     `json:"subtotal"`
	SpecialInstructions *string             `json:"special_instructions,omitempty"`
	Modifiers           []OrderItemModifier `json:"modifiers"`
}

// OrderItemModifier is a modifier applied to an order item, with the
// modifier price snapshotted at order time.
type OrderItemModifier struct {
	ID           int             `json:"id"`
	OrderItemID  int             `json:"order_item_id"`
	ModifierID   int             `json:"modifier_id"`
	ModifierName string          `json:"modifier_name,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

// OrderDetail is the full read model: an order plus its items and their
// modifiers, names denormalized for display.
type OrderDetail struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
}

// CartModifier references a modifier on a cart line. Quantity defaults
// to 1 when omitted.
type CartModifier struct {
	ModifierID int `json:"modifier_id"`
	Quantity   int `json:"quantity,omitempty"`
}

// CartItem is one line of a submitted cart.
type CartItem struct {
	ProductID           int            `json:"product_id"`
	Quantity            int            `json:"quantity"`
	SpecialInstructions *string        `json:"special_instructions,omitempty"`
	Modifiers           []CartModifier `json:"modifiers,omitempty"`
}

// CreateOrderRequest is the payload for POST /orders.
type CreateOrderRequest struct {
	CustomerName  *string    `json:"customer_name,omitempty"`
	OrderType     string     `json:"order_type"`
	TableID       *int       `json:"table_id,omitempty"`
	Items         []CartItem `json:"items"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

// Validate checks the create request. An empty cart yields ErrEmptyOrder;
// any other problem yields a ValidationError naming the field.
func (req *CreateOrderRequest) Validate() error {
	if len(req.Items) == 0 {
		return ErrEmptyOrder
	}

	if err := validateOrderType(req.OrderType); err != nil {
		return err
	}

	if req.TableID != nil && OrderType(req.OrderType) != DineIn {
		return ValidationError{
			Field:   "table_id",
			Message: "table_id is only allowed for dine-in orders",
		}
	}

	for i, item := range req.Items {
		if err := validateCartItem(item, i); err != nil {
			return err
		}
	}

	return nil
}

// RecallItem is a simplified cart line for recalled orders: no modifiers.
type RecallItem struct {
	ProductID           int     `json:"product_id"`
	Quantity            int     `json:"quantity"`
	SpecialInstructions *string `json:"special_instructions,omitempty"`
}

// RecallOrderRequest is the payload for POST /orders/recall. A recalled
// order is a fresh pending order: discount forced to 0, payment unset.
type RecallOrderRequest struct {
	CustomerName string       `json:"customer_name"`
	OrderType    string       `json:"order_type"`
	Notes        *string      `json:"notes,omitempty"`
	Items        []RecallItem `json:"items"`
}

// Validate checks the recall request.
func (req *RecallOrderRequest) Validate() error {
	if len(req.Items) == 0 {
		return ErrEmptyOrder
	}

	if err := validateOrderType(req.OrderType); err != nil {
		return err
	}

	for i, item := range req.Items {
		if item.ProductID <= 0 {
			return ValidationError{
				Field:   fmt.Sprintf("items[%d].product_id", i),
				Message: "product_id must be a positive integer",
			}
		}
		if item.Quantity <= 0 {
			return ValidationError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "quantity must be greater than 0",
			}
		}
	}

	return nil
}

// UpdateStatusRequest is the payload for PATCH /orders/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdatePaymentRequest is the payload for PUT /orders/{id}/payment.
type UpdatePaymentRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// OrderFilter holds the optional filters for listing orders. Nil fields
// are omitted from the generated query.
type OrderFilter struct {
	Status    *string
	OrderType *string
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
}

// OrderPatch lists the order fields an update may touch. Only non-zero
// fields end up in the generated UPDATE statement.
type OrderPatch struct {
	Status         *OrderStatus
	PaymentMethod  *string
	SetCompletedAt bool
}

// GenerateOrderNumber builds the human-readable order identifier
// ORD-YYYYMMDD-NNNN from a date and a 1-based daily sequence number.
func GenerateOrderNumber(day time.Time, sequence int) string {
	return fmt.Sprintf("ORD-%s-%04d", day.Format("20060102"), sequence)
}

func validateOrderType(orderType string) error {
	if orderType == "" {
		return ValidationError{
			Field:   "order_type",
			Message: "order type is required",
		}
	}

	switch OrderType(orderType) {
	case DineIn, Takeout, Delivery:
		return nil
	}

	return ValidationError{
		Field:   "order_type",
		Message: "order type must be one of: dine-in, takeout, delivery",
	}
}

func validateCartItem(item CartItem, index int) error {
	if item.ProductID <= 0 {
		return ValidationError{
			Field:   fmt.Sprintf("items[%d].product_id", index),
			Message: "product_id must be a positive integer",
		}
	}

	if item.Quantity <= 0 {
		return ValidationError{
			Field:   fmt.Sprintf("items[%d].quantity", index),
			Message: "quantity must be greater than 0",
		}
	}

	for j, mod := range item.Modifiers {
		if mod.ModifierID <= 0 {
			return ValidationError{
				Field:   fmt.Sprintf("items[%d].modifiers[%d].modifier_id", index, j),
				Message: "modifier_id must be a positive integer",
			}
		}
		if mod.Quantity < 0 {
			return ValidationError{
				Field:   fmt.Sprintf("items[%d].modifiers[%d].quantity", index, j),
				Message: "quantity must not be negative",
			}
		}
	}

	return nil
}
