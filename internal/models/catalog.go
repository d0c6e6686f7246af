package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ModifierType classifies how a modifier changes a product.
type ModifierType string

const (
	ModifierExtra      ModifierType = "extra"
	ModifierRemove     ModifierType = "remove"
	ModifierSubstitute ModifierType = "substitute"
)

// TableStatus is the occupancy state of a dining table.
type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TableReserved  TableStatus = "reserved"
)

// Product is a menu item as the order engine sees it: read-only,
// resolved from the catalog at order time.
type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Modifier is a priced adjustment attached to an order item.
type Modifier struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Type      ModifierType    `json:"modifier_type"`
	CreatedAt time.Time       `json:"created_at"`
}

// Table is a dining table. The order engine only ever flips its status:
// occupied when a dine-in order is created, available when it completes.
type Table struct {
	ID          int         `json:"id"`
	TableNumber int         `json:"table_number"`
	Capacity    int         `json:"capacity"`
	Status      TableStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}
