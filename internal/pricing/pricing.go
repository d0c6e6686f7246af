// Package pricing computes order totals from resolved cart lines. It is
// pure computation: no I/O, no clock, no shared state.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"burger-pos/internal/models"
)

// ModifierCharge is a resolved modifier on a cart line: the snapshotted
// modifier price and how many of the modifier were requested.
type ModifierCharge struct {
	ModifierID int
	Price      decimal.Decimal
	Quantity   int
}

// Line is a cart line with its product resolved against the catalog.
type Line struct {
	ProductID int
	UnitPrice decimal.Decimal
	Available bool
	Quantity  int
	Modifiers []ModifierCharge
}

// LineTotal is the priced result for one line, ready for persistence as
// an order item.
type LineTotal struct {
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// Quote is the full pricing result for a cart.
type Quote struct {
	Lines    []LineTotal
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Engine prices carts with a fixed tax rate.
type Engine struct {
	taxRate decimal.Decimal
}

// NewEngine creates a pricing engine. taxRate is a fraction, e.g. 0.10.
func NewEngine(taxRate decimal.Decimal) *Engine {
	return &Engine{taxRate: taxRate}
}

// Price computes per-line and order totals. Modifier cost scales with
// both the modifier quantity and the enclosing line quantity:
//
//	line_subtotal = unit_price*qty + sum(mod_price*mod_qty*qty)
//
// All stored amounts are rounded to cents. Any unavailable line fails
// the whole quote with ErrProductUnavailable.
func (e *Engine) Price(lines []Line, discount decimal.Decimal) (*Quote, error) {
	quote := &Quote{
		Lines:    make([]LineTotal, 0, len(lines)),
		Subtotal: decimal.Zero,
	}

	for _, line := range lines {
		if !line.Available {
			return nil, fmt.Errorf("product %d: %w", line.ProductID, models.ErrProductUnavailable)
		}

		qty := decimal.NewFromInt(int64(line.Quantity))
		subtotal := line.UnitPrice.Mul(qty)

		for _, mod := range line.Modifiers {
			modQty := decimal.NewFromInt(int64(mod.Quantity))
			subtotal = subtotal.Add(mod.Price.Mul(modQty).Mul(qty))
		}

		subtotal = subtotal.Round(2)
		quote.Lines = append(quote.Lines, LineTotal{
			UnitPrice: line.UnitPrice,
			Subtotal:  subtotal,
		})
		quote.Subtotal = quote.Subtotal.Add(subtotal)
	}

	quote.Subtotal = quote.Subtotal.Round(2)
	quote.Tax = quote.Subtotal.Mul(e.taxRate).Round(2)
	quote.Total = quote.Subtotal.Add(quote.Tax).Sub(discount).Round(2)

	return quote, nil
}
