package models

import (
	"errors"
	"testing"
	"time"
)

func TestCreateOrderRequestValidate(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name      string
		req       CreateOrderRequest
		wantErr   error
		wantField string
	}{
		{
			name: "valid takeout",
			req: CreateOrderRequest{
				OrderType: "takeout",
				Items:     []CartItem{{ProductID: 1, Quantity: 1}},
			},
		},
		{
			name: "valid dine-in with table",
			req: CreateOrderRequest{
				OrderType: "dine-in",
				TableID:   intPtr(4),
				Items:     []CartItem{{ProductID: 1, Quantity: 2}},
			},
		},
		{
			name:    "empty cart",
			req:     CreateOrderRequest{OrderType: "takeout"},
			wantErr: ErrEmptyOrder,
		},
		{
			name: "missing order type",
			req: CreateOrderRequest{
				Items: []CartItem{{ProductID: 1, Quantity: 1}},
			},
			wantField: "order_type",
		},
		{
			name: "unknown order type",
			req: CreateOrderRequest{
				OrderType: "drive-thru",
				Items:     []CartItem{{ProductID: 1, Quantity: 1}},
			},
			wantField: "order_type",
		},
		{
			name: "table on takeout",
			req: CreateOrderRequest{
				OrderType: "takeout",
				TableID:   intPtr(4),
				Items:     []CartItem{{ProductID: 1, Quantity: 1}},
			},
			wantField: "table_id",
		},
		{
			name: "zero quantity",
			req: CreateOrderRequest{
				OrderType: "takeout",
				Items:     []CartItem{{ProductID: 1, Quantity: 0}},
			},
			wantField: "items[0].quantity",
		},
		{
			name: "bad product id",
			req: CreateOrderRequest{
				OrderType: "takeout",
				Items:     []CartItem{{ProductID: 0, Quantity: 1}},
			},
			wantField: "items[0].product_id",
		},
		{
			name: "bad modifier id",
			req: CreateOrderRequest{
				OrderType: "takeout",
				Items: []CartItem{{
					ProductID: 1,
					Quantity:  1,
					Modifiers: []CartModifier{{ModifierID: -1}},
				}},
			},
			wantField: "items[0].modifiers[0].modifier_id",
		},
		{
			name: "negative modifier quantity",
			req: CreateOrderRequest{
				OrderType: "takeout",
				Items: []CartItem{{
					ProductID: 1,
					Quantity:  1,
					Modifiers: []CartModifier{{ModifierID: 2, Quantity: -1}},
				}},
			},
			wantField: "items[0].modifiers[0].quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()

			if tt.wantErr == nil && tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("field = %s, want %s", ve.Field, tt.wantField)
			}
		})
	}
}

func TestRecallOrderRequestValidate(t *testing.T) {
	valid := RecallOrderRequest{
		OrderType: "takeout",
		Items:     []RecallItem{{ProductID: 1, Quantity: 1}},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}

	empty := RecallOrderRequest{OrderType: "takeout"}
	if err := empty.Validate(); !errors.Is(err, ErrEmptyOrder) {
		t.Errorf("Validate() error = %v, want ErrEmptyOrder", err)
	}

	badQty := RecallOrderRequest{
		OrderType: "delivery",
		Items:     []RecallItem{{ProductID: 1, Quantity: -2}},
	}
	var ve ValidationError
	if err := badQty.Validate(); !errors.As(err, &ve) || ve.Field != "items[0].quantity" {
		t.Errorf("Validate() error = %v, want quantity ValidationError", err)
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	day := time.Date(2026, 8, 28, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		sequence int
		want     string
	}{
		{1, "ORD-20260828-0001"},
		{42, "ORD-20260828-0042"},
		{9999, "ORD-20260828-9999"},
		{10000, "ORD-20260828-10000"},
	}
	for _, tt := range tests {
		if got := GenerateOrderNumber(day, tt.sequence); got != tt.want {
			t.Errorf("GenerateOrderNumber(%d) = %s, want %s", tt.sequence, got, tt.want)
		}
	}
}

func TestValidOrderStatus(t *testing.T) {
	for _, status := range []string{"pending", "preparing", "ready", "completed", "cancelled"} {
		if !ValidOrderStatus(status) {
			t.Errorf("ValidOrderStatus(%q) = false, want true", status)
		}
	}
	for _, status := range []string{"", "delivered", "Pending", "done"} {
		if ValidOrderStatus(status) {
			t.Errorf("ValidOrderStatus(%q) = true, want false", status)
		}
	}
}
