package domain_test

import (
	"testing"
	"time"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

// helper для создания базового заказа с одной позицией.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:            "order-1",
		UserID:        "user-1",
		Status:        domain.OrderStatusUnpaid,
		PaymentState:  domain.PaymentStateUnpaid,
		Currency:      "IDR",
		AmountMinor:   500,
		ShippingMinor: 100,
		CourierCode:   "jne",
		ServiceCode:   "reg",
		AddressID:     "addr-1",
		Items: []domain.OrderItem{
			{
				ID:         "item-1",
				VariantID:  "variant-1",
				Name:       "shirt",
				Qty:        5,
				PriceMinor: 100,
				Currency:   "IDR",
				CreatedAt:  now,
			},
		},
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{
			name: "no user",
			mut: func(o *domain.Order) {
				o.UserID = ""
			},
		},
		{
			name: "negative amount",
			mut: func(o *domain.Order) {
				o.AmountMinor = -1
			},
		},
		{
			name: "negative shipping",
			mut: func(o *domain.Order) {
				o.ShippingMinor = -1
			},
		},
		{
			name: "no items",
			mut: func(o *domain.Order) {
				o.Items = nil
			},
		},
		{
			name: "qty invalid",
			mut: func(o *domain.Order) {
				o.Items[0].Qty = 0
			},
		},
		{
			name: "amount mismatch",
			mut: func(o *domain.Order) {
				o.AmountMinor = 999
			},
		},
		{
			name: "unknown status",
			mut: func(o *domain.Order) {
				o.Status = domain.OrderStatus("exploded")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			// Изменяем состояние согласно сценарию.
			mutOrder := order
			tc.mut(&mutOrder)

			if len(mutOrder.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    domain.OrderStatus
		to      domain.OrderStatus
		allowed bool
	}{
		{domain.OrderStatusUnpaid, domain.OrderStatusPacked, true},
		{domain.OrderStatusUnpaid, domain.OrderStatusCancelled, true},
		{domain.OrderStatusUnpaid, domain.OrderStatusShipped, false},
		{domain.OrderStatusUnpaid, domain.OrderStatusReceived, false},
		{domain.OrderStatusPacked, domain.OrderStatusShipped, true},
		{domain.OrderStatusPacked, domain.OrderStatusCancelled, true},
		{domain.OrderStatusPacked, domain.OrderStatusReceived, false},
		{domain.OrderStatusShipped, domain.OrderStatusReceived, true},
		{domain.OrderStatusShipped, domain.OrderStatusPacked, false},
		{domain.OrderStatusShipped, domain.OrderStatusCancelled, false},
		{domain.OrderStatusReceived, domain.OrderStatusUnpaid, false},
		{domain.OrderStatusCancelled, domain.OrderStatusPacked, false},
		// Переход в тот же статус всегда допустим (no-op).
		{domain.OrderStatusPacked, domain.OrderStatusPacked, true},
		{domain.OrderStatusReceived, domain.OrderStatusReceived, true},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected allowed=%v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	for status, terminal := range map[domain.OrderStatus]bool{
		domain.OrderStatusUnpaid:    false,
		domain.OrderStatusPacked:    false,
		domain.OrderStatusShipped:   false,
		domain.OrderStatusReceived:  true,
		domain.OrderStatusCancelled: true,
	} {
		if status.Terminal() != terminal {
			t.Fatalf("status %s: expected terminal=%v", status, terminal)
		}
	}

	if domain.OrderStatus("bogus").Terminal() {
		t.Fatal("unknown status must not be terminal")
	}
}
