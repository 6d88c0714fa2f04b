package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimasprasetyo/orderflow/internal/domain"
	"github.com/dimasprasetyo/orderflow/internal/storage/memory"
)

func newOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:           "order-1",
		UserID:       "user-1",
		Status:       domain.OrderStatusUnpaid,
		PaymentState: domain.PaymentStateUnpaid,
		Currency:     "IDR",
		AmountMinor:  500,
		Items: []domain.OrderItem{
			{ID: "item-1", VariantID: "variant-1", Name: "Widget", Qty: 5, PriceMinor: 100, Currency: "IDR", CreatedAt: now},
		},
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStore_WithinCommit(t *testing.T) {
	store := memory.NewStore()
	orders := memory.NewOrderRepository(store)

	err := store.Within(context.Background(), func(ctx context.Context) error {
		return orders.Create(ctx, newOrder())
	})
	if err != nil {
		t.Fatalf("within failed: %v", err)
	}

	if _, err := orders.Get(context.Background(), "order-1"); err != nil {
		t.Fatalf("order not committed: %v", err)
	}
}

func TestStore_WithinRollback(t *testing.T) {
	store := memory.NewStore()
	orders := memory.NewOrderRepository(store)
	boom := errors.New("boom")

	err := store.Within(context.Background(), func(ctx context.Context) error {
		if err := orders.Create(ctx, newOrder()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := orders.Get(context.Background(), "order-1"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected rollback to remove order, got %v", err)
	}
}

func TestStore_WithinReentrant(t *testing.T) {
	store := memory.NewStore()
	orders := memory.NewOrderRepository(store)

	err := store.Within(context.Background(), func(ctx context.Context) error {
		// Вложенный Within переиспользует внешнюю транзакцию.
		return store.Within(ctx, func(ctx context.Context) error {
			return orders.Create(ctx, newOrder())
		})
	})
	if err != nil {
		t.Fatalf("nested within failed: %v", err)
	}

	if _, err := orders.Get(context.Background(), "order-1"); err != nil {
		t.Fatalf("order not committed: %v", err)
	}
}

func TestStore_WithinRollbackRestoresStock(t *testing.T) {
	store := memory.NewStore()
	store.SeedVariant(domain.ProductVariant{ID: "variant-1", Stock: 10})
	inventory := memory.NewInventoryLedger(store)
	boom := errors.New("boom")

	err := store.Within(context.Background(), func(ctx context.Context) error {
		if err := inventory.Reserve(ctx, "variant-1", 4); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	variant, err := inventory.GetVariant(context.Background(), "variant-1")
	if err != nil {
		t.Fatalf("get variant failed: %v", err)
	}
	if variant.Stock != 10 {
		t.Fatalf("expected stock restored to 10, got %d", variant.Stock)
	}
}
