package memory

import (
	"context"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

// inventoryLedgerInMemory — in-memory реализация InventoryLedger.
// Проверка и списание выполняются под мьютексом хранилища одним действием.
type inventoryLedgerInMemory struct {
	store *Store
}

// NewInventoryLedger возвращает in-memory инвентарный регистр.
func NewInventoryLedger(store *Store) domain.InventoryLedger {
	return &inventoryLedgerInMemory{store: store}
}

// Reserve списывает qty единиц, атомарно проверяя остаток.
func (r *inventoryLedgerInMemory) Reserve(ctx context.Context, variantID string, qty int32) error {
	defer r.store.enter(ctx)()

	variant, ok := r.store.data.variants[variantID]
	if !ok {
		return domain.ErrVariantNotFound
	}
	if variant.Stock < qty {
		return domain.ErrInsufficientStock
	}
	variant.Stock -= qty
	r.store.data.variants[variantID] = variant
	return nil
}

// Release безусловно возвращает qty единиц на остаток.
func (r *inventoryLedgerInMemory) Release(ctx context.Context, variantID string, qty int32) error {
	defer r.store.enter(ctx)()

	variant, ok := r.store.data.variants[variantID]
	if !ok {
		return domain.ErrVariantNotFound
	}
	variant.Stock += qty
	r.store.data.variants[variantID] = variant
	return nil
}

func (r *inventoryLedgerInMemory) GetVariant(ctx context.Context, id string) (domain.ProductVariant, error) {
	defer r.store.enter(ctx)()

	variant, ok := r.store.data.variants[id]
	if !ok {
		return domain.ProductVariant{}, domain.ErrVariantNotFound
	}
	return variant, nil
}

var _ domain.InventoryLedger = (*inventoryLedgerInMemory)(nil)
