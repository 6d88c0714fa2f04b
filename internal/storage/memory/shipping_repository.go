package memory

import (
	"context"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

// shippingRepositoryInMemory — in-memory реализация ShippingRepository.
type shippingRepositoryInMemory struct {
	store *Store
}

// NewShippingRepository возвращает in-memory репозиторий отправлений.
func NewShippingRepository(store *Store) domain.ShippingRepository {
	return &shippingRepositoryInMemory{store: store}
}

func (r *shippingRepositoryInMemory) Create(ctx context.Context, shipping domain.Shipping) error {
	defer r.store.enter(ctx)()

	// Отправление на заказ не более одного (1:1).
	for _, existing := range r.store.data.shipments {
		if existing.OrderID == shipping.OrderID {
			return domain.ErrShippingExists
		}
	}
	r.store.data.shipments[shipping.ID] = shipping
	return nil
}

func (r *shippingRepositoryInMemory) GetByOrder(ctx context.Context, orderID string) (domain.Shipping, error) {
	defer r.store.enter(ctx)()

	for _, shipping := range r.store.data.shipments {
		if shipping.OrderID == orderID {
			return shipping, nil
		}
	}
	return domain.Shipping{}, domain.ErrShippingNotFound
}

func (r *shippingRepositoryInMemory) Save(ctx context.Context, shipping domain.Shipping) error {
	defer r.store.enter(ctx)()

	if _, ok := r.store.data.shipments[shipping.ID]; !ok {
		return domain.ErrShippingNotFound
	}
	r.store.data.shipments[shipping.ID] = shipping
	return nil
}

var _ domain.ShippingRepository = (*shippingRepositoryInMemory)(nil)
