package memory

import (
	"context"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

// addressRepositoryInMemory — in-memory реализация AddressRepository.
type addressRepositoryInMemory struct {
	store *Store
}

// NewAddressRepository возвращает in-memory репозиторий адресов.
func NewAddressRepository(store *Store) domain.AddressRepository {
	return &addressRepositoryInMemory{store: store}
}

func (r *addressRepositoryInMemory) Get(ctx context.Context, id string) (domain.Address, error) {
	defer r.store.enter(ctx)()

	address, ok := r.store.data.addresses[id]
	if !ok {
		return domain.Address{}, domain.ErrAddressNotFound
	}
	return address, nil
}

var _ domain.AddressRepository = (*addressRepositoryInMemory)(nil)

// originRepositoryInMemory — in-memory реализация OriginRepository.
type originRepositoryInMemory struct {
	store *Store
}

// NewOriginRepository возвращает in-memory репозиторий точек отгрузки.
func NewOriginRepository(store *Store) domain.OriginRepository {
	return &originRepositoryInMemory{store: store}
}

// Active возвращает единственную активную точку или ErrNoActiveOrigin.
func (r *originRepositoryInMemory) Active(ctx context.Context) (domain.Origin, error) {
	defer r.store.enter(ctx)()

	for _, origin := range r.store.data.origins {
		if origin.Active {
			return origin, nil
		}
	}
	return domain.Origin{}, domain.ErrNoActiveOrigin
}

var _ domain.OriginRepository = (*originRepositoryInMemory)(nil)
