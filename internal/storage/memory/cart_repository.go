package memory

import (
	"context"
	"sort"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

// cartRepositoryInMemory — in-memory реализация CartRepository.
type cartRepositoryInMemory struct {
	store *Store
}

// NewCartRepository возвращает in-memory репозиторий корзины.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepositoryInMemory{store: store}
}

// ListByUser возвращает строки корзины пользователя; при непустом ids —
// только указанное подмножество.
func (r *cartRepositoryInMemory) ListByUser(ctx context.Context, userID string, ids []string) ([]domain.CartItem, error) {
	defer r.store.enter(ctx)()

	subset := make(map[string]bool, len(ids))
	for _, id := range ids {
		subset[id] = true
	}

	result := make([]domain.CartItem, 0)
	for _, item := range r.store.data.carts {
		if item.UserID != userID {
			continue
		}
		if len(subset) > 0 && !subset[item.ID] {
			continue
		}
		result = append(result, item)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Delete удаляет потреблённые строки корзины.
func (r *cartRepositoryInMemory) Delete(ctx context.Context, ids []string) error {
	defer r.store.enter(ctx)()

	for _, id := range ids {
		delete(r.store.data.carts, id)
	}
	return nil
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
