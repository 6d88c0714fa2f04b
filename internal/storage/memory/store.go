package memory

import (
	"context"
	"sync"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

// txKey помечает контекст, исполняющийся внутри Within.
type txKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// dataset — всё состояние in-memory хранилища одним значением,
// чтобы его можно было снапшотить и откатывать целиком.
type dataset struct {
	orders    map[string]domain.Order
	payments  map[string]domain.Payment
	shipments map[string]domain.Shipping
	variants  map[string]domain.ProductVariant
	carts     map[string]domain.CartItem
	addresses map[string]domain.Address
	origins   map[string]domain.Origin
	audit     []domain.AuditEntry
	outbox    map[string]*outboxRecord
}

func newDataset() *dataset {
	return &dataset{
		orders:    make(map[string]domain.Order),
		payments:  make(map[string]domain.Payment),
		shipments: make(map[string]domain.Shipping),
		variants:  make(map[string]domain.ProductVariant),
		carts:     make(map[string]domain.CartItem),
		addresses: make(map[string]domain.Address),
		origins:   make(map[string]domain.Origin),
		outbox:    make(map[string]*outboxRecord),
	}
}

// clone делает глубокую копию состояния для отката транзакции.
func (d *dataset) clone() *dataset {
	cp := &dataset{
		orders:    make(map[string]domain.Order, len(d.orders)),
		payments:  make(map[string]domain.Payment, len(d.payments)),
		shipments: make(map[string]domain.Shipping, len(d.shipments)),
		variants:  make(map[string]domain.ProductVariant, len(d.variants)),
		carts:     make(map[string]domain.CartItem, len(d.carts)),
		addresses: make(map[string]domain.Address, len(d.addresses)),
		origins:   make(map[string]domain.Origin, len(d.origins)),
		audit:     make([]domain.AuditEntry, len(d.audit)),
		outbox:    make(map[string]*outboxRecord, len(d.outbox)),
	}
	for id, order := range d.orders {
		cp.orders[id] = cloneOrder(order)
	}
	for id, payment := range d.payments {
		cp.payments[id] = payment
	}
	for id, shipping := range d.shipments {
		cp.shipments[id] = shipping
	}
	for id, variant := range d.variants {
		cp.variants[id] = variant
	}
	for id, item := range d.carts {
		cp.carts[id] = item
	}
	for id, address := range d.addresses {
		cp.addresses[id] = address
	}
	for id, origin := range d.origins {
		cp.origins[id] = origin
	}
	copy(cp.audit, d.audit)
	for id, rec := range d.outbox {
		recCopy := *rec
		cp.outbox[id] = &recCopy
	}
	return cp
}

func cloneOrder(order domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	return order
}

// Store — in-memory хранилище для тестов и локальной разработки.
// Within сериализует транзакции через мьютекс и откатывает состояние
// на снапшот при ошибке fn, имитируя атомарность БД.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{data: newDataset()}
}

// Within исполняет fn как одну атомарную единицу работы.
func (s *Store) Within(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		// Уже внутри транзакции — переиспользуем её.
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// enter берёт мьютекс хранилища для одиночной операции вне транзакции.
// Внутри Within мьютекс уже удерживается.
func (s *Store) enter(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// SeedVariant кладёт вариант товара в хранилище (для тестов и dev-окружения).
func (s *Store) SeedVariant(variant domain.ProductVariant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.variants[variant.ID] = variant
}

// SeedAddress кладёт адрес доставки в хранилище.
func (s *Store) SeedAddress(address domain.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.addresses[address.ID] = address
}

// SeedOrigin кладёт точку отгрузки в хранилище.
func (s *Store) SeedOrigin(origin domain.Origin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.origins[origin.ID] = origin
}

// SeedCartItem кладёт строку корзины в хранилище.
func (s *Store) SeedCartItem(item domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.carts[item.ID] = item
}

var _ domain.UnitOfWork = (*Store)(nil)
