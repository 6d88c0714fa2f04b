package memory

import (
	"context"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

// paymentRepositoryInMemory — in-memory реализация PaymentRepository.
type paymentRepositoryInMemory struct {
	store *Store
}

// NewPaymentRepository возвращает in-memory репозиторий платёжных попыток.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepositoryInMemory{store: store}
}

func (r *paymentRepositoryInMemory) Create(ctx context.Context, payment domain.Payment) error {
	defer r.store.enter(ctx)()

	if _, exists := r.store.data.payments[payment.ID]; exists {
		return domain.ErrDuplicateActivePayment
	}
	// Имитация partial unique index: не более одной pending-попытки на заказ.
	if payment.Status == domain.PaymentStatusPending {
		for _, existing := range r.store.data.payments {
			if existing.OrderID == payment.OrderID && existing.Status == domain.PaymentStatusPending {
				return domain.ErrDuplicateActivePayment
			}
		}
	}
	r.store.data.payments[payment.ID] = payment
	return nil
}

func (r *paymentRepositoryInMemory) Get(ctx context.Context, id string) (domain.Payment, error) {
	defer r.store.enter(ctx)()

	payment, ok := r.store.data.payments[id]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (r *paymentRepositoryInMemory) GetByProviderRef(ctx context.Context, providerRef string) (domain.Payment, error) {
	defer r.store.enter(ctx)()

	if providerRef == "" {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	for _, payment := range r.store.data.payments {
		if payment.ProviderRef == providerRef {
			return payment, nil
		}
	}
	return domain.Payment{}, domain.ErrPaymentNotFound
}

// LatestPending возвращает новейшую pending-попытку заказа.
func (r *paymentRepositoryInMemory) LatestPending(ctx context.Context, orderID string) (domain.Payment, error) {
	defer r.store.enter(ctx)()

	var (
		found  bool
		latest domain.Payment
	)
	for _, payment := range r.store.data.payments {
		if payment.OrderID != orderID || payment.Status != domain.PaymentStatusPending {
			continue
		}
		if !found || payment.CreatedAt.After(latest.CreatedAt) {
			latest = payment
			found = true
		}
	}
	if !found {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return latest, nil
}

func (r *paymentRepositoryInMemory) ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	defer r.store.enter(ctx)()

	result := make([]domain.Payment, 0)
	for _, payment := range r.store.data.payments {
		if payment.OrderID == orderID {
			result = append(result, payment)
		}
	}
	return result, nil
}

func (r *paymentRepositoryInMemory) Save(ctx context.Context, payment domain.Payment) error {
	defer r.store.enter(ctx)()

	if _, ok := r.store.data.payments[payment.ID]; !ok {
		return domain.ErrPaymentNotFound
	}
	r.store.data.payments[payment.ID] = payment
	return nil
}

var _ domain.PaymentRepository = (*paymentRepositoryInMemory)(nil)
