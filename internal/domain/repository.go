package domain

import "context"

// UnitOfWork исполняет fn в одной транзакции хранилища. Все репозитории,
// вызванные с полученным ctx, работают внутри этой транзакции; ошибка fn
// откатывает все изменения целиком.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ вместе с позициями.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// GetForUpdate возвращает заказ, удерживая блокировку строки до конца
	// транзакции (сериализует конкурентные переходы по одному заказу).
	GetForUpdate(ctx context.Context, id string) (Order, error)
	// ListByUser возвращает заказы пользователя, новые первыми.
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(ctx context.Context, order Order) error
}

// PaymentRepository хранит платёжные попытки.
type PaymentRepository interface {
	Create(ctx context.Context, payment Payment) error
	Get(ctx context.Context, id string) (Payment, error)
	// GetByProviderRef ищет попытку по ссылке провайдера (корреляция callback'ов).
	GetByProviderRef(ctx context.Context, providerRef string) (Payment, error)
	// LatestPending возвращает новейшую pending-попытку заказа
	// или ErrPaymentNotFound.
	LatestPending(ctx context.Context, orderID string) (Payment, error)
	ListByOrder(ctx context.Context, orderID string) ([]Payment, error)
	Save(ctx context.Context, payment Payment) error
}

// ShippingRepository хранит отправления (не более одного на заказ).
type ShippingRepository interface {
	Create(ctx context.Context, shipping Shipping) error
	GetByOrder(ctx context.Context, orderID string) (Shipping, error)
	Save(ctx context.Context, shipping Shipping) error
}

// InventoryLedger — единственный компонент, которому позволено мутировать
// сток вариантов. Обе операции атомарны и обязаны выполняться в той же
// транзакции, что и породившие их записи заказа.
type InventoryLedger interface {
	// Reserve списывает qty единиц; ErrInsufficientStock, если остатка не хватает.
	// Проверка и списание — одно атомарное действие, не check-then-act.
	Reserve(ctx context.Context, variantID string, qty int32) error
	// Release безусловно возвращает qty единиц на остаток.
	Release(ctx context.Context, variantID string, qty int32) error
	// GetVariant возвращает вариант или ErrVariantNotFound.
	GetVariant(ctx context.Context, id string) (ProductVariant, error)
}

// CartRepository читает и потребляет строки корзины.
type CartRepository interface {
	// ListByUser возвращает строки корзины пользователя; при непустом ids —
	// только указанное подмножество.
	ListByUser(ctx context.Context, userID string, ids []string) ([]CartItem, error)
	// Delete удаляет потреблённые строки.
	Delete(ctx context.Context, ids []string) error
}

// AddressRepository читает адреса доставки.
type AddressRepository interface {
	Get(ctx context.Context, id string) (Address, error)
}

// OriginRepository читает точки отгрузки.
type OriginRepository interface {
	// Active возвращает единственную активную точку или ErrNoActiveOrigin.
	Active(ctx context.Context) (Origin, error)
}

// AuditLogRepository — append-only журнал операций.
type AuditLogRepository interface {
	Append(ctx context.Context, entry AuditEntry) error
	ListByOrder(ctx context.Context, orderID string) ([]AuditEntry, error)
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}
