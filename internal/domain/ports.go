package domain

import (
	"context"
	"time"
)

// CheckoutSession — провайдеро-специфичный хэндл оплаты: редирект-ссылка
// для gateway-метода либо токен для кошелька.
type CheckoutSession struct {
	ProviderRef string
	RedirectURL string
	Token       string
}

// CallbackResult — нормализованный результат разбора callback'а провайдера.
type CallbackResult struct {
	OrderID     string
	ProviderRef string
	// Status — канонический статус, на который указывает callback.
	Status PaymentStatus
	// RawStatus — исходный статус в словаре провайдера (для аудита).
	RawStatus string
}

// PaymentProvider описывает адаптер одного платёжного метода.
type PaymentProvider interface {
	// CreateCheckout открывает платёжную сессию у провайдера.
	// Вызывается строго вне транзакции хранилища.
	CreateCheckout(ctx context.Context, order Order, payment Payment) (CheckoutSession, error)
	// VerifyCallback проверяет подлинность payload по правилам провайдера.
	VerifyCallback(payload []byte) bool
	// NormalizeCallback переводит payload в канонический результат.
	NormalizeCallback(payload []byte) (CallbackResult, error)
	// QueryStatus запрашивает актуальный статус по ссылке провайдера
	// (для внеполосных сверок).
	QueryStatus(ctx context.Context, providerRef string) (PaymentStatus, error)
}

// CarrierContact — контакт стороны перевозки в заявке перевозчику.
// AreaID и PostalCode взаимоисключающие: если область найдена,
// почтовый индекс не отправляется.
type CarrierContact struct {
	Name       string
	Phone      string
	Line       string
	City       string
	AreaID     string
	PostalCode string
}

// CarrierItem — строка груза в заявке перевозчику.
type CarrierItem struct {
	Name       string
	Qty        int32
	ValueMinor int64
	// WeightGrams — вес единицы; 0 означает дефолт перевозчика.
	WeightGrams int32
}

// CarrierOrder — заявка на создание накладной.
type CarrierOrder struct {
	// Reference — внутренний идентификатор заказа; служит ключом идемпотентности.
	Reference   string
	CourierCode string
	ServiceCode string
	Shipper     CarrierContact
	Origin      CarrierContact
	Destination CarrierContact
	Items       []CarrierItem
}

// CarrierOrderResult — ответ перевозчика на создание накладной.
type CarrierOrderResult struct {
	CarrierOrderID string
	// TrackingNumber пуст, если перевозчик присваивает номер позже.
	TrackingNumber    string
	Status            string
	EstimatedDelivery time.Time
}

// CarrierGateway описывает API перевозчика.
type CarrierGateway interface {
	// ResolveArea возвращает идентификатор гео-области по почтовому индексу
	// либо пустую строку, если область не найдена.
	ResolveArea(ctx context.Context, postalCode string) (string, error)
	// CreateOrder создаёт накладную. Ошибка перевозчика пробрасывается
	// дословно через ProviderError; retry на этом уровне не выполняется.
	CreateOrder(ctx context.Context, order CarrierOrder) (CarrierOrderResult, error)
	// Track возвращает события трекинга по номеру накладной.
	Track(ctx context.Context, trackingNumber, courier string) ([]TrackingEvent, error)
}

// Notifier — внешний коллаборатор уведомлений. Все вызовы fire-and-forget:
// ошибка логируется и никогда не прерывает основную операцию.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, order Order) error
	SendStatusChange(ctx context.Context, order Order, from, to OrderStatus) error
	SendPaymentReceived(ctx context.Context, order Order, payment Payment) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}
