package domain

import "time"

// OrderStatus описывает жизненный цикл заказа в движке оформления.
type OrderStatus string

const (
	// OrderStatusUnpaid — заказ создан, оплата ещё не подтверждена.
	OrderStatusUnpaid OrderStatus = "unpaid"
	// OrderStatusPacked — заказ собран и готов к передаче перевозчику.
	OrderStatusPacked OrderStatus = "packed"
	// OrderStatusShipped — накладная создана, заказ передан перевозчику.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusReceived — клиент подтвердил получение (терминальный статус).
	OrderStatusReceived OrderStatus = "received"
	// OrderStatusCancelled — заказ отменён до отгрузки (терминальный статус).
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentState описывает платёжное состояние заказа. Меняется только
// движком сверки платежей либо явным admin-переопределением.
type PaymentState string

const (
	PaymentStateUnpaid   PaymentState = "unpaid"
	PaymentStatePaid     PaymentState = "paid"
	PaymentStateRefunded PaymentState = "refunded"
)

// transitions — закрытая таблица допустимых переходов статуса.
// Любой переход вне этой таблицы запрещён; запрос того же статуса — no-op.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusUnpaid:    {OrderStatusPacked, OrderStatusCancelled},
	OrderStatusPacked:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusReceived},
	OrderStatusReceived:  {},
	OrderStatusCancelled: {},
}

// Valid проверяет, что статус относится к известным значениям.
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo проверяет допустимость перехода по таблице смежности.
// Переход в тот же статус считается допустимым (идемпотентный no-op).
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// OrderItem — неизменяемая позиция заказа со снапшотом цены варианта
// на момент оформления. Создаётся один раз, никогда не мутируется.
type OrderItem struct {
	ID string
	// VariantID — ссылка на вариант товара, чей сток был списан.
	VariantID string
	// Name — имя товара на момент оформления (для накладной и уведомлений).
	Name string
	Qty  int32
	// PriceMinor — цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	// BasePriceMinor — цена без скидки, также снапшот.
	BasePriceMinor int64
	Currency       string
	CreatedAt      time.Time
}

// Order — корневой агрегат движка. Статус меняется только через
// валидируемую машину состояний, платёжное состояние — только движком сверки.
type Order struct {
	ID           string
	UserID       string
	Status       OrderStatus
	PaymentState PaymentState
	Currency     string
	// AmountMinor — итог заказа: Σ(цена варианта × количество).
	AmountMinor int64
	// ShippingMinor — стоимость доставки, выбранная на checkout.
	ShippingMinor int64
	// CourierCode и ServiceCode — коды перевозчика, выбранные на checkout.
	CourierCode string
	ServiceCode string
	// AddressID — снапшот-ссылка на адрес доставки.
	AddressID string
	Items     []OrderItem
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if o.Currency == "" {
		errs = append(errs, ErrCurrencyRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if o.ShippingMinor < 0 {
		errs = append(errs, ErrShippingNegative)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusUnknown)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	var calc int64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.PriceMinor
	}
	if calc != o.AmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
