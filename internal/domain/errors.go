package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = errors.New("currency is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("amount_minor must be non-negative")
	// Ошибка отрицательной стоимости доставки.
	ErrShippingNegative = errors.New("shipping_minor must be non-negative")
	// Ошибка неизвестного статуса заказа.
	ErrStatusUnknown = errors.New("order status is unknown")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match items sum")
	// Ошибка отсутствующего идентификатора заказа в платежах/отправлениях.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка неизвестного способа оплаты.
	ErrPaymentMethodUnknown = errors.New("payment method is unknown")
	// Ошибка отрицательной суммы платежа.
	ErrPaymentAmountNegative = errors.New("payment amount must be non-negative")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrAddressNotFound — адрес не найден или принадлежит другому пользователю.
	ErrAddressNotFound = errors.New("address not found")
	// ErrVariantNotFound — вариант товара не найден.
	ErrVariantNotFound = errors.New("product variant not found")
	// ErrPaymentNotFound — платёжная попытка не найдена.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrShippingNotFound — отправление не найдено.
	ErrShippingNotFound = errors.New("shipping not found")

	// ErrEmptyCart — checkout без единой строки корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrProductUnavailable — вариант принадлежит soft-deleted товару.
	ErrProductUnavailable = errors.New("product is unavailable")
	// ErrInsufficientStock — атомарное списание стока не прошло по остатку.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransition — переход статуса вне таблицы смежности.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrOrderAlreadyPaid — попытка платежа по уже оплаченному заказу.
	ErrOrderAlreadyPaid = errors.New("order is already paid")
	// ErrDuplicateActivePayment — конкурентное создание второй активной попытки
	// (partial unique index на стороне БД).
	ErrDuplicateActivePayment = errors.New("active payment attempt already exists")
	// ErrShippingExists — на заказ уже создано отправление (1:1).
	ErrShippingExists = errors.New("shipping already exists for order")
	// ErrNotAuthorized — актору не хватает прав на операцию.
	ErrNotAuthorized = errors.New("actor is not authorized for this operation")

	// ErrInvalidSignature — подпись callback'а провайдера не прошла проверку.
	ErrInvalidSignature = errors.New("callback signature is invalid")
	// ErrNoActiveOrigin — не настроена активная точка отгрузки.
	ErrNoActiveOrigin = errors.New("no active origin location configured")

	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// ErrorKind — машиночитаемая категория ошибки, возвращаемая наружу
// вместе с человекочитаемым сообщением.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindExternal   ErrorKind = "external_provider"
	KindInternal   ErrorKind = "internal"
)

// ProviderError переносит код и сообщение внешнего провайдера дословно,
// не раскрывая внутренних деталей и секретов.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
}

// KindOf классифицирует ошибку по таксономии движка. Неизвестные ошибки
// считаются внутренними.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrUserRequired),
		errors.Is(err, ErrCurrencyRequired),
		errors.Is(err, ErrItemsRequired),
		errors.Is(err, ErrItemQtyInvalid),
		errors.Is(err, ErrPaymentMethodUnknown),
		errors.Is(err, ErrInvalidSignature),
		errors.Is(err, ErrStatusUnknown):
		return KindValidation
	case errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrAddressNotFound),
		errors.Is(err, ErrVariantNotFound),
		errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, ErrShippingNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrProductUnavailable),
		errors.Is(err, ErrOrderAlreadyPaid),
		errors.Is(err, ErrDuplicateActivePayment),
		errors.Is(err, ErrShippingExists),
		errors.Is(err, ErrNotAuthorized),
		errors.Is(err, ErrOrderVersionConflict):
		return KindConflict
	case errors.Is(err, ErrNoActiveOrigin), isProviderError(err):
		return KindExternal
	default:
		return KindInternal
	}
}

func isProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
