package domain

import "time"

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	// PaymentMethodGateway — hosted checkout платёжного шлюза (редирект).
	PaymentMethodGateway PaymentMethod = "gateway"
	// PaymentMethodWallet — международный кошелёк (токен вместо редиректа).
	PaymentMethodWallet PaymentMethod = "wallet"
	// PaymentMethodCOD — оплата при получении, без внешнего провайдера.
	PaymentMethodCOD PaymentMethod = "cod"
)

// Valid проверяет, что способ оплаты поддерживается.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodGateway, PaymentMethodWallet, PaymentMethodCOD:
		return true
	default:
		return false
	}
}

// PaymentStatus — каноническое состояние платёжной попытки, единое для всех провайдеров.
type PaymentStatus string

const (
	// PaymentStatusPending — попытка создана, ждём callback провайдера.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid — провайдер подтвердил оплату.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusFailed — провайдер отклонил платёж.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusCancelled — попытка отменена (например, протухла).
	PaymentStatusCancelled PaymentStatus = "cancelled"
	// PaymentStatusRefunded — деньги возвращены клиенту.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// AttemptTTL — окно валидности активной платёжной попытки. Попытка старше
// окна отменяется перед созданием новой; чтение ActiveStatus обязано
// использовать ту же константу, чтобы обе половины оставались согласованными.
const AttemptTTL = 30 * time.Minute

// Payment — одна платёжная попытка по заказу. Попыток может быть несколько
// (retry), но активной (pending внутри окна валидности) — не более одной.
type Payment struct {
	ID      string
	OrderID string
	Method  PaymentMethod
	// ProviderRef — токен/идентификатор сессии на стороне провайдера.
	ProviderRef string
	// RedirectURL — hosted-checkout ссылка, если провайдер её возвращает.
	RedirectURL string
	Status      PaymentStatus
	AmountMinor int64
	Currency    string
	// PaidAt заполняется движком сверки при подтверждении оплаты.
	PaidAt    time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active сообщает, действительна ли попытка на момент now:
// pending и моложе окна валидности.
func (p *Payment) Active(now time.Time) bool {
	if p.Status != PaymentStatusPending {
		return false
	}
	return now.Sub(p.CreatedAt) < AttemptTTL
}

// ExpiresAt возвращает момент истечения окна валидности попытки.
func (p *Payment) ExpiresAt() time.Time {
	return p.CreatedAt.Add(AttemptTTL)
}

// Validate проверяет корректность полей платежа и возвращает ошибки, если они есть.
func (p *Payment) Validate() []error {
	var errs []error

	if p.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if !p.Method.Valid() {
		errs = append(errs, ErrPaymentMethodUnknown)
	}
	if p.AmountMinor < 0 {
		errs = append(errs, ErrPaymentAmountNegative)
	}

	return errs
}
