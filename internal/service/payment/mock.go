package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

// MockProvider — конфигурируемая заглушка PaymentProvider для тестов
// и локальной разработки без внешних платёжных систем.
type MockProvider struct {
	Session      domain.CheckoutSession
	CheckoutErr  error
	VerifyResult bool
	Callback     domain.CallbackResult
	CallbackErr  error
	Status       domain.PaymentStatus
	StatusErr    error

	CheckoutCalls int
	VerifyCalls   int
	QueryCalls    int
}

// NewMockProvider возвращает mock с успешным сценарием по умолчанию.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Session: domain.CheckoutSession{
			ProviderRef: "mock-" + uuid.NewString(),
			RedirectURL: "https://checkout.example/session",
		},
		VerifyResult: true,
		Status:       domain.PaymentStatusPending,
	}
}

// CreateCheckout возвращает заранее настроенную сессию и считает вызовы.
func (m *MockProvider) CreateCheckout(ctx context.Context, order domain.Order, payment domain.Payment) (domain.CheckoutSession, error) {
	m.CheckoutCalls++
	return m.Session, m.CheckoutErr
}

// VerifyCallback возвращает настроенный результат проверки подписи.
func (m *MockProvider) VerifyCallback(payload []byte) bool {
	m.VerifyCalls++
	return m.VerifyResult
}

// NormalizeCallback возвращает настроенный результат разбора callback'а.
func (m *MockProvider) NormalizeCallback(payload []byte) (domain.CallbackResult, error) {
	return m.Callback, m.CallbackErr
}

// QueryStatus возвращает настроенный статус и считает вызовы.
func (m *MockProvider) QueryStatus(ctx context.Context, providerRef string) (domain.PaymentStatus, error) {
	m.QueryCalls++
	return m.Status, m.StatusErr
}

var _ domain.PaymentProvider = (*MockProvider)(nil)
