package carrier

import (
	"context"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

// MockGateway — конфигурируемая заглушка CarrierGateway для тестов.
type MockGateway struct {
	AreaID    string
	AreaErr   error
	Result    domain.CarrierOrderResult
	CreateErr error
	Events    []domain.TrackingEvent
	TrackErr  error

	ResolveCalls int
	CreateCalls  int
	TrackCalls   int

	// LastOrder хранит последнюю принятую заявку для проверок в тестах.
	LastOrder domain.CarrierOrder
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		AreaID: "IDNP6IDNC148",
		Result: domain.CarrierOrderResult{
			CarrierOrderID: "carrier-order-1",
			TrackingNumber: "TRK-0001",
			Status:         "confirmed",
		},
	}
}

// ResolveArea возвращает настроенный идентификатор области.
func (m *MockGateway) ResolveArea(ctx context.Context, postalCode string) (string, error) {
	m.ResolveCalls++
	return m.AreaID, m.AreaErr
}

// CreateOrder запоминает заявку и возвращает настроенный результат.
func (m *MockGateway) CreateOrder(ctx context.Context, order domain.CarrierOrder) (domain.CarrierOrderResult, error) {
	m.CreateCalls++
	m.LastOrder = order
	if m.CreateErr != nil {
		return domain.CarrierOrderResult{}, m.CreateErr
	}
	return m.Result, nil
}

// Track возвращает настроенные события трекинга.
func (m *MockGateway) Track(ctx context.Context, trackingNumber, courier string) ([]domain.TrackingEvent, error) {
	m.TrackCalls++
	return m.Events, m.TrackErr
}

var _ domain.CarrierGateway = (*MockGateway)(nil)
