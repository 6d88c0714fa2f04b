package notifier

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

// MockNotifier — заглушка Notifier, считающая вызовы. Потокобезопасна,
// потому что уведомления уходят из фоновых горутин.
type MockNotifier struct {
	mu sync.Mutex

	ConfirmationErr error
	StatusErr       error
	PaymentErr      error

	ConfirmationCalls int
	StatusCalls       int
	PaymentCalls      int
}

// NewMockNotifier возвращает mock с успешным сценарием по умолчанию.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) SendOrderConfirmation(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConfirmationCalls++
	return m.ConfirmationErr
}

func (m *MockNotifier) SendStatusChange(ctx context.Context, order domain.Order, from, to domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatusCalls++
	return m.StatusErr
}

func (m *MockNotifier) SendPaymentReceived(ctx context.Context, order domain.Order, payment domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PaymentCalls++
	return m.PaymentErr
}

// Calls возвращает суммарное число отправленных уведомлений.
func (m *MockNotifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ConfirmationCalls + m.StatusCalls + m.PaymentCalls
}

var _ domain.Notifier = (*MockNotifier)(nil)

// LogNotifier пишет уведомления в лог вместо отправки. Используется,
// когда внешний канал уведомлений не настроен.
type LogNotifier struct {
	logger *log.Entry
}

// NewLogNotifier создаёт notifier, пишущий в лог.
func NewLogNotifier(logger *log.Entry) *LogNotifier {
	if logger == nil {
		logger = log.New().WithField("component", "notifier")
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOrderConfirmation(ctx context.Context, order domain.Order) error {
	n.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
	}).Info("order confirmation notification")
	return nil
}

func (n *LogNotifier) SendStatusChange(ctx context.Context, order domain.Order, from, to domain.OrderStatus) error {
	n.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"from":     from,
		"to":       to,
	}).Info("status change notification")
	return nil
}

func (n *LogNotifier) SendPaymentReceived(ctx context.Context, order domain.Order, payment domain.Payment) error {
	n.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"payment_id": payment.ID,
	}).Info("payment received notification")
	return nil
}

var _ domain.Notifier = (*LogNotifier)(nil)
