package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimasprasetyo/orderflow/internal/domain"
	"github.com/dimasprasetyo/orderflow/internal/service/notifier"
	"github.com/dimasprasetyo/orderflow/internal/service/payment"
	"github.com/dimasprasetyo/orderflow/internal/storage/memory"
)

type testEnv struct {
	store    *memory.Store
	engine   *Engine
	orders   domain.OrderRepository
	payments domain.PaymentRepository
	audit    domain.AuditLogRepository
	outbox   domain.OutboxRepository
	gateway  *payment.MockProvider
	notifier *notifier.MockNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	env := &testEnv{
		store:    store,
		orders:   memory.NewOrderRepository(store),
		payments: memory.NewPaymentRepository(store),
		audit:    memory.NewAuditLogRepository(store),
		outbox:   memory.NewOutboxRepository(store),
		gateway:  payment.NewMockProvider(),
		notifier: notifier.NewMockNotifier(),
	}

	env.engine = NewEngine(Deps{
		UnitOfWork: store,
		Orders:     env.orders,
		Payments:   env.payments,
		Audit:      env.audit,
		Outbox:     env.outbox,
		Providers: map[domain.PaymentMethod]domain.PaymentProvider{
			domain.PaymentMethodGateway: env.gateway,
			domain.PaymentMethodWallet:  payment.NewMockProvider(),
		},
		Notifier: env.notifier,
	})
	return env
}

func (e *testEnv) seedOrder(t *testing.T, status domain.OrderStatus, state domain.PaymentState) domain.Order {
	t.Helper()

	now := time.Now().UTC()
	order := domain.Order{
		ID:            "order-1",
		UserID:        "user-1",
		Status:        status,
		PaymentState:  state,
		Currency:      "IDR",
		AmountMinor:   3000,
		ShippingMinor: 900,
		Items: []domain.OrderItem{
			{ID: "item-1", VariantID: "variant-1", Name: "Widget", Qty: 2, PriceMinor: 1500, Currency: "IDR", CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.orders.Create(context.Background(), order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

var (
	customer = domain.Actor{UserID: "user-1", Role: domain.RoleCustomer}
)

func TestCreateAttempt_Gateway(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, domain.OrderStatusUnpaid, domain.PaymentStateUnpaid)
	ctx := context.Background()

	attempt, err := env.engine.CreateAttempt(ctx, customer, "order-1", domain.PaymentMethodGateway)
	if err != nil {
		t.Fatalf("create attempt failed: %v", err)
	}
	if attempt.Status != domain.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", attempt.Status)
	}
	// Сумма попытки = заказ + доставка.
	if attempt.AmountMinor != 3900 {
		t.Fatalf("expected amount 3900, got %d", attempt.AmountMinor)
	}
	if attempt.ProviderRef == "" || attempt.RedirectURL == "" {
		t.Fatalf("expected provider session populated, got %+v", attempt)
	}
	if env.gateway.CheckoutCalls != 1 {
		t.Fatalf("expected 1 checkout call, got %d", env.gateway.CheckoutCalls)
	}
}

func TestCreateAttempt_ReusesActivePending(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, domain.OrderStatusUnpaid, domain.PaymentStateUnpaid)
	ctx := context.Background()

	first, err := env.engine.CreateAttempt(ctx, customer, "order-1", domain.PaymentMethodGateway)
	if err != nil {
		t.Fatalf("first attempt failed: %v", err)
	}
	second, err := env.engine.CreateAttempt(ctx, customer, "order-1", domain.PaymentMethodGateway)
	if err != nil {
		t.Fatalf("second attempt failed: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("expected reuse of active attempt, got %s and %s", first.ID, second.ID)
	}
	if env.gateway.CheckoutCalls != 1 {
		t.Fatalf("reuse must not call provider again, got %d calls", env.gateway.CheckoutCalls)
	}
}

func TestCreateAttempt_ReplacesStalePending(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, domain.OrderStatusUnpaid, domain.PaymentStateUnpaid)
	ctx := context.Background()

	stale := domain.Payment{
		ID:          "payment-stale",
		OrderID:     "order-1",
		Method:      domain.PaymentMethodGateway,
		ProviderRef: "ref-stale",
		Status:      domain.PaymentStatusPending,
		AmountMinor: 3900,
		Currency:    "IDR",
		CreatedAt:   time.Now().UTC().Add(-domain.AttemptTTL - time.Minute),
	}
	if err := env.payments.Create(ctx, stale); err != nil {
		t.Fatalf("seed stale payment: %v", err)
	}

	fresh, err := env.engine.CreateAttempt(ctx, customer, "order-1", domain.PaymentMethodGateway)
	if err != nil {
		t.Fatalf("create attempt failed: %v", err)
	}
	if fresh.ID == stale.ID {
		t.Fatal("expected a new attempt, stale one was reused")
	}

	cancelled, err := env.payments.Get(ctx, stale.ID)
	if err != nil {
		t.Fatalf("get stale payment: %v", err)
	}
	if cancelled.Status != domain.PaymentStatusCancelled {
		t.Fatalf("expected stale attempt cancelled, got %s", cancelled.Status)
	}
}

func TestCreateAttempt_AlreadyPaid(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, domain.OrderStatusUnpaid, domain.PaymentStatePaid)

	_, err := env.engine.CreateAttempt(context.Background(), customer, "order-1", domain.PaymentMethodGateway)
	if !errors.Is(err, domain.ErrOrderAlreadyPaid) {
		t.Fatalf("expected ErrOrderAlreadyPaid, got %v", err)
	}
}

func TestCreateAttempt_WrongOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, domain.OrderStatusPacked, domain.PaymentStateUnpaid)

	_, err := env.engine.CreateAttempt(context.Background(), customer, "order-1", domain.PaymentMethodGateway)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCreateAttempt_UnknownMethod(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, domain.OrderStatusUnpaid, domain.PaymentStateUnpaid)

	_, err := env.engine.CreateAttempt(context.Background(), customer, "order-1", domain.PaymentMethod("crypto"))
	if !errors.Is(err, domain.ErrPaymentMethodUnknown) {
		t.Fatalf("expected ErrPaymentMethodUnknown, got %v", err)
	}
}

func TestCreateAttempt_CODSettlesSynchronously(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, domain.OrderStatusUnpaid, domain.PaymentStateUnpaid)
	ctx := context.Background()

	attempt, err := env.engine.CreateAttempt(ctx, customer, "order-1", domain.PaymentMethodCOD)
	if err != nil {
		t.Fatalf("cod attempt failed: %v", err)
	}
	if attempt.Status != domain.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", attempt.Status)
	}
	if attempt.PaidAt.IsZero() {
		t.Fatal("expected paid_at set")
	}

	order, err := env.orders.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.PaymentState != domain.PaymentStatePaid {
		t.Fatalf("expected order payment state paid, got %s", order.PaymentState)
	}

	env.engine.Shutdown()
	if env.notifier.PaymentCalls != 1 {
		t.Fatalf("expected 1 payment notification, got %d", env.notifier.PaymentCalls)
	}
}

func TestHandleCallback_InvalidSignature(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.VerifyResult = false

	_, err := env.engine.HandleCallback(context.Background(), domain.PaymentMethodGateway, []byte(`{}`))
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestHandleCallback_PaidAppliesAndNotifiesOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, domain.OrderStatusUnpaid, domain.PaymentStateUnpaid)
	ctx := context.Background()

	attempt, err := env.engine.CreateAttempt(ctx, customer, "order-1", domain.PaymentMethodGateway)
	if err != nil {
		t.Fatalf("create attempt failed: %v", err)
	}
	env.gateway.Callback = domain.CallbackResult{
		OrderID:     "order-1",
		ProviderRef: attempt.ProviderRef,
		Status:      domain.PaymentStatusPaid,
		RawStatus:   "settlement",
	}

	applied, err := env.engine.HandleCallback(ctx, domain.PaymentMethodGateway, []byte(`{"status":"settlement"}`))
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if applied.Status != domain.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", applied.Status)
	}

	order, err := env.orders.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.PaymentState != domain.PaymentStatePaid {
		t.Fatalf("expected paid state, got %s", order.PaymentState)
	}

	// Повтор того же callback'а — no-op, без второго уведомления.
	if _, err := env.engine.HandleCallback(ctx, domain.PaymentMethodGateway, []byte(`{"status":"settlement"}`)); err != nil {
		t.Fatalf("duplicate callback must be no-op success: %v", err)
	}

	env.engine.Shutdown()
	if env.notifier.PaymentCalls != 1 {
		t.Fatalf("expected exactly 1 payment notification, got %d", env.notifier.PaymentCalls)
	}
}

func TestHandleCallback_RefundTouchesOnlyAttempt(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, domain.OrderStatusShipped, domain.PaymentStatePaid)
	ctx := context.Background()

	paid := domain.Payment{
		ID:          "payment-1",
		OrderID:     "order-1",
		Method:      domain.PaymentMethodGateway,
		ProviderRef: "ref-1",
		Status:      domain.PaymentStatusPaid,
		AmountMinor: 3900,
		Currency:    "IDR",
		CreatedAt:   time.Now().UTC(),
	}
	if err := env.payments.Create(ctx, paid); err != nil {
		t.Fatalf("seed paid payment: %v", err)
	}

	env.gateway.Callback = domain.CallbackResult{
		OrderID:     "order-1",
		ProviderRef: "ref-1",
		Status:      domain.PaymentStatusRefunded,
		RawStatus:   "refund",
	}

	refunded, err := env.engine.HandleCallback(ctx, domain.PaymentMethodGateway, []byte(`{"status":"refund"}`))
	if err != nil {
		t.Fatalf("refund callback failed: %v", err)
	}
	if refunded.Status != domain.PaymentStatusRefunded {
		t.Fatalf("expected refunded attempt, got %s", refunded.Status)
	}

	// Refund меняет только попытку: платёжное состояние заказа снимается
	// отдельным административным решением.
	order, err := env.orders.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.PaymentState != domain.PaymentStatePaid {
		t.Fatalf("expected order payment state untouched, got %s", order.PaymentState)
	}
	if order.Status != domain.OrderStatusShipped {
		t.Fatalf("expected order status untouched, got %s", order.Status)
	}

	env.engine.Shutdown()
	if env.notifier.PaymentCalls != 0 {
		t.Fatalf("refund must not notify as payment, got %d calls", env.notifier.PaymentCalls)
	}
}

func TestHandleCallback_EmitsTypedPaymentEvent(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, domain.OrderStatusUnpaid, domain.PaymentStateUnpaid)
	ctx := context.Background()

	attempt, err := env.engine.CreateAttempt(ctx, customer, "order-1", domain.PaymentMethodGateway)
	if err != nil {
		t.Fatalf("create attempt failed: %v", err)
	}
	env.gateway.Callback = domain.CallbackResult{
		OrderID:     "order-1",
		ProviderRef: attempt.ProviderRef,
		Status:      domain.PaymentStatusPaid,
		RawStatus:   "settlement",
	}
	if _, err := env.engine.HandleCallback(ctx, domain.PaymentMethodGateway, []byte(`{"status":"settlement"}`)); err != nil {
		t.Fatalf("callback failed: %v", err)
	}

	pending, err := env.outbox.PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull outbox: %v", err)
	}
	var found bool
	for _, msg := range pending {
		if msg.AggregateType == "payment" && msg.EventType == "payment.paid" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected payment.paid event in outbox, got %+v", pending)
	}

	env.engine.Shutdown()
}

func TestHandleCallback_UnknownProviderRef(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.Callback = domain.CallbackResult{ProviderRef: "ref-unknown", Status: domain.PaymentStatusPaid}

	_, err := env.engine.HandleCallback(context.Background(), domain.PaymentMethodGateway, []byte(`{}`))
	if !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestActiveStatus(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, domain.OrderStatusUnpaid, domain.PaymentStateUnpaid)
	ctx := context.Background()

	attempt, err := env.engine.CreateAttempt(ctx, customer, "order-1", domain.PaymentMethodGateway)
	if err != nil {
		t.Fatalf("create attempt failed: %v", err)
	}

	active, err := env.engine.ActiveStatus(ctx, customer, "order-1")
	if err != nil {
		t.Fatalf("active status failed: %v", err)
	}
	if active.ID != attempt.ID {
		t.Fatalf("expected %s, got %s", attempt.ID, active.ID)
	}
}

func TestActiveStatus_ExpiredAttemptHidden(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, domain.OrderStatusUnpaid, domain.PaymentStateUnpaid)
	ctx := context.Background()

	stale := domain.Payment{
		ID:          "payment-stale",
		OrderID:     "order-1",
		Method:      domain.PaymentMethodGateway,
		ProviderRef: "ref-stale",
		Status:      domain.PaymentStatusPending,
		CreatedAt:   time.Now().UTC().Add(-domain.AttemptTTL - time.Minute),
	}
	if err := env.payments.Create(ctx, stale); err != nil {
		t.Fatalf("seed stale payment: %v", err)
	}

	if _, err := env.engine.ActiveStatus(ctx, customer, "order-1"); !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound for expired attempt, got %v", err)
	}
}

func TestReconcilePending_AppliesProviderStatus(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, domain.OrderStatusUnpaid, domain.PaymentStateUnpaid)
	ctx := context.Background()

	attempt, err := env.engine.CreateAttempt(ctx, customer, "order-1", domain.PaymentMethodGateway)
	if err != nil {
		t.Fatalf("create attempt failed: %v", err)
	}

	// Callback потерялся, провайдер при опросе говорит paid.
	env.gateway.Status = domain.PaymentStatusPaid

	reconciled, err := env.engine.ReconcilePending(ctx, "order-1")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if reconciled.ID != attempt.ID {
		t.Fatalf("expected %s, got %s", attempt.ID, reconciled.ID)
	}
	if reconciled.Status != domain.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", reconciled.Status)
	}

	order, err := env.orders.Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.PaymentState != domain.PaymentStatePaid {
		t.Fatalf("expected order paid, got %s", order.PaymentState)
	}
	if env.gateway.QueryCalls != 1 {
		t.Fatalf("expected 1 query call, got %d", env.gateway.QueryCalls)
	}

	env.engine.Shutdown()
}
