package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dimasprasetyo/orderflow/internal/domain"
	"github.com/dimasprasetyo/orderflow/internal/messaging/kafka"
	"github.com/dimasprasetyo/orderflow/internal/metrics"
)

// Engine сверяет платёжные попытки с провайдерами: создание попыток,
// обработка callback'ов и внеполосный опрос статуса. Канонический статус
// платежа хранится у нас; провайдерные словари нормализуются на входе.
type Engine struct {
	uow       domain.UnitOfWork
	orders    domain.OrderRepository
	payments  domain.PaymentRepository
	audit     domain.AuditLogRepository
	outbox    domain.OutboxRepository
	providers map[domain.PaymentMethod]domain.PaymentProvider
	notifier  domain.Notifier
	logger    *log.Entry
	metrics   *metrics.LifecycleMetrics

	wg sync.WaitGroup
}

// Deps — зависимости Engine.
type Deps struct {
	UnitOfWork domain.UnitOfWork
	Orders     domain.OrderRepository
	Payments   domain.PaymentRepository
	Audit      domain.AuditLogRepository
	Outbox     domain.OutboxRepository
	Providers  map[domain.PaymentMethod]domain.PaymentProvider
	Notifier   domain.Notifier
	Logger     *log.Entry
	Metrics    *metrics.LifecycleMetrics
}

// NewEngine создаёт движок платёжной сверки.
func NewEngine(deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = log.New().WithField("component", "reconcile")
	}
	return &Engine{
		uow:       deps.UnitOfWork,
		orders:    deps.Orders,
		payments:  deps.Payments,
		audit:     deps.Audit,
		outbox:    deps.Outbox,
		providers: deps.Providers,
		notifier:  deps.Notifier,
		logger:    logger,
		metrics:   deps.Metrics,
	}
}

// CreateAttempt создаёт платёжную попытку по заказу. Активная попытка
// внутри окна валидности переиспользуется; протухшая отменяется перед
// созданием новой. COD рассчитывается синхронно без внешнего провайдера.
func (e *Engine) CreateAttempt(ctx context.Context, actor domain.Actor, orderID string, method domain.PaymentMethod) (domain.Payment, error) {
	if !method.Valid() {
		return domain.Payment{}, domain.ErrPaymentMethodUnknown
	}

	order, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return domain.Payment{}, domain.ErrOrderNotFound
	}
	if order.PaymentState == domain.PaymentStatePaid {
		return domain.Payment{}, domain.ErrOrderAlreadyPaid
	}
	if order.Status != domain.OrderStatusUnpaid {
		return domain.Payment{}, domain.ErrInvalidTransition
	}

	now := time.Now().UTC()

	// Переиспользуем активную попытку и отменяем протухшую в одной
	// транзакции, до какого-либо обращения к провайдеру.
	var reused domain.Payment
	err = e.uow.Within(ctx, func(ctx context.Context) error {
		pending, err := e.payments.LatestPending(ctx, orderID)
		if err != nil {
			if errors.Is(err, domain.ErrPaymentNotFound) {
				return nil
			}
			return err
		}
		if pending.Active(now) {
			reused = pending
			return nil
		}
		pending.Status = domain.PaymentStatusCancelled
		pending.UpdatedAt = now
		return e.payments.Save(ctx, pending)
	})
	if err != nil {
		return domain.Payment{}, err
	}
	if reused.ID != "" {
		return reused, nil
	}

	payment := domain.Payment{
		ID:          uuid.NewString(),
		OrderID:     order.ID,
		Method:      method,
		Status:      domain.PaymentStatusPending,
		AmountMinor: order.AmountMinor + order.ShippingMinor,
		Currency:    order.Currency,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if method == domain.PaymentMethodCOD {
		return e.settleCOD(ctx, actor, order, payment)
	}

	provider, ok := e.providers[method]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentMethodUnknown
	}

	// Провайдер вызывается вне транзакции: сетевой вызов не должен
	// удерживать блокировки хранилища.
	session, err := provider.CreateCheckout(ctx, order, payment)
	if err != nil {
		e.appendAudit(ctx, actor, order.ID, "payment_attempt", domain.AuditOutcomeFailure, err.Error())
		return domain.Payment{}, err
	}
	payment.ProviderRef = session.ProviderRef
	payment.RedirectURL = session.RedirectURL

	err = e.uow.Within(ctx, func(ctx context.Context) error {
		if err := e.payments.Create(ctx, payment); err != nil {
			return err
		}
		e.appendAudit(ctx, actor, order.ID, "payment_attempt", domain.AuditOutcomeSuccess, string(method))
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}

	if e.metrics != nil {
		e.metrics.RecordPaymentAttempt(string(method))
	}
	e.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"payment_id": payment.ID,
		"method":     method,
	}).Info("payment attempt created")
	return payment, nil
}

// settleCOD создаёт попытку и помечает заказ оплаченным в одной транзакции.
func (e *Engine) settleCOD(ctx context.Context, actor domain.Actor, order domain.Order, payment domain.Payment) (domain.Payment, error) {
	now := payment.CreatedAt
	payment.Status = domain.PaymentStatusPaid
	payment.PaidAt = now

	err := e.uow.Within(ctx, func(ctx context.Context) error {
		locked, err := e.orders.GetForUpdate(ctx, order.ID)
		if err != nil {
			return err
		}
		if locked.PaymentState == domain.PaymentStatePaid {
			return domain.ErrOrderAlreadyPaid
		}

		if err := e.payments.Create(ctx, payment); err != nil {
			return err
		}

		locked.PaymentState = domain.PaymentStatePaid
		locked.UpdatedAt = now
		if err := e.orders.Save(ctx, locked); err != nil {
			return err
		}

		e.appendAudit(ctx, actor, order.ID, "payment_attempt", domain.AuditOutcomeSuccess, "cod settled")
		e.emitPaymentEvent(ctx, payment, map[string]any{
			"amount_minor": payment.AmountMinor,
		})
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}

	if e.metrics != nil {
		e.metrics.RecordPaymentAttempt(string(payment.Method))
	}
	e.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"payment_id": payment.ID,
	}).Info("cod payment settled")

	e.notifyPaid(order, payment)
	return payment, nil
}

// HandleCallback обрабатывает webhook провайдера. Обработка идемпотентна:
// повтор callback'а с уже применённым статусом — no-op успех, уведомление
// не дублируется.
func (e *Engine) HandleCallback(ctx context.Context, method domain.PaymentMethod, payload []byte) (domain.Payment, error) {
	provider, ok := e.providers[method]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentMethodUnknown
	}
	if !provider.VerifyCallback(payload) {
		if e.metrics != nil {
			e.metrics.RecordCallback("invalid_signature")
		}
		return domain.Payment{}, domain.ErrInvalidSignature
	}

	result, err := provider.NormalizeCallback(payload)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordCallback("malformed")
		}
		return domain.Payment{}, err
	}

	var (
		payment domain.Payment
		applied bool
		order   domain.Order
	)
	err = e.uow.Within(ctx, func(ctx context.Context) error {
		payment, err = e.payments.GetByProviderRef(ctx, result.ProviderRef)
		if err != nil {
			return err
		}

		// Идемпотентность через сравнение с текущим состоянием,
		// без отдельного журнала обработанных callback'ов.
		if payment.Status == result.Status {
			return nil
		}

		order, err = e.orders.GetForUpdate(ctx, payment.OrderID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		payment.Status = result.Status
		payment.UpdatedAt = now
		if result.Status == domain.PaymentStatusPaid {
			payment.PaidAt = now
		}
		if err := e.payments.Save(ctx, payment); err != nil {
			return err
		}

		// На заказ переносится только оплата. Refund меняет лишь попытку:
		// платёжное состояние заказа при возврате решается отдельно через
		// административный override.
		if result.Status == domain.PaymentStatusPaid {
			order.PaymentState = domain.PaymentStatePaid
			order.UpdatedAt = now
			if err := e.orders.Save(ctx, order); err != nil {
				return err
			}
		}

		actor := domain.Actor{UserID: order.UserID, Role: domain.RoleCustomer}
		e.appendAudit(ctx, actor, payment.OrderID, "payment_callback", domain.AuditOutcomeSuccess, result.RawStatus)
		e.emitPaymentEvent(ctx, payment, map[string]any{
			"raw_status": result.RawStatus,
		})
		applied = true
		return nil
	})
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordCallback("error")
		}
		e.logger.WithError(err).WithField("provider_ref", result.ProviderRef).Warn("callback handling failed")
		return domain.Payment{}, err
	}

	if !applied {
		if e.metrics != nil {
			e.metrics.RecordCallback("duplicate")
		}
		return payment, nil
	}

	if e.metrics != nil {
		e.metrics.RecordCallback(string(result.Status))
	}
	e.logger.WithFields(log.Fields{
		"order_id":   payment.OrderID,
		"payment_id": payment.ID,
		"status":     result.Status,
	}).Info("payment callback applied")

	// Уведомление уходит ровно один раз: только когда статус реально
	// сменился на paid.
	if result.Status == domain.PaymentStatusPaid {
		e.notifyPaid(order, payment)
	}
	return payment, nil
}

// ActiveStatus возвращает актуальную активную попытку заказа.
// Протухшая pending-попытка считается отсутствующей: то же окно
// валидности, что и при создании попыток.
func (e *Engine) ActiveStatus(ctx context.Context, actor domain.Actor, orderID string) (domain.Payment, error) {
	order, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return domain.Payment{}, domain.ErrOrderNotFound
	}

	pending, err := e.payments.LatestPending(ctx, orderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if !pending.Active(time.Now().UTC()) {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return pending, nil
}

// ReconcilePending опрашивает провайдера по активной попытке заказа и
// применяет актуальный статус. Используется для внеполосной сверки, когда
// callback потерялся.
func (e *Engine) ReconcilePending(ctx context.Context, orderID string) (domain.Payment, error) {
	pending, err := e.payments.LatestPending(ctx, orderID)
	if err != nil {
		return domain.Payment{}, err
	}

	provider, ok := e.providers[pending.Method]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentMethodUnknown
	}
	status, err := provider.QueryStatus(ctx, pending.ProviderRef)
	if err != nil {
		return domain.Payment{}, err
	}
	if status == pending.Status {
		return pending, nil
	}

	// Применяем через тот же транзакционный путь, что и callback.
	result := domain.CallbackResult{
		OrderID:     pending.OrderID,
		ProviderRef: pending.ProviderRef,
		Status:      status,
		RawStatus:   "reconciled",
	}
	return e.applyResult(ctx, result)
}

// applyResult повторяет транзакционную часть HandleCallback для
// внеполосной сверки.
func (e *Engine) applyResult(ctx context.Context, result domain.CallbackResult) (domain.Payment, error) {
	var (
		payment domain.Payment
		order   domain.Order
	)
	err := e.uow.Within(ctx, func(ctx context.Context) error {
		var err error
		payment, err = e.payments.GetByProviderRef(ctx, result.ProviderRef)
		if err != nil {
			return err
		}
		if payment.Status == result.Status {
			return nil
		}

		now := time.Now().UTC()
		payment.Status = result.Status
		payment.UpdatedAt = now
		if result.Status == domain.PaymentStatusPaid {
			payment.PaidAt = now
		}
		if err := e.payments.Save(ctx, payment); err != nil {
			return err
		}

		// Как и в HandleCallback: на заказ переносится только оплата,
		// refund остаётся на уровне попытки.
		if result.Status == domain.PaymentStatusPaid {
			order, err = e.orders.GetForUpdate(ctx, payment.OrderID)
			if err != nil {
				return err
			}
			order.PaymentState = domain.PaymentStatePaid
			order.UpdatedAt = now
			if err := e.orders.Save(ctx, order); err != nil {
				return err
			}
		}

		e.emitPaymentEvent(ctx, payment, map[string]any{
			"raw_status": result.RawStatus,
		})
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}

	if result.Status == domain.PaymentStatusPaid && order.ID != "" {
		e.notifyPaid(order, payment)
	}
	return payment, nil
}

// Shutdown дожидается завершения фоновых уведомлений.
func (e *Engine) Shutdown() {
	e.wg.Wait()
}

func (e *Engine) notifyPaid(order domain.Order, payment domain.Payment) {
	if e.notifier == nil {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.notifier.SendPaymentReceived(ctx, order, payment); err != nil {
			e.logger.WithError(err).WithField("order_id", order.ID).Warn("payment received notify failed")
		}
	}()
}

func (e *Engine) appendAudit(ctx context.Context, actor domain.Actor, orderID, operation string, outcome domain.AuditOutcome, message string) {
	entry := domain.AuditEntry{
		ID:        uuid.NewString(),
		UserID:    actor.UserID,
		OrderID:   orderID,
		Operation: operation,
		Outcome:   outcome,
		Message:   message,
		Occurred:  time.Now().UTC(),
	}
	if err := e.audit.Append(ctx, entry); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"order_id":  orderID,
			"operation": operation,
		}).Warn("append audit entry failed")
	}
}

// emitPaymentEvent кладёт типизированное платёжное событие в outbox в рамках
// текущей транзакции. Тип события выводится из канонического статуса попытки.
func (e *Engine) emitPaymentEvent(ctx context.Context, payment domain.Payment, metadata map[string]any) {
	eventType := kafka.PaymentEventFor(payment.Status)
	event := kafka.NewPaymentEvent(eventType, payment.OrderID, payment.ID,
		string(payment.Method), string(payment.Status), metadata)
	data, err := json.Marshal(event)
	if err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"order_id": payment.OrderID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "payment",
		AggregateID:   payment.OrderID,
		EventType:     string(eventType),
		Payload:       data,
	}
	if _, err := e.outbox.Enqueue(ctx, msg); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"order_id": payment.OrderID,
			"event":    eventType,
		}).Error("enqueue event failed")
	} else if e.metrics != nil {
		e.metrics.RecordOutboxEvent()
	}
}
