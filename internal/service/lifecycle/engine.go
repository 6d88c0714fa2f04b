package lifecycle

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dimasprasetyo/orderflow/internal/domain"
	"github.com/dimasprasetyo/orderflow/internal/messaging/kafka"
	"github.com/dimasprasetyo/orderflow/internal/metrics"
)

// WaybillCreator создаёт накладную у перевозчика для заказа.
// Вызывается строго до открытия транзакции перехода packed → shipped.
type WaybillCreator interface {
	CreateWaybill(ctx context.Context, order domain.Order) (domain.Shipping, error)
}

// CheckoutInput — параметры оформления заказа.
type CheckoutInput struct {
	// CartItemIDs — подмножество строк корзины; пустой срез означает всю корзину.
	CartItemIDs []string
	AddressID   string
	CourierCode string
	ServiceCode string
	// ShippingMinor — стоимость доставки, выбранная клиентом.
	ShippingMinor int64
}

// Engine управляет жизненным циклом заказа: оформление, переходы статуса
// и административные переопределения. Все state-changing операции атомарны
// и журналируются.
type Engine struct {
	uow       domain.UnitOfWork
	orders    domain.OrderRepository
	carts     domain.CartRepository
	addresses domain.AddressRepository
	inventory domain.InventoryLedger
	shipments domain.ShippingRepository
	audit     domain.AuditLogRepository
	outbox    domain.OutboxRepository
	waybills  WaybillCreator
	notifier  domain.Notifier
	logger    *log.Entry
	metrics   *metrics.LifecycleMetrics

	wg sync.WaitGroup
}

// Deps — зависимости Engine.
type Deps struct {
	UnitOfWork domain.UnitOfWork
	Orders     domain.OrderRepository
	Carts      domain.CartRepository
	Addresses  domain.AddressRepository
	Inventory  domain.InventoryLedger
	Shipments  domain.ShippingRepository
	Audit      domain.AuditLogRepository
	Outbox     domain.OutboxRepository
	Waybills   WaybillCreator
	Notifier   domain.Notifier
	Logger     *log.Entry
	Metrics    *metrics.LifecycleMetrics
}

// NewEngine создаёт рабочий экземпляр движка жизненного цикла.
func NewEngine(deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = log.New().WithField("component", "lifecycle")
	}
	return &Engine{
		uow:       deps.UnitOfWork,
		orders:    deps.Orders,
		carts:     deps.Carts,
		addresses: deps.Addresses,
		inventory: deps.Inventory,
		shipments: deps.Shipments,
		audit:     deps.Audit,
		outbox:    deps.Outbox,
		waybills:  deps.Waybills,
		notifier:  deps.Notifier,
		logger:    logger,
		metrics:   deps.Metrics,
	}
}

// Checkout оформляет заказ из строк корзины: снапшотит цены, атомарно
// списывает сток, потребляет корзину и пишет журнал. При любой ошибке
// ни одно изменение не остаётся в хранилище.
func (e *Engine) Checkout(ctx context.Context, actor domain.Actor, in CheckoutInput) (domain.Order, error) {
	start := time.Now()
	if e.metrics != nil {
		e.metrics.RecordCheckoutStarted()
	}
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordCheckoutDuration(time.Since(start))
		}
	}()

	var order domain.Order
	err := e.uow.Within(ctx, func(ctx context.Context) error {
		address, err := e.addresses.Get(ctx, in.AddressID)
		if err != nil {
			return err
		}
		// Чужой адрес неотличим от несуществующего.
		if address.UserID != actor.UserID {
			return domain.ErrAddressNotFound
		}

		items, err := e.carts.ListByUser(ctx, actor.UserID, in.CartItemIDs)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return domain.ErrEmptyCart
		}

		now := time.Now().UTC()
		order = domain.Order{
			ID:            uuid.NewString(),
			UserID:        actor.UserID,
			Status:        domain.OrderStatusUnpaid,
			PaymentState:  domain.PaymentStateUnpaid,
			ShippingMinor: in.ShippingMinor,
			CourierCode:   in.CourierCode,
			ServiceCode:   in.ServiceCode,
			AddressID:     address.ID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		consumed := make([]string, 0, len(items))
		for _, item := range items {
			variant, err := e.inventory.GetVariant(ctx, item.VariantID)
			if err != nil {
				return err
			}
			if variant.ProductDeleted {
				return domain.ErrProductUnavailable
			}

			// Снапшот цены и имени на момент оформления.
			order.Items = append(order.Items, domain.OrderItem{
				ID:             uuid.NewString(),
				VariantID:      variant.ID,
				Name:           variant.Name,
				Qty:            item.Qty,
				PriceMinor:     variant.PriceMinor,
				BasePriceMinor: variant.BasePriceMinor,
				Currency:       variant.Currency,
				CreatedAt:      now,
			})
			order.AmountMinor += int64(item.Qty) * variant.PriceMinor
			order.Currency = variant.Currency
			consumed = append(consumed, item.ID)
		}

		if errs := order.ValidateInvariants(); len(errs) > 0 {
			return errs[0]
		}

		if err := e.orders.Create(ctx, order); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := e.inventory.Reserve(ctx, item.VariantID, item.Qty); err != nil {
				return err
			}
		}
		if err := e.carts.Delete(ctx, consumed); err != nil {
			return err
		}

		e.appendAudit(ctx, actor, order.ID, "checkout", domain.AuditOutcomeSuccess, "")
		e.emitOrderEvent(ctx, order, kafka.EventTypeOrderCreated, map[string]any{
			"amount_minor": order.AmountMinor,
			"currency":     order.Currency,
		})
		return nil
	})
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordCheckoutFailed()
		}
		e.logger.WithError(err).WithField("user_id", actor.UserID).Warn("checkout failed")
		return domain.Order{}, err
	}

	if e.metrics != nil {
		e.metrics.RecordCheckoutCompleted()
	}
	e.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"user_id":      order.UserID,
		"amount_minor": order.AmountMinor,
	}).Info("order created")

	e.runAsync(func(ctx context.Context) {
		if err := e.notifier.SendOrderConfirmation(ctx, order); err != nil {
			e.logger.WithError(err).WithField("order_id", order.ID).Warn("order confirmation notify failed")
		}
	})

	return order, nil
}

// Transition переводит заказ в целевой статус. Запрос текущего статуса
// является no-op успехом; переходы вне таблицы смежности отклоняются.
func (e *Engine) Transition(ctx context.Context, actor domain.Actor, orderID string, target domain.OrderStatus) (domain.Order, error) {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordTransitionDuration(string(target), time.Since(start))
		}
	}()

	if !target.Valid() {
		return domain.Order{}, domain.ErrStatusUnknown
	}

	current, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if err := e.authorizeTransition(actor, current, target); err != nil {
		e.appendAudit(ctx, actor, orderID, transitionOp(target), domain.AuditOutcomeFailure, err.Error())
		return domain.Order{}, err
	}
	if current.Status == target {
		return current, nil
	}
	if !current.Status.CanTransitionTo(target) {
		err := domain.ErrInvalidTransition
		if e.metrics != nil {
			e.metrics.RecordTransitionFailed(string(current.Status), string(target))
		}
		e.appendAudit(ctx, actor, orderID, transitionOp(target), domain.AuditOutcomeFailure, err.Error())
		return domain.Order{}, err
	}

	// Накладная создаётся до транзакции: вызов перевозчика не должен
	// удерживать блокировки БД. Ключ идемпотентности — ID заказа, поэтому
	// повтор после сбоя транзакции переиспользует ту же заявку.
	var shipping domain.Shipping
	if target == domain.OrderStatusShipped {
		shipping, err = e.waybills.CreateWaybill(ctx, current)
		if err != nil {
			if e.metrics != nil {
				e.metrics.RecordWaybillFailed()
				e.metrics.RecordTransitionFailed(string(current.Status), string(target))
			}
			e.appendAudit(ctx, actor, orderID, transitionOp(target), domain.AuditOutcomeFailure, err.Error())
			// Ошибка перевозчика уходит наружу дословно.
			return domain.Order{}, err
		}
		if e.metrics != nil {
			e.metrics.RecordWaybillCreated()
		}
	}

	var (
		updated domain.Order
		from    domain.OrderStatus
	)
	err = e.uow.Within(ctx, func(ctx context.Context) error {
		order, err := e.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		from = order.Status

		// Состояние могло измениться между чтением и блокировкой.
		if order.Status == target {
			updated = order
			return nil
		}
		if !order.Status.CanTransitionTo(target) {
			return domain.ErrInvalidTransition
		}

		now := time.Now().UTC()
		switch target {
		case domain.OrderStatusShipped:
			if err := e.shipments.Create(ctx, shipping); err != nil {
				return err
			}
			e.emitShippingEvent(ctx, kafka.EventTypeWaybillCreated, shipping)
		case domain.OrderStatusCancelled:
			// Отмена возвращает списанный сток в той же транзакции.
			for _, item := range order.Items {
				if err := e.inventory.Release(ctx, item.VariantID, item.Qty); err != nil {
					return err
				}
			}
		}

		order.Status = target
		order.UpdatedAt = now
		if err := e.orders.Save(ctx, order); err != nil {
			return err
		}
		order.Version++

		e.appendAudit(ctx, actor, order.ID, transitionOp(target), domain.AuditOutcomeSuccess, "")
		e.emitOrderEvent(ctx, order, kafka.OrderEventFor(target), map[string]any{
			"from": string(from),
		})

		updated = order
		return nil
	})
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordTransitionFailed(string(from), string(target))
		}
		e.appendAudit(ctx, actor, orderID, transitionOp(target), domain.AuditOutcomeFailure, err.Error())
		e.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"target":   target,
		}).Warn("transition failed")
		return domain.Order{}, err
	}

	if from == target {
		return updated, nil
	}

	if e.metrics != nil {
		e.metrics.RecordTransition(string(from), string(target))
	}
	e.logger.WithFields(log.Fields{
		"order_id": updated.ID,
		"from":     from,
		"to":       target,
	}).Info("order status changed")

	final := updated
	e.runAsync(func(ctx context.Context) {
		if err := e.notifier.SendStatusChange(ctx, final, from, target); err != nil {
			e.logger.WithError(err).WithField("order_id", final.ID).Warn("status change notify failed")
		}
	})

	return updated, nil
}

// OverridePaymentState — административное переопределение платёжного
// состояния заказа, минуя движок сверки. Журналируется всегда.
func (e *Engine) OverridePaymentState(ctx context.Context, actor domain.Actor, orderID string, state domain.PaymentState) (domain.Order, error) {
	if !actor.IsAdmin() {
		e.appendAudit(ctx, actor, orderID, "payment_override", domain.AuditOutcomeFailure, domain.ErrNotAuthorized.Error())
		return domain.Order{}, domain.ErrNotAuthorized
	}

	var updated domain.Order
	err := e.uow.Within(ctx, func(ctx context.Context) error {
		order, err := e.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		previous := order.PaymentState
		order.PaymentState = state
		order.UpdatedAt = time.Now().UTC()
		if err := e.orders.Save(ctx, order); err != nil {
			return err
		}
		order.Version++

		e.appendAudit(ctx, actor, order.ID, "payment_override", domain.AuditOutcomeSuccess,
			string(previous)+" -> "+string(state))
		e.emitOrderEvent(ctx, order, kafka.EventTypePaymentOverridden, map[string]any{
			"from": string(previous),
			"to":   string(state),
		})

		updated = order
		return nil
	})
	if err != nil {
		e.appendAudit(ctx, actor, orderID, "payment_override", domain.AuditOutcomeFailure, err.Error())
		return domain.Order{}, err
	}

	e.logger.WithFields(log.Fields{
		"order_id": updated.ID,
		"state":    state,
		"admin":    actor.UserID,
	}).Info("payment state overridden")
	return updated, nil
}

// GetOrder возвращает заказ; клиент видит только собственные заказы.
func (e *Engine) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (domain.Order, error) {
	order, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListOrders возвращает заказы пользователя, новые первыми.
func (e *Engine) ListOrders(ctx context.Context, actor domain.Actor, limit int) ([]domain.Order, error) {
	return e.orders.ListByUser(ctx, actor.UserID, limit)
}

// AuditTrail возвращает журнал операций по заказу (только админ).
func (e *Engine) AuditTrail(ctx context.Context, actor domain.Actor, orderID string) ([]domain.AuditEntry, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrNotAuthorized
	}
	return e.audit.ListByOrder(ctx, orderID)
}

// Shutdown дожидается завершения фоновых уведомлений.
func (e *Engine) Shutdown() {
	e.wg.Wait()
}

// authorizeTransition проверяет права актора на переход.
// Админ может всё; клиент-владелец может отменить неоплаченный заказ
// и подтвердить получение отправленного.
func (e *Engine) authorizeTransition(actor domain.Actor, order domain.Order, target domain.OrderStatus) error {
	if actor.IsAdmin() {
		return nil
	}
	if order.UserID != actor.UserID {
		return domain.ErrOrderNotFound
	}
	if order.Status == target {
		return nil
	}
	switch target {
	case domain.OrderStatusCancelled:
		if order.Status == domain.OrderStatusUnpaid {
			return nil
		}
	case domain.OrderStatusReceived:
		if order.Status == domain.OrderStatusShipped {
			return nil
		}
	}
	return domain.ErrNotAuthorized
}

// appendAudit пишет запись журнала; ошибка записи логируется и не
// прерывает основную операцию.
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

// emitOrderEvent кладёт типизированное событие заказа в outbox в рамках
// текущей транзакции.
func (e *Engine) emitOrderEvent(ctx context.Context, order domain.Order, eventType kafka.EventType, metadata map[string]any) {
	event := kafka.NewOrderEvent(eventType, order.ID, order.UserID, string(order.Status), metadata)
	e.enqueueEvent(ctx, "order", order.ID, eventType, event)
}

// emitShippingEvent кладёт событие отправления в outbox; такие события
// уходят в отдельный shipping-topic.
func (e *Engine) emitShippingEvent(ctx context.Context, eventType kafka.EventType, shipping domain.Shipping) {
	event := kafka.NewShippingEvent(eventType, shipping)
	e.enqueueEvent(ctx, "shipping", shipping.OrderID, eventType, event)
}

func (e *Engine) enqueueEvent(ctx context.Context, aggregateType, aggregateID string, eventType kafka.EventType, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"aggregate_id": aggregateID,
			"event":        eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     string(eventType),
		Payload:       data,
	}
	if _, err := e.outbox.Enqueue(ctx, msg); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"aggregate_id": aggregateID,
			"event":        eventType,
		}).Error("enqueue event failed")
	} else if e.metrics != nil {
		e.metrics.RecordOutboxEvent()
	}
}

// runAsync запускает fire-and-forget задачу с собственным таймаутом,
// не привязанным к контексту запроса.
func (e *Engine) runAsync(fn func(ctx context.Context)) {
	if e.notifier == nil {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		fn(ctx)
	}()
}

func transitionOp(target domain.OrderStatus) string {
	return "transition_" + string(target)
}
