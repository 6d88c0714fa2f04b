package kafka

import (
	"time"

	"github.com/dimasprasetyo/orderflow/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated      EventType = "order.created"
	EventTypeOrderPacked       EventType = "order.packed"
	EventTypeOrderShipped      EventType = "order.shipped"
	EventTypeOrderReceived     EventType = "order.received"
	EventTypeOrderCancelled    EventType = "order.cancelled"
	EventTypePaymentOverridden EventType = "order.payment_overridden"

	// Payment события
	EventTypePaymentAttempt  EventType = "payment.attempt"
	EventTypePaymentPaid     EventType = "payment.paid"
	EventTypePaymentFailed   EventType = "payment.failed"
	EventTypePaymentRefunded EventType = "payment.refunded"

	// Shipping события
	EventTypeWaybillCreated    EventType = "shipping.waybill_created"
	EventTypeShipmentDelivered EventType = "shipping.delivered"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "orderflow.order.events"
	TopicPaymentEvents   = "orderflow.payment.events"
	TopicShippingEvents  = "orderflow.shipping.events"
	TopicDeadLetterQueue = "orderflow.dlq"
)

// OrderEventFor сопоставляет целевой статус заказа типу события.
func OrderEventFor(status domain.OrderStatus) EventType {
	switch status {
	case domain.OrderStatusPacked:
		return EventTypeOrderPacked
	case domain.OrderStatusShipped:
		return EventTypeOrderShipped
	case domain.OrderStatusReceived:
		return EventTypeOrderReceived
	case domain.OrderStatusCancelled:
		return EventTypeOrderCancelled
	default:
		return EventTypeOrderCreated
	}
}

// PaymentEventFor сопоставляет канонический статус платежа типу события.
// Pending и cancelled описывают жизненный цикл попытки, а не исход.
func PaymentEventFor(status domain.PaymentStatus) EventType {
	switch status {
	case domain.PaymentStatusPaid:
		return EventTypePaymentPaid
	case domain.PaymentStatusFailed:
		return EventTypePaymentFailed
	case domain.PaymentStatusRefunded:
		return EventTypePaymentRefunded
	default:
		return EventTypePaymentAttempt
	}
}

// OrderEvent представляет событие жизненного цикла заказа.
type OrderEvent struct {
	EventType EventType      `json:"event_type"`
	OrderID   string         `json:"order_id"`
	UserID    string         `json:"user_id"`
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// PaymentEvent представляет событие платёжной сверки.
type PaymentEvent struct {
	EventType EventType      `json:"event_type"`
	OrderID   string         `json:"order_id"`
	PaymentID string         `json:"payment_id"`
	Method    string         `json:"method"`
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ShippingEvent представляет событие отправления.
type ShippingEvent struct {
	EventType      EventType `json:"event_type"`
	OrderID        string    `json:"order_id"`
	Courier        string    `json:"courier"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewOrderEvent создаёт новое событие заказа.
func NewOrderEvent(eventType EventType, orderID, userID, status string, metadata map[string]any) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NewPaymentEvent создаёт новое платёжное событие.
func NewPaymentEvent(eventType EventType, orderID, paymentID, method, status string, metadata map[string]any) *PaymentEvent {
	return &PaymentEvent{
		EventType: eventType,
		OrderID:   orderID,
		PaymentID: paymentID,
		Method:    method,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NewShippingEvent создаёт новое событие отправления.
func NewShippingEvent(eventType EventType, shipping domain.Shipping) *ShippingEvent {
	return &ShippingEvent{
		EventType:      eventType,
		OrderID:        shipping.OrderID,
		Courier:        shipping.Courier,
		TrackingNumber: shipping.TrackingNumber,
		Status:         string(shipping.Status),
		Timestamp:      time.Now(),
	}
}
