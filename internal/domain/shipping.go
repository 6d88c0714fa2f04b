package domain

import "time"

// ShippingStatus описывает состояние отправления у перевозчика.
type ShippingStatus string

const (
	// ShippingStatusCreated — накладная создана, перевозчик ещё не забрал груз.
	ShippingStatusCreated ShippingStatus = "created"
	// ShippingStatusInTransit — груз в пути.
	ShippingStatusInTransit ShippingStatus = "in_transit"
	// ShippingStatusDelivered — груз вручён получателю.
	ShippingStatusDelivered ShippingStatus = "delivered"
)

// Shipping — отправление заказа, не более одного на заказ.
// Создаётся только при переходе packed → shipped.
type Shipping struct {
	ID      string
	OrderID string
	Courier string
	// TrackingNumber может быть пустым, пока перевозчик его не присвоил.
	// Внутренний идентификатор заказа перевозчика сюда не подставляется.
	TrackingNumber string
	// CarrierOrderID — внешний идентификатор для корреляции webhook'ов перевозчика.
	CarrierOrderID string
	Status         ShippingStatus
	// EstimatedDelivery — обещанный перевозчиком срок, может быть нулевым.
	EstimatedDelivery time.Time
	ShippedAt         time.Time
	DeliveredAt       time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TrackingEvent — нормализованное событие трекинга, единое для всех перевозчиков.
type TrackingEvent struct {
	Status      string
	Description string
	Location    string
	Occurred    time.Time
}
